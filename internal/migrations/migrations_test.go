package migrations_test

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/playperu/beachclub/internal/database"
	"github.com/playperu/beachclub/internal/migrations"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("opening database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrations(t *testing.T) {
	db := openDB(t)

	if err := migrations.Run(context.Background(), db, quietLogger()); err != nil {
		t.Fatalf("running migrations: %v", err)
	}

	for _, table := range []string{"zones", "orders", "reservations", "staff", "staff_sessions"} {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrationsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)

	if err := migrations.Run(ctx, db, quietLogger()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, err := migrations.Version(ctx, db)
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if first != 2 {
		t.Errorf("version after first run = %d, want 2", first)
	}

	if err := migrations.Run(ctx, db, quietLogger()); err != nil {
		t.Fatalf("second run (should be no-op): %v", err)
	}
	if second, _ := migrations.Version(ctx, db); second != first {
		t.Errorf("version moved from %d to %d", first, second)
	}
}

func TestSessionsCascade(t *testing.T) {
	db := openDB(t)
	if err := migrations.Run(context.Background(), db, quietLogger()); err != nil {
		t.Fatal(err)
	}

	if _, err := db.Exec(`INSERT INTO staff (id, username, data) VALUES ('s1', 'marco', jsonb('{}'))`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO staff_sessions (id, staff_id, created_at) VALUES ('t1', 's1', '2026-07-01')`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`DELETE FROM staff WHERE id = 's1'`); err != nil {
		t.Fatal(err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM staff_sessions`).Scan(&n)
	if n != 0 {
		t.Errorf("sessions left = %d, want 0", n)
	}
}
