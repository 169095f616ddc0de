package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/playperu/beachclub/internal/beachclub"
	"github.com/playperu/beachclub/internal/clock"
)

// DocStore keeps zones, orders and reservations in per-table JSONB
// documents. Every write bumps the row's version.
type DocStore struct {
	db    *sql.DB
	clock clock.Clock
}

func NewDocStore(db *sql.DB, clk clock.Clock) *DocStore {
	return &DocStore{db: db, clock: clk}
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func invalidBody(err error) error {
	return fmt.Errorf("%w: %v", beachclub.ErrInvalid, err)
}

func getDoc[T record](ctx context.Context, q queryer, t tableSpec[T], id string) (T, error) {
	var rec T
	var data string
	err := q.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s WHERE id = ?`, t.name), id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	err = json.Unmarshal([]byte(data), &rec)
	return rec, err
}

func putDoc[T record](ctx context.Context, e execer, t tableSpec[T], rec T) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	cols := append([]string{"id", "version"}, t.columns...)
	args := append([]any{rec.RecordID(), rec.RecordVersion()}, t.values(rec)...)

	set := make([]string, 0, len(cols))
	for _, c := range cols[1:] {
		set = append(set, fmt.Sprintf("%s = excluded.%s", c, c))
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s, data) VALUES (%s, jsonb(?))
		 ON CONFLICT(id) DO UPDATE SET %s, data = excluded.data`,
		t.name,
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
		strings.Join(set, ", "),
	)
	_, err = e.ExecContext(ctx, query, append(args, string(data))...)
	return err
}

func listDocs[T record](ctx context.Context, s *DocStore, t tableSpec[T]) ([]T, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT json(data) FROM %s ORDER BY %s`, t.name, t.orderBy),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var rec T
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("decoding %s row: %w", t.name, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func countDocs[T record](ctx context.Context, s *DocStore, t tableSpec[T]) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, t.name)).Scan(&n)
	return n, err
}

// serverFields are never taken from a request body.
var serverFields = []string{"id", "version"}

func stripServerFields(body map[string]json.RawMessage) {
	for _, f := range serverFields {
		delete(body, f)
	}
}

// createDoc decodes body into a new record, assigns its id and version 1,
// and stores it.
func createDoc[T record](ctx context.Context, s *DocStore, t tableSpec[T], body json.RawMessage) (T, error) {
	var rec T

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return rec, invalidBody(err)
	}
	stripServerFields(fields)
	clean, _ := json.Marshal(fields)
	if err := json.Unmarshal(clean, &rec); err != nil {
		return rec, invalidBody(err)
	}

	t.create(&rec, uuid.NewString(), s.clock.Now())
	t.stamp(&rec, 1)
	if err := rec.Validate(); err != nil {
		return rec, err
	}

	if err := putDoc(ctx, s.db, t, rec); err != nil {
		return rec, fmt.Errorf("storing %s: %w", t.name, err)
	}
	return rec, nil
}

// updateDoc merges the top-level fields of patch into the stored record,
// checks the result against the table's rules and stores it with the next
// version. It returns the record before and after the change.
func updateDoc[T record](ctx context.Context, s *DocStore, t tableSpec[T], id string, patch json.RawMessage) (old, next T, err error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return old, next, invalidBody(err)
	}
	stripServerFields(fields)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return old, next, err
	}
	defer tx.Rollback()

	old, err = getDoc(ctx, tx, t, id)
	if err != nil {
		return old, next, err
	}

	current, err := json.Marshal(old)
	if err != nil {
		return old, next, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(current, &merged); err != nil {
		return old, next, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	raw, _ := json.Marshal(merged)
	if err := json.Unmarshal(raw, &next); err != nil {
		return old, next, invalidBody(err)
	}

	if err := t.update(old, &next, s.clock.Now()); err != nil {
		return old, next, err
	}
	t.stamp(&next, old.RecordVersion()+1)

	if err := putDoc(ctx, tx, t, next); err != nil {
		return old, next, fmt.Errorf("storing %s: %w", t.name, err)
	}
	return old, next, tx.Commit()
}

func deleteDoc[T record](ctx context.Context, s *DocStore, t tableSpec[T], id string) (T, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	defer tx.Rollback()

	old, err := getDoc(ctx, tx, t, id)
	if err != nil {
		return old, err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, t.name), id); err != nil {
		return old, err
	}
	return old, tx.Commit()
}

// Typed entry points used by the board and the public funnel.

func (s *DocStore) Zones(ctx context.Context) ([]beachclub.Zone, error) {
	return listDocs(ctx, s, zoneTable)
}

func (s *DocStore) Orders(ctx context.Context) ([]beachclub.Order, error) {
	return listDocs(ctx, s, orderTable)
}

func (s *DocStore) Reservations(ctx context.Context) ([]beachclub.Reservation, error) {
	return listDocs(ctx, s, reservationTable)
}

func (s *DocStore) CreateReservation(ctx context.Context, body json.RawMessage) (beachclub.Reservation, error) {
	return createDoc(ctx, s, reservationTable, body)
}
