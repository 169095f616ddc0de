package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/playperu/beachclub/internal/alerts"
	"github.com/playperu/beachclub/internal/beachclub"
	"github.com/playperu/beachclub/internal/clock"
	"github.com/playperu/beachclub/internal/database"
	"github.com/playperu/beachclub/internal/migrations"
)

const (
	testUser     = "marco"
	testPassword = "sandcastle"
)

var testStart = time.Date(2026, 7, 14, 12, 0, 0, 0, time.UTC)

type testEnv struct {
	handler  http.Handler
	store    *DocStore
	staff    *StaffStore
	broker   *Broker
	clock    *clock.Manual
	notifier *recordingNotifier
	cookies  []*http.Cookie
}

type recordingNotifier struct {
	created []beachclub.Reservation
	err     error
}

func (n *recordingNotifier) ReservationCreated(_ context.Context, r beachclub.Reservation) error {
	n.created = append(n.created, r)
	return n.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := migrations.Run(ctx, db, quietLogger()); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	clk := clock.NewManual(testStart)
	env := &testEnv{
		store:    NewDocStore(db, clk),
		staff:    NewStaffStore(db, clk),
		broker:   NewBroker(quietLogger(), nil),
		clock:    clk,
		notifier: &recordingNotifier{},
	}
	env.staff.cost = bcrypt.MinCost
	if _, err := env.staff.CreateStaff(ctx, testUser, "Marco", testPassword); err != nil {
		t.Fatalf("creating staff: %v", err)
	}

	srv := New(":0", quietLogger(), Deps{
		Store:    env.store,
		Staff:    env.staff,
		Broker:   env.broker,
		Notifier: env.notifier,
		Clock:    clk,
		Policy:   alerts.DefaultPolicy(),
	}, nil)
	env.handler = srv.Handler()
	return env
}

// login opens a staff session and keeps its cookie for later requests.
func (e *testEnv) login(t *testing.T) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/staff/login", StaffLoginRequest{Username: testUser, Password: testPassword})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	e.cookies = w.Result().Cookies()
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	for _, c := range e.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// decodeEnvelope decodes an envelope response, unpacking data into dest.
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder, dest any) Envelope {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Error   string          `json:"error"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&raw); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if dest != nil && len(raw.Data) > 0 {
		if err := json.Unmarshal(raw.Data, dest); err != nil {
			t.Fatalf("decoding data: %v", err)
		}
	}
	return Envelope{Success: raw.Success, Error: raw.Error}
}

func (e *testEnv) createZone(t *testing.T, name string, typ beachclub.ZoneType, capacity int) beachclub.Zone {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/zones", map[string]any{"name": name, "type": typ, "capacity": capacity})
	if w.Code != http.StatusCreated {
		t.Fatalf("create zone: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var z beachclub.Zone
	decodeEnvelope(t, w, &z)
	return z
}

func (e *testEnv) createOrder(t *testing.T, target string) beachclub.Order {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/orders", map[string]any{
		"target":     target,
		"items":      []beachclub.OrderItem{{Name: "Spritz", Qty: 2}},
		"totalCents": 1600,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var o beachclub.Order
	decodeEnvelope(t, w, &o)
	return o
}
