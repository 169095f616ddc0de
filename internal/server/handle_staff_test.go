package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestStaffLogin(t *testing.T) {
	tests := []struct {
		name       string
		body       StaffLoginRequest
		wantStatus int
	}{
		{"good credentials", StaffLoginRequest{Username: testUser, Password: testPassword}, http.StatusOK},
		{"username is case-insensitive", StaffLoginRequest{Username: "  Marco ", Password: testPassword}, http.StatusOK},
		{"wrong password", StaffLoginRequest{Username: testUser, Password: "wrong"}, http.StatusUnauthorized},
		{"unknown user", StaffLoginRequest{Username: "nobody", Password: testPassword}, http.StatusUnauthorized},
		{"missing fields", StaffLoginRequest{}, http.StatusBadRequest},
	}

	env := newTestEnv(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/staff/login", tt.body)
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}

			found := false
			for _, c := range w.Result().Cookies() {
				if c.Name == staffCookieName && c.Value != "" && c.HttpOnly {
					found = true
				}
			}
			if !found {
				t.Error("expected staff_session cookie to be set")
			}
		})
	}
}

func TestStaffMe(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodGet, "/api/staff/me", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("without session: expected 401, got %d", w.Code)
	}

	env.login(t)
	w := env.do(t, http.MethodGet, "/api/staff/me", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var me StaffMeResponse
	json.NewDecoder(w.Body).Decode(&me)
	if me.Username != testUser || me.DisplayName != "Marco" {
		t.Errorf("me = %+v", me)
	}
}

func TestStaffLogout(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	if w := env.do(t, http.MethodPost, "/api/staff/logout", nil); w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
	// The old cookie must no longer open a session.
	if w := env.do(t, http.MethodGet, "/api/staff/me", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("after logout: expected 401, got %d", w.Code)
	}
}

func TestStaffSessionExpires(t *testing.T) {
	env := newTestEnv(t)
	env.login(t)

	env.clock.Advance(staffSessionTTL - time.Minute)
	if w := env.do(t, http.MethodGet, "/api/staff/me", nil); w.Code != http.StatusOK {
		t.Fatalf("before expiry: expected 200, got %d", w.Code)
	}

	env.clock.Advance(time.Minute)
	if w := env.do(t, http.MethodGet, "/api/staff/me", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("at expiry: expected 401, got %d", w.Code)
	}

	// A fresh login works again.
	env.login(t)
	if w := env.do(t, http.MethodGet, "/api/staff/me", nil); w.Code != http.StatusOK {
		t.Errorf("after new login: expected 200, got %d", w.Code)
	}
}

func TestStaffStoreEnsureAndConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.staff.EnsureStaff(ctx, "other", "pw")
	if err != nil {
		t.Fatal(err)
	}
	if created {
		t.Error("EnsureStaff created an account although staff exist")
	}

	if _, err := env.staff.CreateStaff(ctx, "MARCO", "Dup", "pw"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate username: err = %v, want ErrConflict", err)
	}
}
