package server

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// StaffLoginRequest is the request body for POST /api/staff/login.
type StaffLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StaffMeResponse describes the logged-in staff member.
type StaffMeResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

const staffSessionTTL = 12 * time.Hour

func handleStaffLogin(staff *StaffStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StaffLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Username) == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		doc, err := staff.Authenticate(r.Context(), req.Username, req.Password)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		sessionID, err := staff.CreateSession(r.Context(), doc.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     staffCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(staffSessionTTL / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, StaffMeResponse{
			ID:          doc.ID,
			Username:    doc.Username,
			DisplayName: doc.DisplayName,
		})
	}
}

func handleStaffLogout(staff *StaffStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(staffCookieName)
		if err == nil && cookie.Value != "" {
			staff.DeleteSession(r.Context(), cookie.Value)
		}

		http.SetCookie(w, &http.Cookie{
			Name:     staffCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleStaffMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := staffFrom(r)
		writeJSON(w, http.StatusOK, StaffMeResponse{
			ID:          sess.StaffID,
			Username:    sess.Username,
			DisplayName: sess.DisplayName,
		})
	}
}
