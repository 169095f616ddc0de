package server

import (
	"context"
	"net/http"
)

type ctxKey int

const ctxKeyStaff ctxKey = iota

const staffCookieName = "staff_session"

func staffAuthMiddleware(staff *StaffStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(staffCookieName)
			if err != nil || cookie.Value == "" {
				writeFailure(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			sess, err := staff.StaffFromSession(r.Context(), cookie.Value)
			if err != nil {
				writeFailure(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyStaff, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func staffFrom(r *http.Request) staffSession {
	return r.Context().Value(ctxKeyStaff).(staffSession)
}
