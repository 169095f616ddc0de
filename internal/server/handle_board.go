package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/playperu/beachclub/internal/alerts"
	"github.com/playperu/beachclub/internal/beachclub"
	"github.com/playperu/beachclub/internal/clock"
	"github.com/playperu/beachclub/internal/suggest"
)

type BoardZone struct {
	beachclub.Zone
	Alerts      alerts.State `json:"alerts"`
	OccupiedFor string       `json:"occupiedFor,omitempty"`
}

type BoardOrder struct {
	beachclub.Order
	Alerts alerts.State `json:"alerts"`
	Age    string       `json:"age"`
}

type BoardReservation struct {
	beachclub.Reservation
	Alerts alerts.State `json:"alerts"`
}

// BoardResponse is the staff board evaluated at Now.
type BoardResponse struct {
	Now          time.Time            `json:"now"`
	Summary      alerts.Summary       `json:"summary"`
	Zones        []BoardZone          `json:"zones"`
	Orders       []BoardOrder         `json:"orders"`
	Reservations []BoardReservation   `json:"reservations"`
	Suggestions  []suggest.Suggestion `json:"suggestions,omitempty"`
}

// guestsParam reads ?guests=. ok is false when the value is present but
// not a positive integer.
func guestsParam(r *http.Request) (n int, present, ok bool) {
	raw := r.URL.Query().Get("guests")
	if raw == "" {
		return 0, false, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, true, false
	}
	return n, true, true
}

func buildBoard(policy alerts.Policy, now time.Time, zones []beachclub.Zone, orders []beachclub.Order, reservations []beachclub.Reservation, showAll bool) BoardResponse {
	b := BoardResponse{
		Now:          now,
		Summary:      policy.Summarize(zones, orders, reservations, now),
		Zones:        make([]BoardZone, 0, len(zones)),
		Orders:       make([]BoardOrder, 0, len(orders)),
		Reservations: make([]BoardReservation, 0, len(reservations)),
	}

	for _, z := range zones {
		bz := BoardZone{Zone: z, Alerts: policy.Zone(z, now)}
		if z.OccupiedSince != nil {
			bz.OccupiedFor = alerts.FormatDuration(alerts.OccupationMinutes(z, now))
		}
		b.Zones = append(b.Zones, bz)
	}

	for _, o := range orders {
		if o.Status == beachclub.OrderCancelled && !showAll {
			continue
		}
		b.Orders = append(b.Orders, BoardOrder{
			Order:  o,
			Alerts: policy.Order(o, now),
			Age:    alerts.FormatDuration(alerts.ElapsedMinutes(o.CreatedAt, now)),
		})
	}

	for _, r := range reservations {
		b.Reservations = append(b.Reservations, BoardReservation{
			Reservation: r,
			Alerts:      policy.Reservation(r, now),
		})
	}
	return b
}

// handleBoard evaluates every alert at request time. ?all=true keeps
// cancelled orders; ?guests=N adds zone suggestions.
func handleBoard(logger *slog.Logger, store *DocStore, clk clock.Clock, policy alerts.Policy) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guests, present, ok := guestsParam(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "guests must be a positive integer")
			return
		}

		ctx := r.Context()
		zones, err := store.Zones(ctx)
		if err != nil {
			logger.Error("loading zones", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		orders, err := store.Orders(ctx)
		if err != nil {
			logger.Error("loading orders", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		reservations, err := store.Reservations(ctx)
		if err != nil {
			logger.Error("loading reservations", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		board := buildBoard(policy, clk.Now(), zones, orders, reservations, r.URL.Query().Get("all") == "true")
		if present {
			board.Suggestions = suggest.Zones(guests, zones)
		}
		writeJSON(w, http.StatusOK, board)
	}
}

func handleSuggestions(logger *slog.Logger, store *DocStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guests, present, ok := guestsParam(r)
		if !ok || !present {
			writeError(w, http.StatusBadRequest, "guests must be a positive integer")
			return
		}

		zones, err := store.Zones(r.Context())
		if err != nil {
			logger.Error("loading zones", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, suggest.Zones(guests, zones))
	}
}
