package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/playperu/beachclub/internal/beachclub"
	"github.com/playperu/beachclub/internal/notify"
	"github.com/playperu/beachclub/internal/suggest"
)

// PublicReservationRequest is what a guest submits from the booking page.
type PublicReservationRequest struct {
	GuestName  string             `json:"guestName"`
	Contact    string             `json:"contact"`
	ZoneType   beachclub.ZoneType `json:"zoneType"`
	Date       string             `json:"date"`
	Time       string             `json:"time"`
	GuestCount int                `json:"guestCount"`
	Notes      string             `json:"notes"`
}

// PublicReservationResponse carries no staff-only fields.
type PublicReservationResponse struct {
	ID     string                      `json:"id"`
	Status beachclub.ReservationStatus `json:"status"`
	Date   string                      `json:"date"`
	Time   string                      `json:"time"`
}

// AvailabilityResponse counts free zones able to seat the party, by type.
type AvailabilityResponse struct {
	Guests int                        `json:"guests"`
	ByType map[beachclub.ZoneType]int `json:"byType"`
	Total  int                        `json:"total"`
}

// handlePublicReservation creates a pending booking. Guests cannot choose
// the status or arrival fields; staff confirm bookings from the board.
func handlePublicReservation(logger *slog.Logger, store *DocStore, broker *Broker, notifier notify.Notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PublicReservationRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Contact) == "" {
			writeError(w, http.StatusBadRequest, "contact is required")
			return
		}

		body, _ := json.Marshal(beachclub.Reservation{
			GuestName:  strings.TrimSpace(req.GuestName),
			Contact:    strings.TrimSpace(req.Contact),
			ZoneType:   req.ZoneType,
			Date:       req.Date,
			Time:       req.Time,
			GuestCount: req.GuestCount,
			Notes:      req.Notes,
		})

		res, err := store.CreateReservation(r.Context(), body)
		if errors.Is(err, beachclub.ErrInvalid) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			logger.Error("creating reservation", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		publishRow(broker, beachclub.EventInsert, beachclub.TableReservations, res, nil)

		// The booking is stored; a broker outage must not fail the guest.
		nctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
		if err := notifier.ReservationCreated(nctx, res); err != nil {
			logger.Warn("reservation notification failed", "reservation_id", res.ID, "error", err)
		}
		cancel()

		logger.Info("public reservation created", "reservation_id", res.ID, "date", res.Date, "time", res.Time)
		writeJSON(w, http.StatusCreated, PublicReservationResponse{
			ID:     res.ID,
			Status: res.Status,
			Date:   res.Date,
			Time:   res.Time,
		})
	}
}

func handleAvailability(logger *slog.Logger, store *DocStore) http.HandlerFunc {
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

		resp := AvailabilityResponse{Guests: guests, ByType: make(map[beachclub.ZoneType]int)}
		for _, t := range beachclub.ZoneTypes {
			resp.ByType[t] = 0
		}
		for _, z := range zones {
			if z.Status != beachclub.ZoneFree {
				continue
			}
			if _, fits := suggest.Score(guests, z); fits {
				resp.ByType[z.Type]++
				resp.Total++
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
