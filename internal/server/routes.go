package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("Beach Club API", "/openapi.json", "/docs"))

	r.Route("/api", func(r chi.Router) {
		r.Post("/staff/login", handleStaffLogin(deps.Staff))
		r.Post("/staff/logout", handleStaffLogout(deps.Staff))

		// Guest-facing booking funnel, no session.
		r.Post("/public/reservations", handlePublicReservation(logger, deps.Store, deps.Broker, deps.Notifier))
		r.Get("/public/availability", handleAvailability(logger, deps.Store))

		r.Group(func(r chi.Router) {
			r.Use(staffAuthMiddleware(deps.Staff))

			r.Get("/staff/me", handleStaffMe())

			mountTable(r, logger, deps.Store, deps.Broker, zoneTable)
			mountTable(r, logger, deps.Store, deps.Broker, orderTable)
			mountTable(r, logger, deps.Store, deps.Broker, reservationTable)

			r.Get("/board", handleBoard(logger, deps.Store, deps.Clock, deps.Policy))
			r.Get("/suggestions", handleSuggestions(logger, deps.Store))
			r.Get("/changes", handleChanges(deps.Broker))
			r.Get("/changes/ws", handleChangesWS(logger, deps.Broker))
		})
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
