package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/beachclub/internal/beachclub"
	"github.com/playperu/beachclub/internal/suggest"
)

// ErrorResponse is returned for all non-envelope error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse maps each dependency to its status.
type HealthResponse map[string]struct {
	Status string `json:"status"`
}

// envelopeOf documents Envelope with a concrete data type.
type envelopeOf[T any] struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    T      `json:"data,omitempty"`
}

type tableQuery struct {
	Table string `query:"table" required:"true" enum:"zones,orders,reservations"`
}

type boardQuery struct {
	Guests int  `query:"guests" minimum:"1"`
	All    bool `query:"all"`
}

type guestsQuery struct {
	Guests int `query:"guests" required:"true" minimum:"1"`
}

type idPath struct {
	ID string `path:"id"`
}

func addTableOps[T any](r *openapi3.Reflector, table, label string) {
	base := "/api/" + table

	list, _ := r.NewOperationContext(http.MethodGet, base)
	list.SetSummary("List " + table)
	list.SetDescription("Returns every " + label + ". Requires staff_session cookie.")
	list.SetTags(table)
	list.AddRespStructure(envelopeOf[[]T]{}, openapi.WithHTTPStatus(http.StatusOK))
	list.AddRespStructure(envelopeOf[any]{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(list)

	create, _ := r.NewOperationContext(http.MethodPost, base)
	create.SetSummary("Create " + label)
	create.SetDescription("Stores a new " + label + " with version 1 and publishes an insert event. Server-assigned fields in the body are ignored.")
	create.SetTags(table)
	create.AddReqStructure(new(T))
	create.AddRespStructure(envelopeOf[T]{}, openapi.WithHTTPStatus(http.StatusCreated))
	create.AddRespStructure(envelopeOf[any]{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(create)

	update, _ := r.NewOperationContext(http.MethodPatch, base+"/{id}")
	update.SetSummary("Update " + label)
	update.SetDescription("Merges the given top-level fields, bumps the version and publishes an update event.")
	update.SetTags(table)
	update.AddReqStructure(idPath{})
	update.AddRespStructure(envelopeOf[T]{}, openapi.WithHTTPStatus(http.StatusOK))
	update.AddRespStructure(envelopeOf[any]{}, openapi.WithHTTPStatus(http.StatusNotFound))
	update.AddRespStructure(envelopeOf[any]{}, openapi.WithHTTPStatus(http.StatusUnprocessableEntity))
	_ = r.AddOperation(update)

	del, _ := r.NewOperationContext(http.MethodDelete, base+"/{id}")
	del.SetSummary("Delete " + label)
	del.SetDescription("Removes the " + label + " and publishes a delete event carrying the old row.")
	del.SetTags(table)
	del.AddReqStructure(idPath{})
	del.AddRespStructure(envelopeOf[any]{}, openapi.WithHTTPStatus(http.StatusOK))
	del.AddRespStructure(envelopeOf[any]{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(del)
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Beach Club API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Floor service for the beach club: zones, bar orders, reservations and their change stream.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// POST /api/staff/login
	postLogin, _ := r.NewOperationContext(http.MethodPost, "/api/staff/login")
	postLogin.SetSummary("Staff login")
	postLogin.SetDescription("Authenticate with username and password. Sets the staff_session cookie.")
	postLogin.SetTags("staff")
	postLogin.AddReqStructure(StaffLoginRequest{})
	postLogin.AddRespStructure(StaffMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postLogin.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postLogin)

	// POST /api/staff/logout
	postLogout, _ := r.NewOperationContext(http.MethodPost, "/api/staff/logout")
	postLogout.SetSummary("Staff logout")
	postLogout.SetDescription("Clears the staff session and cookie.")
	postLogout.SetTags("staff")
	postLogout.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(postLogout)

	// GET /api/staff/me
	getMe, _ := r.NewOperationContext(http.MethodGet, "/api/staff/me")
	getMe.SetSummary("Current staff member")
	getMe.SetTags("staff")
	getMe.AddRespStructure(StaffMeResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getMe.AddRespStructure(envelopeOf[any]{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(getMe)

	addTableOps[beachclub.Zone](r, beachclub.TableZones, "zone")
	addTableOps[beachclub.Order](r, beachclub.TableOrders, "order")
	addTableOps[beachclub.Reservation](r, beachclub.TableReservations, "reservation")

	// GET /api/board
	getBoard, _ := r.NewOperationContext(http.MethodGet, "/api/board")
	getBoard.SetSummary("Staff board")
	getBoard.SetDescription("All records with alert flags evaluated at request time. Cancelled orders are hidden unless all=true. guests adds zone suggestions.")
	getBoard.SetTags("board")
	getBoard.AddReqStructure(boardQuery{})
	getBoard.AddRespStructure(BoardResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getBoard.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getBoard)

	// GET /api/suggestions
	getSuggestions, _ := r.NewOperationContext(http.MethodGet, "/api/suggestions")
	getSuggestions.SetSummary("Zone suggestions")
	getSuggestions.SetDescription("Up to five free zones for the party, best fit first.")
	getSuggestions.SetTags("board")
	getSuggestions.AddReqStructure(guestsQuery{})
	getSuggestions.AddRespStructure([]suggest.Suggestion{}, openapi.WithHTTPStatus(http.StatusOK))
	getSuggestions.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getSuggestions)

	// GET /api/changes
	getChanges, _ := r.NewOperationContext(http.MethodGet, "/api/changes")
	getChanges.SetSummary("Change stream (SSE)")
	getChanges.SetDescription("Server-Sent Events; each change event carries eventType, table, new and old.")
	getChanges.SetTags("changes")
	getChanges.AddReqStructure(tableQuery{})
	getChanges.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getChanges)

	// GET /api/changes/ws
	getChangesWS, _ := r.NewOperationContext(http.MethodGet, "/api/changes/ws")
	getChangesWS.SetSummary("Change stream (WebSocket)")
	getChangesWS.SetDescription("Upgrades to a WebSocket that sends one JSON change event per text message.")
	getChangesWS.SetTags("changes")
	getChangesWS.AddReqStructure(tableQuery{})
	getChangesWS.AddRespStructure(beachclub.Event{}, openapi.WithHTTPStatus(http.StatusSwitchingProtocols))
	_ = r.AddOperation(getChangesWS)

	// POST /api/public/reservations
	postReservation, _ := r.NewOperationContext(http.MethodPost, "/api/public/reservations")
	postReservation.SetSummary("Book a zone")
	postReservation.SetDescription("Guest booking. Creates a pending reservation for staff to confirm.")
	postReservation.SetTags("public")
	postReservation.AddReqStructure(PublicReservationRequest{})
	postReservation.AddRespStructure(PublicReservationResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postReservation.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(postReservation)

	// GET /api/public/availability
	getAvailability, _ := r.NewOperationContext(http.MethodGet, "/api/public/availability")
	getAvailability.SetSummary("Availability")
	getAvailability.SetDescription("Counts free zones able to seat the party, by zone type.")
	getAvailability.SetTags("public")
	getAvailability.AddReqStructure(guestsQuery{})
	getAvailability.AddRespStructure(AvailabilityResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getAvailability.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	_ = r.AddOperation(getAvailability)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
