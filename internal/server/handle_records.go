package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/beachclub/internal/beachclub"
)

const maxBodyBytes = 1 << 20

// mountTable registers list, create, update and delete for one table.
// Mutations answer with the success/error/data envelope and publish a
// change event once stored.
func mountTable[T record](r chi.Router, logger *slog.Logger, store *DocStore, broker *Broker, t tableSpec[T]) {
	r.Route("/"+t.name, func(r chi.Router) {
		r.Get("/", handleList(logger, store, t))
		r.Post("/", handleCreate(logger, store, broker, t))
		r.Patch("/{id}", handleUpdate(logger, store, broker, t))
		r.Delete("/{id}", handleDelete(logger, store, broker, t))
	})
}

func readBody(r *http.Request) (json.RawMessage, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// writeStoreError maps store errors onto the envelope.
func writeStoreError(w http.ResponseWriter, logger *slog.Logger, table string, err error) {
	switch {
	case errors.Is(err, beachclub.ErrInvalid):
		writeFailure(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrNotFound):
		writeFailure(w, http.StatusNotFound, table+" record not found")
	case errors.Is(err, ErrConflict):
		writeFailure(w, http.StatusConflict, err.Error())
	default:
		logger.Error("store operation failed", "table", table, "error", err)
		writeFailure(w, http.StatusInternalServerError, "internal error")
	}
}

func handleList[T record](logger *slog.Logger, store *DocStore, t tableSpec[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := listDocs(r.Context(), store, t)
		if err != nil {
			writeStoreError(w, logger, t.name, err)
			return
		}
		writeOK(w, http.StatusOK, items)
	}
}

func handleCreate[T record](logger *slog.Logger, store *DocStore, broker *Broker, t tableSpec[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid request body")
			return
		}

		rec, err := createDoc(r.Context(), store, t, body)
		if err != nil {
			writeStoreError(w, logger, t.name, err)
			return
		}

		publishRow(broker, beachclub.EventInsert, t.name, rec, nil)
		logger.Info("record created", "table", t.name, "id", rec.RecordID(), "staff", staffFrom(r).Username)
		writeOK(w, http.StatusCreated, rec)
	}
}

func handleUpdate[T record](logger *slog.Logger, store *DocStore, broker *Broker, t tableSpec[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := readBody(r)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "invalid request body")
			return
		}

		old, next, err := updateDoc(r.Context(), store, t, chi.URLParam(r, "id"), body)
		if err != nil {
			writeStoreError(w, logger, t.name, err)
			return
		}

		publishRow(broker, beachclub.EventUpdate, t.name, next, old)
		logger.Debug("record updated", "table", t.name, "id", next.RecordID(), "version", next.RecordVersion())
		writeOK(w, http.StatusOK, next)
	}
}

func handleDelete[T record](logger *slog.Logger, store *DocStore, broker *Broker, t tableSpec[T]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		old, err := deleteDoc(r.Context(), store, t, chi.URLParam(r, "id"))
		if err != nil {
			writeStoreError(w, logger, t.name, err)
			return
		}

		publishRow(broker, beachclub.EventDelete, t.name, nil, old)
		logger.Info("record deleted", "table", t.name, "id", old.RecordID(), "staff", staffFrom(r).Username)
		writeJSON(w, http.StatusOK, Envelope{Success: true})
	}
}
