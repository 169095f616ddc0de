package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/beachclub/internal/beachclub"
)

const pingInterval = 30 * time.Second

func changeTable(r *http.Request) (string, bool) {
	table := r.URL.Query().Get("table")
	return table, slices.Contains(beachclub.Tables, table)
}

// handleChanges streams change events for one table as Server-Sent Events.
func handleChanges(broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, ok := changeTable(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "table query parameter must name a known table")
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming not supported")
			return
		}

		// Subscribe before the headers go out so a client never misses an
		// event published right after it connected.
		ch := broker.Subscribe(table)
		defer broker.Unsubscribe(table, ch)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("X-Accel-Buffering", "no")
		flusher.Flush()

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case data := <-ch:
				fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
				flusher.Flush()
			case <-ping.C:
				fmt.Fprintf(w, ": ping\n\n")
				flusher.Flush()
			}
		}
	}
}

// handleChangesWS streams the same events over a websocket, one JSON
// event per text message.
func handleChangesWS(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		table, ok := changeTable(r)
		if !ok {
			writeError(w, http.StatusBadRequest, "table query parameter must name a known table")
			return
		}

		ch := broker.Subscribe(table)
		defer broker.Unsubscribe(table, ch)

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		// Clients never send; CloseRead handles control frames and cancels
		// ctx once the peer goes away.
		ctx := conn.CloseRead(r.Context())

		ping := time.NewTicker(pingInterval)
		defer ping.Stop()

		logger.Debug("change stream opened", "table", table)
		for {
			select {
			case <-ctx.Done():
				logger.Debug("change stream closed", "table", table)
				return
			case data := <-ch:
				if err := write(ctx, conn, data); err != nil {
					logger.Debug("websocket write failed", "error", err)
					return
				}
			case <-ping.C:
				pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
				err := conn.Ping(pctx)
				cancel()
				if err != nil {
					logger.Debug("websocket ping failed", "error", err)
					return
				}
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, data)
}
