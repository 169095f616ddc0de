package livesync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/beachclub/internal/beachclub"
)

// WSFeed subscribes to the backend's websocket change stream and redials
// with capped exponential backoff whenever the connection drops.
type WSFeed struct {
	base   string
	hc     *http.Client
	logger *slog.Logger

	MinBackoff time.Duration
	MaxBackoff time.Duration
}

func NewWSFeed(hc *http.Client, base string, logger *slog.Logger) *WSFeed {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSFeed{
		base:       strings.TrimRight(base, "/"),
		hc:         hc,
		logger:     logger,
		MinBackoff: time.Second,
		MaxBackoff: 30 * time.Second,
	}
}

func (f *WSFeed) streamURL(table string) (string, error) {
	u, err := url.Parse(f.base + "/api/changes/ws")
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.RawQuery = url.Values{"table": {table}}.Encode()
	return u.String(), nil
}

func (f *WSFeed) Subscribe(ctx context.Context, table string, fn func(beachclub.Event), status func(Status)) error {
	u, err := f.streamURL(table)
	if err != nil {
		return fmt.Errorf("building stream url: %w", err)
	}

	backoff := f.MinBackoff
	for {
		connected, err := f.stream(ctx, u, fn, status)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if connected {
			backoff = f.MinBackoff
		}
		f.logger.Warn("change stream lost", "table", table, "error", err, "retry_in", backoff)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if backoff < f.MaxBackoff {
			backoff = min(backoff*2, f.MaxBackoff)
		}
	}
}

// stream runs one connection until it fails. connected reports whether the
// dial succeeded.
func (f *WSFeed) stream(ctx context.Context, u string, fn func(beachclub.Event), status func(Status)) (connected bool, err error) {
	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPClient: f.hc})
	if err != nil {
		return false, err
	}
	defer conn.CloseNow()

	status(StatusConnected)
	defer status(StatusDisconnected)

	for {
		_, msg, err := conn.Read(ctx)
		if err != nil {
			return true, err
		}
		var ev beachclub.Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			f.logger.Warn("undecodable change event", "error", err)
			continue
		}
		fn(ev)
	}
}
