package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const relayChannel = "beachclub:changes"

type relayMessage struct {
	Origin string          `json:"origin"`
	Table  string          `json:"table"`
	Event  json.RawMessage `json:"event"`
}

// Relay shares change events between server instances over Redis pub/sub.
// Each instance tags what it sends so it can skip its own messages.
type Relay struct {
	rdb    *redis.Client
	origin string
	logger *slog.Logger
}

func NewRelay(rdb *redis.Client, logger *slog.Logger) *Relay {
	return &Relay{rdb: rdb, origin: uuid.NewString(), logger: logger}
}

func (r *Relay) Forward(table string, data []byte) {
	msg, _ := json.Marshal(relayMessage{Origin: r.origin, Table: table, Event: data})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.rdb.Publish(ctx, relayChannel, msg).Err(); err != nil {
		r.logger.Error("relaying change event", "table", table, "error", err)
	}
}

// Run delivers events published by other instances to b until ctx is done.
func (r *Relay) Run(ctx context.Context, b *Broker) error {
	sub := r.rdb.Subscribe(ctx, relayChannel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", relayChannel, err)
	}
	r.logger.Info("relay subscribed", "channel", relayChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(m.Payload, b)
		}
	}
}

func (r *Relay) handle(payload string, b *Broker) {
	var msg relayMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Warn("undecodable relay message", "error", err)
		return
	}
	if msg.Origin == r.origin {
		return
	}
	b.deliver(msg.Table, msg.Event)
}
