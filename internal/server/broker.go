package server

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/playperu/beachclub/internal/beachclub"
)

// Broker is an in-process pub/sub for change events, keyed by table name.
// When a relay is attached, events also reach subscribers of other server
// instances.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan []byte]struct{}
	relay  *Relay
	logger *slog.Logger
}

func NewBroker(logger *slog.Logger, relay *Relay) *Broker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broker{
		subs:   make(map[string]map[chan []byte]struct{}),
		relay:  relay,
		logger: logger,
	}
}

// Subscribe returns a channel that receives JSON-encoded events for table.
func (b *Broker) Subscribe(table string) chan []byte {
	ch := make(chan []byte, 64)
	b.mu.Lock()
	if b.subs[table] == nil {
		b.subs[table] = make(map[chan []byte]struct{})
	}
	b.subs[table][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(table string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[table], ch)
	if len(b.subs[table]) == 0 {
		delete(b.subs, table)
	}
	b.mu.Unlock()
}

// Publish sends ev to every local subscriber of its table and to the relay.
func (b *Broker) Publish(ev beachclub.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("encoding change event", "table", ev.Table, "error", err)
		return
	}
	b.deliver(ev.Table, data)
	if b.relay != nil {
		b.relay.Forward(ev.Table, data)
	}
}

func (b *Broker) deliver(table string, data []byte) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[table] {
		select {
		case ch <- data:
		default:
			b.logger.Warn("dropping change event for slow subscriber", "table", table)
		}
	}
}

func publishRow(b *Broker, typ beachclub.EventType, table string, newRow, oldRow any) {
	ev := beachclub.Event{EventType: typ, Table: table}
	if newRow != nil {
		ev.New, _ = json.Marshal(newRow)
	}
	if oldRow != nil {
		ev.Old, _ = json.Marshal(oldRow)
	}
	b.Publish(ev)
}
