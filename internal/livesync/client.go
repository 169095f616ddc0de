// Package livesync keeps in-memory copies of remote tables in step with the
// backend: a bulk fetch seeds each list, the change stream reconciles it,
// and optimistic local edits are rolled back by refetching when the backend
// rejects them.
package livesync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/playperu/beachclub/internal/beachclub"
	"github.com/playperu/beachclub/internal/clock"
)

// Status is the connectivity of a subscription.
type Status string

const (
	StatusConnected    Status = "connected"
	StatusDisconnected Status = "disconnected"
)

// MutationState tags a record while a local change awaits the backend.
type MutationState string

const (
	Confirmed MutationState = "confirmed"
	Pending   MutationState = "pending"
	Reverting MutationState = "reverting"
)

// MutationResult is the backend's answer to create, update and delete.
type MutationResult[T any] struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    *T     `json:"data,omitempty"`
}

// Table is the remote side of one table.
type Table[T Record] interface {
	FetchAll(ctx context.Context) ([]T, error)
	Create(ctx context.Context, fields map[string]any) MutationResult[T]
	Update(ctx context.Context, id string, fields map[string]any) MutationResult[T]
	Delete(ctx context.Context, id string) MutationResult[T]
}

// Subscriber delivers change events for a table until ctx is done. It calls
// status on every connectivity change and owns any reconnection policy.
type Subscriber interface {
	Subscribe(ctx context.Context, table string, fn func(beachclub.Event), status func(Status)) error
}

// Hooks are notified after the list has applied an event.
type Hooks[T Record] struct {
	OnInsert       func(T)
	OnUpdate       func(T)
	OnDelete       func(id string)
	OnStatusChange func(Status)
}

// MutationError is returned when the backend rejects a mutation. Message
// is the backend's own error text, suitable for an alert.
type MutationError struct {
	Table   string
	ID      string
	Message string
}

func (e *MutationError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: %s", e.Table, e.Message)
	}
	return fmt.Sprintf("%s/%s: %s", e.Table, e.ID, e.Message)
}

type options struct {
	logger      *slog.Logger
	clock       clock.Clock
	incidentCap int
}

type Option func(*options)

func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

func WithClock(c clock.Clock) Option { return func(o *options) { o.clock = c } }

func WithIncidentCap(n int) Option { return func(o *options) { o.incidentCap = n } }

// Client mirrors one remote table.
type Client[T Record] struct {
	name      string
	table     Table[T]
	sub       Subscriber
	list      *List[T]
	incidents *IncidentLog
	logger    *slog.Logger
	clock     clock.Clock

	fetches singleflight.Group
	status  atomic.Value

	mu     sync.Mutex
	states map[string]MutationState
}

func New[T Record](name string, table Table[T], sub Subscriber, opts ...Option) *Client[T] {
	o := options{logger: slog.Default(), clock: clock.System(time.Local)}
	for _, fn := range opts {
		fn(&o)
	}
	c := &Client[T]{
		name:      name,
		table:     table,
		sub:       sub,
		list:      NewList[T](),
		incidents: NewIncidentLog(o.incidentCap),
		logger:    o.logger.With("table", name),
		clock:     o.clock,
		states:    make(map[string]MutationState),
	}
	c.status.Store(StatusDisconnected)
	return c
}

func (c *Client[T]) Name() string { return c.name }

// Snapshot returns the current rows. Callers must not modify the slice.
func (c *Client[T]) Snapshot() []T { return c.list.Snapshot() }

func (c *Client[T]) Status() Status { return c.status.Load().(Status) }

func (c *Client[T]) Incidents() []Incident { return c.incidents.Entries() }

// State returns the mutation state of the row with id.
func (c *Client[T]) State(id string) MutationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.states[id]; ok {
		return s
	}
	return Confirmed
}

func (c *Client[T]) setState(id string, s MutationState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == Confirmed {
		delete(c.states, id)
		return
	}
	c.states[id] = s
}

func (c *Client[T]) incident(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	c.logger.Warn("incident", "message", msg)
	c.incidents.Add(Incident{At: c.clock.Now(), Table: c.name, Message: msg})
}

// FetchAll replaces the local rows with the backend's. Concurrent calls
// share a single request.
func (c *Client[T]) FetchAll(ctx context.Context) ([]T, error) {
	v, err, _ := c.fetches.Do("all", func() (any, error) {
		items, err := c.table.FetchAll(ctx)
		if err != nil {
			return nil, err
		}
		c.list.Replace(items)
		return c.list.Snapshot(), nil
	})
	if err != nil {
		c.incident("refresh failed: %v", err)
		return nil, fmt.Errorf("fetching %s: %w", c.name, err)
	}
	return v.([]T), nil
}

// Refresh is the manual recovery path offered to staff.
func (c *Client[T]) Refresh(ctx context.Context) error {
	_, err := c.FetchAll(ctx)
	return err
}

// Run subscribes with no hooks. It returns when ctx is done.
func (c *Client[T]) Run(ctx context.Context) error {
	return c.Subscribe(ctx, Hooks[T]{})
}

// Subscribe applies the table's change stream to the local rows and calls
// hooks after each applied change. It blocks until ctx is done or the
// subscriber gives up.
func (c *Client[T]) Subscribe(ctx context.Context, hooks Hooks[T]) error {
	err := c.sub.Subscribe(ctx, c.name,
		func(ev beachclub.Event) { c.apply(ev, hooks) },
		func(s Status) {
			c.status.Store(s)
			c.logger.Info("subscription status", "status", s)
			if hooks.OnStatusChange != nil {
				hooks.OnStatusChange(s)
			}
		},
	)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func decodeRow[T Record](raw json.RawMessage) (T, error) {
	var rec T
	if len(raw) == 0 {
		return rec, errors.New("missing row")
	}
	err := json.Unmarshal(raw, &rec)
	return rec, err
}

func (c *Client[T]) apply(ev beachclub.Event, hooks Hooks[T]) {
	if ev.Table != "" && ev.Table != c.name {
		return
	}

	switch ev.EventType {
	case beachclub.EventInsert:
		rec, err := decodeRow[T](ev.New)
		if err != nil {
			c.incident("malformed insert event: %v", err)
			return
		}
		if out := c.list.Insert(rec); out != Applied {
			c.logger.Debug("insert ignored", "id", rec.RecordID(), "outcome", out)
			return
		}
		if hooks.OnInsert != nil {
			hooks.OnInsert(rec)
		}

	case beachclub.EventUpdate:
		rec, err := decodeRow[T](ev.New)
		if err != nil {
			c.incident("malformed update event: %v", err)
			return
		}
		if out := c.list.Update(rec); out != Applied {
			c.logger.Debug("update ignored", "id", rec.RecordID(), "version", rec.RecordVersion(), "outcome", out)
			return
		}
		if hooks.OnUpdate != nil {
			hooks.OnUpdate(rec)
		}

	case beachclub.EventDelete:
		raw := ev.Old
		if len(raw) == 0 {
			raw = ev.New
		}
		rec, err := decodeRow[T](raw)
		if err != nil {
			c.incident("malformed delete event: %v", err)
			return
		}
		id := rec.RecordID()
		if out := c.list.Delete(id); out != Applied {
			c.logger.Debug("delete ignored", "id", id, "outcome", out)
			return
		}
		if hooks.OnDelete != nil {
			hooks.OnDelete(id)
		}

	default:
		c.incident("unknown event type %q", ev.EventType)
	}
}

// Mutate applies local to the row with id right away, then runs remote.
// When the backend rejects the change the row is marked reverting, an
// incident is logged and the whole table is refetched to drop the local
// change. A nil local skips the optimistic step.
func (c *Client[T]) Mutate(ctx context.Context, id string, local func(T) T, remote func(context.Context) MutationResult[T]) error {
	if local != nil && id != "" {
		if c.list.Modify(id, local) == Applied {
			c.setState(id, Pending)
		}
	}

	res := remote(ctx)
	if res.Success {
		if res.Data != nil {
			c.list.Upsert(*res.Data)
		}
		c.setState(id, Confirmed)
		return nil
	}

	msg := res.Error
	if msg == "" {
		msg = "unknown error"
	}
	mErr := &MutationError{Table: c.name, ID: id, Message: msg}

	c.setState(id, Reverting)
	c.incident("mutation failed, reverting: %v", mErr)
	_, fetchErr := c.FetchAll(ctx)
	c.setState(id, Confirmed)

	if fetchErr != nil {
		return errors.Join(mErr, fetchErr)
	}
	return mErr
}

// Create inserts a row remotely and mirrors the result locally.
func (c *Client[T]) Create(ctx context.Context, fields map[string]any) (T, error) {
	var created T
	err := c.Mutate(ctx, "", nil, func(ctx context.Context) MutationResult[T] {
		res := c.table.Create(ctx, fields)
		if res.Data != nil {
			created = *res.Data
		}
		return res
	})
	return created, err
}

// Update sends fields for row id. local, when given, is the optimistic
// version of the same change.
func (c *Client[T]) Update(ctx context.Context, id string, fields map[string]any, local func(T) T) error {
	return c.Mutate(ctx, id, local, func(ctx context.Context) MutationResult[T] {
		return c.table.Update(ctx, id, fields)
	})
}

// Delete removes row id locally at once and remotely after.
func (c *Client[T]) Delete(ctx context.Context, id string) error {
	if c.list.Delete(id) == Applied {
		c.setState(id, Pending)
	}
	return c.Mutate(ctx, id, nil, func(ctx context.Context) MutationResult[T] {
		res := c.table.Delete(ctx, id)
		res.Data = nil
		return res
	})
}
