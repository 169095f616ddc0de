// Package clock provides the wall clock and the periodic tick that drive
// recomputation of derived board state. Derivation code never reads the
// time itself; it receives "now" from a Clock.
package clock

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// System returns a Clock reading the real time in loc.
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

type systemClock struct{ loc *time.Location }

func (c systemClock) Now() time.Time { return time.Now().In(c.loc) }

// Manual is a Clock that only moves when told to. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Set(now time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Every calls fn with c.Now() immediately and then once per interval until
// ctx is done. It blocks; run it in its own goroutine.
func Every(ctx context.Context, c Clock, interval time.Duration, fn func(now time.Time)) {
	fn(c.Now())

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			fn(c.Now())
		}
	}
}
