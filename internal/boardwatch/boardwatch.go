// Package boardwatch keeps a live mirror of the club floor and re-evaluates
// its alerts on a fixed tick, the way a staff board screen does.
package boardwatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/playperu/beachclub/internal/alerts"
	"github.com/playperu/beachclub/internal/beachclub"
	"github.com/playperu/beachclub/internal/clock"
	"github.com/playperu/beachclub/internal/livesync"
)

// Board mirrors the three floor tables.
type Board struct {
	Zones        *livesync.Client[beachclub.Zone]
	Orders       *livesync.Client[beachclub.Order]
	Reservations *livesync.Client[beachclub.Reservation]

	policy alerts.Policy
	clock  clock.Clock
	logger *slog.Logger

	mu   sync.Mutex
	last alerts.Summary
	seen map[string]livesync.Incident
}

func New(
	zones *livesync.Client[beachclub.Zone],
	orders *livesync.Client[beachclub.Order],
	reservations *livesync.Client[beachclub.Reservation],
	policy alerts.Policy,
	clk clock.Clock,
	logger *slog.Logger,
) *Board {
	return &Board{
		Zones:        zones,
		Orders:       orders,
		Reservations: reservations,
		policy:       policy,
		clock:        clk,
		logger:       logger,
		seen:         make(map[string]livesync.Incident),
	}
}

// Connect logs in to the backend at base and builds a Board whose tables
// follow the backend's websocket change stream.
func Connect(ctx context.Context, base, username, password string, policy alerts.Policy, clk clock.Clock, logger *slog.Logger) (*Board, error) {
	hc := livesync.NewHTTPClient()
	if err := livesync.Login(ctx, hc, base, username, password); err != nil {
		return nil, err
	}

	feed := livesync.NewWSFeed(hc, base, logger)
	opts := []livesync.Option{livesync.WithLogger(logger), livesync.WithClock(clk)}

	return New(
		livesync.New[beachclub.Zone](beachclub.TableZones,
			livesync.NewRemoteTable[beachclub.Zone](hc, base, beachclub.TableZones), feed, opts...),
		livesync.New[beachclub.Order](beachclub.TableOrders,
			livesync.NewRemoteTable[beachclub.Order](hc, base, beachclub.TableOrders), feed, opts...),
		livesync.New[beachclub.Reservation](beachclub.TableReservations,
			livesync.NewRemoteTable[beachclub.Reservation](hc, base, beachclub.TableReservations), feed, opts...),
		policy, clk, logger,
	), nil
}

// Load fetches every table concurrently.
func (b *Board) Load(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := b.Zones.FetchAll(gctx)
		return err
	})
	g.Go(func() error {
		_, err := b.Orders.FetchAll(gctx)
		return err
	})
	g.Go(func() error {
		_, err := b.Reservations.FetchAll(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("loading board: %w", err)
	}
	return nil
}

// Run follows every table's change stream and ticks every interval until
// ctx is done.
func (b *Board) Run(ctx context.Context, interval time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return b.Zones.Run(gctx) })
	g.Go(func() error { return b.Orders.Run(gctx) })
	g.Go(func() error { return b.Reservations.Run(gctx) })
	g.Go(func() error {
		clock.Every(gctx, b.clock, interval, func(now time.Time) { b.Tick(now) })
		return nil
	})
	return g.Wait()
}

// Tick evaluates the board at now and logs what changed since the last
// tick: the alert counts and any incidents recorded in between.
func (b *Board) Tick(now time.Time) alerts.Summary {
	s := b.policy.Summarize(b.Zones.Snapshot(), b.Orders.Snapshot(), b.Reservations.Snapshot(), now)

	b.mu.Lock()
	prev := b.last
	b.last = s
	b.mu.Unlock()

	level := slog.LevelDebug
	if !sameCounts(prev, s) {
		level = slog.LevelInfo
	}
	b.logger.Log(context.Background(), level, "board",
		"occupied_zones", s.OccupiedZones,
		"long_occupations", s.LongOccupations,
		"open_orders", s.OpenOrders,
		"delayed_orders", s.DelayedOrders,
		"imminent_reservations", s.ImminentReservations,
		"late_reservations", s.LateReservations,
		"urgent", s.Urgent(),
		"zones_stream", b.Zones.Status(),
	)

	for _, inc := range b.NewIncidents() {
		b.logger.Warn("board incident", "table", inc.Table, "at", inc.At, "message", inc.Message)
	}
	return s
}

// Last returns the summary computed by the latest tick.
func (b *Board) Last() alerts.Summary {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// NewIncidents returns incidents not returned by an earlier call, oldest
// first.
func (b *Board) NewIncidents() []livesync.Incident {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []livesync.Incident
	for _, src := range []struct {
		name    string
		entries []livesync.Incident
	}{
		{b.Zones.Name(), b.Zones.Incidents()},
		{b.Orders.Name(), b.Orders.Incidents()},
		{b.Reservations.Name(), b.Reservations.Incidents()},
	} {
		if len(src.entries) == 0 {
			continue
		}
		// Entries are newest first; stop at the last one already reported.
		fresh := len(src.entries)
		if last, ok := b.seen[src.name]; ok {
			for i, inc := range src.entries {
				if inc == last {
					fresh = i
					break
				}
			}
		}
		for i := fresh - 1; i >= 0; i-- {
			out = append(out, src.entries[i])
		}
		b.seen[src.name] = src.entries[0]
	}
	return out
}

func sameCounts(a, b alerts.Summary) bool {
	a.At, b.At = time.Time{}, time.Time{}
	return a == b
}
