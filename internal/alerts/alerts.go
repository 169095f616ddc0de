// Package alerts derives the staff board's alert flags from record
// timestamps and an explicit "now". Every function is pure and total:
// missing or malformed timestamps yield a false flag, never an error.
package alerts

import (
	"fmt"
	"math"
	"time"

	"github.com/playperu/beachclub/internal/beachclub"
)

// Policy holds the alert thresholds. They are operational settings, not
// derived values; see config for the environment variables that set them.
type Policy struct {
	NewOrderDelay  time.Duration
	PreparingDelay time.Duration
	ImminentWindow time.Duration
	LongOccupation time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		NewOrderDelay:  10 * time.Minute,
		PreparingDelay: 20 * time.Minute,
		ImminentWindow: 30 * time.Minute,
		LongOccupation: 90 * time.Minute,
	}
}

// State is the ephemeral alert state of one record at one instant.
type State struct {
	Urgent         bool `json:"urgent"`
	Delayed        bool `json:"delayed"`
	Imminent       bool `json:"imminent"`
	Late           bool `json:"late"`
	LongOccupation bool `json:"longOccupation"`
}

// ElapsedMinutes returns floor((now - since) / 1m). The result is negative
// when since lies in the future (clock skew); callers clamp it.
func ElapsedMinutes(since, now time.Time) int {
	ms := now.Sub(since).Milliseconds()
	return int(math.Floor(float64(ms) / 60000))
}

func elapsed(since, now time.Time) int {
	return max(ElapsedMinutes(since, now), 0)
}

func minutes(d time.Duration) int { return int(d / time.Minute) }

// FormatDuration renders minutes as "1h30", "1h" or "45m".
func FormatDuration(m int) string {
	m = max(m, 0)
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	h, rest := m/60, m%60
	if rest == 0 {
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dh%d", h, rest)
}

func (p Policy) OrderDelayed(o beachclub.Order, now time.Time) bool {
	if o.CreatedAt.IsZero() {
		return false
	}
	age := elapsed(o.CreatedAt, now)
	switch o.Status {
	case beachclub.OrderNew:
		return age >= minutes(p.NewOrderDelay)
	case beachclub.OrderPreparing:
		return age >= minutes(p.PreparingDelay)
	}
	return false
}

// ReservationImminent is true when the reservation starts within the
// imminent window: strictly after now and no later than now+window. The
// reservation date and clock time are read in now's location.
func (p Policy) ReservationImminent(r beachclub.Reservation, now time.Time) bool {
	at, ok := r.At(now.Location())
	if !ok {
		return false
	}
	diff := at.Sub(now)
	return diff > 0 && diff <= p.ImminentWindow
}

// ReservationLate is true when the reservation instant is strictly in the past.
func (p Policy) ReservationLate(r beachclub.Reservation, now time.Time) bool {
	at, ok := r.At(now.Location())
	if !ok {
		return false
	}
	return now.After(at)
}

// LongOccupied is true once the zone has been occupied for the policy's
// long occupation threshold.
func (p Policy) LongOccupied(z beachclub.Zone, now time.Time) bool {
	if z.OccupiedSince == nil {
		return false
	}
	return elapsed(*z.OccupiedSince, now) >= minutes(p.LongOccupation)
}

// Zone evaluates every flag that applies to a zone.
func (p Policy) Zone(z beachclub.Zone, now time.Time) State {
	long := p.LongOccupied(z, now)
	return State{LongOccupation: long, Urgent: long}
}

func (p Policy) Order(o beachclub.Order, now time.Time) State {
	delayed := p.OrderDelayed(o, now)
	return State{Delayed: delayed, Urgent: delayed}
}

// Reservation evaluates the flags of an open booking. Cancelled and
// completed bookings raise nothing, and a booking is only late while its
// guests are still awaited.
func (p Policy) Reservation(r beachclub.Reservation, now time.Time) State {
	if r.Status == beachclub.ReservationCancelled || r.Status == beachclub.ReservationCompleted {
		return State{}
	}
	imminent := p.ReservationImminent(r, now)
	return State{
		Imminent: imminent,
		Late:     r.ArrivalStatus == beachclub.ArrivalWaiting && p.ReservationLate(r, now),
		Urgent:   imminent,
	}
}

// OccupationMinutes is the clamped time the zone has been occupied, 0 when
// it has no occupiedSince.
func OccupationMinutes(z beachclub.Zone, now time.Time) int {
	if z.OccupiedSince == nil {
		return 0
	}
	return elapsed(*z.OccupiedSince, now)
}

var defaultPolicy = DefaultPolicy()

func IsOrderDelayed(o beachclub.Order, now time.Time) bool {
	return defaultPolicy.OrderDelayed(o, now)
}

func IsReservationImminent(r beachclub.Reservation, now time.Time) bool {
	return defaultPolicy.ReservationImminent(r, now)
}

func IsReservationLate(r beachclub.Reservation, now time.Time) bool {
	return defaultPolicy.ReservationLate(r, now)
}

func IsLongOccupation(z beachclub.Zone, now time.Time) bool {
	return defaultPolicy.LongOccupied(z, now)
}
