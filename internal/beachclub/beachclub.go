// Package beachclub defines the core domain types of the beach club floor:
// zones, orders and reservations, plus the invariants every write must keep.
// It has no external dependencies.
package beachclub

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Table names shared by the backend store, the change stream and clients.
const (
	TableZones        = "zones"
	TableOrders       = "orders"
	TableReservations = "reservations"
)

// Tables lists every table that can be fetched, mutated and subscribed to.
var Tables = []string{TableZones, TableOrders, TableReservations}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid record")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Layouts of the reservation date and clock time as stored.
const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// Zones

type ZoneType string

const (
	ZoneVIPCabin      ZoneType = "vip-cabin"
	ZoneStandardCabin ZoneType = "standard-cabin"
	ZoneSunshade      ZoneType = "sunshade"
	ZoneSeaHut        ZoneType = "sea-hut"
)

var ZoneTypes = []ZoneType{ZoneVIPCabin, ZoneStandardCabin, ZoneSunshade, ZoneSeaHut}

func (t ZoneType) Valid() bool {
	switch t {
	case ZoneVIPCabin, ZoneStandardCabin, ZoneSunshade, ZoneSeaHut:
		return true
	}
	return false
}

type ZoneStatus string

const (
	ZoneFree     ZoneStatus = "free"
	ZoneWaiting  ZoneStatus = "waiting"
	ZoneOccupied ZoneStatus = "occupied"
	ZoneOrdering ZoneStatus = "ordering"
)

func (s ZoneStatus) Valid() bool {
	switch s {
	case ZoneFree, ZoneWaiting, ZoneOccupied, ZoneOrdering:
		return true
	}
	return false
}

// Occupied reports whether guests are seated in the zone.
func (s ZoneStatus) Occupied() bool {
	return s == ZoneOccupied || s == ZoneOrdering
}

// ZoneReservation is the booking a zone is being held for.
type ZoneReservation struct {
	Name       string `json:"name"`
	Time       string `json:"time"`
	GuestCount int    `json:"guestCount"`
}

type Zone struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Type          ZoneType         `json:"type"`
	Capacity      int              `json:"capacity"`
	Status        ZoneStatus       `json:"status"`
	OccupiedSince *time.Time       `json:"occupiedSince"`
	Reservation   *ZoneReservation `json:"reservation,omitempty"`
	OrderID       string           `json:"orderId,omitempty"`
	Version       int64            `json:"version"`
}

func (z Zone) RecordID() string     { return z.ID }
func (z Zone) RecordVersion() int64 { return z.Version }

func (z Zone) Validate() error {
	if strings.TrimSpace(z.Name) == "" {
		return invalid("zone name is required")
	}
	if !z.Type.Valid() {
		return invalid("unknown zone type %q", z.Type)
	}
	if z.Capacity <= 0 {
		return invalid("zone capacity must be positive")
	}
	if !z.Status.Valid() {
		return invalid("unknown zone status %q", z.Status)
	}
	if z.Status.Occupied() && z.OccupiedSince == nil {
		return invalid("occupiedSince is required while %s", z.Status)
	}
	if !z.Status.Occupied() && z.OccupiedSince != nil {
		return invalid("occupiedSince must be empty while %s", z.Status)
	}
	return nil
}

// CheckUpdate validates next as a replacement of z.
func (z Zone) CheckUpdate(next Zone) error {
	if next.Capacity != z.Capacity {
		return invalid("zone capacity cannot change")
	}
	if next.Type != z.Type {
		return invalid("zone type cannot change")
	}
	return next.Validate()
}

// Orders

type OrderStatus string

const (
	OrderNew       OrderStatus = "new"
	OrderPreparing OrderStatus = "preparing"
	OrderReady     OrderStatus = "ready"
	OrderServed    OrderStatus = "served"
	OrderPaid      OrderStatus = "paid"
	OrderCancelled OrderStatus = "cancelled"
)

// orderFlow is the happy path; position is the order of progression.
var orderFlow = []OrderStatus{OrderNew, OrderPreparing, OrderReady, OrderServed, OrderPaid}

func (s OrderStatus) rank() int {
	for i, st := range orderFlow {
		if st == s {
			return i
		}
	}
	return -1
}

func (s OrderStatus) Valid() bool {
	return s == OrderCancelled || s.rank() >= 0
}

// Terminal reports whether no further transition is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderPaid || s == OrderCancelled
}

// CanTransition reports whether an order may move from one status to
// another. Staying put is allowed so other fields can be edited.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	if from.Terminal() {
		return false
	}
	if to == OrderCancelled {
		return true
	}
	return to.rank() > from.rank()
}

type OrderItem struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

type Order struct {
	ID         string      `json:"id"`
	Target     string      `json:"target"`
	Status     OrderStatus `json:"status"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"createdAt"`
	TotalCents int64       `json:"totalCents"`
	Version    int64       `json:"version"`
}

func (o Order) RecordID() string     { return o.ID }
func (o Order) RecordVersion() int64 { return o.Version }

func (o Order) Validate() error {
	if strings.TrimSpace(o.Target) == "" {
		return invalid("order target is required")
	}
	if !o.Status.Valid() {
		return invalid("unknown order status %q", o.Status)
	}
	for _, it := range o.Items {
		if strings.TrimSpace(it.Name) == "" || it.Qty <= 0 {
			return invalid("order items need a name and a positive qty")
		}
	}
	if o.TotalCents < 0 {
		return invalid("order total cannot be negative")
	}
	return nil
}

func (o Order) CheckUpdate(next Order) error {
	if !next.CreatedAt.Equal(o.CreatedAt) {
		return invalid("order createdAt is immutable")
	}
	if !CanTransition(o.Status, next.Status) {
		return invalid("order cannot go from %s to %s", o.Status, next.Status)
	}
	return next.Validate()
}

// Reservations

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

func (s ReservationStatus) Valid() bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCancelled, ReservationCompleted:
		return true
	}
	return false
}

type ArrivalStatus string

const (
	ArrivalWaiting  ArrivalStatus = "waiting"
	ArrivalArrived  ArrivalStatus = "arrived"
	ArrivalDeparted ArrivalStatus = "departed"
)

func (a ArrivalStatus) rank() int {
	switch a {
	case ArrivalWaiting:
		return 0
	case ArrivalArrived:
		return 1
	case ArrivalDeparted:
		return 2
	}
	return -1
}

func (a ArrivalStatus) Valid() bool { return a.rank() >= 0 }

// CanAdvance reports whether the arrival status may move to next. Arrival
// only ever moves forward: waiting, arrived, departed.
func (a ArrivalStatus) CanAdvance(next ArrivalStatus) bool {
	return a.Valid() && next.Valid() && next.rank() >= a.rank()
}

type Reservation struct {
	ID            string            `json:"id"`
	GuestName     string            `json:"guestName"`
	Contact       string            `json:"contact"`
	ZoneType      ZoneType          `json:"zoneType"`
	Date          string            `json:"date"`
	Time          string            `json:"time"`
	GuestCount    int               `json:"guestCount"`
	Status        ReservationStatus `json:"status"`
	ArrivalStatus ArrivalStatus     `json:"arrivalStatus"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	Version       int64             `json:"version"`
}

func (r Reservation) RecordID() string     { return r.ID }
func (r Reservation) RecordVersion() int64 { return r.Version }

// At returns the reservation instant in loc. ok is false when the stored
// date or clock time cannot be parsed.
func (r Reservation) At(loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout+" "+ClockLayout, r.Date+" "+r.Time, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r Reservation) Validate() error {
	if strings.TrimSpace(r.GuestName) == "" {
		return invalid("guest name is required")
	}
	if r.GuestCount < 1 {
		return invalid("guest count must be at least 1")
	}
	if !r.ZoneType.Valid() {
		return invalid("unknown zone type %q", r.ZoneType)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return invalid("date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(ClockLayout, r.Time); err != nil {
		return invalid("time must be HH:MM")
	}
	if !r.Status.Valid() {
		return invalid("unknown reservation status %q", r.Status)
	}
	if !r.ArrivalStatus.Valid() {
		return invalid("unknown arrival status %q", r.ArrivalStatus)
	}
	return nil
}

func (r Reservation) CheckUpdate(next Reservation) error {
	if !r.ArrivalStatus.CanAdvance(next.ArrivalStatus) {
		return invalid("arrival cannot go from %s to %s", r.ArrivalStatus, next.ArrivalStatus)
	}
	return next.Validate()
}
