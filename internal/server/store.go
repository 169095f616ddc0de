package server

import (
	"errors"
	"time"

	"github.com/playperu/beachclub/internal/beachclub"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// record is a row type stored in a document table.
type record interface {
	RecordID() string
	RecordVersion() int64
	Validate() error
}

// tableSpec describes how one record type is stored: the columns pulled
// out of the JSON document, and the server-side rules applied on create
// and update.
type tableSpec[T record] struct {
	name    string
	columns []string
	values  func(T) []any
	orderBy string

	// create fills server-assigned fields of a new record.
	create func(rec *T, id string, now time.Time)
	// update normalizes next and checks it as a replacement of old.
	update func(old T, next *T, now time.Time) error
	// stamp sets the stored version.
	stamp func(rec *T, version int64)
}

const timeLayout = "2006-01-02T15:04:05.000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

var zoneTable = tableSpec[beachclub.Zone]{
	name:    beachclub.TableZones,
	columns: []string{"name", "status"},
	values:  func(z beachclub.Zone) []any { return []any{z.Name, string(z.Status)} },
	orderBy: "name",
	create: func(z *beachclub.Zone, id string, now time.Time) {
		z.ID = id
		if z.Status == "" {
			z.Status = beachclub.ZoneFree
		}
		normalizeOccupancy(z, now)
	},
	update: func(old beachclub.Zone, next *beachclub.Zone, now time.Time) error {
		normalizeOccupancy(next, now)
		return old.CheckUpdate(*next)
	},
	stamp: func(z *beachclub.Zone, v int64) { z.Version = v },
}

// normalizeOccupancy keeps occupiedSince set exactly while the zone is
// occupied. A freed zone also drops its reservation and order links.
func normalizeOccupancy(z *beachclub.Zone, now time.Time) {
	if !z.Status.Occupied() {
		z.OccupiedSince = nil
		if z.Status == beachclub.ZoneFree {
			z.Reservation = nil
			z.OrderID = ""
		}
		return
	}
	if z.OccupiedSince == nil {
		since := now.UTC()
		z.OccupiedSince = &since
	}
}

var orderTable = tableSpec[beachclub.Order]{
	name:    beachclub.TableOrders,
	columns: []string{"target", "status", "created_at"},
	values: func(o beachclub.Order) []any {
		return []any{o.Target, string(o.Status), formatTime(o.CreatedAt)}
	},
	orderBy: "created_at DESC",
	create: func(o *beachclub.Order, id string, now time.Time) {
		o.ID = id
		o.CreatedAt = now.UTC()
		if o.Status == "" {
			o.Status = beachclub.OrderNew
		}
	},
	update: func(old beachclub.Order, next *beachclub.Order, _ time.Time) error {
		return old.CheckUpdate(*next)
	},
	stamp: func(o *beachclub.Order, v int64) { o.Version = v },
}

var reservationTable = tableSpec[beachclub.Reservation]{
	name:    beachclub.TableReservations,
	columns: []string{"date", "time", "status", "created_at"},
	values: func(r beachclub.Reservation) []any {
		return []any{r.Date, r.Time, string(r.Status), formatTime(r.CreatedAt)}
	},
	orderBy: "date, time",
	create: func(r *beachclub.Reservation, id string, now time.Time) {
		r.ID = id
		r.CreatedAt = now.UTC()
		if r.Status == "" {
			r.Status = beachclub.ReservationPending
		}
		if r.ArrivalStatus == "" {
			r.ArrivalStatus = beachclub.ArrivalWaiting
		}
	},
	update: func(old beachclub.Reservation, next *beachclub.Reservation, _ time.Time) error {
		return old.CheckUpdate(*next)
	},
	stamp: func(r *beachclub.Reservation, v int64) { r.Version = v },
}
