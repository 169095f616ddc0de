package alerts

import (
	"testing"
	"time"

	"github.com/playperu/beachclub/internal/beachclub"
)

func TestSummarize(t *testing.T) {
	long := base.Add(-2 * time.Hour)
	recent := base.Add(-10 * time.Minute)

	zones := []beachclub.Zone{
		{ID: "z1", Status: beachclub.ZoneOccupied, OccupiedSince: &long},
		{ID: "z2", Status: beachclub.ZoneOrdering, OccupiedSince: &recent},
		{ID: "z3", Status: beachclub.ZoneFree},
	}
	orders := []beachclub.Order{
		{ID: "o1", Status: beachclub.OrderNew, CreatedAt: base.Add(-15 * time.Minute)},
		{ID: "o2", Status: beachclub.OrderPreparing, CreatedAt: base.Add(-5 * time.Minute)},
		{ID: "o3", Status: beachclub.OrderCancelled, CreatedAt: base.Add(-time.Hour)},
		{ID: "o4", Status: beachclub.OrderPaid, CreatedAt: base.Add(-time.Hour)},
	}
	reservations := []beachclub.Reservation{
		{ID: "r1", Date: "2025-07-14", Time: "12:20", Status: beachclub.ReservationConfirmed, ArrivalStatus: beachclub.ArrivalWaiting},
		{ID: "r2", Date: "2025-07-14", Time: "11:00", Status: beachclub.ReservationConfirmed, ArrivalStatus: beachclub.ArrivalWaiting},
		{ID: "r3", Date: "2025-07-14", Time: "10:00", Status: beachclub.ReservationConfirmed, ArrivalStatus: beachclub.ArrivalArrived},
		{ID: "r4", Date: "2025-07-14", Time: "12:10", Status: beachclub.ReservationCancelled, ArrivalStatus: beachclub.ArrivalWaiting},
	}

	got := DefaultPolicy().Summarize(zones, orders, reservations, base)
	want := Summary{
		At:                   base,
		OccupiedZones:        2,
		LongOccupations:      1,
		OpenOrders:           2,
		DelayedOrders:        1,
		ImminentReservations: 1,
		LateReservations:     1,
	}
	if got != want {
		t.Errorf("Summarize =\n%+v\nwant\n%+v", got, want)
	}
	if got.Urgent() != 3 {
		t.Errorf("Urgent = %d, want 3", got.Urgent())
	}
}

func TestReservationStateMatchesSummary(t *testing.T) {
	p := DefaultPolicy()
	tests := []struct {
		name         string
		r            beachclub.Reservation
		wantImminent bool
		wantLate     bool
	}{
		{"awaited and missed", beachclub.Reservation{Date: "2025-07-14", Time: "11:00", Status: beachclub.ReservationConfirmed, ArrivalStatus: beachclub.ArrivalWaiting}, false, true},
		{"already arrived", beachclub.Reservation{Date: "2025-07-14", Time: "11:00", Status: beachclub.ReservationConfirmed, ArrivalStatus: beachclub.ArrivalArrived}, false, false},
		{"departed", beachclub.Reservation{Date: "2025-07-14", Time: "10:00", Status: beachclub.ReservationConfirmed, ArrivalStatus: beachclub.ArrivalDeparted}, false, false},
		{"cancelled upcoming", beachclub.Reservation{Date: "2025-07-14", Time: "12:10", Status: beachclub.ReservationCancelled, ArrivalStatus: beachclub.ArrivalWaiting}, false, false},
		{"completed missed", beachclub.Reservation{Date: "2025-07-14", Time: "11:00", Status: beachclub.ReservationCompleted, ArrivalStatus: beachclub.ArrivalWaiting}, false, false},
		{"pending upcoming", beachclub.Reservation{Date: "2025-07-14", Time: "12:10", Status: beachclub.ReservationPending, ArrivalStatus: beachclub.ArrivalWaiting}, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := p.Reservation(tt.r, base)
			if st.Imminent != tt.wantImminent || st.Late != tt.wantLate || st.Urgent != tt.wantImminent {
				t.Errorf("state = %+v, want imminent=%v late=%v", st, tt.wantImminent, tt.wantLate)
			}

			s := p.Summarize(nil, nil, []beachclub.Reservation{tt.r}, base)
			if (s.ImminentReservations == 1) != st.Imminent || (s.LateReservations == 1) != st.Late {
				t.Errorf("summary %+v disagrees with row state %+v", s, st)
			}
		})
	}
}
