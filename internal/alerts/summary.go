package alerts

import (
	"time"

	"github.com/playperu/beachclub/internal/beachclub"
)

// Summary counts the records needing staff attention at one instant.
type Summary struct {
	At                   time.Time `json:"at"`
	OccupiedZones        int       `json:"occupiedZones"`
	LongOccupations      int       `json:"longOccupations"`
	OpenOrders           int       `json:"openOrders"`
	DelayedOrders        int       `json:"delayedOrders"`
	ImminentReservations int       `json:"imminentReservations"`
	LateReservations     int       `json:"lateReservations"`
}

// Urgent is the number of records whose urgent flag is set.
func (s Summary) Urgent() int {
	return s.LongOccupations + s.DelayedOrders + s.ImminentReservations
}

// Summarize evaluates every record at now. Late only counts reservations
// whose guests have not arrived and that are still open.
func (p Policy) Summarize(zones []beachclub.Zone, orders []beachclub.Order, reservations []beachclub.Reservation, now time.Time) Summary {
	s := Summary{At: now}

	for _, z := range zones {
		if z.Status.Occupied() {
			s.OccupiedZones++
		}
		if p.LongOccupied(z, now) {
			s.LongOccupations++
		}
	}

	for _, o := range orders {
		if o.Status.Terminal() {
			continue
		}
		s.OpenOrders++
		if p.OrderDelayed(o, now) {
			s.DelayedOrders++
		}
	}

	for _, r := range reservations {
		st := p.Reservation(r, now)
		if st.Imminent {
			s.ImminentReservations++
		}
		if st.Late {
			s.LateReservations++
		}
	}
	return s
}
