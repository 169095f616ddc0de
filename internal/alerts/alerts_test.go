package alerts

import (
	"testing"
	"time"

	"github.com/playperu/beachclub/internal/beachclub"
)

var base = time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "0m"},
		{45, "45m"},
		{59, "59m"},
		{60, "1h"},
		{90, "1h30"},
		{95, "1h35"},
		{125, "2h5"},
		{180, "3h"},
		{-5, "0m"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.minutes); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}

func TestElapsedMinutes(t *testing.T) {
	tests := []struct {
		name  string
		since time.Time
		want  int
	}{
		{"same instant", base, 0},
		{"59 seconds", base.Add(-59 * time.Second), 0},
		{"exactly ten", base.Add(-10 * time.Minute), 10},
		{"ten and a half", base.Add(-10*time.Minute - 30*time.Second), 10},
		{"future skew", base.Add(30 * time.Second), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ElapsedMinutes(tt.since, base); got != tt.want {
				t.Errorf("ElapsedMinutes = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestIsOrderDelayed(t *testing.T) {
	order := func(status beachclub.OrderStatus, age time.Duration) beachclub.Order {
		return beachclub.Order{Status: status, CreatedAt: base.Add(-age)}
	}

	tests := []struct {
		name  string
		order beachclub.Order
		want  bool
	}{
		{"new at 9m", order(beachclub.OrderNew, 9*time.Minute), false},
		{"new at 10m", order(beachclub.OrderNew, 10*time.Minute), true},
		{"preparing at 10m", order(beachclub.OrderPreparing, 10*time.Minute), false},
		{"preparing at 19m", order(beachclub.OrderPreparing, 19*time.Minute), false},
		{"preparing at 20m", order(beachclub.OrderPreparing, 20*time.Minute), true},
		{"ready never", order(beachclub.OrderReady, 3*time.Hour), false},
		{"served never", order(beachclub.OrderServed, 3*time.Hour), false},
		{"cancelled never", order(beachclub.OrderCancelled, 3*time.Hour), false},
		{"no timestamp", beachclub.Order{Status: beachclub.OrderNew}, false},
		{"created in the future", order(beachclub.OrderNew, -5*time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOrderDelayed(tt.order, base); got != tt.want {
				t.Errorf("IsOrderDelayed = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderDelayedAfterTransition(t *testing.T) {
	created := base
	o := beachclub.Order{Status: beachclub.OrderNew, CreatedAt: created}

	if !IsOrderDelayed(o, created.Add(12*time.Minute)) {
		t.Error("new order at 12m should be delayed")
	}

	o.Status = beachclub.OrderPreparing
	if IsOrderDelayed(o, created.Add(18*time.Minute)) {
		t.Error("preparing order at 18m should not be delayed")
	}
}

func TestReservationImminentAndLate(t *testing.T) {
	res := func(clock string) beachclub.Reservation {
		return beachclub.Reservation{Date: "2025-07-14", Time: clock}
	}

	tests := []struct {
		name         string
		res          beachclub.Reservation
		wantImminent bool
		wantLate     bool
	}{
		{"exactly now", res("12:00"), false, false},
		{"one minute ahead", res("12:01"), true, false},
		{"thirty minutes ahead", res("12:30"), true, false},
		{"thirty-one minutes ahead", res("12:31"), false, false},
		{"one minute ago", res("11:59"), false, true},
		{"yesterday", beachclub.Reservation{Date: "2025-07-13", Time: "18:00"}, false, true},
		{"tomorrow same clock", beachclub.Reservation{Date: "2025-07-15", Time: "12:10"}, false, false},
		{"malformed time", res("noon"), false, false},
		{"missing date", beachclub.Reservation{Time: "12:10"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsReservationImminent(tt.res, base); got != tt.wantImminent {
				t.Errorf("IsReservationImminent = %v, want %v", got, tt.wantImminent)
			}
			if got := IsReservationLate(tt.res, base); got != tt.wantLate {
				t.Errorf("IsReservationLate = %v, want %v", got, tt.wantLate)
			}
		})
	}
}

func TestReservationUsesNowLocation(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	// 10:00 UTC is 12:00 in Rome during summer time.
	now := time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC).In(rome)
	r := beachclub.Reservation{Date: "2025-07-14", Time: "12:15"}

	if !IsReservationImminent(r, now) {
		t.Error("12:15 Rome should be imminent at 12:00 Rome")
	}
}

func TestLongOccupation(t *testing.T) {
	since := base.Add(-95 * time.Minute)
	c1 := beachclub.Zone{Name: "C1", Status: beachclub.ZoneOccupied, OccupiedSince: &since}

	if !IsLongOccupation(c1, base) {
		t.Error("C1 occupied 95m should be a long occupation")
	}
	if got := FormatDuration(OccupationMinutes(c1, base)); got != "1h35" {
		t.Errorf("occupation label = %q, want 1h35", got)
	}

	short := base.Add(-89 * time.Minute)
	c2 := beachclub.Zone{Name: "C2", Status: beachclub.ZoneOccupied, OccupiedSince: &short}
	if IsLongOccupation(c2, base) {
		t.Error("89m should not be a long occupation")
	}

	c3 := beachclub.Zone{Name: "C3", Status: beachclub.ZoneOccupied}
	if IsLongOccupation(c3, base) {
		t.Error("zone without occupiedSince should never flag")
	}
}

func TestPolicyOverrides(t *testing.T) {
	p := DefaultPolicy()
	p.NewOrderDelay = 5 * time.Minute

	o := beachclub.Order{Status: beachclub.OrderNew, CreatedAt: base.Add(-6 * time.Minute)}
	if !p.OrderDelayed(o, base) {
		t.Error("custom 5m threshold should flag a 6m old order")
	}
	if IsOrderDelayed(o, base) {
		t.Error("default policy should not flag a 6m old order")
	}
}

func TestStatesArePure(t *testing.T) {
	p := DefaultPolicy()
	since := base.Add(-2 * time.Hour)
	z := beachclub.Zone{Status: beachclub.ZoneOrdering, OccupiedSince: &since}

	first := p.Zone(z, base)
	second := p.Zone(z, base)
	if first != second {
		t.Errorf("same inputs gave %+v and %+v", first, second)
	}
	if !first.Urgent || !first.LongOccupation {
		t.Errorf("zone state = %+v, want urgent long occupation", first)
	}

	r := beachclub.Reservation{Date: "2025-07-14", Time: "12:20"}
	if st := p.Reservation(r, base); !st.Imminent || !st.Urgent || st.Late {
		t.Errorf("reservation state = %+v", st)
	}
}

func TestLongOccupiedUsesPolicyThreshold(t *testing.T) {
	p := DefaultPolicy()
	p.LongOccupation = 45 * time.Minute

	since := base.Add(-50 * time.Minute)
	zone := beachclub.Zone{Status: beachclub.ZoneOccupied, OccupiedSince: &since}
	if !p.LongOccupied(zone, base) {
		t.Error("50m occupation should pass a 45m threshold")
	}
	if IsLongOccupation(zone, base) {
		t.Error("default 90m threshold should not flag 50m")
	}
	if st := p.Zone(zone, base); !st.LongOccupation || !st.Urgent {
		t.Errorf("zone state = %+v", st)
	}
}
