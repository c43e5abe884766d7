package domain

import (
	"errors"
	"testing"
	"time"
)

func june(day int) Date { return NewDate(2025, time.June, day) }

func TestStay_Overlaps(t *testing.T) {
	base := Stay{CheckIn: june(10), CheckOut: june(15)}
	tests := []struct {
		name  string
		other Stay
		want  bool
	}{
		{"identical", Stay{june(10), june(15)}, true},
		{"inside", Stay{june(11), june(12)}, true},
		{"straddles start", Stay{june(8), june(11)}, true},
		{"straddles end", Stay{june(14), june(20)}, true},
		{"ends on check-in", Stay{june(5), june(10)}, false},
		{"starts on check-out", Stay{june(15), june(18)}, false},
		{"disjoint", Stay{june(1), june(3)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Fatalf("Overlaps = %v, want %v", got, tt.want)
			}
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Fatalf("Overlaps not symmetric")
			}
		})
	}
}

func TestLedger_Check(t *testing.T) {
	bookings := []Booking{
		{ID: 1, CheckIn: june(10), CheckOut: june(15), Status: BookingConfirmed},
		{ID: 2, CheckIn: june(20), CheckOut: june(22), Status: BookingCancelled},
		{ID: 3, CheckIn: june(25), CheckOut: june(27), Status: BookingPending},
	}
	overrides := []AvailabilityOverride{
		{Date: june(17), IsAvailable: false},
		{Date: june(18), IsAvailable: true},
	}
	l := NewLedger(overrides, bookings)

	tests := []struct {
		name      string
		stay      Stay
		available bool
		conflict  *Conflict
	}{
		{"free", Stay{june(1), june(10)}, true, nil},
		{"back to back", Stay{june(15), june(17)}, true, nil},
		{"over booking", Stay{june(8), june(12)}, false, &Conflict{Date: june(10), Kind: ConflictBooked, BookingID: 1}},
		{"blocked date", Stay{june(16), june(19)}, false, &Conflict{Date: june(17), Kind: ConflictBlocked}},
		{"cancelled ignored", Stay{june(20), june(22)}, true, nil},
		{"pending holds", Stay{june(26), june(28)}, false, &Conflict{Date: june(26), Kind: ConflictBooked, BookingID: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := l.Check(7, tt.stay)
			if err != nil {
				t.Fatal(err)
			}
			if a.Available != tt.available {
				t.Fatalf("available = %v, want %v", a.Available, tt.available)
			}
			if tt.conflict == nil {
				if a.Conflict != nil || a.Err() != nil {
					t.Fatalf("unexpected conflict %+v", a.Conflict)
				}
				return
			}
			if *a.Conflict != *tt.conflict {
				t.Fatalf("conflict = %+v, want %+v", *a.Conflict, *tt.conflict)
			}
			if !errors.Is(a.Err(), ErrUnavailable) {
				t.Fatalf("expected ErrUnavailable, got %v", a.Err())
			}
		})
	}
}

func TestLedger_CheckRejectsInvertedRange(t *testing.T) {
	_, err := NewLedger(nil, nil).Check(1, Stay{june(5), june(4)})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestLedger_Calendar(t *testing.T) {
	l := NewLedger(
		[]AvailabilityOverride{{Date: june(3), IsAvailable: false}},
		[]Booking{{ID: 9, CheckIn: june(1), CheckOut: june(3), Status: BookingPending}},
	)
	days := l.Calendar(june(1), june(5))
	want := []DayState{DayBooked, DayBooked, DayBlocked, DayAvailable}
	if len(days) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(days))
	}
	for i, d := range days {
		if d.State != want[i] {
			t.Fatalf("day %s: state %s, want %s", d.Date, d.State, want[i])
		}
	}
	if days[0].BookingID != 9 {
		t.Fatalf("expected booking id on booked day")
	}
}

func TestBooking_EffectiveStatus(t *testing.T) {
	b := Booking{CheckIn: june(10), CheckOut: june(15), Status: BookingConfirmed}
	if b.EffectiveStatus(june(14)) != BookingConfirmed {
		t.Fatal("expected confirmed before check-out")
	}
	if b.EffectiveStatus(june(15)) != BookingCompleted {
		t.Fatal("expected completed on check-out day")
	}
	if !errors.Is(b.CanCancel(june(16)), ErrBookingCompleted) {
		t.Fatal("completed booking must not be cancellable")
	}

	b.Status = BookingPending
	if b.EffectiveStatus(june(20)) != BookingPending {
		t.Fatal("pending never completes")
	}
	if b.CanConfirm(june(1)) != nil {
		t.Fatal("pending booking should be confirmable")
	}

	b.Status = BookingCancelled
	if !errors.Is(b.CanCancel(june(1)), ErrAlreadyCancelled) {
		t.Fatal("expected ErrAlreadyCancelled")
	}
}

func TestDate_JSON(t *testing.T) {
	d, err := ParseDate("2023-06-01")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := d.MarshalJSON()
	if string(b) != `"2023-06-01"` {
		t.Fatalf("unexpected json %s", b)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil || back != d {
		t.Fatalf("round trip failed: %v %v", back, err)
	}
	if _, err := ParseDate("06/01/2023"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
