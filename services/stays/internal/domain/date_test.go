package domain

import (
	"errors"
	"testing"
	"time"
)

func TestDate_DaysUntil(t *testing.T) {
	tests := []struct {
		name     string
		from, to Date
		want     int
	}{
		{"same day", june(10), june(10), 0},
		{"one night", june(10), june(11), 1},
		{"backwards", june(11), june(10), -1},
		{"leap day", NewDate(2024, time.February, 28), NewDate(2024, time.March, 1), 2},
		{"beyond duration range", NewDate(2023, time.January, 1), NewDate(2400, time.January, 1), 137696},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.DaysUntil(tt.to); got != tt.want {
				t.Fatalf("DaysUntil = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestStay_Validate(t *testing.T) {
	start := NewDate(2023, time.January, 1)
	tests := []struct {
		name string
		stay Stay
		want error
	}{
		{"one night", Stay{start, start.AddDays(1)}, nil},
		{"longest stay", Stay{start, start.AddDays(MaxStayNights)}, nil},
		{"one night too long", Stay{start, start.AddDays(MaxStayNights + 1)}, ErrInvalidInput},
		{"centuries", Stay{start, NewDate(2400, time.January, 1)}, ErrInvalidInput},
		{"missing check-out", Stay{CheckIn: start}, ErrInvalidInput},
		{"same day", Stay{start, start}, ErrInvalidRange},
		{"inverted", Stay{start.AddDays(1), start}, ErrInvalidRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.stay.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStay_DatesMatchesNights(t *testing.T) {
	s := Stay{NewDate(2023, time.January, 1), NewDate(2023, time.January, 1).AddDays(MaxStayNights)}
	if got := len(s.Dates()); got != s.Nights() || got != MaxStayNights {
		t.Fatalf("dates = %d, nights = %d", got, s.Nights())
	}
}
