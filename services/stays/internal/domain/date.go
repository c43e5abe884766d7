package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// MaxStayNights bounds a single stay so per-night work stays small.
const MaxStayNights = 365

// Date is a calendar date with no time-of-day component.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf drops the clock part of t, keeping t's calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now().UTC())
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, s)
	}
	return DateOf(t), nil
}

func (d Date) Time() time.Time { return d.t }
func (d Date) IsZero() bool { return d.t.IsZero() }
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }
func (d Date) After(o Date) bool { return d.t.After(o.t) }
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }
func (d Date) String() string { return d.t.Format(DateLayout) }
func (d Date) DaysUntil(o Date) int { return int((o.t.Unix() - d.t.Unix()) / 86400) }
func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", ErrInvalidInput)
	}
	return d.UnmarshalText([]byte(s))
}

// Stay is the half-open range [CheckIn, CheckOut).
type Stay struct {
	CheckIn  Date `json:"check_in_date"`
	CheckOut Date `json:"check_out_date"`
}

func NewStay(checkIn, checkOut Date) (Stay, error) {
	s := Stay{CheckIn: checkIn, CheckOut: checkOut}
	return s, s.Validate()
}

func (s Stay) Validate() error {
	if s.CheckIn.IsZero() || s.CheckOut.IsZero() {
		return fmt.Errorf("%w: check-in and check-out dates are required", ErrInvalidInput)
	}
	if !s.CheckIn.Before(s.CheckOut) {
		return ErrInvalidRange
	}
	if s.Nights() > MaxStayNights {
		return fmt.Errorf("%w: a stay is limited to %d nights", ErrInvalidInput, MaxStayNights)
	}
	return nil
}

func (s Stay) Nights() int {
	return s.CheckIn.DaysUntil(s.CheckOut)
}

// Overlaps reports whether the two half-open ranges share at least one date.
func (s Stay) Overlaps(o Stay) bool {
	return s.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(s.CheckOut)
}

func (s Stay) Contains(d Date) bool {
	return !d.Before(s.CheckIn) && d.Before(s.CheckOut)
}

// Dates lists every night of the stay in order.
func (s Stay) Dates() []Date {
	out := make([]Date, 0, s.Nights())
	for d := s.CheckIn; d.Before(s.CheckOut); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}
