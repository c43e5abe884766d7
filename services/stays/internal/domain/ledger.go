package domain

type ConflictKind string

const (
	ConflictBooked  ConflictKind = "booked"
	ConflictBlocked ConflictKind = "blocked"
)

// Conflict is the first date that makes a stay unavailable.
type Conflict struct {
	Date      Date         `json:"date"`
	Kind      ConflictKind `json:"kind"`
	BookingID int64        `json:"booking_id,omitempty"`
}

type Availability struct {
	PropertyID int64     `json:"property_id"`
	Stay       Stay      `json:"stay"`
	Available  bool      `json:"available"`
	Conflict   *Conflict `json:"conflict,omitempty"`
}

// Err returns nil when available and an *UnavailableError otherwise.
func (a Availability) Err() error {
	if a.Available {
		return nil
	}
	return &UnavailableError{Conflict: *a.Conflict}
}

type AvailabilityOverride struct {
	PropertyID  int64  `json:"property_id"`
	Date        Date   `json:"date"`
	IsAvailable bool   `json:"is_available"`
	Note        string `json:"note,omitempty"`
}

type DayState string

const (
	DayAvailable DayState = "available"
	DayBlocked   DayState = "blocked"
	DayBooked    DayState = "booked"
)

type DayStatus struct {
	Date      Date     `json:"date"`
	State     DayState `json:"state"`
	BookingID int64    `json:"booking_id,omitempty"`
}

// Ledger evaluates occupancy for one property from its overrides and
// bookings. Bookings that do not hold their dates are ignored.
type Ledger struct {
	blocked  map[Date]bool
	bookings []Booking
}

func NewLedger(overrides []AvailabilityOverride, bookings []Booking) *Ledger {
	l := &Ledger{blocked: make(map[Date]bool, len(overrides))}
	for _, o := range overrides {
		if !o.IsAvailable {
			l.blocked[o.Date] = true
		}
	}
	for _, b := range bookings {
		if b.Holds() {
			l.bookings = append(l.bookings, b)
		}
	}
	return l
}

// Day reports the state of a single date. A booking wins over a block.
func (l *Ledger) Day(d Date) DayStatus {
	for _, b := range l.bookings {
		if b.Stay().Contains(d) {
			return DayStatus{Date: d, State: DayBooked, BookingID: b.ID}
		}
	}
	if l.blocked[d] {
		return DayStatus{Date: d, State: DayBlocked}
	}
	return DayStatus{Date: d, State: DayAvailable}
}

// Check walks the stay in date order and stops at the first conflict.
func (l *Ledger) Check(propertyID int64, stay Stay) (Availability, error) {
	if err := stay.Validate(); err != nil {
		return Availability{}, err
	}
	a := Availability{PropertyID: propertyID, Stay: stay, Available: true}
	for _, d := range stay.Dates() {
		day := l.Day(d)
		switch day.State {
		case DayBooked:
			a.Available = false
			a.Conflict = &Conflict{Date: d, Kind: ConflictBooked, BookingID: day.BookingID}
		case DayBlocked:
			a.Available = false
			a.Conflict = &Conflict{Date: d, Kind: ConflictBlocked}
		}
		if !a.Available {
			break
		}
	}
	return a, nil
}

// Calendar returns one status per date in [from, to).
func (l *Ledger) Calendar(from, to Date) []DayStatus {
	n := from.DaysUntil(to)
	if n < 0 {
		n = 0
	}
	days := make([]DayStatus, 0, n)
	for d := from; d.Before(to); d = d.AddDays(1) {
		days = append(days, l.Day(d))
	}
	return days
}
