package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	// BookingCompleted is never stored. A confirmed booking whose check-out
	// date has passed reads as completed.
	BookingCompleted BookingStatus = "completed"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingPending, BookingConfirmed, BookingCancelled, BookingCompleted:
		return BookingStatus(s), true
	default:
		return "", false
	}
}

type Booking struct {
	ID                 int64           `json:"id"`
	PropertyID         int64           `json:"property_id"`
	GuestID            int64           `json:"guest_id"`
	HostID             int64           `json:"host_id"`
	CheckIn            Date            `json:"check_in_date"`
	CheckOut           Date            `json:"check_out_date"`
	GuestsCount        int             `json:"guests_count"`
	NightlyPrice       decimal.Decimal `json:"nightly_price"`
	BaseAmount         decimal.Decimal `json:"base_amount"`
	ServiceFee         decimal.Decimal `json:"service_fee"`
	CleaningFee        decimal.Decimal `json:"cleaning_fee"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	Status             BookingStatus   `json:"status"`
	CancellationReason *string         `json:"cancellation_reason,omitempty"`
	CancelledBy        *int64          `json:"cancelled_by,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (b *Booking) Stay() Stay {
	return Stay{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// Holds reports whether the booking occupies its dates.
func (b *Booking) Holds() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

// EffectiveStatus derives completed from the stored status and today's date.
func (b *Booking) EffectiveStatus(today Date) BookingStatus {
	if b.Status == BookingConfirmed && !today.Before(b.CheckOut) {
		return BookingCompleted
	}
	return b.Status
}

// Resolve rewrites Status to its effective value for presentation.
func (b *Booking) Resolve(today Date) {
	b.Status = b.EffectiveStatus(today)
}

func (b *Booking) IsParty(userID int64) bool {
	return userID == b.GuestID || userID == b.HostID
}

// CanCancel checks the cancelled and completed terminal states.
func (b *Booking) CanCancel(today Date) error {
	switch b.EffectiveStatus(today) {
	case BookingCancelled:
		return ErrAlreadyCancelled
	case BookingCompleted:
		return ErrBookingCompleted
	}
	return nil
}

func (b *Booking) CanConfirm(today Date) error {
	switch b.EffectiveStatus(today) {
	case BookingPending:
		return nil
	case BookingCancelled:
		return ErrAlreadyCancelled
	default:
		return ErrInvalidTransition
	}
}

// CreateBookingRequest is the input of a booking attempt.
type CreateBookingRequest struct {
	PropertyID     int64            `json:"property_id"`
	GuestID        int64            `json:"-"`
	CheckIn        Date             `json:"check_in_date"`
	CheckOut       Date             `json:"check_out_date"`
	GuestsCount    int              `json:"guests_count"`
	TotalAmount    *decimal.Decimal `json:"total_amount,omitempty"`
	IdempotencyKey string           `json:"-"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

func (r CancelRequest) Normalized() string {
	return strings.TrimSpace(r.Reason)
}

// BookingFilter scopes a booking listing. A completed filter is evaluated
// against EffectiveStatus.
type BookingFilter struct {
	Status        *BookingStatus
	AsOf          Date
	Limit, Offset int
}

// Matches applies the status filter to one booking.
func (f BookingFilter) Matches(b *Booking) bool {
	return f.Status == nil || b.EffectiveStatus(f.AsOf) == *f.Status
}
