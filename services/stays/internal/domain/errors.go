package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidRange        = errors.New("check-out date must be after check-in date")
	ErrInvalidGuests       = errors.New("invalid guest count")
	ErrUnavailable         = errors.New("dates unavailable")
	ErrReasonRequired      = errors.New("cancellation reason is required")
	ErrAlreadyCancelled    = errors.New("booking already cancelled")
	ErrBookingCompleted    = errors.New("booking already completed")
	ErrInvalidTransition   = errors.New("invalid booking status transition")
	ErrTotalMismatch       = errors.New("total amount does not match quote")
	ErrNotParticipant      = errors.New("user is not a participant of this thread")
	ErrEmptyMessage        = errors.New("message content is required")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
	ErrAlreadyReviewed     = errors.New("booking already reviewed")
	ErrNotReviewable       = errors.New("only completed stays can be reviewed")
	ErrListFull            = errors.New("list is full")
	ErrForbidden           = errors.New("forbidden")
	ErrUnauthorized        = errors.New("invalid credentials")
	ErrEmailTaken          = errors.New("email or username already registered")
	ErrIdempotencyConflict = errors.New("idempotency key already used for another booking")
)

// UnavailableError carries the first conflicting date. It matches ErrUnavailable.
type UnavailableError struct {
	Conflict Conflict
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("dates unavailable: %s is %s", e.Conflict.Date, e.Conflict.Kind)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// StoreError wraps a persistence failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
