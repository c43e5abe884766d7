package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/diagnosis/stays/pkg/events"
	"github.com/diagnosis/stays/pkg/logger"
	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository"
)

type BookingService interface {
	Quote(ctx context.Context, propertyID int64, stay domain.Stay) (*domain.Quote, error)
	CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID, actorID int64, reason string) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID, hostID int64) (*domain.Booking, error)
	GetBooking(ctx context.Context, bookingID, userID int64) (*domain.Booking, error)
	ListGuestBookings(ctx context.Context, guestID int64, f domain.BookingFilter) ([]domain.Booking, error)
	ListHostBookings(ctx context.Context, hostID int64, f domain.BookingFilter) ([]domain.Booking, error)
}

type bookingService struct {
	store    repository.Store
	eventBus events.Publisher
	pricing  domain.Pricing
	clock    Clock
}

func NewBookingService(store repository.Store, eventBus events.Publisher, pricing domain.Pricing, clock Clock) BookingService {
	return &bookingService{
		store:    store,
		eventBus: eventBus,
		pricing:  pricing,
		clock:    clock,
	}
}

func (s *bookingService) Quote(ctx context.Context, propertyID int64, stay domain.Stay) (*domain.Quote, error) {
	if err := stay.Validate(); err != nil {
		return nil, err
	}
	p, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if p == nil || !p.IsActive {
		return nil, domain.ErrNotFound
	}
	q, err := s.pricing.Quote(p.DailyPrice, stay)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// CreateBooking runs the availability check and the insert under the
// property's booking lock, so overlapping requests serialize and only the
// first can succeed.
func (s *bookingService) CreateBooking(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error) {
	stay := domain.Stay{CheckIn: req.CheckIn, CheckOut: req.CheckOut}
	if err := stay.Validate(); err != nil {
		return nil, err
	}
	if req.GuestsCount < 1 {
		return nil, fmt.Errorf("%w: at least one guest is required", domain.ErrInvalidGuests)
	}

	guest, err := s.store.Users().FindByID(ctx, req.GuestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}
	if guest == nil {
		return nil, fmt.Errorf("guest: %w", domain.ErrNotFound)
	}

	var (
		booking  *domain.Booking
		property *domain.Property
		replayed bool
	)
	err = s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.LockProperty(ctx, req.PropertyID); err != nil {
			return err
		}

		if req.IdempotencyKey != "" {
			prior, err := tx.Idempotency().Lookup(ctx, req.GuestID, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if prior > 0 {
				if booking, err = tx.Bookings().GetByID(ctx, prior); err != nil {
					return err
				}
				if booking != nil {
					replayed = true
					return nil
				}
			}
		}

		p, err := tx.Properties().GetByID(ctx, req.PropertyID)
		if err != nil {
			return err
		}
		if p == nil || !p.IsActive {
			return fmt.Errorf("property: %w", domain.ErrNotFound)
		}
		if p.HostID == req.GuestID {
			return fmt.Errorf("%w: hosts cannot book their own property", domain.ErrForbidden)
		}
		property = p

		quote, err := s.pricing.Quote(p.DailyPrice, stay)
		if err != nil {
			return err
		}
		if req.TotalAmount != nil && !req.TotalAmount.Equal(quote.Total) {
			return fmt.Errorf("%w: expected %s", domain.ErrTotalMismatch, quote.Total.StringFixed(2))
		}

		avail, err := checkAvailability(ctx, tx, p, stay, req.GuestsCount)
		if err != nil {
			return err
		}
		if err := avail.Err(); err != nil {
			return err
		}

		b := &domain.Booking{
			PropertyID:  p.ID,
			GuestID:     req.GuestID,
			CheckIn:     stay.CheckIn,
			CheckOut:    stay.CheckOut,
			GuestsCount: req.GuestsCount,
			Status:      domain.BookingPending,
		}
		if p.IsInstantBook {
			b.Status = domain.BookingConfirmed
		}
		quote.Apply(b)

		if booking, err = tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		if req.IdempotencyKey != "" {
			return tx.Idempotency().Save(ctx, req.GuestID, req.IdempotencyKey, booking.ID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if replayed {
		logger.InfoContext(ctx, "Idempotent booking replay", "booking_id", booking.ID)
	} else {
		logger.InfoContext(ctx, "Booking created",
			"booking_id", booking.ID, "property_id", booking.PropertyID, "status", booking.Status)
		s.publish(ctx, events.BookingCreated, booking, property, guest, "")
	}

	booking.Resolve(s.clock.today())
	return booking, nil
}

func (s *bookingService) CancelBooking(ctx context.Context, bookingID, actorID int64, reason string) (*domain.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrReasonRequired
	}

	var booking *domain.Booking
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.ErrNotFound
		}
		if !b.IsParty(actorID) {
			return domain.ErrForbidden
		}
		if err := b.CanCancel(s.clock.today()); err != nil {
			return err
		}

		now := time.Now()
		b.Status = domain.BookingCancelled
		b.CancellationReason = &reason
		b.CancelledBy = &actorID
		b.CancelledAt = &now
		if err := tx.Bookings().UpdateStatus(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to cancel booking: %w", err)
	}

	logger.InfoContext(ctx, "Booking cancelled", "booking_id", bookingID, "cancelled_by", actorID)
	s.publish(ctx, events.BookingCancelled, booking, nil, nil, reason)
	return booking, nil
}

func (s *bookingService) ConfirmBooking(ctx context.Context, bookingID, hostID int64) (*domain.Booking, error) {
	var booking *domain.Booking
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		b, err := tx.Bookings().GetForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b == nil {
			return domain.ErrNotFound
		}
		if b.HostID != hostID {
			return domain.ErrForbidden
		}
		if err := b.CanConfirm(s.clock.today()); err != nil {
			return err
		}
		b.Status = domain.BookingConfirmed
		if err := tx.Bookings().UpdateStatus(ctx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to confirm booking: %w", err)
	}

	logger.InfoContext(ctx, "Booking confirmed", "booking_id", bookingID)
	s.publish(ctx, events.BookingConfirmed, booking, nil, nil, "")
	booking.Resolve(s.clock.today())
	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, bookingID, userID int64) (*domain.Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	if !b.IsParty(userID) {
		return nil, domain.ErrForbidden
	}
	b.Resolve(s.clock.today())
	return b, nil
}

func (s *bookingService) ListGuestBookings(ctx context.Context, guestID int64, f domain.BookingFilter) ([]domain.Booking, error) {
	f.AsOf = s.clock.today()
	bookings, err := s.store.Bookings().ListByGuest(ctx, guestID, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.resolve(bookings), nil
}

func (s *bookingService) ListHostBookings(ctx context.Context, hostID int64, f domain.BookingFilter) ([]domain.Booking, error) {
	f.AsOf = s.clock.today()
	bookings, err := s.store.Bookings().ListByHost(ctx, hostID, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return s.resolve(bookings), nil
}

func (s *bookingService) resolve(bookings []domain.Booking) []domain.Booking {
	today := s.clock.today()
	for i := range bookings {
		bookings[i].Resolve(today)
	}
	return bookings
}

// publish is best effort. Missing property or users are looked up, and any
// failure is logged without failing the request.
func (s *bookingService) publish(ctx context.Context, subject string, b *domain.Booking, p *domain.Property, guest *domain.User, reason string) {
	var err error
	if p == nil {
		if p, err = s.store.Properties().GetByID(ctx, b.PropertyID); err != nil || p == nil {
			logger.WarnContext(ctx, "Event property lookup failed", "error", err, "booking_id", b.ID)
			p = &domain.Property{ID: b.PropertyID, HostID: b.HostID}
		}
	}
	if guest == nil {
		if guest, err = s.store.Users().FindByID(ctx, b.GuestID); err != nil || guest == nil {
			guest = &domain.User{ID: b.GuestID}
		}
	}
	host, err := s.store.Users().FindByID(ctx, p.HostID)
	if err != nil || host == nil {
		host = &domain.User{ID: p.HostID}
	}

	event := events.BookingEvent{
		BookingID:     b.ID,
		PropertyID:    b.PropertyID,
		PropertyTitle: p.Title,
		Status:        string(b.Status),
		GuestID:       guest.ID,
		GuestEmail:    guest.Email,
		HostID:        host.ID,
		HostEmail:     host.Email,
		CheckIn:       b.CheckIn.String(),
		CheckOut:      b.CheckOut.String(),
		GuestsCount:   b.GuestsCount,
		TotalAmount:   b.TotalAmount.StringFixed(2),
		Reason:        reason,
		OccurredAt:    time.Now().UTC(),
	}
	if err := s.eventBus.Publish(ctx, subject, event); err != nil {
		logger.ErrorContext(ctx, "Failed to publish booking event", "error", err, "subject", subject, "booking_id", b.ID)
	}
}
