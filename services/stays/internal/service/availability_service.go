package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository"
)

// MaxCalendarDays bounds calendar reads and override writes.
const MaxCalendarDays = 366

type AvailabilityService interface {
	IsAvailable(ctx context.Context, propertyID int64, stay domain.Stay, guests int) (*domain.Availability, error)
	Calendar(ctx context.Context, propertyID int64, from, to domain.Date) ([]domain.DayStatus, error)
	SetOverrides(ctx context.Context, hostID, propertyID int64, req OverrideRequest) error
}

// OverrideRequest blocks or reopens every date in [From, To).
type OverrideRequest struct {
	From        domain.Date `json:"from"`
	To          domain.Date `json:"to"`
	IsAvailable bool        `json:"is_available"`
	Note        string      `json:"note"`
}

type availabilityService struct {
	store repository.Store
}

func NewAvailabilityService(store repository.Store) AvailabilityService {
	return &availabilityService{store: store}
}

func (s *availabilityService) IsAvailable(ctx context.Context, propertyID int64, stay domain.Stay, guests int) (*domain.Availability, error) {
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
	a, err := checkAvailability(ctx, s.store, p, stay, guests)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// checkAvailability evaluates the ledger for one stay against store, which
// may be a transaction.
func checkAvailability(ctx context.Context, store repository.Store, p *domain.Property, stay domain.Stay, guests int) (domain.Availability, error) {
	if err := stay.Validate(); err != nil {
		return domain.Availability{}, err
	}
	if err := p.CheckGuests(guests); err != nil {
		return domain.Availability{}, err
	}

	overrides, err := store.Availability().Overrides(ctx, p.ID, stay.CheckIn, stay.CheckOut)
	if err != nil {
		return domain.Availability{}, fmt.Errorf("failed to load overrides: %w", err)
	}
	bookings, err := store.Bookings().Holding(ctx, p.ID, stay)
	if err != nil {
		return domain.Availability{}, fmt.Errorf("failed to load bookings: %w", err)
	}
	return domain.NewLedger(overrides, bookings).Check(p.ID, stay)
}

func checkSpan(from, to domain.Date) error {
	if from.IsZero() || to.IsZero() {
		return fmt.Errorf("%w: from and to are required", domain.ErrInvalidInput)
	}
	if !from.Before(to) {
		return domain.ErrInvalidRange
	}
	if from.DaysUntil(to) > MaxCalendarDays {
		return fmt.Errorf("%w: at most %d days", domain.ErrInvalidInput, MaxCalendarDays)
	}
	return nil
}

func (s *availabilityService) Calendar(ctx context.Context, propertyID int64, from, to domain.Date) ([]domain.DayStatus, error) {
	if err := checkSpan(from, to); err != nil {
		return nil, err
	}
	p, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}

	span := domain.Stay{CheckIn: from, CheckOut: to}
	overrides, err := s.store.Availability().Overrides(ctx, propertyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}
	bookings, err := s.store.Bookings().Holding(ctx, propertyID, span)
	if err != nil {
		return nil, fmt.Errorf("failed to load bookings: %w", err)
	}
	return domain.NewLedger(overrides, bookings).Calendar(from, to), nil
}

func (s *availabilityService) SetOverrides(ctx context.Context, hostID, propertyID int64, req OverrideRequest) error {
	if err := checkSpan(req.From, req.To); err != nil {
		return err
	}
	if _, err := owned(ctx, s.store, hostID, propertyID); err != nil {
		return err
	}

	span := domain.Stay{CheckIn: req.From, CheckOut: req.To}
	overrides := make([]domain.AvailabilityOverride, 0, span.Nights())
	for _, d := range span.Dates() {
		overrides = append(overrides, domain.AvailabilityOverride{
			PropertyID:  propertyID,
			Date:        d,
			IsAvailable: req.IsAvailable,
			Note:        req.Note,
		})
	}
	if err := s.store.Availability().Upsert(ctx, overrides); err != nil {
		return fmt.Errorf("failed to save overrides: %w", err)
	}
	return nil
}
