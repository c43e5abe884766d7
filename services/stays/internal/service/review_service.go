package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository"
)

type ReviewService interface {
	CreateReview(ctx context.Context, bookingID, reviewerID int64, req domain.ReviewRequest) (*domain.Review, error)
	ListPropertyReviews(ctx context.Context, propertyID int64, limit, offset int) (*domain.ReviewSummary, error)
}

type reviewService struct {
	store repository.Store
	clock Clock
}

func NewReviewService(store repository.Store, clock Clock) ReviewService {
	return &reviewService{store: store, clock: clock}
}

func (s *reviewService) CreateReview(ctx context.Context, bookingID, reviewerID int64, req domain.ReviewRequest) (*domain.Review, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	b, err := s.store.Bookings().GetByID(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if b == nil {
		return nil, domain.ErrNotFound
	}
	if b.GuestID != reviewerID {
		return nil, domain.ErrForbidden
	}
	if b.EffectiveStatus(s.clock.today()) != domain.BookingCompleted {
		return nil, domain.ErrNotReviewable
	}

	rv, err := s.store.Reviews().Create(ctx, &domain.Review{
		BookingID:  b.ID,
		PropertyID: b.PropertyID,
		ReviewerID: reviewerID,
		Rating:     req.Rating,
		Comment:    req.Comment,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return rv, nil
}

func (s *reviewService) ListPropertyReviews(ctx context.Context, propertyID int64, limit, offset int) (*domain.ReviewSummary, error) {
	p, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}

	summary, err := s.store.Reviews().Stats(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review stats: %w", err)
	}
	if summary.Reviews, err = s.store.Reviews().ListByProperty(ctx, propertyID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return &summary, nil
}
