package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository"
)

type ListService interface {
	Add(ctx context.Context, kind domain.ListKind, userID, propertyID int64) error
	Remove(ctx context.Context, kind domain.ListKind, userID, propertyID int64) error
	List(ctx context.Context, kind domain.ListKind, userID int64) ([]domain.ListItem, error)
}

type listService struct {
	store repository.Store
}

func NewListService(store repository.Store) ListService {
	return &listService{store: store}
}

// Add is idempotent. Capped lists reject a new entry once full.
// TODO: serialize the cap check per user so concurrent adds cannot overshoot it.
func (s *listService) Add(ctx context.Context, kind domain.ListKind, userID, propertyID int64) error {
	p, err := s.store.Properties().GetByID(ctx, propertyID)
	if err != nil {
		return fmt.Errorf("failed to get property: %w", err)
	}
	if p == nil {
		return domain.ErrNotFound
	}

	if limit := kind.Cap(); limit > 0 {
		n, err := s.store.Lists().Count(ctx, kind, userID)
		if err != nil {
			return fmt.Errorf("failed to count %s: %w", kind, err)
		}
		if n >= limit {
			items, err := s.store.Lists().List(ctx, kind, userID)
			if err != nil {
				return fmt.Errorf("failed to load %s: %w", kind, err)
			}
			for _, it := range items {
				if it.PropertyID == propertyID {
					return nil
				}
			}
			return fmt.Errorf("%w: %s holds at most %d properties", domain.ErrListFull, kind, limit)
		}
	}

	if _, err := s.store.Lists().Add(ctx, kind, userID, propertyID); err != nil {
		return fmt.Errorf("failed to add to %s: %w", kind, err)
	}
	return nil
}

func (s *listService) Remove(ctx context.Context, kind domain.ListKind, userID, propertyID int64) error {
	removed, err := s.store.Lists().Remove(ctx, kind, userID, propertyID)
	if err != nil {
		return fmt.Errorf("failed to remove from %s: %w", kind, err)
	}
	if !removed {
		return domain.ErrNotFound
	}
	return nil
}

func (s *listService) List(ctx context.Context, kind domain.ListKind, userID int64) ([]domain.ListItem, error) {
	items, err := s.store.Lists().List(ctx, kind, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	return items, nil
}
