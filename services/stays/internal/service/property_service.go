package service

import (
	"context"
	"fmt"

	"github.com/diagnosis/stays/pkg/logger"
	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository"
)

type PropertyService interface {
	Create(ctx context.Context, hostID int64, in domain.PropertyInput) (*domain.Property, error)
	Get(ctx context.Context, id int64) (*domain.Property, error)
	Update(ctx context.Context, hostID, id int64, patch domain.PropertyPatch) (*domain.Property, error)
	Deactivate(ctx context.Context, hostID, id int64) error
	Search(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error)
	AddImage(ctx context.Context, hostID, propertyID int64, in domain.ImageInput) (*domain.PropertyImage, error)
	SetPrimaryImage(ctx context.Context, hostID, propertyID, imageID int64) error
	ListImages(ctx context.Context, propertyID int64) ([]domain.PropertyImage, error)
}

type propertyService struct {
	store repository.Store
}

func NewPropertyService(store repository.Store) PropertyService {
	return &propertyService{store: store}
}

func (s *propertyService) Create(ctx context.Context, hostID int64, in domain.PropertyInput) (*domain.Property, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var created *domain.Property
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := tx.Properties().Create(ctx, hostID, in)
		if err != nil {
			return err
		}
		created = p
		return tx.Users().MarkHost(ctx, hostID)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create property: %w", err)
	}

	logger.InfoContext(ctx, "Property created", "property_id", created.ID, "host_id", hostID)
	return created, nil
}

func (s *propertyService) Get(ctx context.Context, id int64) (*domain.Property, error) {
	p, err := s.store.Properties().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

// owned loads a property and checks hostID owns it.
func owned(ctx context.Context, store repository.Store, hostID, id int64) (*domain.Property, error) {
	p, err := store.Properties().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get property: %w", err)
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	if p.HostID != hostID {
		return nil, domain.ErrForbidden
	}
	return p, nil
}

func (s *propertyService) Update(ctx context.Context, hostID, id int64, patch domain.PropertyPatch) (*domain.Property, error) {
	p, err := owned(ctx, s.store, hostID, id)
	if err != nil {
		return nil, err
	}
	if err := patch.Apply(p); err != nil {
		return nil, err
	}

	updated, err := s.store.Properties().Update(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to update property: %w", err)
	}
	if updated == nil {
		return nil, domain.ErrNotFound
	}
	return updated, nil
}

// Deactivate hides the property from search and blocks new bookings.
// Existing bookings are kept.
func (s *propertyService) Deactivate(ctx context.Context, hostID, id int64) error {
	if _, err := owned(ctx, s.store, hostID, id); err != nil {
		return err
	}
	if err := s.store.Properties().SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to deactivate property: %w", err)
	}
	logger.InfoContext(ctx, "Property deactivated", "property_id", id)
	return nil
}

func (s *propertyService) Search(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	if f.Stay != nil {
		if err := f.Stay.Validate(); err != nil {
			return nil, err
		}
	}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, fmt.Errorf("%w: min_price exceeds max_price", domain.ErrInvalidInput)
	}
	props, err := s.store.Properties().Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to search properties: %w", err)
	}
	return props, nil
}

// AddImage keeps at most one primary image. The first image of a property
// becomes primary.
func (s *propertyService) AddImage(ctx context.Context, hostID, propertyID int64, in domain.ImageInput) (*domain.PropertyImage, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if _, err := owned(ctx, s.store, hostID, propertyID); err != nil {
		return nil, err
	}

	var img *domain.PropertyImage
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		existing, err := tx.Images().List(ctx, propertyID)
		if err != nil {
			return err
		}
		if len(existing) == 0 {
			in.IsPrimary = true
		}
		if in.IsPrimary {
			if err := tx.Images().ClearPrimary(ctx, propertyID); err != nil {
				return err
			}
		}
		img, err = tx.Images().Add(ctx, propertyID, in)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add image: %w", err)
	}
	return img, nil
}

func (s *propertyService) SetPrimaryImage(ctx context.Context, hostID, propertyID, imageID int64) error {
	if _, err := owned(ctx, s.store, hostID, propertyID); err != nil {
		return err
	}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.Images().ClearPrimary(ctx, propertyID); err != nil {
			return err
		}
		ok, err := tx.Images().SetPrimary(ctx, propertyID, imageID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set primary image: %w", err)
	}
	return nil
}

func (s *propertyService) ListImages(ctx context.Context, propertyID int64) ([]domain.PropertyImage, error) {
	if _, err := s.Get(ctx, propertyID); err != nil {
		return nil, err
	}
	images, err := s.store.Images().List(ctx, propertyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}
	return images, nil
}
