package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type CancellationPolicy string

const (
	PolicyFlexible CancellationPolicy = "flexible"
	PolicyModerate CancellationPolicy = "moderate"
	PolicyStrict   CancellationPolicy = "strict"
)

func ParseCancellationPolicy(s string) (CancellationPolicy, bool) {
	switch CancellationPolicy(strings.ToLower(s)) {
	case PolicyFlexible, PolicyModerate, PolicyStrict:
		return CancellationPolicy(strings.ToLower(s)), true
	default:
		return "", false
	}
}

type Property struct {
	ID                 int64              `json:"id"`
	HostID             int64              `json:"host_id"`
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	PropertyType       string             `json:"property_type"`
	DailyPrice         decimal.Decimal    `json:"daily_price"`
	MaxGuests          *int               `json:"max_guests,omitempty"`
	Bedrooms           int                `json:"bedrooms"`
	Bathrooms          int                `json:"bathrooms"`
	Address            string             `json:"address"`
	City               string             `json:"city"`
	Country            string             `json:"country"`
	Latitude           *float64           `json:"latitude,omitempty"`
	Longitude          *float64           `json:"longitude,omitempty"`
	IsInstantBook      bool               `json:"is_instant_book"`
	CancellationPolicy CancellationPolicy `json:"cancellation_policy"`
	IsActive           bool               `json:"is_active"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// CheckGuests enforces guests >= 1 and the capacity when one is set.
func (p *Property) CheckGuests(guests int) error {
	if guests < 1 {
		return fmt.Errorf("%w: at least one guest is required", ErrInvalidGuests)
	}
	if p.MaxGuests != nil && guests > *p.MaxGuests {
		return fmt.Errorf("%w: property sleeps at most %d", ErrInvalidGuests, *p.MaxGuests)
	}
	return nil
}

type PropertyInput struct {
	Title              string             `json:"title"`
	Description        string             `json:"description"`
	PropertyType       string             `json:"property_type"`
	DailyPrice         decimal.Decimal    `json:"daily_price"`
	MaxGuests          *int               `json:"max_guests"`
	Bedrooms           int                `json:"bedrooms"`
	Bathrooms          int                `json:"bathrooms"`
	Address            string             `json:"address"`
	City               string             `json:"city"`
	Country            string             `json:"country"`
	Latitude           *float64           `json:"latitude"`
	Longitude          *float64           `json:"longitude"`
	IsInstantBook      bool               `json:"is_instant_book"`
	CancellationPolicy CancellationPolicy `json:"cancellation_policy"`
}

func (in *PropertyInput) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if !in.DailyPrice.IsPositive() {
		return fmt.Errorf("%w: daily_price must be positive", ErrInvalidInput)
	}
	if in.MaxGuests != nil && *in.MaxGuests < 1 {
		return fmt.Errorf("%w: max_guests must be at least 1", ErrInvalidInput)
	}
	if in.PropertyType == "" {
		in.PropertyType = "apartment"
	}
	if in.CancellationPolicy == "" {
		in.CancellationPolicy = PolicyModerate
	}
	p, ok := ParseCancellationPolicy(string(in.CancellationPolicy))
	if !ok {
		return fmt.Errorf("%w: unknown cancellation_policy %q", ErrInvalidInput, in.CancellationPolicy)
	}
	in.CancellationPolicy = p
	in.DailyPrice = in.DailyPrice.Round(2)
	return nil
}

type PropertyPatch struct {
	Title              *string             `json:"title,omitempty"`
	Description        *string             `json:"description,omitempty"`
	PropertyType       *string             `json:"property_type,omitempty"`
	DailyPrice         *decimal.Decimal    `json:"daily_price,omitempty"`
	MaxGuests          *int                `json:"max_guests,omitempty"`
	Bedrooms           *int                `json:"bedrooms,omitempty"`
	Bathrooms          *int                `json:"bathrooms,omitempty"`
	Address            *string             `json:"address,omitempty"`
	City               *string             `json:"city,omitempty"`
	Country            *string             `json:"country,omitempty"`
	IsInstantBook      *bool               `json:"is_instant_book,omitempty"`
	CancellationPolicy *CancellationPolicy `json:"cancellation_policy,omitempty"`
}

// Apply validates the patch and writes it onto p.
func (patch PropertyPatch) Apply(p *Property) error {
	if patch.Title != nil {
		t := strings.TrimSpace(*patch.Title)
		if t == "" {
			return fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		p.Title = t
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.PropertyType != nil {
		p.PropertyType = *patch.PropertyType
	}
	if patch.DailyPrice != nil {
		if !patch.DailyPrice.IsPositive() {
			return fmt.Errorf("%w: daily_price must be positive", ErrInvalidInput)
		}
		p.DailyPrice = patch.DailyPrice.Round(2)
	}
	if patch.MaxGuests != nil {
		if *patch.MaxGuests < 1 {
			return fmt.Errorf("%w: max_guests must be at least 1", ErrInvalidInput)
		}
		p.MaxGuests = patch.MaxGuests
	}
	if patch.Bedrooms != nil {
		p.Bedrooms = *patch.Bedrooms
	}
	if patch.Bathrooms != nil {
		p.Bathrooms = *patch.Bathrooms
	}
	if patch.Address != nil {
		p.Address = *patch.Address
	}
	if patch.City != nil {
		p.City = *patch.City
	}
	if patch.Country != nil {
		p.Country = *patch.Country
	}
	if patch.IsInstantBook != nil {
		p.IsInstantBook = *patch.IsInstantBook
	}
	if patch.CancellationPolicy != nil {
		cp, ok := ParseCancellationPolicy(string(*patch.CancellationPolicy))
		if !ok {
			return fmt.Errorf("%w: unknown cancellation_policy %q", ErrInvalidInput, *patch.CancellationPolicy)
		}
		p.CancellationPolicy = cp
	}
	return nil
}

// PropertyFilter narrows a property search. Zero values mean "any".
type PropertyFilter struct {
	City          string
	Guests        int
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	InstantBook   *bool
	Stay          *Stay
	Limit, Offset int
}

type PropertyImage struct {
	ID           int64     `json:"id"`
	PropertyID   int64     `json:"property_id"`
	URL          string    `json:"url"`
	Caption      string    `json:"caption"`
	DisplayOrder int       `json:"display_order"`
	IsPrimary    bool      `json:"is_primary"`
	CreatedAt    time.Time `json:"created_at"`
}

type ImageInput struct {
	URL          string `json:"url"`
	Caption      string `json:"caption"`
	DisplayOrder int    `json:"display_order"`
	IsPrimary    bool   `json:"is_primary"`
}

func (in *ImageInput) Validate() error {
	in.URL = strings.TrimSpace(in.URL)
	if !strings.HasPrefix(in.URL, "http://") && !strings.HasPrefix(in.URL, "https://") {
		return fmt.Errorf("%w: image url must be http(s)", ErrInvalidInput)
	}
	return nil
}
