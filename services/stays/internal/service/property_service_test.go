package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
)

func TestPropertyService_HostFlagAndOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, "80", false, nil)

	host, _ := f.store.Users().FindByID(ctx, f.host.ID)
	if !host.IsHost {
		t.Fatal("creating a property must mark the user as host")
	}

	title := "Renamed"
	if _, err := f.props.Update(ctx, f.guest.ID, p.ID, domain.PropertyPatch{Title: &title}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	updated, err := f.props.Update(ctx, f.host.ID, p.ID, domain.PropertyPatch{Title: &title})
	if err != nil || updated.Title != "Renamed" {
		t.Fatalf("update failed: %v %+v", err, updated)
	}
	bad := domain.CancellationPolicy("lenient")
	if _, err := f.props.Update(ctx, f.host.ID, p.ID, domain.PropertyPatch{CancellationPolicy: &bad}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPropertyService_SinglePrimaryImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, "80", false, nil)

	first, err := f.props.AddImage(ctx, f.host.ID, p.ID, domain.ImageInput{URL: "https://img.example.com/1.jpg"})
	if err != nil {
		t.Fatal(err)
	}
	if !first.IsPrimary {
		t.Fatal("first image should become primary")
	}
	second, err := f.props.AddImage(ctx, f.host.ID, p.ID, domain.ImageInput{URL: "https://img.example.com/2.jpg", IsPrimary: true})
	if err != nil {
		t.Fatal(err)
	}
	third, _ := f.props.AddImage(ctx, f.host.ID, p.ID, domain.ImageInput{URL: "https://img.example.com/3.jpg"})

	primaries := func() []int64 {
		imgs, _ := f.props.ListImages(ctx, p.ID)
		var out []int64
		for _, img := range imgs {
			if img.IsPrimary {
				out = append(out, img.ID)
			}
		}
		return out
	}
	if got := primaries(); len(got) != 1 || got[0] != second.ID {
		t.Fatalf("expected only %d primary, got %v", second.ID, got)
	}

	if err := f.props.SetPrimaryImage(ctx, f.host.ID, p.ID, third.ID); err != nil {
		t.Fatal(err)
	}
	if got := primaries(); len(got) != 1 || got[0] != third.ID {
		t.Fatalf("expected only %d primary, got %v", third.ID, got)
	}

	if err := f.props.SetPrimaryImage(ctx, f.host.ID, p.ID, 999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if got := primaries(); len(got) != 1 || got[0] != third.ID {
		t.Fatalf("failed primary change must roll back, got %v", got)
	}
	if _, err := f.props.AddImage(ctx, f.host.ID, p.ID, domain.ImageInput{URL: "ftp://x"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPropertyService_SearchByAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	booked := f.property(t, "80", true, nil)
	free := f.property(t, "120", true, intPtr(2))

	if _, err := f.book(booked.ID, d(time.June, 1), d(time.June, 5), 1); err != nil {
		t.Fatal(err)
	}

	stay := domain.Stay{CheckIn: d(time.June, 2), CheckOut: d(time.June, 3)}
	got, err := f.props.Search(ctx, domain.PropertyFilter{City: "lisbon", Stay: &stay})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != free.ID {
		t.Fatalf("expected only the free property, got %+v", got)
	}

	got, _ = f.props.Search(ctx, domain.PropertyFilter{Guests: 3})
	if len(got) != 1 || got[0].ID != booked.ID {
		t.Fatalf("capacity filter failed: %+v", got)
	}

	lo, hi := dec("100"), dec("50")
	if _, err := f.props.Search(ctx, domain.PropertyFilter{MinPrice: &lo, MaxPrice: &hi}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
