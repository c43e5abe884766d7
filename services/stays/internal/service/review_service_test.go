package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
)

func TestCreateReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, "100", true, nil)
	b, err := f.book(p.ID, d(time.May, 10), d(time.May, 12), 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.reviews.CreateReview(ctx, b.ID, f.guest.ID, domain.ReviewRequest{Rating: 5}); !errors.Is(err, domain.ErrNotReviewable) {
		t.Fatalf("expected ErrNotReviewable before check-out, got %v", err)
	}

	f.today = d(time.May, 13)
	if _, err := f.reviews.CreateReview(ctx, b.ID, f.guest.ID, domain.ReviewRequest{Rating: 6}); !errors.Is(err, domain.ErrInvalidRating) {
		t.Fatalf("expected ErrInvalidRating, got %v", err)
	}
	if _, err := f.reviews.CreateReview(ctx, b.ID, f.host.ID, domain.ReviewRequest{Rating: 4}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for host, got %v", err)
	}

	rv, err := f.reviews.CreateReview(ctx, b.ID, f.guest.ID, domain.ReviewRequest{Rating: 4, Comment: " lovely "})
	if err != nil {
		t.Fatal(err)
	}
	if rv.PropertyID != p.ID || rv.Comment != "lovely" {
		t.Fatalf("unexpected review %+v", rv)
	}
	if _, err := f.reviews.CreateReview(ctx, b.ID, f.guest.ID, domain.ReviewRequest{Rating: 3}); !errors.Is(err, domain.ErrAlreadyReviewed) {
		t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
	}

	b2, err := f.book(p.ID, d(time.May, 20), d(time.May, 21), 1)
	if err != nil {
		t.Fatal(err)
	}
	f.today = d(time.May, 22)
	if _, err := f.reviews.CreateReview(ctx, b2.ID, f.guest.ID, domain.ReviewRequest{Rating: 5}); err != nil {
		t.Fatal(err)
	}

	summary, err := f.reviews.ListPropertyReviews(ctx, p.ID, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Count != 2 || summary.Average.StringFixed(2) != "4.50" || len(summary.Reviews) != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestCreateReview_CancelledBookingNotReviewable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.property(t, "100", true, nil)
	b, _ := f.book(p.ID, d(time.May, 10), d(time.May, 12), 1)
	if _, err := f.bookings.CancelBooking(ctx, b.ID, f.guest.ID, "sick"); err != nil {
		t.Fatal(err)
	}
	f.today = d(time.June, 1)
	if _, err := f.reviews.CreateReview(ctx, b.ID, f.guest.ID, domain.ReviewRequest{Rating: 2}); !errors.Is(err, domain.ErrNotReviewable) {
		t.Fatalf("expected ErrNotReviewable, got %v", err)
	}
}
