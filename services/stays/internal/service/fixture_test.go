package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository/memstore"
	"github.com/shopspring/decimal"
)

type published struct {
	subject string
	event   any
}

type recordingBus struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (b *recordingBus) Publish(_ context.Context, subject string, data interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{subject, data})
	return b.err
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) subjects() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.subject
	}
	return out
}

type fixture struct {
	store *memstore.Store
	bus   *recordingBus
	today domain.Date

	bookings BookingService
	avail    AvailabilityService
	msgs     MessagingService
	reviews  ReviewService
	lists    ListService
	props    PropertyService

	host, guest, other *domain.User
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func d(month time.Month, day int) domain.Date { return domain.NewDate(2023, month, day) }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: memstore.New(),
		bus:   &recordingBus{},
		today: d(time.May, 1),
	}
	clock := Clock(func() domain.Date { return f.today })
	pricing := domain.Pricing{ServiceFeeRate: dec("0.10"), CleaningFee: dec("50.00")}

	f.bookings = NewBookingService(f.store, f.bus, pricing, clock)
	f.avail = NewAvailabilityService(f.store)
	f.msgs = NewMessagingService(f.store)
	f.reviews = NewReviewService(f.store, clock)
	f.lists = NewListService(f.store)
	f.props = NewPropertyService(f.store)

	f.host = f.user(t, "host@example.com", "host")
	f.guest = f.user(t, "guest@example.com", "guest")
	f.other = f.user(t, "other@example.com", "other")
	return f
}

func (f *fixture) user(t *testing.T, email, username string) *domain.User {
	t.Helper()
	u, err := f.store.Users().Create(context.Background(), &domain.User{Email: email, Username: username, PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (f *fixture) property(t *testing.T, price string, instant bool, maxGuests *int) *domain.Property {
	t.Helper()
	p, err := f.props.Create(context.Background(), f.host.ID, domain.PropertyInput{
		Title:         "Harbour loft",
		City:          "Lisbon",
		DailyPrice:    dec(price),
		MaxGuests:     maxGuests,
		IsInstantBook: instant,
	})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	return p
}

func (f *fixture) book(propertyID int64, in, out domain.Date, guests int) (*domain.Booking, error) {
	return f.bookings.CreateBooking(context.Background(), domain.CreateBookingRequest{
		PropertyID:  propertyID,
		GuestID:     f.guest.ID,
		CheckIn:     in,
		CheckOut:    out,
		GuestsCount: guests,
	})
}

func intPtr(n int) *int { return &n }
