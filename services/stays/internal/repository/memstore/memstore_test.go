package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository"
	"github.com/shopspring/decimal"
)

type seed struct {
	host, guest *domain.User
	a, b        *domain.Property
}

func newSeed(t *testing.T, s *Store) seed {
	t.Helper()
	ctx := context.Background()
	var out seed
	var err error
	if out.host, err = s.Users().Create(ctx, &domain.User{Email: "host@example.com", Username: "host"}); err != nil {
		t.Fatal(err)
	}
	if out.guest, err = s.Users().Create(ctx, &domain.User{Email: "guest@example.com", Username: "guest"}); err != nil {
		t.Fatal(err)
	}
	in := domain.PropertyInput{Title: "Loft", City: "Lisbon", DailyPrice: decimal.NewFromInt(100)}
	if out.a, err = s.Properties().Create(ctx, out.host.ID, in); err != nil {
		t.Fatal(err)
	}
	if out.b, err = s.Properties().Create(ctx, out.host.ID, in); err != nil {
		t.Fatal(err)
	}
	return out
}

func booking(propertyID, guestID int64) *domain.Booking {
	return &domain.Booking{
		PropertyID:  propertyID,
		GuestID:     guestID,
		CheckIn:     domain.NewDate(2023, time.June, 1),
		CheckOut:    domain.NewDate(2023, time.June, 3),
		GuestsCount: 1,
		Status:      domain.BookingConfirmed,
	}
}

func TestBookingsCreate_RequiresPropertyLock(t *testing.T) {
	s := New()
	sd := newSeed(t, s)
	ctx := context.Background()

	if _, err := s.Bookings().Create(ctx, booking(sd.a.ID, sd.guest.ID)); !errors.Is(err, errUnlocked) {
		t.Fatalf("outside a transaction: expected errUnlocked, got %v", err)
	}

	err := s.WithTx(ctx, func(tx repository.Store) error {
		_, err := tx.Bookings().Create(ctx, booking(sd.a.ID, sd.guest.ID))
		return err
	})
	if !errors.Is(err, errUnlocked) {
		t.Fatalf("without LockProperty: expected errUnlocked, got %v", err)
	}

	err = s.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.LockProperty(ctx, sd.b.ID); err != nil {
			return err
		}
		_, err := tx.Bookings().Create(ctx, booking(sd.a.ID, sd.guest.ID))
		return err
	})
	if !errors.Is(err, errUnlocked) {
		t.Fatalf("lock on another property: expected errUnlocked, got %v", err)
	}

	err = s.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.LockProperty(ctx, sd.a.ID); err != nil {
			return err
		}
		_, err := tx.Bookings().Create(ctx, booking(sd.a.ID, sd.guest.ID))
		return err
	})
	if err != nil {
		t.Fatalf("locked insert: %v", err)
	}
}

func TestLockProperty_SerializesPerProperty(t *testing.T) {
	s := New()
	sd := newSeed(t, s)
	ctx := context.Background()

	if err := s.LockProperty(ctx, sd.a.ID); !errors.Is(err, repository.ErrNotInTx) {
		t.Fatalf("expected ErrNotInTx, got %v", err)
	}

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.WithTx(ctx, func(tx repository.Store) error {
			if err := tx.LockProperty(ctx, sd.a.ID); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	short, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	err := s.WithTx(short, func(tx repository.Store) error {
		return tx.LockProperty(short, sd.a.ID)
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("same property: expected to wait, got %v", err)
	}

	err = s.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.LockProperty(ctx, sd.b.ID); err != nil {
			return err
		}
		// relocking within one transaction is a no-op
		return tx.LockProperty(ctx, sd.b.ID)
	})
	if err != nil {
		t.Fatalf("other property: %v", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	err = s.WithTx(ctx, func(tx repository.Store) error {
		return tx.LockProperty(ctx, sd.a.ID)
	})
	if err != nil {
		t.Fatalf("lock not released at commit: %v", err)
	}
}

func TestWithTx_RollbackUndoesWrites(t *testing.T) {
	s := New()
	sd := newSeed(t, s)
	ctx := context.Background()
	boom := errors.New("boom")

	var created *domain.Booking
	err := s.WithTx(ctx, func(tx repository.Store) error {
		if err := tx.LockProperty(ctx, sd.a.ID); err != nil {
			return err
		}
		var err error
		if created, err = tx.Bookings().Create(ctx, booking(sd.a.ID, sd.guest.ID)); err != nil {
			return err
		}
		if err := tx.Users().MarkHost(ctx, sd.guest.ID); err != nil {
			return err
		}
		if err := tx.Idempotency().Save(ctx, sd.guest.ID, "k", created.ID); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if b, _ := s.Bookings().GetByID(ctx, created.ID); b != nil {
		t.Fatalf("booking %d survived rollback", created.ID)
	}
	if u, _ := s.Users().FindByID(ctx, sd.guest.ID); u.IsHost {
		t.Fatal("host flag survived rollback")
	}
	if id, _ := s.Idempotency().Lookup(ctx, sd.guest.ID, "k"); id != 0 {
		t.Fatalf("idempotency key survived rollback: %d", id)
	}
	if p, _ := s.Properties().GetByID(ctx, sd.a.ID); p == nil {
		t.Fatal("rollback removed data written before the transaction")
	}
}

func TestIdempotencySave_LiveKeyConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()

	if err := s.Idempotency().Save(ctx, 1, "k", 10); err != nil {
		t.Fatal(err)
	}
	if err := s.Idempotency().Save(ctx, 1, "k", 11); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := s.Idempotency().Save(ctx, 2, "k", 12); err != nil {
		t.Fatalf("keys are scoped per guest: %v", err)
	}
	if id, _ := s.Idempotency().Lookup(ctx, 1, "k"); id != 10 {
		t.Fatalf("key moved to %d", id)
	}
}

func TestThreadsTouch_NeverMovesBack(t *testing.T) {
	s := New()
	sd := newSeed(t, s)
	ctx := context.Background()

	th, err := s.Threads().GetOrCreate(ctx, domain.ThreadKey{PropertyID: &sd.a.ID, GuestID: sd.guest.ID, HostID: sd.host.ID})
	if err != nil {
		t.Fatal(err)
	}
	later := time.Date(2023, time.June, 2, 12, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{later, later.Add(-time.Hour)} {
		if err := s.Threads().Touch(ctx, th.ID, at); err != nil {
			t.Fatal(err)
		}
	}

	got, _ := s.Threads().GetByID(ctx, th.ID)
	if got.LastMessageAt == nil || !got.LastMessageAt.Equal(later) {
		t.Fatalf("last message at %v, want %v", got.LastMessageAt, later)
	}
}
