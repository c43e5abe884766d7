// Package memstore is an in-memory repository.Store for tests.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/diagnosis/stays/services/stays/internal/repository"
)

type overrideKey struct {
	propertyID int64
	date       domain.Date
}

type listKey struct {
	kind       domain.ListKind
	userID     int64
	propertyID int64
}

type idemEntry struct {
	bookingID int64
	expiresAt time.Time
}

type tables struct {
	users      map[int64]domain.User
	properties map[int64]domain.Property
	images     map[int64]domain.PropertyImage
	overrides  map[overrideKey]domain.AvailabilityOverride
	bookings   map[int64]domain.Booking
	idem       map[string]idemEntry
	threads    map[int64]domain.Thread
	messages   map[int64]domain.Message
	reviews    map[int64]domain.Review
	lists      map[listKey]time.Time
}

type state struct {
	mu     sync.Mutex
	seq    int64
	t      *tables
	faults map[string]error
	locks  map[int64]chan struct{}
}

func (st *state) nextID() int64 {
	st.seq++
	return st.seq
}

func (st *state) fault(op string) error {
	return st.faults[op]
}

// txn is the per-transaction bookkeeping: undo entries for rollback and the
// property locks taken so far.
type txn struct {
	undo []func()
	held map[int64]chan struct{}
}

func (tx *txn) release() {
	for _, l := range tx.held {
		<-l
	}
}

// conn is what every repository value carries. tx is nil outside WithTx.
type conn struct {
	st *state
	tx *txn
}

// keep records how to restore m[k] if the transaction rolls back. Callers
// hold mu.
func keep[K comparable, V any](c conn, m map[K]V, k K) {
	if c.tx == nil {
		return
	}
	old, existed := m[k]
	c.tx.undo = append(c.tx.undo, func() {
		if existed {
			m[k] = old
		} else {
			delete(m, k)
		}
	})
}

// errUnlocked mirrors a booking insert that skipped the property lock, which
// the Postgres store would let race.
var errUnlocked = errors.New("memstore: booking inserted without LockProperty")

func (c conn) holds(propertyID int64) bool {
	if c.tx == nil {
		return false
	}
	_, ok := c.tx.held[propertyID]
	return ok
}

// Store keeps every table in maps. Transactions share the tables, so reads
// see uncommitted writes of other transactions; rollback replays an undo log.
// LockProperty serializes transactions per property like the advisory lock.
type Store struct {
	conn
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{conn{st: &state{
		t: &tables{
			users:      map[int64]domain.User{},
			properties: map[int64]domain.Property{},
			images:     map[int64]domain.PropertyImage{},
			overrides:  map[overrideKey]domain.AvailabilityOverride{},
			bookings:   map[int64]domain.Booking{},
			idem:       map[string]idemEntry{},
			threads:    map[int64]domain.Thread{},
			messages:   map[int64]domain.Message{},
			reviews:    map[int64]domain.Review{},
			lists:      map[listKey]time.Time{},
		},
		faults: map[string]error{},
		locks:  map[int64]chan struct{}{},
	}}}
}

// Fail makes op (for example "bookings.Create") return err until cleared
// with a nil err.
func (s *Store) Fail(op string, err error) {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	if err == nil {
		delete(s.st.faults, op)
		return
	}
	s.st.faults[op] = err
}

func (s *Store) Users() repository.UserRepository { return users{s.conn} }
func (s *Store) Properties() repository.PropertyRepository { return properties{s.conn} }
func (s *Store) Images() repository.ImageRepository { return images{s.conn} }
func (s *Store) Availability() repository.AvailabilityRepository { return availability{s.conn} }
func (s *Store) Bookings() repository.BookingRepository { return bookings{s.conn} }
func (s *Store) Idempotency() repository.IdempotencyRepository { return idempotency{s.conn} }
func (s *Store) Threads() repository.ThreadRepository { return threads{s.conn} }
func (s *Store) Reviews() repository.ReviewRepository { return reviews{s.conn} }
func (s *Store) Lists() repository.ListRepository { return lists{s.conn} }

func (s *Store) WithTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	tx := &txn{held: map[int64]chan struct{}{}}
	defer tx.release()

	if err := fn(&Store{conn{st: s.st, tx: tx}}); err != nil {
		s.st.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.st.mu.Unlock()
		return err
	}
	return nil
}

// LockProperty blocks until no other transaction holds propertyID. The lock
// is released when the transaction ends.
func (s *Store) LockProperty(ctx context.Context, propertyID int64) error {
	if s.tx == nil {
		return repository.ErrNotInTx
	}
	if s.holds(propertyID) {
		return nil
	}
	s.st.mu.Lock()
	l, ok := s.st.locks[propertyID]
	if !ok {
		l = make(chan struct{}, 1)
		s.st.locks[propertyID] = l
	}
	s.st.mu.Unlock()

	select {
	case l <- struct{}{}:
		s.tx.held[propertyID] = l
		return nil
	case <-ctx.Done():
		return fmt.Errorf("lock property %d: %w", propertyID, ctx.Err())
	}
}
