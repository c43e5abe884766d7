package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const queryTimeout = 3 * time.Second

// bookingLockNamespace is the first key of the two-key advisory lock used to
// serialize booking writes per property.
const bookingLockNamespace int32 = 0x5354 // "ST"

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store groups the repositories over one connection or transaction.
type Store interface {
	Users() UserRepository
	Properties() PropertyRepository
	Images() ImageRepository
	Availability() AvailabilityRepository
	Bookings() BookingRepository
	Idempotency() IdempotencyRepository
	Threads() ThreadRepository
	Reviews() ReviewRepository
	Lists() ListRepository

	// WithTx runs fn in one transaction. Nested calls join the outer one.
	WithTx(ctx context.Context, fn func(tx Store) error) error
	// LockProperty blocks until no other transaction holds the property's
	// booking lock. It is released at commit or rollback.
	LockProperty(ctx context.Context, propertyID int64) error
}

var ErrNotInTx = errors.New("repository: lock requires a transaction")

type pgStore struct {
	pool *pgxpool.Pool
	db   DBTX
	inTx bool
}

func NewStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, db: pool}
}

func (s *pgStore) Users() UserRepository                 { return &userRepository{db: s.db} }
func (s *pgStore) Properties() PropertyRepository        { return &propertyRepository{db: s.db} }
func (s *pgStore) Images() ImageRepository               { return &imageRepository{db: s.db} }
func (s *pgStore) Availability() AvailabilityRepository  { return &availabilityRepository{db: s.db} }
func (s *pgStore) Bookings() BookingRepository           { return &bookingRepository{db: s.db} }
func (s *pgStore) Idempotency() IdempotencyRepository    { return &idempotencyRepository{db: s.db} }
func (s *pgStore) Threads() ThreadRepository             { return &threadRepository{db: s.db} }
func (s *pgStore) Reviews() ReviewRepository             { return &reviewRepository{db: s.db} }
func (s *pgStore) Lists() ListRepository                 { return &listRepository{db: s.db} }

func (s *pgStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return storeErr("begin tx", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgStore{pool: s.pool, db: tx, inTx: true}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return storeErr("commit tx", err)
	}
	return nil
}

func (s *pgStore) LockProperty(ctx context.Context, propertyID int64) error {
	if !s.inTx {
		return ErrNotInTx
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	key := int32(propertyID % (1 << 31))
	if _, err := s.db.Exec(ctx, `SELECT pg_advisory_xact_lock($1, $2)`, bookingLockNamespace, key); err != nil {
		return storeErr(fmt.Sprintf("lock property %d", propertyID), err)
	}
	return nil
}
