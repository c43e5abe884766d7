package repository

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/jackc/pgx/v5"
)

const idempotencyTTL = 24 * time.Hour

type IdempotencyRepository interface {
	// Lookup returns the booking created under key by guestID, or 0.
	Lookup(ctx context.Context, guestID int64, key string) (int64, error)
	// Save claims key for bookingID. A key still live for another booking
	// yields domain.ErrIdempotencyConflict.
	Save(ctx context.Context, guestID int64, key string, bookingID int64) error
	CleanupExpired(ctx context.Context) (int64, error)
}

type idempotencyRepository struct {
	db DBTX
}

// HashKey scopes the key to the guest and hashes it to a fixed length.
func HashKey(guestID int64, key string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d:%s", guestID, key)))
	return fmt.Sprintf("%x", sum)
}

func (r *idempotencyRepository) Lookup(ctx context.Context, guestID int64, key string) (int64, error) {
	const q = `SELECT booking_id FROM booking_idempotency WHERE key_hash=$1 AND expires_at > now()`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var bookingID int64
	err := r.db.QueryRow(ctx, q, HashKey(guestID, key)).Scan(&bookingID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, storeErr("lookup idempotency key", err)
	}
	return bookingID, nil
}

func (r *idempotencyRepository) Save(ctx context.Context, guestID int64, key string, bookingID int64) error {
	const q = `INSERT INTO booking_idempotency (key_hash, guest_id, booking_id, expires_at)
	VALUES ($1,$2,$3,$4)
	ON CONFLICT (key_hash) DO UPDATE SET booking_id=EXCLUDED.booking_id, expires_at=EXCLUDED.expires_at
	WHERE booking_idempotency.expires_at <= now()`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, q, HashKey(guestID, key), guestID, bookingID, time.Now().Add(idempotencyTTL))
	if err != nil {
		return storeErr("save idempotency key", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("save idempotency key: %w", domain.ErrIdempotencyConflict)
	}
	return nil
}

func (r *idempotencyRepository) CleanupExpired(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM booking_idempotency WHERE expires_at < now()`)
	if err != nil {
		return 0, storeErr("cleanup idempotency keys", err)
	}
	return tag.RowsAffected(), nil
}
