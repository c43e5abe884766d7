package repository

import (
	"context"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/jackc/pgx/v5"
)

type AvailabilityRepository interface {
	// Overrides returns the overrides dated in [from, to).
	Overrides(ctx context.Context, propertyID int64, from, to domain.Date) ([]domain.AvailabilityOverride, error)
	Upsert(ctx context.Context, overrides []domain.AvailabilityOverride) error
}

type availabilityRepository struct {
	db DBTX
}

func (r *availabilityRepository) Overrides(ctx context.Context, propertyID int64, from, to domain.Date) ([]domain.AvailabilityOverride, error) {
	const q = `SELECT property_id, date, is_available, note FROM availability_overrides
	WHERE property_id=$1 AND date >= $2 AND date < $3 ORDER BY date`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, propertyID, from.Time(), to.Time())
	if err != nil {
		return nil, storeErr("list overrides", err)
	}
	defer rows.Close()

	var out []domain.AvailabilityOverride
	for rows.Next() {
		var (
			o    domain.AvailabilityOverride
			date time.Time
		)
		if err := rows.Scan(&o.PropertyID, &date, &o.IsAvailable, &o.Note); err != nil {
			return nil, storeErr("scan override", err)
		}
		o.Date = domain.DateOf(date)
		out = append(out, o)
	}
	return out, storeErr("list overrides", rows.Err())
}

func (r *availabilityRepository) Upsert(ctx context.Context, overrides []domain.AvailabilityOverride) error {
	if len(overrides) == 0 {
		return nil
	}
	const q = `INSERT INTO availability_overrides (property_id, date, is_available, note)
	VALUES ($1,$2,$3,$4)
	ON CONFLICT (property_id, date) DO UPDATE
	SET is_available=EXCLUDED.is_available, note=EXCLUDED.note, updated_at=now()`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, o := range overrides {
		batch.Queue(q, o.PropertyID, o.Date.Time(), o.IsAvailable, o.Note)
	}
	return storeErr("upsert overrides", r.db.SendBatch(ctx, batch).Close())
}
