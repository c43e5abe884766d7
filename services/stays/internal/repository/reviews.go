package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/jackc/pgx/v5"
)

type ReviewRepository interface {
	Create(ctx context.Context, r *domain.Review) (*domain.Review, error)
	GetByBooking(ctx context.Context, bookingID int64) (*domain.Review, error)
	ListByProperty(ctx context.Context, propertyID int64, limit, offset int) ([]domain.Review, error)
	// Stats fills Count and Average over every unflagged review.
	Stats(ctx context.Context, propertyID int64) (domain.ReviewSummary, error)
}

type reviewRepository struct {
	db DBTX
}

const reviewCols = `id, booking_id, property_id, reviewer_id, rating, comment, is_flagged, created_at`

func scanReview(row pgx.Row) (*domain.Review, error) {
	var rv domain.Review
	if err := row.Scan(&rv.ID, &rv.BookingID, &rv.PropertyID, &rv.ReviewerID, &rv.Rating, &rv.Comment, &rv.IsFlagged, &rv.CreatedAt); err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *reviewRepository) Create(ctx context.Context, rv *domain.Review) (*domain.Review, error) {
	const q = `INSERT INTO reviews (booking_id, property_id, reviewer_id, rating, comment)
	VALUES ($1,$2,$3,$4,$5) RETURNING ` + reviewCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	created, err := scanReview(r.db.QueryRow(ctx, q, rv.BookingID, rv.PropertyID, rv.ReviewerID, rv.Rating, rv.Comment))
	if pgCode(err) == pgUniqueViolation {
		return nil, domain.ErrAlreadyReviewed
	}
	if err != nil {
		return nil, storeErr("create review", err)
	}
	return created, nil
}

func (r *reviewRepository) GetByBooking(ctx context.Context, bookingID int64) (*domain.Review, error) {
	const q = `SELECT ` + reviewCols + ` FROM reviews WHERE booking_id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rv, err := scanReview(r.db.QueryRow(ctx, q, bookingID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get review", err)
	}
	return rv, nil
}

func (r *reviewRepository) ListByProperty(ctx context.Context, propertyID int64, limit, offset int) ([]domain.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	const q = `SELECT ` + reviewCols + ` FROM reviews
	WHERE property_id=$1 AND NOT is_flagged ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, propertyID, limit, offset)
	if err != nil {
		return nil, storeErr("list reviews", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			return nil, storeErr("scan review", err)
		}
		reviews = append(reviews, *rv)
	}
	return reviews, storeErr("list reviews", rows.Err())
}

func (r *reviewRepository) Stats(ctx context.Context, propertyID int64) (domain.ReviewSummary, error) {
	const q = `SELECT count(*), COALESCE(round(avg(rating)::numeric, 2), 0)
	FROM reviews WHERE property_id=$1 AND NOT is_flagged`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	s := domain.ReviewSummary{PropertyID: propertyID}
	if err := r.db.QueryRow(ctx, q, propertyID).Scan(&s.Count, &s.Average); err != nil {
		return s, storeErr(fmt.Sprintf("review stats %d", propertyID), err)
	}
	return s, nil
}
