package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/jackc/pgx/v5"
)

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error)
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	// GetForUpdate row-locks the booking until the transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error)
	// Holding returns bookings on the property that hold any date in stay.
	Holding(ctx context.Context, propertyID int64, stay domain.Stay) ([]domain.Booking, error)
	UpdateStatus(ctx context.Context, b *domain.Booking) error
	ListByGuest(ctx context.Context, guestID int64, f domain.BookingFilter) ([]domain.Booking, error)
	ListByHost(ctx context.Context, hostID int64, f domain.BookingFilter) ([]domain.Booking, error)
}

type bookingRepository struct {
	db DBTX
}

const bookingCols = `b.id, b.property_id, b.guest_id, p.host_id, b.check_in_date, b.check_out_date,
b.guests_count, b.nightly_price, b.base_amount, b.service_fee, b.cleaning_fee, b.total_amount,
b.status, b.cancellation_reason, b.cancelled_by, b.cancelled_at, b.created_at, b.updated_at`

const bookingFrom = ` FROM bookings b JOIN properties p ON p.id = b.property_id`

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b             domain.Booking
		checkIn, out time.Time
	)
	err := row.Scan(&b.ID, &b.PropertyID, &b.GuestID, &b.HostID, &checkIn, &out,
		&b.GuestsCount, &b.NightlyPrice, &b.BaseAmount, &b.ServiceFee, &b.CleaningFee, &b.TotalAmount,
		&b.Status, &b.CancellationReason, &b.CancelledBy, &b.CancelledAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.CheckIn, b.CheckOut = domain.DateOf(checkIn), domain.DateOf(out)
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) (*domain.Booking, error) {
	const q = `WITH b AS (
		INSERT INTO bookings (
			property_id, guest_id, check_in_date, check_out_date, guests_count,
			nightly_price, base_amount, service_fee, cleaning_fee, total_amount, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING *
	) SELECT ` + bookingCols + ` FROM b JOIN properties p ON p.id = b.property_id`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	created, err := scanBooking(r.db.QueryRow(ctx, q,
		b.PropertyID, b.GuestID, b.CheckIn.Time(), b.CheckOut.Time(), b.GuestsCount,
		b.NightlyPrice, b.BaseAmount, b.ServiceFee, b.CleaningFee, b.TotalAmount, b.Status,
	))
	if err != nil {
		return nil, storeErr("create booking", err)
	}
	return created, nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingCols+bookingFrom+` WHERE b.id=$1`, id)
}

func (r *bookingRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	return r.get(ctx, `SELECT `+bookingCols+bookingFrom+` WHERE b.id=$1 FOR UPDATE OF b`, id)
}

func (r *bookingRepository) get(ctx context.Context, q string, id int64) (*domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	b, err := scanBooking(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get booking %d", id), err)
	}
	return b, nil
}

func (r *bookingRepository) Holding(ctx context.Context, propertyID int64, stay domain.Stay) ([]domain.Booking, error) {
	const q = `SELECT ` + bookingCols + bookingFrom + `
	WHERE b.property_id=$1 AND b.status IN ('pending','confirmed')
	  AND b.check_in_date < $3 AND $2 < b.check_out_date
	ORDER BY b.check_in_date`
	return r.list(ctx, "holding bookings", q, propertyID, stay.CheckIn.Time(), stay.CheckOut.Time())
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, b *domain.Booking) error {
	const q = `UPDATE bookings SET status=$2, cancellation_reason=$3, cancelled_by=$4, cancelled_at=$5, updated_at=now()
	WHERE id=$1 RETURNING updated_at`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	err := r.db.QueryRow(ctx, q, b.ID, b.Status, b.CancellationReason, b.CancelledBy, b.CancelledAt).Scan(&b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	return storeErr(fmt.Sprintf("update booking %d", b.ID), err)
}

func (r *bookingRepository) ListByGuest(ctx context.Context, guestID int64, f domain.BookingFilter) ([]domain.Booking, error) {
	return r.listFor(ctx, "b.guest_id", guestID, f)
}

func (r *bookingRepository) ListByHost(ctx context.Context, hostID int64, f domain.BookingFilter) ([]domain.Booking, error) {
	return r.listFor(ctx, "p.host_id", hostID, f)
}

func (r *bookingRepository) listFor(ctx context.Context, col string, id int64, f domain.BookingFilter) ([]domain.Booking, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	q := `SELECT ` + bookingCols + bookingFrom + ` WHERE ` + col + `=$1`
	args := []any{id}
	if f.Status != nil {
		switch *f.Status {
		case domain.BookingCompleted:
			q += ` AND b.status='confirmed' AND b.check_out_date <= $2`
			args = append(args, f.AsOf.Time())
		case domain.BookingConfirmed:
			q += ` AND b.status='confirmed' AND b.check_out_date > $2`
			args = append(args, f.AsOf.Time())
		default:
			q += ` AND b.status=$2`
			args = append(args, *f.Status)
		}
	}
	q += fmt.Sprintf(` ORDER BY b.check_in_date DESC, b.id DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.Limit, f.Offset)

	return r.list(ctx, "list bookings", q, args...)
}

func (r *bookingRepository) list(ctx context.Context, op, q string, args ...any) ([]domain.Booking, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, storeErr(op, err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, storeErr(op, rows.Err())
}
