package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diagnosis/stays/services/stays/internal/domain"
	"github.com/jackc/pgx/v5"
)

type PropertyRepository interface {
	Create(ctx context.Context, hostID int64, in domain.PropertyInput) (*domain.Property, error)
	GetByID(ctx context.Context, id int64) (*domain.Property, error)
	Update(ctx context.Context, p *domain.Property) (*domain.Property, error)
	SetActive(ctx context.Context, id int64, active bool) error
	Search(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error)
}

type propertyRepository struct {
	db DBTX
}

const propertyCols = `id, host_id, title, description, property_type, daily_price, max_guests,
bedrooms, bathrooms, address, city, country, latitude, longitude,
is_instant_book, cancellation_policy, is_active, created_at, updated_at`

func scanProperty(row pgx.Row) (*domain.Property, error) {
	var p domain.Property
	err := row.Scan(&p.ID, &p.HostID, &p.Title, &p.Description, &p.PropertyType,
		&p.DailyPrice, &p.MaxGuests, &p.Bedrooms, &p.Bathrooms,
		&p.Address, &p.City, &p.Country, &p.Latitude, &p.Longitude,
		&p.IsInstantBook, &p.CancellationPolicy, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *propertyRepository) Create(ctx context.Context, hostID int64, in domain.PropertyInput) (*domain.Property, error) {
	const q = `INSERT INTO properties (
		host_id, title, description, property_type, daily_price, max_guests,
		bedrooms, bathrooms, address, city, country, latitude, longitude,
		is_instant_book, cancellation_policy
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
	RETURNING ` + propertyCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	p, err := scanProperty(r.db.QueryRow(ctx, q, hostID,
		in.Title, in.Description, in.PropertyType, in.DailyPrice, in.MaxGuests,
		in.Bedrooms, in.Bathrooms, in.Address, in.City, in.Country, in.Latitude, in.Longitude,
		in.IsInstantBook, in.CancellationPolicy,
	))
	if err != nil {
		return nil, storeErr("create property", err)
	}
	return p, nil
}

func (r *propertyRepository) GetByID(ctx context.Context, id int64) (*domain.Property, error) {
	const q = `SELECT ` + propertyCols + ` FROM properties WHERE id=$1`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	p, err := scanProperty(r.db.QueryRow(ctx, q, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(fmt.Sprintf("get property %d", id), err)
	}
	return p, nil
}

func (r *propertyRepository) Update(ctx context.Context, p *domain.Property) (*domain.Property, error) {
	const q = `UPDATE properties SET
		title=$2, description=$3, property_type=$4, daily_price=$5, max_guests=$6,
		bedrooms=$7, bathrooms=$8, address=$9, city=$10, country=$11,
		is_instant_book=$12, cancellation_policy=$13, updated_at=now()
	WHERE id=$1
	RETURNING ` + propertyCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	updated, err := scanProperty(r.db.QueryRow(ctx, q, p.ID,
		p.Title, p.Description, p.PropertyType, p.DailyPrice, p.MaxGuests,
		p.Bedrooms, p.Bathrooms, p.Address, p.City, p.Country,
		p.IsInstantBook, p.CancellationPolicy,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(fmt.Sprintf("update property %d", p.ID), err)
	}
	return updated, nil
}

func (r *propertyRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE properties SET is_active=$2, updated_at=now() WHERE id=$1`, id, active)
	return storeErr("set property active", err)
}

func (r *propertyRepository) Search(ctx context.Context, f domain.PropertyFilter) ([]domain.Property, error) {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	where := []string{"is_active"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.City != "" {
		where = append(where, "lower(city)=lower("+arg(f.City)+")")
	}
	if f.Guests > 0 {
		where = append(where, "(max_guests IS NULL OR max_guests >= "+arg(f.Guests)+")")
	}
	if f.MinPrice != nil {
		where = append(where, "daily_price >= "+arg(*f.MinPrice))
	}
	if f.MaxPrice != nil {
		where = append(where, "daily_price <= "+arg(*f.MaxPrice))
	}
	if f.InstantBook != nil {
		where = append(where, "is_instant_book = "+arg(*f.InstantBook))
	}
	if f.Stay != nil {
		in, out := arg(f.Stay.CheckIn.Time()), arg(f.Stay.CheckOut.Time())
		where = append(where,
			`NOT EXISTS (SELECT 1 FROM bookings b WHERE b.property_id = properties.id
				AND b.status IN ('pending','confirmed')
				AND b.check_in_date < `+out+` AND `+in+` < b.check_out_date)`,
			`NOT EXISTS (SELECT 1 FROM availability_overrides o WHERE o.property_id = properties.id
				AND NOT o.is_available AND o.date >= `+in+` AND o.date < `+out+`)`,
		)
	}

	q := `SELECT ` + propertyCols + ` FROM properties WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg(f.Offset)

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, storeErr("search properties", err)
	}
	defer rows.Close()

	var out []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, storeErr("scan property", err)
		}
		out = append(out, *p)
	}
	return out, storeErr("search properties", rows.Err())
}

// prefixed qualifies each column of a column list with alias.
func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ",")
	for i, c := range parts {
		parts[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
