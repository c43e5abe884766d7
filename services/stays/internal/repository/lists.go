package repository

import (
	"context"
	"fmt"

	"github.com/diagnosis/stays/services/stays/internal/domain"
)

type ListRepository interface {
	// Add inserts the pair and reports whether it was new.
	Add(ctx context.Context, kind domain.ListKind, userID, propertyID int64) (bool, error)
	Remove(ctx context.Context, kind domain.ListKind, userID, propertyID int64) (bool, error)
	Count(ctx context.Context, kind domain.ListKind, userID int64) (int, error)
	List(ctx context.Context, kind domain.ListKind, userID int64) ([]domain.ListItem, error)
}

type listRepository struct {
	db DBTX
}

func listTable(kind domain.ListKind) (string, error) {
	switch kind {
	case domain.Wishlist:
		return "wishlist_items", nil
	case domain.CompareList:
		return "compare_items", nil
	}
	return "", fmt.Errorf("%w: unknown list %q", domain.ErrInvalidInput, kind)
}

func (r *listRepository) Add(ctx context.Context, kind domain.ListKind, userID, propertyID int64) (bool, error) {
	table, err := listTable(kind)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `INSERT INTO `+table+` (user_id, property_id) VALUES ($1,$2) ON CONFLICT DO NOTHING`, userID, propertyID)
	if err != nil {
		return false, storeErr("add "+string(kind)+" item", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *listRepository) Remove(ctx context.Context, kind domain.ListKind, userID, propertyID int64) (bool, error) {
	table, err := listTable(kind)
	if err != nil {
		return false, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `DELETE FROM `+table+` WHERE user_id=$1 AND property_id=$2`, userID, propertyID)
	if err != nil {
		return false, storeErr("remove "+string(kind)+" item", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *listRepository) Count(ctx context.Context, kind domain.ListKind, userID int64) (int, error) {
	table, err := listTable(kind)
	if err != nil {
		return 0, err
	}
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var n int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM `+table+` WHERE user_id=$1`, userID).Scan(&n); err != nil {
		return 0, storeErr("count "+string(kind), err)
	}
	return n, nil
}

func (r *listRepository) List(ctx context.Context, kind domain.ListKind, userID int64) ([]domain.ListItem, error) {
	table, err := listTable(kind)
	if err != nil {
		return nil, err
	}
	q := `SELECT l.created_at, ` + prefixed("p", propertyCols) + `
	FROM ` + table + ` l JOIN properties p ON p.id = l.property_id
	WHERE l.user_id=$1 ORDER BY l.created_at DESC`

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, userID)
	if err != nil {
		return nil, storeErr("list "+string(kind), err)
	}
	defer rows.Close()

	var items []domain.ListItem
	for rows.Next() {
		var (
			item domain.ListItem
			p    domain.Property
		)
		if err := rows.Scan(&item.AddedAt, &p.ID, &p.HostID, &p.Title, &p.Description, &p.PropertyType,
			&p.DailyPrice, &p.MaxGuests, &p.Bedrooms, &p.Bathrooms,
			&p.Address, &p.City, &p.Country, &p.Latitude, &p.Longitude,
			&p.IsInstantBook, &p.CancellationPolicy, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, storeErr("scan "+string(kind), err)
		}
		item.PropertyID = p.ID
		item.Property = &p
		items = append(items, item)
	}
	return items, storeErr("list "+string(kind), rows.Err())
}
