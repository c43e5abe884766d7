package repository

import (
	"context"

	"github.com/diagnosis/stays/services/stays/internal/domain"
)

type ImageRepository interface {
	Add(ctx context.Context, propertyID int64, in domain.ImageInput) (*domain.PropertyImage, error)
	List(ctx context.Context, propertyID int64) ([]domain.PropertyImage, error)
	// ClearPrimary demotes the current primary image, if any.
	ClearPrimary(ctx context.Context, propertyID int64) error
	SetPrimary(ctx context.Context, propertyID, imageID int64) (bool, error)
}

type imageRepository struct {
	db DBTX
}

const imageCols = `id, property_id, url, caption, display_order, is_primary, created_at`

func (r *imageRepository) Add(ctx context.Context, propertyID int64, in domain.ImageInput) (*domain.PropertyImage, error) {
	const q = `INSERT INTO property_images (property_id, url, caption, display_order, is_primary)
	VALUES ($1,$2,$3,$4,$5) RETURNING ` + imageCols

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var img domain.PropertyImage
	err := r.db.QueryRow(ctx, q, propertyID, in.URL, in.Caption, in.DisplayOrder, in.IsPrimary).Scan(
		&img.ID, &img.PropertyID, &img.URL, &img.Caption, &img.DisplayOrder, &img.IsPrimary, &img.CreatedAt,
	)
	if err != nil {
		return nil, storeErr("add image", err)
	}
	return &img, nil
}

func (r *imageRepository) List(ctx context.Context, propertyID int64) ([]domain.PropertyImage, error) {
	const q = `SELECT ` + imageCols + ` FROM property_images WHERE property_id=$1 ORDER BY display_order, id`
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, q, propertyID)
	if err != nil {
		return nil, storeErr("list images", err)
	}
	defer rows.Close()

	var images []domain.PropertyImage
	for rows.Next() {
		var img domain.PropertyImage
		if err := rows.Scan(&img.ID, &img.PropertyID, &img.URL, &img.Caption, &img.DisplayOrder, &img.IsPrimary, &img.CreatedAt); err != nil {
			return nil, storeErr("scan image", err)
		}
		images = append(images, img)
	}
	return images, storeErr("list images", rows.Err())
}

func (r *imageRepository) ClearPrimary(ctx context.Context, propertyID int64) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `UPDATE property_images SET is_primary=false WHERE property_id=$1 AND is_primary`, propertyID)
	return storeErr("clear primary image", err)
}

func (r *imageRepository) SetPrimary(ctx context.Context, propertyID, imageID int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `UPDATE property_images SET is_primary=true WHERE id=$1 AND property_id=$2`, imageID, propertyID)
	if err != nil {
		return false, storeErr("set primary image", err)
	}
	return tag.RowsAffected() == 1, nil
}
