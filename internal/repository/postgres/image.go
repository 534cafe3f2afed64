package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gharkhoj/gharkhoj/internal/models"
)

type ImageStore struct {
	pool *pgxpool.Pool
}

func NewImageStore(pool *pgxpool.Pool) *ImageStore {
	return &ImageStore{pool: pool}
}

func (s *ImageStore) Add(ctx context.Context, propertyID uuid.UUID, imageURL string, displayOrder int) (*models.PropertyImage, error) {
	query := `
		INSERT INTO property_images (property_id, image_url, display_order)
		VALUES ($1, $2, $3)
		RETURNING id, property_id, image_url, display_order, created_at`

	var img models.PropertyImage
	err := s.pool.QueryRow(ctx, query, propertyID, imageURL, displayOrder).Scan(
		&img.ID,
		&img.PropertyID,
		&img.ImageURL,
		&img.DisplayOrder,
		&img.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert image: %w", err)
	}
	return &img, nil
}

func (s *ImageStore) GetByID(ctx context.Context, imageID uuid.UUID) (*models.PropertyImage, error) {
	query := `
		SELECT id, property_id, image_url, display_order, created_at
		FROM property_images
		WHERE id = $1`

	var img models.PropertyImage
	err := s.pool.QueryRow(ctx, query, imageID).Scan(
		&img.ID,
		&img.PropertyID,
		&img.ImageURL,
		&img.DisplayOrder,
		&img.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get image: %w", err)
	}
	return &img, nil
}

// ListByProperty returns gallery rows in display order. The first row is
// the thumbnail by convention.
func (s *ImageStore) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyImage, error) {
	query := `
		SELECT id, property_id, image_url, display_order, created_at
		FROM property_images
		WHERE property_id = $1
		ORDER BY display_order ASC, created_at ASC`

	rows, err := s.pool.Query(ctx, query, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}
	defer rows.Close()

	images := make([]models.PropertyImage, 0)
	for rows.Next() {
		var img models.PropertyImage
		if err := rows.Scan(
			&img.ID,
			&img.PropertyID,
			&img.ImageURL,
			&img.DisplayOrder,
			&img.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}

	return images, nil
}

func (s *ImageStore) Remove(ctx context.Context, imageID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM property_images WHERE id = $1`, imageID); err != nil {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}
