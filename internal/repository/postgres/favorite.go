package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gharkhoj/gharkhoj/internal/models"
)

type FavoriteStore struct {
	pool *pgxpool.Pool
}

func NewFavoriteStore(pool *pgxpool.Pool) *FavoriteStore {
	return &FavoriteStore{pool: pool}
}

// Add is idempotent: favoriting an already-favorited property is a no-op.
func (s *FavoriteStore) Add(ctx context.Context, userID, propertyID uuid.UUID) error {
	query := `
		INSERT INTO favorites (user_id, property_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, property_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, query, userID, propertyID); err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

func (s *FavoriteStore) Remove(ctx context.Context, userID, propertyID uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND property_id = $2`,
		userID, propertyID,
	)
	if err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

func (s *FavoriteStore) Exists(ctx context.Context, userID, propertyID uuid.UUID) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND property_id = $2)`,
		userID, propertyID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// ListProperties returns the user's favorited properties, newest favorite
// first, with gallery images attached.
func (s *FavoriteStore) ListProperties(ctx context.Context, userID uuid.UUID) ([]models.Property, error) {
	query := `SELECT` + qualifiedPropertyColumns("p") + `
		FROM favorites f
		JOIN properties p ON p.id = f.property_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC`

	props := NewPropertyStore(s.pool)
	return props.queryList(ctx, query, userID)
}
