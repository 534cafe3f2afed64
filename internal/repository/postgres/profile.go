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

type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) Create(ctx context.Context, userID uuid.UUID, fullName string) (*models.Profile, error) {
	query := `
		INSERT INTO profiles (user_id, full_name)
		VALUES ($1, $2)
		RETURNING id, user_id, full_name, phone, avatar_url, created_at, updated_at`

	var p models.Profile
	err := s.pool.QueryRow(ctx, query, userID, fullName).Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&p.Phone,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	return &p, nil
}

func (s *ProfileStore) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT id, user_id, full_name, phone, avatar_url, created_at, updated_at
		FROM profiles
		WHERE user_id = $1`

	var p models.Profile
	err := s.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&p.Phone,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &p, nil
}

func (s *ProfileStore) Update(ctx context.Context, userID uuid.UUID, fullName, phone, avatarURL string) (*models.Profile, error) {
	query := `
		UPDATE profiles
		SET full_name = $2, phone = $3, avatar_url = $4, updated_at = now()
		WHERE user_id = $1
		RETURNING id, user_id, full_name, phone, avatar_url, created_at, updated_at`

	var p models.Profile
	err := s.pool.QueryRow(ctx, query, userID, fullName, phone, avatarURL).Scan(
		&p.ID,
		&p.UserID,
		&p.FullName,
		&p.Phone,
		&p.AvatarURL,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return &p, nil
}
