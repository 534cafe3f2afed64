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

type RoleStore struct {
	pool *pgxpool.Pool
}

func NewRoleStore(pool *pgxpool.Pool) *RoleStore {
	return &RoleStore{pool: pool}
}

// Assign sets the user's single role, replacing any existing assignment.
func (s *RoleStore) Assign(ctx context.Context, userID uuid.UUID, role models.Role) error {
	query := `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET role = EXCLUDED.role`

	if _, err := s.pool.Exec(ctx, query, userID, role); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// GetByUserID returns the user's role, or "" if no role row exists.
func (s *RoleStore) GetByUserID(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	var role models.Role
	err := s.pool.QueryRow(ctx,
		`SELECT role FROM user_roles WHERE user_id = $1`, userID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get role: %w", err)
	}
	return role, nil
}

// HasRole is the hot-path authorization check. Always hits the database so
// a revoked role takes effect immediately, live tokens notwithstanding.
func (s *RoleStore) HasRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`,
		userID, role,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check role: %w", err)
	}
	return exists, nil
}
