package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

type InquiryStore struct {
	pool *pgxpool.Pool
}

func NewInquiryStore(pool *pgxpool.Pool) *InquiryStore {
	return &InquiryStore{pool: pool}
}

const inquiryColumns = ` id, property_id, tenant_id, message, preferred_move_in, status, created_at`

func scanInquiry(row pgx.Row) (*models.Inquiry, error) {
	var iq models.Inquiry
	err := row.Scan(
		&iq.ID,
		&iq.PropertyID,
		&iq.TenantID,
		&iq.Message,
		&iq.PreferredMoveIn,
		&iq.Status,
		&iq.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &iq, nil
}

func (s *InquiryStore) Create(ctx context.Context, propertyID, tenantID uuid.UUID, message string, preferredMoveIn *time.Time) (*models.Inquiry, error) {
	query := `
		INSERT INTO inquiries (property_id, tenant_id, message, preferred_move_in)
		VALUES ($1, $2, $3, $4)
		RETURNING` + inquiryColumns

	iq, err := scanInquiry(s.pool.QueryRow(ctx, query, propertyID, tenantID, message, preferredMoveIn))
	if err != nil {
		return nil, fmt.Errorf("insert inquiry: %w", err)
	}
	return iq, nil
}

func (s *InquiryStore) GetByID(ctx context.Context, inquiryID uuid.UUID) (*models.Inquiry, error) {
	query := `SELECT` + inquiryColumns + ` FROM inquiries WHERE id = $1`

	iq, err := scanInquiry(s.pool.QueryRow(ctx, query, inquiryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inquiry: %w", err)
	}
	return iq, nil
}

func (s *InquiryStore) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Inquiry, error) {
	query := `SELECT` + inquiryColumns + `
		FROM inquiries
		WHERE tenant_id = $1
		ORDER BY created_at DESC`

	return s.queryList(ctx, query, tenantID)
}

// ListByLandlord returns inquiries across every property the landlord
// owns, one joined query.
func (s *InquiryStore) ListByLandlord(ctx context.Context, landlordID uuid.UUID) ([]models.Inquiry, error) {
	query := `
		SELECT i.id, i.property_id, i.tenant_id, i.message, i.preferred_move_in, i.status, i.created_at
		FROM inquiries i
		JOIN properties p ON p.id = i.property_id
		WHERE p.landlord_id = $1
		ORDER BY i.created_at DESC`

	return s.queryList(ctx, query, landlordID)
}

func (s *InquiryStore) Close(ctx context.Context, inquiryID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE inquiries SET status = 'closed' WHERE id = $1`, inquiryID)
	if err != nil {
		return fmt.Errorf("close inquiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("close inquiry: not found")
	}
	return nil
}

// Delete removes an inquiry; only the tenant who sent it may do so, and
// the check lives in the WHERE clause.
func (s *InquiryStore) Delete(ctx context.Context, tenantID, inquiryID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM inquiries WHERE id = $1 AND tenant_id = $2`,
		inquiryID, tenantID,
	)
	if err != nil {
		return fmt.Errorf("delete inquiry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotOwner
	}
	return nil
}

func (s *InquiryStore) queryList(ctx context.Context, query string, args ...any) ([]models.Inquiry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list inquiries: %w", err)
	}
	defer rows.Close()

	inquiries := make([]models.Inquiry, 0)
	for rows.Next() {
		iq, err := scanInquiry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inquiry: %w", err)
		}
		inquiries = append(inquiries, *iq)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inquiries: %w", err)
	}

	return inquiries, nil
}
