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

type ConversationStore struct {
	pool *pgxpool.Pool
}

func NewConversationStore(pool *pgxpool.Pool) *ConversationStore {
	return &ConversationStore{pool: pool}
}

const conversationColumns = ` id, property_id, tenant_id, landlord_id,
	archived_by_tenant, archived_by_landlord, created_at, updated_at`

func scanConversation(row pgx.Row) (*models.Conversation, error) {
	var c models.Conversation
	err := row.Scan(
		&c.ID,
		&c.PropertyID,
		&c.TenantID,
		&c.LandlordID,
		&c.ArchivedByTenant,
		&c.ArchivedByLandlord,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindOrCreate returns the single conversation for (property, tenant).
// The insert races safely: ON CONFLICT DO NOTHING means two concurrent
// first-opens both fall through to the select and get the same row.
func (s *ConversationStore) FindOrCreate(ctx context.Context, propertyID, tenantID, landlordID uuid.UUID) (*models.Conversation, error) {
	insert := `
		INSERT INTO conversations (property_id, tenant_id, landlord_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (property_id, tenant_id) DO NOTHING`

	if _, err := s.pool.Exec(ctx, insert, propertyID, tenantID, landlordID); err != nil {
		return nil, fmt.Errorf("insert conversation: %w", err)
	}

	query := `SELECT` + conversationColumns + `
		FROM conversations
		WHERE property_id = $1 AND tenant_id = $2`

	c, err := scanConversation(s.pool.QueryRow(ctx, query, propertyID, tenantID))
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (s *ConversationStore) GetByID(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	query := `SELECT` + conversationColumns + ` FROM conversations WHERE id = $1`

	c, err := scanConversation(s.pool.QueryRow(ctx, query, conversationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// ListSummaries assembles the whole inbox directory in one round trip:
// a lateral join picks each conversation's latest message, a filtered
// subquery counts unread, and left joins pull the counterpart's name and
// the property's title/city/thumbnail. Missing profile or property data
// degrades that row to placeholders instead of dropping it.
func (s *ConversationStore) ListSummaries(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	query := `
		SELECT c.id, c.property_id, c.tenant_id, c.landlord_id,
		       c.archived_by_tenant, c.archived_by_landlord, c.created_at, c.updated_at,
		       COALESCE(p.title, ''), COALESCE(p.city, ''),
		       COALESCE((
		           SELECT pi.image_url FROM property_images pi
		           WHERE pi.property_id = c.property_id
		           ORDER BY pi.display_order ASC, pi.created_at ASC
		           LIMIT 1
		       ), ''),
		       COALESCE(NULLIF(pr.full_name, ''), 'Unknown'),
		       COALESCE(lm.content, ''), lm.created_at,
		       (
		           SELECT count(*) FROM messages m
		           WHERE m.conversation_id = c.id
		             AND NOT m.is_read
		             AND m.sender_id <> $1
		       )
		FROM conversations c
		LEFT JOIN properties p ON p.id = c.property_id
		LEFT JOIN profiles pr ON pr.user_id =
		    CASE WHEN c.tenant_id = $1 THEN c.landlord_id ELSE c.tenant_id END
		LEFT JOIN LATERAL (
		    SELECT content, created_at FROM messages
		    WHERE conversation_id = c.id
		    ORDER BY created_at DESC
		    LIMIT 1
		) lm ON true
		WHERE c.tenant_id = $1 OR c.landlord_id = $1
		ORDER BY c.updated_at DESC`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversation summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var sum models.ConversationSummary
		if err := rows.Scan(
			&sum.ID,
			&sum.PropertyID,
			&sum.TenantID,
			&sum.LandlordID,
			&sum.ArchivedByTenant,
			&sum.ArchivedByLandlord,
			&sum.CreatedAt,
			&sum.UpdatedAt,
			&sum.PropertyTitle,
			&sum.PropertyCity,
			&sum.Thumbnail,
			&sum.OtherName,
			&sum.LastMessage,
			&sum.LastMessageAt,
			&sum.UnreadCount,
		); err != nil {
			return nil, fmt.Errorf("scan conversation summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation summaries: %w", err)
	}

	return summaries, nil
}

// SetArchived flips the caller's own archive flag; which flag depends on
// which side of the conversation the caller is.
func (s *ConversationStore) SetArchived(ctx context.Context, conversationID, userID uuid.UUID, archived bool) error {
	query := `
		UPDATE conversations
		SET archived_by_tenant   = CASE WHEN tenant_id   = $2 THEN $3 ELSE archived_by_tenant END,
		    archived_by_landlord = CASE WHEN landlord_id = $2 THEN $3 ELSE archived_by_landlord END
		WHERE id = $1 AND (tenant_id = $2 OR landlord_id = $2)`

	tag, err := s.pool.Exec(ctx, query, conversationID, userID, archived)
	if err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set archived: not a participant")
	}
	return nil
}
