package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gharkhoj/gharkhoj/internal/models"
)

type MessageStore struct {
	pool *pgxpool.Pool
}

func NewMessageStore(pool *pgxpool.Pool) *MessageStore {
	return &MessageStore{pool: pool}
}

// Create inserts the message and bumps the conversation's updated_at in
// the same transaction, keeping the directory's recency ordering in step
// with the thread.
func (s *MessageStore) Create(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*models.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO messages (conversation_id, sender_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, conversation_id, sender_id, content, is_read, created_at`

	var msg models.Message
	err = tx.QueryRow(ctx, query, conversationID, senderID, content).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.Content,
		&msg.IsRead,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE conversations SET updated_at = now() WHERE id = $1`,
		conversationID,
	); err != nil {
		return nil, fmt.Errorf("touch conversation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &msg, nil
}

// ListByConversation returns messages ascending by created_at — display
// order is derived from the row's own timestamp, never from delivery
// order. A non-zero before cursor restricts to older messages.
func (s *MessageStore) ListByConversation(ctx context.Context, conversationID uuid.UUID, before time.Time, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = 1000
	}

	var query string
	var args []any

	if !before.IsZero() {
		query = `
			SELECT id, conversation_id, sender_id, content, is_read, created_at
			FROM messages
			WHERE conversation_id = $1 AND created_at < $2
			ORDER BY created_at ASC
			LIMIT $3`
		args = []any{conversationID, before, limit}
	} else {
		query = `
			SELECT id, conversation_id, sender_id, content, is_read, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at ASC
			LIMIT $2`
		args = []any{conversationID, limit}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.Content,
			&msg.IsRead,
			&msg.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// MarkConversationRead flips every unread message not authored by the
// reader. The sender_id guard means a viewer can never mark their own
// messages read. Returns the ids touched so callers can publish update
// events for each.
func (s *MessageStore) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		UPDATE messages
		SET is_read = true
		WHERE conversation_id = $1 AND sender_id <> $2 AND NOT is_read
		RETURNING id`

	rows, err := s.pool.Query(ctx, query, conversationID, readerID)
	if err != nil {
		return nil, fmt.Errorf("mark conversation read: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan marked id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkRead flips one message. The WHERE clause carries the authorization:
// the message must live in the given conversation and must not be the
// reader's own. Reports whether a row matched, so callers can distinguish
// a real flip from an out-of-scope id.
func (s *MessageStore) MarkRead(ctx context.Context, conversationID, messageID, readerID uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages
		SET is_read = true
		WHERE id = $1 AND conversation_id = $2 AND sender_id <> $3`,
		messageID, conversationID, readerID,
	)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UnreadTotal recounts the badge from scratch: unread messages not
// authored by the user across all conversations the user participates in.
// A full recount is always consistent, never incrementally wrong.
func (s *MessageStore) UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `
		SELECT count(*)
		FROM messages m
		JOIN conversations c ON c.id = m.conversation_id
		WHERE (c.tenant_id = $1 OR c.landlord_id = $1)
		  AND NOT m.is_read
		  AND m.sender_id <> $1`

	var total int
	if err := s.pool.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, fmt.Errorf("unread total: %w", err)
	}
	return total, nil
}
