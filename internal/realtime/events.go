package realtime

import (
	"github.com/google/uuid"

	"github.com/gharkhoj/gharkhoj/internal/models"
)

// EventKind mirrors the three row-change kinds subscribers care about.
type EventKind string

const (
	KindInsert EventKind = "insert"
	KindUpdate EventKind = "update"
	KindDelete EventKind = "delete"
)

// Event is one change notification. Insert events carry the full message
// row; update events (read flips) carry the affected ids so listeners can
// flip their local copies; delete events carry ids only.
//
// Topics lists where the event is delivered. Every message event goes to
// its conversation topic and to each participant's user topic, so badge
// and directory listeners receive only deltas relevant to them instead of
// filtering a table-wide broadcast.
type Event struct {
	Kind           EventKind       `json:"kind"`
	ConversationID uuid.UUID       `json:"conversation_id"`
	Message        *models.Message `json:"message,omitempty"`
	MessageIDs     []uuid.UUID     `json:"message_ids,omitempty"`
	Topics         []string        `json:"topics"`
}

// ConversationTopic scopes delivery to one thread's subscribers.
func ConversationTopic(id uuid.UUID) string {
	return "conversation:" + id.String()
}

// UserTopic is a participant's private delta feed.
func UserTopic(id uuid.UUID) string {
	return "user:" + id.String()
}

// MessageInserted builds the event published after a successful send.
func MessageInserted(msg *models.Message, tenantID, landlordID uuid.UUID) Event {
	return Event{
		Kind:           KindInsert,
		ConversationID: msg.ConversationID,
		Message:        msg,
		Topics: []string{
			ConversationTopic(msg.ConversationID),
			UserTopic(tenantID),
			UserTopic(landlordID),
		},
	}
}

// MessagesRead builds the event published after a read flip.
func MessagesRead(conversationID uuid.UUID, ids []uuid.UUID, tenantID, landlordID uuid.UUID) Event {
	return Event{
		Kind:           KindUpdate,
		ConversationID: conversationID,
		MessageIDs:     ids,
		Topics: []string{
			ConversationTopic(conversationID),
			UserTopic(tenantID),
			UserTopic(landlordID),
		},
	}
}
