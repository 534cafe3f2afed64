// Package inbox holds the in-memory merge logic for a chat thread view.
// Realtime delivery order is not guaranteed to match commit order, so any
// view that merges live events must derive display order from each
// message's own created_at, and an event may arrive twice (replay racing a
// live insert), so merges must be idempotent on message id.
package inbox

import (
	"sort"

	"github.com/google/uuid"

	"github.com/gharkhoj/gharkhoj/internal/models"
)

// Thread is a merge buffer for one conversation's messages. After any
// sequence of Merge calls the slice returned by Messages is deduplicated
// by id and non-decreasing in created_at. Not goroutine-safe; callers
// serialize access (each websocket session owns its threads).
type Thread struct {
	ConversationID uuid.UUID

	messages []models.Message
	seen     map[uuid.UUID]int // message id -> index in messages
}

func NewThread(conversationID uuid.UUID) *Thread {
	return &Thread{
		ConversationID: conversationID,
		seen:           make(map[uuid.UUID]int),
	}
}

// Merge folds one message into the thread. A message whose id is already
// present updates the stored copy in place (an is_read flip arrives as the
// same row with a changed flag) and reports false; a new message is
// inserted in timestamp order and reports true.
func (t *Thread) Merge(msg models.Message) bool {
	if idx, ok := t.seen[msg.ID]; ok {
		t.messages[idx] = msg
		return false
	}

	t.messages = append(t.messages, msg)
	// Stable sort keeps equal-timestamp messages in arrival order while
	// enforcing the created_at invariant for everything else.
	sort.SliceStable(t.messages, func(i, j int) bool {
		return t.messages[i].CreatedAt.Before(t.messages[j].CreatedAt)
	})
	t.reindex()
	return true
}

// MergeAll folds a batch (typically the history fetch) into the thread.
func (t *Thread) MergeAll(msgs []models.Message) {
	for _, m := range msgs {
		t.Merge(m)
	}
}

// Remove drops a message by id (delete events). No-op if absent.
func (t *Thread) Remove(id uuid.UUID) {
	idx, ok := t.seen[id]
	if !ok {
		return
	}
	t.messages = append(t.messages[:idx], t.messages[idx+1:]...)
	t.reindex()
}

// Messages returns the merged view in display order. The returned slice is
// shared; callers must not mutate it.
func (t *Thread) Messages() []models.Message {
	return t.messages
}

func (t *Thread) Len() int {
	return len(t.messages)
}

func (t *Thread) reindex() {
	for k := range t.seen {
		delete(t.seen, k)
	}
	for i, m := range t.messages {
		t.seen[m.ID] = i
	}
}

// UnreadFor counts messages addressed to viewerID that are still unread.
// Messages the viewer sent never count toward their own badge.
func (t *Thread) UnreadFor(viewerID uuid.UUID) int {
	n := 0
	for _, m := range t.messages {
		if !m.IsRead && m.SenderID != viewerID {
			n++
		}
	}
	return n
}
