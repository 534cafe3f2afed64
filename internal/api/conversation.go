package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/realtime"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

type ConversationHandler struct {
	repo         repository.ConversationRepository
	messageRepo  repository.MessageRepository
	propertyRepo repository.PropertyRepository
	publisher    realtime.Publisher
	logger       *zap.Logger
}

func NewConversationHandler(
	repo repository.ConversationRepository,
	messageRepo repository.MessageRepository,
	propertyRepo repository.PropertyRepository,
	publisher realtime.Publisher,
	logger *zap.Logger,
) *ConversationHandler {
	return &ConversationHandler{
		repo:         repo,
		messageRepo:  messageRepo,
		propertyRepo: propertyRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

// List handles GET /v1/conversations — the inbox directory, most recently
// updated first, fully enriched in one query.
func (h *ConversationHandler) List(c *gin.Context) {
	summaries, err := h.repo.ListSummaries(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to list conversations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

type openConversationRequest struct {
	PropertyID uuid.UUID `json:"property_id" binding:"required"`
}

// Open handles POST /v1/conversations: find-or-create the thread for
// (property, caller). Only tenants originate conversations; a landlord
// opening chat on their own listing reuses whatever thread a tenant
// already started, via the directory.
func (h *ConversationHandler) Open(c *gin.Context) {
	var req openConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	property, err := h.propertyRepo.GetByID(c.Request.Context(), req.PropertyID)
	if err != nil {
		h.logger.Error("failed to load property", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open conversation"})
		return
	}
	if property == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}

	userID := middleware.GetUserID(c)
	if userID == property.LandlordID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "landlords cannot start a conversation on their own property"})
		return
	}

	conversation, err := h.repo.FindOrCreate(c.Request.Context(), property.ID, userID, property.LandlordID)
	if err != nil {
		h.logger.Error("failed to open conversation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to open conversation"})
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// participantConversation loads the conversation and verifies the caller
// is one of the two parties. Non-participants get the same 404 as for a
// conversation that doesn't exist.
func (h *ConversationHandler) participantConversation(c *gin.Context) *models.Conversation {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return nil
	}

	conversation, err := h.repo.GetByID(c.Request.Context(), conversationID)
	if err != nil {
		h.logger.Error("failed to load conversation", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
		return nil
	}
	if conversation == nil || !conversation.Participant(middleware.GetUserID(c)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return nil
	}
	return conversation
}

// ListMessages handles GET /v1/conversations/:id/messages. Opening the
// thread flips is_read on every message not authored by the caller —
// never the caller's own — and publishes the flip so the other party's
// "seen" state and everyone's badges update live.
func (h *ConversationHandler) ListMessages(c *gin.Context) {
	conversation := h.participantConversation(c)
	if conversation == nil {
		return
	}
	userID := middleware.GetUserID(c)

	var before time.Time
	if b := c.Query("before"); b != "" {
		t, err := time.Parse(time.RFC3339, b)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'before' parameter"})
			return
		}
		before = t
	}
	limit := 0
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return
		}
		limit = n
	}

	messages, err := h.messageRepo.ListByConversation(c.Request.Context(), conversation.ID, before, limit)
	if err != nil {
		h.logger.Error("failed to list messages", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	readIDs, err := h.messageRepo.MarkConversationRead(c.Request.Context(), conversation.ID, userID)
	if err != nil {
		// The history still renders; the flip will happen on the next
		// open. Log and keep going.
		h.logger.Error("failed to mark conversation read", zap.Error(err))
	} else if len(readIDs) > 0 {
		h.publishRead(c, conversation, readIDs)

		// Reflect the flip in the returned page without a second fetch.
		read := make(map[uuid.UUID]bool, len(readIDs))
		for _, id := range readIDs {
			read[id] = true
		}
		for i := range messages {
			if read[messages[i].ID] {
				messages[i].IsRead = true
			}
		}
	}

	c.JSON(http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage handles POST /v1/conversations/:id/messages. The response
// carries the stored row; subscribers (the sender's own thread view
// included) see it via the realtime echo. Blank or whitespace-only
// content is rejected outright.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	conversation := h.participantConversation(c)
	if conversation == nil {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message content cannot be empty"})
		return
	}

	msg, err := h.messageRepo.Create(c.Request.Context(), conversation.ID, middleware.GetUserID(c), content)
	if err != nil {
		h.logger.Error("failed to send message", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	ev := realtime.MessageInserted(msg, conversation.TenantID, conversation.LandlordID)
	if err := h.publisher.Publish(c.Request.Context(), ev); err != nil {
		// The message is durably stored; a lost notification only delays
		// the other party until their next directory refresh.
		h.logger.Warn("failed to publish message event", zap.Error(err))
	}

	c.JSON(http.StatusCreated, msg)
}

// MarkMessageRead handles POST /v1/conversations/:id/messages/:messageID/read:
// the single-message flip a live thread view issues when an incoming
// message arrives while the thread is open. The repository scopes the flip
// to this conversation and excludes the caller's own messages; an id
// outside that scope matches nothing and 404s, same as a message that
// doesn't exist.
func (h *ConversationHandler) MarkMessageRead(c *gin.Context) {
	conversation := h.participantConversation(c)
	if conversation == nil {
		return
	}

	messageID, err := uuid.Parse(c.Param("messageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message ID"})
		return
	}

	flipped, err := h.messageRepo.MarkRead(c.Request.Context(), conversation.ID, messageID, middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to mark message read", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark message read"})
		return
	}
	if !flipped {
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
		return
	}

	h.publishRead(c, conversation, []uuid.UUID{messageID})
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type archiveRequest struct {
	Archived *bool `json:"archived" binding:"required"`
}

// Archive handles PATCH /v1/conversations/:id/archive — the caller's own
// soft-archive flag only.
func (h *ConversationHandler) Archive(c *gin.Context) {
	conversation := h.participantConversation(c)
	if conversation == nil {
		return
	}

	var req archiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.repo.SetArchived(c.Request.Context(), conversation.ID, middleware.GetUserID(c), *req.Archived)
	if err != nil {
		h.logger.Error("failed to set archive flag", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// UnreadCount handles GET /v1/me/unread_count — the navigation badge.
// Always a full recount, so it's consistent no matter which event kind
// triggered the client to ask.
func (h *ConversationHandler) UnreadCount(c *gin.Context) {
	total, err := h.messageRepo.UnreadTotal(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to count unread", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": total})
}

func (h *ConversationHandler) publishRead(c *gin.Context, conversation *models.Conversation, ids []uuid.UUID) {
	ev := realtime.MessagesRead(conversation.ID, ids, conversation.TenantID, conversation.LandlordID)
	if err := h.publisher.Publish(c.Request.Context(), ev); err != nil {
		h.logger.Warn("failed to publish read event", zap.Error(err))
	}
}
