package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/realtime"
)

type conversationFixture struct {
	tenantID   uuid.UUID
	landlordID uuid.UUID
	property   *models.Property

	convRepo     *fakeConversationRepo
	messageRepo  *fakeMessageRepo
	propertyRepo *fakePropertyRepo
	publisher    *fakePublisher
	handler      *ConversationHandler
}

func newConversationFixture() *conversationFixture {
	f := &conversationFixture{
		tenantID:     uuid.New(),
		landlordID:   uuid.New(),
		convRepo:     newFakeConversationRepo(),
		messageRepo:  &fakeMessageRepo{},
		propertyRepo: newFakePropertyRepo(),
		publisher:    &fakePublisher{},
	}
	f.property = f.propertyRepo.seed(models.Property{
		LandlordID: f.landlordID,
		Title:      "Sunny flat in Patan",
		City:       "Lalitpur",
		Price:      25000,
		RoomType:   models.RoomFlat,
		Status:     models.StatusApproved,
		IsVacant:   true,
	})
	f.handler = NewConversationHandler(f.convRepo, f.messageRepo, f.propertyRepo, f.publisher, testLogger)
	return f
}

func (f *conversationFixture) router(userID uuid.UUID) *gin.Engine {
	return authedRouter(userID, func(g *gin.RouterGroup) {
		g.GET("/conversations", f.handler.List)
		g.POST("/conversations", f.handler.Open)
		g.GET("/conversations/:id/messages", f.handler.ListMessages)
		g.POST("/conversations/:id/messages", f.handler.SendMessage)
		g.POST("/conversations/:id/messages/:messageID/read", f.handler.MarkMessageRead)
		g.PATCH("/conversations/:id/archive", f.handler.Archive)
		g.GET("/me/unread_count", f.handler.UnreadCount)
	})
}

func (f *conversationFixture) openConversation(t *testing.T) models.Conversation {
	t.Helper()
	w := doJSON(t, f.router(f.tenantID), http.MethodPost, "/v1/conversations",
		gin.H{"property_id": f.property.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var conv models.Conversation
	decodeBody(t, w, &conv)
	return conv
}

func TestOpenConversation_FindOrCreateOnce(t *testing.T) {
	f := newConversationFixture()

	first := f.openConversation(t)
	second := f.openConversation(t)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.convRepo.creates)
	assert.Equal(t, f.tenantID, first.TenantID)
	assert.Equal(t, f.landlordID, first.LandlordID)
}

func TestOpenConversation_LandlordCannotOriginate(t *testing.T) {
	f := newConversationFixture()

	w := doJSON(t, f.router(f.landlordID), http.MethodPost, "/v1/conversations",
		gin.H{"property_id": f.property.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 0, f.convRepo.creates)
}

func TestOpenConversation_UnknownProperty(t *testing.T) {
	f := newConversationFixture()

	w := doJSON(t, f.router(f.tenantID), http.MethodPost, "/v1/conversations",
		gin.H{"property_id": uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListMessages_MarksOnlyCounterpartMessagesRead(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)

	fromTenant := f.messageRepo.seed(conv.ID, f.tenantID, "Is the flat still available?", false)
	fromLandlord := f.messageRepo.seed(conv.ID, f.landlordID, "Yes, come see it tomorrow.", false)

	w := doJSON(t, f.router(f.tenantID), http.MethodGet,
		"/v1/conversations/"+conv.ID.String()+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var messages []models.Message
	decodeBody(t, w, &messages)
	require.Len(t, messages, 2)

	// Ascending by created_at, and only the landlord's message flipped.
	assert.Equal(t, fromTenant.ID, messages[0].ID)
	assert.False(t, messages[0].IsRead, "reader's own message must stay unread")
	assert.Equal(t, fromLandlord.ID, messages[1].ID)
	assert.True(t, messages[1].IsRead)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, realtime.KindUpdate, ev.Kind)
	assert.Equal(t, []uuid.UUID{fromLandlord.ID}, ev.MessageIDs)
	assert.Contains(t, ev.Topics, realtime.ConversationTopic(conv.ID))
	assert.Contains(t, ev.Topics, realtime.UserTopic(f.tenantID))
	assert.Contains(t, ev.Topics, realtime.UserTopic(f.landlordID))
}

func TestListMessages_NoEventWhenNothingUnread(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)
	f.messageRepo.seed(conv.ID, f.landlordID, "Hello", true)

	w := doJSON(t, f.router(f.tenantID), http.MethodGet,
		"/v1/conversations/"+conv.ID.String()+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, f.publisher.events)
}

func TestSendMessage_PublishesInsertEvent(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)

	w := doJSON(t, f.router(f.tenantID), http.MethodPost,
		"/v1/conversations/"+conv.ID.String()+"/messages",
		gin.H{"content": "Can I move in next month?"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var msg models.Message
	decodeBody(t, w, &msg)
	assert.Equal(t, f.tenantID, msg.SenderID)
	assert.False(t, msg.IsRead)

	require.Len(t, f.publisher.events, 1)
	ev := f.publisher.events[0]
	assert.Equal(t, realtime.KindInsert, ev.Kind)
	require.NotNil(t, ev.Message)
	assert.Equal(t, msg.ID, ev.Message.ID)
	assert.ElementsMatch(t, []string{
		realtime.ConversationTopic(conv.ID),
		realtime.UserTopic(f.tenantID),
		realtime.UserTopic(f.landlordID),
	}, ev.Topics)
}

func TestSendMessage_RejectsBlankContent(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)

	for _, content := range []string{"", "   ", "\n\t "} {
		w := doJSON(t, f.router(f.tenantID), http.MethodPost,
			"/v1/conversations/"+conv.ID.String()+"/messages",
			gin.H{"content": content})
		assert.Equal(t, http.StatusBadRequest, w.Code, "content %q", content)
	}
	assert.Empty(t, f.messageRepo.msgs)
	assert.Empty(t, f.publisher.events)
}

func TestConversation_NonParticipantGets404(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)
	stranger := uuid.New()

	get := doJSON(t, f.router(stranger), http.MethodGet,
		"/v1/conversations/"+conv.ID.String()+"/messages", nil)
	assert.Equal(t, http.StatusNotFound, get.Code)

	send := doJSON(t, f.router(stranger), http.MethodPost,
		"/v1/conversations/"+conv.ID.String()+"/messages",
		gin.H{"content": "let me in"})
	assert.Equal(t, http.StatusNotFound, send.Code)
	assert.Empty(t, f.messageRepo.msgs)
}

func TestUnreadCount_CountsOnlyIncoming(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)

	f.messageRepo.seed(conv.ID, f.landlordID, "one", false)
	f.messageRepo.seed(conv.ID, f.landlordID, "two", false)
	f.messageRepo.seed(conv.ID, f.tenantID, "mine", false)
	f.messageRepo.seed(conv.ID, f.landlordID, "seen already", true)

	w := doJSON(t, f.router(f.tenantID), http.MethodGet, "/v1/me/unread_count", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		UnreadCount int `json:"unread_count"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, 2, body.UnreadCount)
}

func TestArchive_SetsCallersFlagOnly(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)

	w := doJSON(t, f.router(f.tenantID), http.MethodPatch,
		"/v1/conversations/"+conv.ID.String()+"/archive",
		gin.H{"archived": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := f.convRepo.GetByID(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.True(t, stored.ArchivedByTenant)
	assert.False(t, stored.ArchivedByLandlord)
}

func TestMarkMessageRead_PublishesUpdate(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)
	msg := f.messageRepo.seed(conv.ID, f.landlordID, "ping", false)

	w := doJSON(t, f.router(f.tenantID), http.MethodPost,
		"/v1/conversations/"+conv.ID.String()+"/messages/"+msg.ID.String()+"/read", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	require.Len(t, f.publisher.events, 1)
	assert.Equal(t, realtime.KindUpdate, f.publisher.events[0].Kind)
	assert.Equal(t, []uuid.UUID{msg.ID}, f.publisher.events[0].MessageIDs)
}

func TestMarkMessageRead_NeverOwnMessages(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)
	own := f.messageRepo.seed(conv.ID, f.tenantID, "sent by me", false)

	w := doJSON(t, f.router(f.tenantID), http.MethodPost,
		"/v1/conversations/"+conv.ID.String()+"/messages/"+own.ID.String()+"/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.False(t, f.messageRepo.msgs[0].IsRead,
		"messages authored by the viewer must never be marked read by their own view action")
	assert.Empty(t, f.publisher.events)
}

func TestMarkMessageRead_ScopedToConversation(t *testing.T) {
	f := newConversationFixture()
	conv := f.openConversation(t)

	// A message in a conversation the caller doesn't participate in.
	foreignConv := uuid.New()
	foreign := f.messageRepo.seed(foreignConv, uuid.New(), "not yours", false)

	w := doJSON(t, f.router(f.tenantID), http.MethodPost,
		"/v1/conversations/"+conv.ID.String()+"/messages/"+foreign.ID.String()+"/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.False(t, f.messageRepo.msgs[0].IsRead,
		"a foreign conversation's message must survive a crafted read flip")
	assert.Empty(t, f.publisher.events)
}
