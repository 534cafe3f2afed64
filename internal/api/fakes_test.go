package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/realtime"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

// authedRouter returns a gin engine whose /v1 group behaves as if
// AuthMiddleware already ran for userID.
func authedRouter(userID uuid.UUID, register func(g *gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := r.Group("/v1", func(c *gin.Context) {
		c.Set(middleware.ContextKeyUserID, userID)
		c.Next()
	})
	register(g)
	return r
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		buf = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, into any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), into); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

// --- fake repositories -------------------------------------------------

type fakeUserRepo struct {
	users map[uuid.UUID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, email, passwordHash string) (*models.User, error) {
	u := &models.User{ID: uuid.New(), Email: email, PasswordHash: passwordHash, CreatedAt: time.Now()}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return f.users[userID], nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	if u, ok := f.users[userID]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	delete(f.users, userID)
	return nil
}

func (f *fakeUserRepo) ListWithDetails(ctx context.Context) ([]models.AdminUser, error) {
	out := make([]models.AdminUser, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, models.AdminUser{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt})
	}
	return out, nil
}

type fakeProfileRepo struct {
	profiles map[uuid.UUID]*models.Profile
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[uuid.UUID]*models.Profile)}
}

func (f *fakeProfileRepo) Create(ctx context.Context, userID uuid.UUID, fullName string) (*models.Profile, error) {
	p := &models.Profile{ID: uuid.New(), UserID: userID, FullName: fullName, CreatedAt: time.Now()}
	f.profiles[userID] = p
	return p, nil
}

func (f *fakeProfileRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return f.profiles[userID], nil
}

func (f *fakeProfileRepo) Update(ctx context.Context, userID uuid.UUID, fullName, phone, avatarURL string) (*models.Profile, error) {
	p, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	p.FullName, p.Phone, p.AvatarURL = fullName, phone, avatarURL
	p.UpdatedAt = time.Now()
	return p, nil
}

type fakeRoleRepo struct {
	roles map[uuid.UUID]models.Role
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: make(map[uuid.UUID]models.Role)}
}

func (f *fakeRoleRepo) Assign(ctx context.Context, userID uuid.UUID, role models.Role) error {
	f.roles[userID] = role
	return nil
}

func (f *fakeRoleRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (models.Role, error) {
	return f.roles[userID], nil
}

func (f *fakeRoleRepo) HasRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error) {
	return f.roles[userID] == role, nil
}

type fakePropertyRepo struct {
	properties map[uuid.UUID]*models.Property
}

func newFakePropertyRepo() *fakePropertyRepo {
	return &fakePropertyRepo{properties: make(map[uuid.UUID]*models.Property)}
}

func (f *fakePropertyRepo) seed(p models.Property) *models.Property {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	f.properties[p.ID] = &p
	return &p
}

func (f *fakePropertyRepo) Create(ctx context.Context, p *models.Property) (*models.Property, error) {
	stored := *p
	stored.ID = uuid.New()
	stored.Status = models.StatusPending
	stored.CreatedAt = time.Now()
	f.properties[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (f *fakePropertyRepo) GetByID(ctx context.Context, propertyID uuid.UUID) (*models.Property, error) {
	p, ok := f.properties[propertyID]
	if !ok {
		return nil, nil
	}
	out := *p
	return &out, nil
}

func (f *fakePropertyRepo) Update(ctx context.Context, landlordID uuid.UUID, p *models.Property) (*models.Property, error) {
	stored, ok := f.properties[p.ID]
	if !ok || stored.LandlordID != landlordID {
		return nil, repository.ErrNotOwner
	}
	p.Status = stored.Status
	p.CreatedAt = stored.CreatedAt
	p.UpdatedAt = time.Now()
	f.properties[p.ID] = p
	out := *p
	return &out, nil
}

func (f *fakePropertyRepo) SetVacancy(ctx context.Context, landlordID, propertyID uuid.UUID, isVacant bool) error {
	p, ok := f.properties[propertyID]
	if !ok || p.LandlordID != landlordID {
		return repository.ErrNotOwner
	}
	p.IsVacant = isVacant
	return nil
}

func (f *fakePropertyRepo) Delete(ctx context.Context, callerID uuid.UUID, propertyID uuid.UUID, admin bool) error {
	p, ok := f.properties[propertyID]
	if !ok || (!admin && p.LandlordID != callerID) {
		return repository.ErrNotOwner
	}
	delete(f.properties, propertyID)
	return nil
}

func (f *fakePropertyRepo) ListByLandlord(ctx context.Context, landlordID uuid.UUID) ([]models.Property, error) {
	var out []models.Property
	for _, p := range f.properties {
		if p.LandlordID == landlordID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePropertyRepo) Search(ctx context.Context, params repository.SearchParams) ([]models.Property, error) {
	var out []models.Property
	for _, p := range f.properties {
		if p.Status != models.StatusApproved || !p.IsVacant {
			continue
		}
		if params.City != "" && p.City != params.City {
			continue
		}
		if params.RoomType != "" && p.RoomType != params.RoomType {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (f *fakePropertyRepo) ListPending(ctx context.Context) ([]models.Property, error) {
	var out []models.Property
	for _, p := range f.properties {
		if p.Status == models.StatusPending {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePropertyRepo) SetStatus(ctx context.Context, propertyID uuid.UUID, status models.PropertyStatus) error {
	if p, ok := f.properties[propertyID]; ok {
		p.Status = status
	}
	return nil
}

type fakeImageRepo struct {
	images map[uuid.UUID]models.PropertyImage
}

func newFakeImageRepo() *fakeImageRepo {
	return &fakeImageRepo{images: make(map[uuid.UUID]models.PropertyImage)}
}

func (f *fakeImageRepo) Add(ctx context.Context, propertyID uuid.UUID, imageURL string, displayOrder int) (*models.PropertyImage, error) {
	img := models.PropertyImage{
		ID:           uuid.New(),
		PropertyID:   propertyID,
		ImageURL:     imageURL,
		DisplayOrder: displayOrder,
		CreatedAt:    time.Now(),
	}
	f.images[img.ID] = img
	return &img, nil
}

func (f *fakeImageRepo) GetByID(ctx context.Context, imageID uuid.UUID) (*models.PropertyImage, error) {
	img, ok := f.images[imageID]
	if !ok {
		return nil, nil
	}
	return &img, nil
}

func (f *fakeImageRepo) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyImage, error) {
	var out []models.PropertyImage
	for _, img := range f.images {
		if img.PropertyID == propertyID {
			out = append(out, img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayOrder < out[j].DisplayOrder })
	return out, nil
}

func (f *fakeImageRepo) Remove(ctx context.Context, imageID uuid.UUID) error {
	delete(f.images, imageID)
	return nil
}

type fakeConversationRepo struct {
	conversations map[uuid.UUID]*models.Conversation
	creates       int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{conversations: make(map[uuid.UUID]*models.Conversation)}
}

func (f *fakeConversationRepo) FindOrCreate(ctx context.Context, propertyID, tenantID, landlordID uuid.UUID) (*models.Conversation, error) {
	for _, conv := range f.conversations {
		if conv.PropertyID == propertyID && conv.TenantID == tenantID {
			out := *conv
			return &out, nil
		}
	}
	conv := &models.Conversation{
		ID:         uuid.New(),
		PropertyID: propertyID,
		TenantID:   tenantID,
		LandlordID: landlordID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	f.conversations[conv.ID] = conv
	f.creates++
	out := *conv
	return &out, nil
}

func (f *fakeConversationRepo) GetByID(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error) {
	conv, ok := f.conversations[conversationID]
	if !ok {
		return nil, nil
	}
	out := *conv
	return &out, nil
}

func (f *fakeConversationRepo) ListSummaries(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error) {
	var out []models.ConversationSummary
	for _, conv := range f.conversations {
		if !conv.Participant(userID) {
			continue
		}
		out = append(out, models.ConversationSummary{Conversation: *conv})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (f *fakeConversationRepo) SetArchived(ctx context.Context, conversationID, userID uuid.UUID, archived bool) error {
	conv, ok := f.conversations[conversationID]
	if !ok {
		return nil
	}
	if conv.TenantID == userID {
		conv.ArchivedByTenant = archived
	} else if conv.LandlordID == userID {
		conv.ArchivedByLandlord = archived
	}
	return nil
}

type fakeMessageRepo struct {
	msgs []models.Message
	seq  int
}

func (f *fakeMessageRepo) seed(conversationID, senderID uuid.UUID, content string, isRead bool) models.Message {
	f.seq++
	m := models.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		IsRead:         isRead,
		CreatedAt:      time.Unix(1700000000, 0).Add(time.Duration(f.seq) * time.Second),
	}
	f.msgs = append(f.msgs, m)
	return m
}

func (f *fakeMessageRepo) Create(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*models.Message, error) {
	m := f.seed(conversationID, senderID, content, false)
	return &m, nil
}

func (f *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID, before time.Time, limit int) ([]models.Message, error) {
	var out []models.Message
	for _, m := range f.msgs {
		if m.ConversationID != conversationID {
			continue
		}
		if !before.IsZero() && !m.CreatedAt.Before(before) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeMessageRepo) MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) ([]uuid.UUID, error) {
	var flipped []uuid.UUID
	for i := range f.msgs {
		m := &f.msgs[i]
		if m.ConversationID == conversationID && m.SenderID != readerID && !m.IsRead {
			m.IsRead = true
			flipped = append(flipped, m.ID)
		}
	}
	return flipped, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, conversationID, messageID, readerID uuid.UUID) (bool, error) {
	for i := range f.msgs {
		m := &f.msgs[i]
		if m.ID == messageID && m.ConversationID == conversationID && m.SenderID != readerID {
			m.IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeMessageRepo) UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error) {
	n := 0
	for _, m := range f.msgs {
		if !m.IsRead && m.SenderID != userID {
			n++
		}
	}
	return n, nil
}

type fakePublisher struct {
	events []realtime.Event
}

func (f *fakePublisher) Publish(ctx context.Context, ev realtime.Event) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeStore struct {
	saved   []string
	removed []string
}

func (f *fakeStore) Save(ctx context.Context, name string, r io.Reader) (string, error) {
	url := "/images/" + name
	f.saved = append(f.saved, url)
	return url, nil
}

func (f *fakeStore) Remove(ctx context.Context, url string) error {
	f.removed = append(f.removed, url)
	return nil
}

var testLogger = zap.NewNop()
