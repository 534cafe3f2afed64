package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gharkhoj/gharkhoj/internal/models"
)

// Every method takes context.Context first: queries are cancelled when the
// request that issued them goes away, so a stale result can never be
// written after its caller has moved on.
//
// Lookups return (nil, nil) for not-found; callers translate that to a 404
// or an empty state, never a crash.

// UserRepository handles identity rows.
type UserRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*models.User, error)
	GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	// Delete removes the user; profiles, roles, favorites, conversations
	// and messages go with it via FK cascades.
	Delete(ctx context.Context, userID uuid.UUID) error
	// ListWithDetails returns the admin screen rows (email + profile +
	// role in one query), newest first.
	ListWithDetails(ctx context.Context) ([]models.AdminUser, error)
}

// ProfileRepository handles the public half of a user.
type ProfileRepository interface {
	Create(ctx context.Context, userID uuid.UUID, fullName string) (*models.Profile, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
	Update(ctx context.Context, userID uuid.UUID, fullName, phone, avatarURL string) (*models.Profile, error)
}

// RoleRepository handles role assignment. HasRole is the authorization
// primitive privileged routes re-check on every call.
type RoleRepository interface {
	Assign(ctx context.Context, userID uuid.UUID, role models.Role) error
	GetByUserID(ctx context.Context, userID uuid.UUID) (models.Role, error)
	HasRole(ctx context.Context, userID uuid.UUID, role models.Role) (bool, error)
}

// SearchParams are the tenant-facing catalog filters. All provided filters
// are conjunctive and pushed into SQL, including the free-text query.
type SearchParams struct {
	City     string
	RoomType models.RoomType
	Query    string
	SortBy   string // "newest" (default), "price_asc", "price_desc"

	// Keyset pagination. Limit 0 means the server default; Before is the
	// created_at cursor for the newest sort, offset-free.
	Limit  int
	Before time.Time
}

// PropertyRepository handles rental listings.
type PropertyRepository interface {
	Create(ctx context.Context, p *models.Property) (*models.Property, error)
	GetByID(ctx context.Context, propertyID uuid.UUID) (*models.Property, error)
	// Update writes the landlord-editable fields. The WHERE clause carries
	// the owner check; a non-owner update affects zero rows and returns
	// ErrNotOwner.
	Update(ctx context.Context, landlordID uuid.UUID, p *models.Property) (*models.Property, error)
	SetVacancy(ctx context.Context, landlordID, propertyID uuid.UUID, isVacant bool) error
	// Delete removes the row (image rows cascade). admin bypasses the
	// owner check.
	Delete(ctx context.Context, callerID uuid.UUID, propertyID uuid.UUID, admin bool) error
	ListByLandlord(ctx context.Context, landlordID uuid.UUID) ([]models.Property, error)
	// Search returns approved, vacant properties matching params, images
	// attached in display order.
	Search(ctx context.Context, params SearchParams) ([]models.Property, error)
	// ListPending is the moderation queue: status=pending, oldest first.
	ListPending(ctx context.Context) ([]models.Property, error)
	SetStatus(ctx context.Context, propertyID uuid.UUID, status models.PropertyStatus) error
}

// ImageRepository handles gallery image rows. Files live in storage.Store;
// the repository only tracks URLs and ordering.
type ImageRepository interface {
	Add(ctx context.Context, propertyID uuid.UUID, imageURL string, displayOrder int) (*models.PropertyImage, error)
	GetByID(ctx context.Context, imageID uuid.UUID) (*models.PropertyImage, error)
	ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]models.PropertyImage, error)
	Remove(ctx context.Context, imageID uuid.UUID) error
}

// FavoriteRepository handles the (user, property) join rows. Add and Remove
// are idempotent: toggling twice is safe.
type FavoriteRepository interface {
	Add(ctx context.Context, userID, propertyID uuid.UUID) error
	Remove(ctx context.Context, userID, propertyID uuid.UUID) error
	Exists(ctx context.Context, userID, propertyID uuid.UUID) (bool, error)
	// ListProperties returns the favorited properties with images, newest
	// favorite first.
	ListProperties(ctx context.Context, userID uuid.UUID) ([]models.Property, error)
}

// InquiryRepository handles one-shot interest submissions.
type InquiryRepository interface {
	Create(ctx context.Context, propertyID, tenantID uuid.UUID, message string, preferredMoveIn *time.Time) (*models.Inquiry, error)
	GetByID(ctx context.Context, inquiryID uuid.UUID) (*models.Inquiry, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]models.Inquiry, error)
	// ListByLandlord returns inquiries on every property the landlord owns.
	ListByLandlord(ctx context.Context, landlordID uuid.UUID) ([]models.Inquiry, error)
	Close(ctx context.Context, inquiryID uuid.UUID) error
	Delete(ctx context.Context, tenantID, inquiryID uuid.UUID) error
}

// ConversationRepository handles chat threads.
type ConversationRepository interface {
	// FindOrCreate returns the one conversation for (property, tenant),
	// creating it if absent. Safe under concurrent first-opens: the
	// unique index plus ON CONFLICT DO NOTHING converge on a single row.
	FindOrCreate(ctx context.Context, propertyID, tenantID, landlordID uuid.UUID) (*models.Conversation, error)
	GetByID(ctx context.Context, conversationID uuid.UUID) (*models.Conversation, error)
	// ListSummaries returns the inbox directory for a user: one batched
	// query, most recently updated first, each row carrying counterpart
	// name, property title/city/thumbnail, last message and unread count.
	ListSummaries(ctx context.Context, userID uuid.UUID) ([]models.ConversationSummary, error)
	SetArchived(ctx context.Context, conversationID, userID uuid.UUID, archived bool) error
}

// MessageRepository handles chat messages.
type MessageRepository interface {
	// Create inserts the message and bumps the conversation's updated_at
	// in the same transaction, so directory ordering stays consistent.
	Create(ctx context.Context, conversationID, senderID uuid.UUID, content string) (*models.Message, error)
	// ListByConversation returns messages ascending by created_at.
	// A zero before means "from the beginning"; otherwise only messages
	// created before the cursor are returned (keyset pagination).
	ListByConversation(ctx context.Context, conversationID uuid.UUID, before time.Time, limit int) ([]models.Message, error)
	// MarkConversationRead flips is_read on every unread message in the
	// conversation not authored by readerID, and returns the ids it
	// touched so update events can be published.
	MarkConversationRead(ctx context.Context, conversationID, readerID uuid.UUID) ([]uuid.UUID, error)
	// MarkRead flips one message, scoped to the conversation and never the
	// reader's own. Reports whether anything matched.
	MarkRead(ctx context.Context, conversationID, messageID, readerID uuid.UUID) (bool, error)
	// UnreadTotal is the badge count: unread messages not authored by the
	// user across all of the user's conversations. Always a full recount.
	UnreadTotal(ctx context.Context, userID uuid.UUID) (int, error)
}
