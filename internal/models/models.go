package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the marketplace role assigned to a user. A user has zero or one
// role row; role-gated behavior is always re-checked server-side, the token
// copy is a convenience only.
type Role string

const (
	RoleTenant   Role = "tenant"
	RoleLandlord Role = "landlord"
	RoleAdmin    Role = "admin"
)

// Valid reports whether r is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleTenant, RoleLandlord, RoleAdmin:
		return true
	}
	return false
}

// PropertyStatus is the admin-controlled moderation gate. Only approved
// properties are visible in tenant search.
type PropertyStatus string

const (
	StatusPending  PropertyStatus = "pending"
	StatusApproved PropertyStatus = "approved"
	StatusRejected PropertyStatus = "rejected"
)

func (s PropertyStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// RoomType enumerates the rental unit kinds listed on the platform.
type RoomType string

const (
	RoomSingle RoomType = "single"
	Room1BHK   RoomType = "1bhk"
	Room2BHK   RoomType = "2bhk"
	RoomFlat   RoomType = "flat"
	RoomHostel RoomType = "hostel"
)

func (r RoomType) Valid() bool {
	switch r {
	case RoomSingle, Room1BHK, Room2BHK, RoomFlat, RoomHostel:
		return true
	}
	return false
}

// InquiryStatus tracks whether a landlord has dealt with an inquiry.
type InquiryStatus string

const (
	InquiryOpen   InquiryStatus = "open"
	InquiryClosed InquiryStatus = "closed"
)

// User is an identity row. The password hash never leaves the server;
// profile data lives in Profile, the role in a user_roles row.
type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the public-facing half of a user: display name, phone and
// avatar. One per user, created at signup, mutated by its owner (or an
// admin), never hard-deleted on its own.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Property is a rental unit owned by exactly one landlord. New properties
// start in StatusPending and only reach search results once an admin
// approves them and the landlord marks them vacant.
type Property struct {
	ID          uuid.UUID      `json:"id"`
	LandlordID  uuid.UUID      `json:"landlord_id"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	City        string         `json:"city"`
	Area        string         `json:"area,omitempty"`
	Address     string         `json:"address,omitempty"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	Price       int64          `json:"price"`
	Deposit     *int64         `json:"deposit,omitempty"`
	Maintenance *int64         `json:"maintenance_fee,omitempty"`
	RoomType    RoomType       `json:"room_type"`
	Status      PropertyStatus `json:"status"`
	IsVacant    bool           `json:"is_vacant"`

	AvailableFrom *time.Time `json:"available_from,omitempty"`

	// Amenity flags. Nullable in the schema: absent means "not stated",
	// which the UI renders differently from an explicit no.
	Furnished       *bool  `json:"furnished,omitempty"`
	Internet        *bool  `json:"internet,omitempty"`
	Parking         *bool  `json:"parking,omitempty"`
	WaterAvailable  *bool  `json:"water_available,omitempty"`
	PetsAllowed     *bool  `json:"pets_allowed,omitempty"`
	MealsIncluded   *bool  `json:"meals_included,omitempty"`
	CommonArea      *bool  `json:"common_area,omitempty"`
	LockerAvailable *bool  `json:"locker_available,omitempty"`
	BathroomType    string `json:"bathroom_type,omitempty"`
	BedsPerRoom     *int   `json:"beds_per_room,omitempty"`
	GenderPref      string `json:"gender_preference,omitempty"`
	CurfewTime      string `json:"curfew_time,omitempty"`
	HouseRules      string `json:"house_rules,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Images is populated on detail/search reads, ordered by DisplayOrder
	// ascending. The first image is the thumbnail everywhere.
	Images []PropertyImage `json:"images,omitempty"`
}

// Thumbnail returns the URL of the first image by display order, or "".
// Every image-consuming view must use this same convention.
func (p *Property) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0].ImageURL
}

// PropertyImage is one gallery image. DisplayOrder drives gallery and
// thumbnail ordering; rows are returned sorted ascending.
type PropertyImage struct {
	ID           uuid.UUID `json:"id"`
	PropertyID   uuid.UUID `json:"property_id"`
	ImageURL     string    `json:"image_url"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// Favorite is a (user, property) join row. Existence is the whole payload.
type Favorite struct {
	ID         uuid.UUID `json:"id"`
	UserID     uuid.UUID `json:"user_id"`
	PropertyID uuid.UUID `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Inquiry is a tenant's one-shot structured interest submission, distinct
// from the open-ended chat thread.
type Inquiry struct {
	ID              uuid.UUID     `json:"id"`
	PropertyID      uuid.UUID     `json:"property_id"`
	TenantID        uuid.UUID     `json:"tenant_id"`
	Message         string        `json:"message,omitempty"`
	PreferredMoveIn *time.Time    `json:"preferred_move_in,omitempty"`
	Status          InquiryStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Conversation is a chat thread scoped to exactly one (property, tenant,
// landlord) triple. At most one exists per (property, tenant) pair —
// enforced by a unique index, not by find-before-insert hope.
type Conversation struct {
	ID                 uuid.UUID `json:"id"`
	PropertyID         uuid.UUID `json:"property_id"`
	TenantID           uuid.UUID `json:"tenant_id"`
	LandlordID         uuid.UUID `json:"landlord_id"`
	ArchivedByTenant   bool      `json:"archived_by_tenant"`
	ArchivedByLandlord bool      `json:"archived_by_landlord"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Participant reports whether userID is one of the two parties.
func (c *Conversation) Participant(userID uuid.UUID) bool {
	return c.TenantID == userID || c.LandlordID == userID
}

// Counterpart returns the other party's id relative to userID.
func (c *Conversation) Counterpart(userID uuid.UUID) uuid.UUID {
	if c.TenantID == userID {
		return c.LandlordID
	}
	return c.TenantID
}

// Message is a single chat message. Append-only except for the one
// false→true flip of IsRead, done by the non-sender when they view the
// thread. Display order is always CreatedAt ascending — never arrival order.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	IsRead         bool      `json:"is_read"`
	CreatedAt      time.Time `json:"created_at"`
}

// ConversationSummary is one row of the inbox directory: the conversation
// plus everything the sidebar renders, assembled in a single batched query.
type ConversationSummary struct {
	Conversation
	PropertyTitle string     `json:"property_title"`
	PropertyCity  string     `json:"property_city"`
	Thumbnail     string     `json:"thumbnail,omitempty"`
	OtherName     string     `json:"other_name"`
	LastMessage   string     `json:"last_message,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	UnreadCount   int        `json:"unread_count"`
}

// AdminUser is one row of the admin user-management screen.
type AdminUser struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
