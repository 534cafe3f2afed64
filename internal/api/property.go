package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/repository"
	"github.com/gharkhoj/gharkhoj/internal/storage"
)

type PropertyHandler struct {
	repo      repository.PropertyRepository
	imageRepo repository.ImageRepository
	roleRepo  repository.RoleRepository
	store     storage.Store
	logger    *zap.Logger
}

func NewPropertyHandler(
	repo repository.PropertyRepository,
	imageRepo repository.ImageRepository,
	roleRepo repository.RoleRepository,
	store storage.Store,
	logger *zap.Logger,
) *PropertyHandler {
	return &PropertyHandler{
		repo:      repo,
		imageRepo: imageRepo,
		roleRepo:  roleRepo,
		store:     store,
		logger:    logger,
	}
}

type propertyRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	City        string   `json:"city" binding:"required"`
	Area        string   `json:"area"`
	Address     string   `json:"address"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Price       int64    `json:"price" binding:"required,min=0"`
	Deposit     *int64   `json:"deposit"`
	Maintenance *int64   `json:"maintenance_fee"`
	RoomType    string   `json:"room_type" binding:"required"`
	IsVacant    *bool    `json:"is_vacant"`

	AvailableFrom *time.Time `json:"available_from"`

	Furnished       *bool  `json:"furnished"`
	Internet        *bool  `json:"internet"`
	Parking         *bool  `json:"parking"`
	WaterAvailable  *bool  `json:"water_available"`
	PetsAllowed     *bool  `json:"pets_allowed"`
	MealsIncluded   *bool  `json:"meals_included"`
	CommonArea      *bool  `json:"common_area"`
	LockerAvailable *bool  `json:"locker_available"`
	BathroomType    string `json:"bathroom_type"`
	BedsPerRoom     *int   `json:"beds_per_room"`
	GenderPref      string `json:"gender_preference"`
	CurfewTime      string `json:"curfew_time"`
	HouseRules      string `json:"house_rules"`
}

func (r *propertyRequest) toModel(landlordID uuid.UUID) *models.Property {
	isVacant := true
	if r.IsVacant != nil {
		isVacant = *r.IsVacant
	}
	return &models.Property{
		LandlordID:      landlordID,
		Title:           r.Title,
		Description:     r.Description,
		City:            r.City,
		Area:            r.Area,
		Address:         r.Address,
		Latitude:        r.Latitude,
		Longitude:       r.Longitude,
		Price:           r.Price,
		Deposit:         r.Deposit,
		Maintenance:     r.Maintenance,
		RoomType:        models.RoomType(r.RoomType),
		IsVacant:        isVacant,
		AvailableFrom:   r.AvailableFrom,
		Furnished:       r.Furnished,
		Internet:        r.Internet,
		Parking:         r.Parking,
		WaterAvailable:  r.WaterAvailable,
		PetsAllowed:     r.PetsAllowed,
		MealsIncluded:   r.MealsIncluded,
		CommonArea:      r.CommonArea,
		LockerAvailable: r.LockerAvailable,
		BathroomType:    r.BathroomType,
		BedsPerRoom:     r.BedsPerRoom,
		GenderPref:      r.GenderPref,
		CurfewTime:      r.CurfewTime,
		HouseRules:      r.HouseRules,
	}
}

// Create handles POST /v1/properties. New listings always start pending;
// the moderation queue is the only way to approved.
func (h *PropertyHandler) Create(c *gin.Context) {
	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.RoomType(req.RoomType).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room type"})
		return
	}

	property, err := h.repo.Create(c.Request.Context(), req.toModel(middleware.GetUserID(c)))
	if err != nil {
		h.logger.Error("failed to create property", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create property"})
		return
	}

	c.JSON(http.StatusCreated, property)
}

// Get handles GET /v1/properties/:id. Listings that haven't cleared
// moderation are visible only to their owner and to admins; everyone else
// gets the same 404 as for a listing that doesn't exist.
func (h *PropertyHandler) Get(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}

	property, err := h.repo.GetByID(c.Request.Context(), propertyID)
	if err != nil {
		h.logger.Error("failed to load property", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load property"})
		return
	}
	if property == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}

	if property.Status != models.StatusApproved {
		userID := middleware.GetUserID(c)
		if userID != property.LandlordID {
			isAdmin, err := h.roleRepo.HasRole(c.Request.Context(), userID, models.RoleAdmin)
			if err != nil {
				h.logger.Error("failed to check role", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load property"})
				return
			}
			if !isAdmin {
				c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
				return
			}
		}
	}

	c.JSON(http.StatusOK, property)
}

// Update handles PUT /v1/properties/:id. Ownership is enforced in the
// repository's WHERE clause, not inferred from what the UI allowed.
func (h *PropertyHandler) Update(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}

	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.RoomType(req.RoomType).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room type"})
		return
	}

	p := req.toModel(middleware.GetUserID(c))
	p.ID = propertyID

	updated, err := h.repo.Update(c.Request.Context(), middleware.GetUserID(c), p)
	if err != nil {
		if errors.Is(err, repository.ErrNotOwner) {
			c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
			return
		}
		h.logger.Error("failed to update property", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update property"})
		return
	}

	c.JSON(http.StatusOK, updated)
}

type vacancyRequest struct {
	IsVacant *bool `json:"is_vacant" binding:"required"`
}

// SetVacancy handles PATCH /v1/properties/:id/vacancy.
func (h *PropertyHandler) SetVacancy(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}

	var req vacancyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.repo.SetVacancy(c.Request.Context(), middleware.GetUserID(c), propertyID, *req.IsVacant)
	if err != nil {
		if errors.Is(err, repository.ErrNotOwner) {
			c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
			return
		}
		h.logger.Error("failed to set vacancy", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update property"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete handles DELETE /v1/properties/:id. The image files are removed
// from storage before the rows go: a failed file removal is logged and
// skipped rather than blocking the delete, since Remove tolerates
// already-missing objects on a retry.
func (h *PropertyHandler) Delete(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}

	userID := middleware.GetUserID(c)
	isAdmin, err := h.roleRepo.HasRole(c.Request.Context(), userID, models.RoleAdmin)
	if err != nil {
		h.logger.Error("failed to check role", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete property"})
		return
	}

	images, err := h.imageRepo.ListByProperty(c.Request.Context(), propertyID)
	if err != nil {
		h.logger.Error("failed to list images", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete property"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), userID, propertyID, isAdmin); err != nil {
		if errors.Is(err, repository.ErrNotOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this property"})
			return
		}
		h.logger.Error("failed to delete property", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete property"})
		return
	}

	// Rows are gone (images cascaded); now the backing files.
	for _, img := range images {
		if err := h.store.Remove(c.Request.Context(), img.ImageURL); err != nil {
			h.logger.Warn("failed to remove image file",
				zap.String("url", img.ImageURL), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListMine handles GET /v1/properties — the landlord dashboard list.
func (h *PropertyHandler) ListMine(c *gin.Context) {
	properties, err := h.repo.ListByLandlord(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to list properties", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list properties"})
		return
	}
	c.JSON(http.StatusOK, properties)
}

// Search handles GET /v1/search — the public catalog. Only approved,
// vacant listings are reachable here regardless of query parameters.
func (h *PropertyHandler) Search(c *gin.Context) {
	params := repository.SearchParams{
		City:   c.Query("city"),
		Query:  c.Query("q"),
		SortBy: c.DefaultQuery("sort", "newest"),
	}

	if rt := c.Query("room_type"); rt != "" && rt != "all" {
		if !models.RoomType(rt).Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room type"})
			return
		}
		params.RoomType = models.RoomType(rt)
	}

	switch params.SortBy {
	case "newest", "price_asc", "price_desc":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid sort"})
		return
	}

	if l := c.Query("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'limit' parameter"})
			return
		}
		params.Limit = limit
	}
	if b := c.Query("before"); b != "" {
		// The cursor is a created_at cutoff; under a price ordering it
		// would skip and repeat rows arbitrarily.
		if params.SortBy != "newest" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "'before' pagination requires sort=newest"})
			return
		}
		before, err := time.Parse(time.RFC3339, b)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'before' parameter"})
			return
		}
		params.Before = before
	}

	properties, err := h.repo.Search(c.Request.Context(), params)
	if err != nil {
		h.logger.Error("failed to search properties", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "search failed"})
		return
	}

	c.JSON(http.StatusOK, properties)
}
