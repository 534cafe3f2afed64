package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

type ProfileHandler struct {
	repo   repository.ProfileRepository
	logger *zap.Logger
}

func NewProfileHandler(repo repository.ProfileRepository, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{repo: repo, logger: logger}
}

// Get handles GET /v1/profile — the caller's own profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	profile, err := h.repo.GetByUserID(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to load profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

type updateProfileRequest struct {
	FullName  string `json:"full_name" binding:"required"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url"`
}

// Update handles PUT /v1/profile.
func (h *ProfileHandler) Update(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.repo.Update(c.Request.Context(), middleware.GetUserID(c), req.FullName, req.Phone, req.AvatarURL)
	if err != nil {
		h.logger.Error("failed to update profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// GetPublic handles GET /v1/users/:id/profile — the display name and
// avatar shown for a chat counterpart. Phone is withheld here.
func (h *ProfileHandler) GetPublic(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	profile, err := h.repo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    profile.UserID,
		"full_name":  profile.FullName,
		"avatar_url": profile.AvatarURL,
	})
}
