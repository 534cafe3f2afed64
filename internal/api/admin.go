package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

// AdminHandler serves the moderation queue and the user-management screen.
// The routes it registers under sit behind RequireRole(admin), which
// re-checks the role against the database on every call.
type AdminHandler struct {
	userRepo     repository.UserRepository
	profileRepo  repository.ProfileRepository
	propertyRepo repository.PropertyRepository
	logger       *zap.Logger
}

func NewAdminHandler(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	propertyRepo repository.PropertyRepository,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		userRepo:     userRepo,
		profileRepo:  profileRepo,
		propertyRepo: propertyRepo,
		logger:       logger,
	}
}

// PendingProperties handles GET /v1/admin/properties — the moderation
// queue, oldest submission first.
func (h *AdminHandler) PendingProperties(c *gin.Context) {
	properties, err := h.propertyRepo.ListPending(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list pending properties", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list pending properties"})
		return
	}
	c.JSON(http.StatusOK, properties)
}

type setStatusRequest struct {
	Status models.PropertyStatus `json:"status" binding:"required"`
}

// SetPropertyStatus handles PATCH /v1/admin/properties/:id/status. Admins
// move listings to approved or rejected; pending is the submission state,
// not a moderation verdict.
func (h *AdminHandler) SetPropertyStatus(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}

	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status != models.StatusApproved && req.Status != models.StatusRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status must be 'approved' or 'rejected'"})
		return
	}

	property, err := h.propertyRepo.GetByID(c.Request.Context(), propertyID)
	if err != nil {
		h.logger.Error("failed to load property", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update property status"})
		return
	}
	if property == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}

	if err := h.propertyRepo.SetStatus(c.Request.Context(), propertyID, req.Status); err != nil {
		h.logger.Error("failed to set property status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update property status"})
		return
	}

	h.logger.Info("property moderated",
		zap.String("property_id", propertyID.String()),
		zap.String("status", string(req.Status)),
		zap.String("admin_id", middleware.GetUserID(c).String()))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// ListUsers handles GET /v1/admin/users — every account with its profile
// and role joined in, newest first.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.userRepo.ListWithDetails(c.Request.Context())
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

// DeleteUser handles DELETE /v1/admin/users/:id. Profile, role, listings,
// favorites, conversations and messages go with the account via cascades.
// Admins cannot delete themselves.
func (h *AdminHandler) DeleteUser(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}
	if userID == middleware.GetUserID(c) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete your own account"})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	if err := h.userRepo.Delete(c.Request.Context(), userID); err != nil {
		h.logger.Error("failed to delete user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}

	h.logger.Info("user deleted",
		zap.String("user_id", userID.String()),
		zap.String("admin_id", middleware.GetUserID(c).String()))
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type adminPasswordRequest struct {
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

// ChangePassword handles POST /v1/admin/users/:id/password — an admin
// resets another user's password without knowing the old one.
func (h *AdminHandler) ChangePassword(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	var req adminPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 6 characters"})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}

	if err := h.userRepo.UpdatePassword(c.Request.Context(), userID, string(hash)); err != nil {
		h.logger.Error("failed to update password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to change password"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

type adminProfileRequest struct {
	FullName  string `json:"full_name" binding:"required"`
	Phone     string `json:"phone"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateProfile handles PUT /v1/admin/users/:id/profile.
func (h *AdminHandler) UpdateProfile(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	var req adminProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	profile, err := h.profileRepo.Update(c.Request.Context(), userID, req.FullName, req.Phone, req.AvatarURL)
	if err != nil {
		h.logger.Error("failed to update profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update profile"})
		return
	}
	if profile == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, profile)
}

// GetUserEmail handles GET /v1/admin/users/:id/email. Emails are identity
// data, not profile data, so the admin screen fetches them separately.
func (h *AdminHandler) GetUserEmail(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch email"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"email": user.Email})
}
