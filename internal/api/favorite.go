package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

type FavoriteHandler struct {
	repo   repository.FavoriteRepository
	logger *zap.Logger
}

func NewFavoriteHandler(repo repository.FavoriteRepository, logger *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{repo: repo, logger: logger}
}

// Add handles PUT /v1/favorites/:propertyID. Idempotent: favoriting twice
// is the same as once.
func (h *FavoriteHandler) Add(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("propertyID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}

	if err := h.repo.Add(c.Request.Context(), middleware.GetUserID(c), propertyID); err != nil {
		h.logger.Error("failed to add favorite", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": true})
}

// Remove handles DELETE /v1/favorites/:propertyID. Also idempotent.
func (h *FavoriteHandler) Remove(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("propertyID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}

	if err := h.repo.Remove(c.Request.Context(), middleware.GetUserID(c), propertyID); err != nil {
		h.logger.Error("failed to remove favorite", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to remove favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": false})
}

// Check handles GET /v1/favorites/:propertyID — is this property
// favorited by the caller.
func (h *FavoriteHandler) Check(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("propertyID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}

	exists, err := h.repo.Exists(c.Request.Context(), middleware.GetUserID(c), propertyID)
	if err != nil {
		h.logger.Error("failed to check favorite", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check favorite"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorited": exists})
}

// List handles GET /v1/favorites — the tenant's saved properties.
func (h *FavoriteHandler) List(c *gin.Context) {
	properties, err := h.repo.ListProperties(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.logger.Error("failed to list favorites", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list favorites"})
		return
	}
	c.JSON(http.StatusOK, properties)
}
