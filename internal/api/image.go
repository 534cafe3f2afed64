package api

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/repository"
	"github.com/gharkhoj/gharkhoj/internal/storage"
)

// maxImageSize caps a single upload at 10 MB.
const maxImageSize = 10 << 20

type ImageHandler struct {
	repo         repository.ImageRepository
	propertyRepo repository.PropertyRepository
	store        storage.Store
	logger       *zap.Logger
}

func NewImageHandler(
	repo repository.ImageRepository,
	propertyRepo repository.PropertyRepository,
	store storage.Store,
	logger *zap.Logger,
) *ImageHandler {
	return &ImageHandler{
		repo:         repo,
		propertyRepo: propertyRepo,
		store:        store,
		logger:       logger,
	}
}

// ownedProperty loads the property and verifies the caller owns it.
// Writes false to the response and returns nil if the check failed.
func (h *ImageHandler) ownedProperty(c *gin.Context, propertyID uuid.UUID) bool {
	property, err := h.propertyRepo.GetByID(c.Request.Context(), propertyID)
	if err != nil {
		h.logger.Error("failed to load property", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load property"})
		return false
	}
	if property == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return false
	}
	if property.LandlordID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the owner of this property"})
		return false
	}
	return true
}

// Upload handles POST /v1/properties/:id/images (multipart form: "image"
// file plus optional "display_order").
func (h *ImageHandler) Upload(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}
	if !h.ownedProperty(c, propertyID) {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing image file"})
		return
	}
	if fileHeader.Size > maxImageSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image too large"})
		return
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported image type"})
		return
	}

	displayOrder := 0
	if d := c.PostForm("display_order"); d != "" {
		displayOrder, err = strconv.Atoi(d)
		if err != nil || displayOrder < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid display_order"})
			return
		}
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable image file"})
		return
	}
	defer f.Close()

	name := fmt.Sprintf("%s-%s%s", propertyID, uuid.New(), ext)
	url, err := h.store.Save(c.Request.Context(), name, f)
	if err != nil {
		h.logger.Error("failed to store image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	img, err := h.repo.Add(c.Request.Context(), propertyID, url, displayOrder)
	if err != nil {
		// Don't leave an orphaned file behind the failed row.
		if rmErr := h.store.Remove(c.Request.Context(), url); rmErr != nil {
			h.logger.Warn("failed to clean up image file", zap.Error(rmErr))
		}
		h.logger.Error("failed to record image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store image"})
		return
	}

	c.JSON(http.StatusCreated, img)
}

// Delete handles DELETE /v1/properties/:id/images/:imageID.
func (h *ImageHandler) Delete(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}
	imageID, err := uuid.Parse(c.Param("imageID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid image ID"})
		return
	}
	if !h.ownedProperty(c, propertyID) {
		return
	}

	img, err := h.repo.GetByID(c.Request.Context(), imageID)
	if err != nil {
		h.logger.Error("failed to load image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete image"})
		return
	}
	if img == nil || img.PropertyID != propertyID {
		c.JSON(http.StatusNotFound, gin.H{"error": "image not found"})
		return
	}

	if err := h.repo.Remove(c.Request.Context(), imageID); err != nil {
		h.logger.Error("failed to delete image row", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete image"})
		return
	}
	if err := h.store.Remove(c.Request.Context(), img.ImageURL); err != nil {
		h.logger.Warn("failed to remove image file",
			zap.String("url", img.ImageURL), zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
