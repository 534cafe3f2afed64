package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

type InquiryHandler struct {
	repo         repository.InquiryRepository
	propertyRepo repository.PropertyRepository
	logger       *zap.Logger
}

func NewInquiryHandler(
	repo repository.InquiryRepository,
	propertyRepo repository.PropertyRepository,
	logger *zap.Logger,
) *InquiryHandler {
	return &InquiryHandler{repo: repo, propertyRepo: propertyRepo, logger: logger}
}

type createInquiryRequest struct {
	Message         string `json:"message"`
	PreferredMoveIn string `json:"preferred_move_in"` // YYYY-MM-DD, optional
}

// Create handles POST /v1/properties/:id/inquiries.
func (h *InquiryHandler) Create(c *gin.Context) {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid property ID"})
		return
	}

	var req createInquiryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var moveIn *time.Time
	if req.PreferredMoveIn != "" {
		t, err := time.Parse("2006-01-02", req.PreferredMoveIn)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid preferred_move_in, expected YYYY-MM-DD"})
			return
		}
		moveIn = &t
	}

	property, err := h.propertyRepo.GetByID(c.Request.Context(), propertyID)
	if err != nil {
		h.logger.Error("failed to load property", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send inquiry"})
		return
	}
	if property == nil || property.Status != models.StatusApproved {
		c.JSON(http.StatusNotFound, gin.H{"error": "property not found"})
		return
	}

	inquiry, err := h.repo.Create(c.Request.Context(), propertyID, middleware.GetUserID(c), req.Message, moveIn)
	if err != nil {
		h.logger.Error("failed to create inquiry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send inquiry"})
		return
	}

	c.JSON(http.StatusCreated, inquiry)
}

// List handles GET /v1/inquiries: a landlord sees inquiries on their own
// properties, everyone else sees the inquiries they sent.
func (h *InquiryHandler) List(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var (
		inquiries []models.Inquiry
		err       error
	)
	if c.Query("role") == "landlord" {
		inquiries, err = h.repo.ListByLandlord(c.Request.Context(), userID)
	} else {
		inquiries, err = h.repo.ListByTenant(c.Request.Context(), userID)
	}
	if err != nil {
		h.logger.Error("failed to list inquiries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list inquiries"})
		return
	}

	c.JSON(http.StatusOK, inquiries)
}

// Close handles PATCH /v1/inquiries/:id/close. Only the landlord who owns
// the inquiry's property may close it.
func (h *InquiryHandler) Close(c *gin.Context) {
	inquiryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inquiry ID"})
		return
	}

	inquiry, err := h.repo.GetByID(c.Request.Context(), inquiryID)
	if err != nil {
		h.logger.Error("failed to load inquiry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close inquiry"})
		return
	}
	if inquiry == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "inquiry not found"})
		return
	}

	property, err := h.propertyRepo.GetByID(c.Request.Context(), inquiry.PropertyID)
	if err != nil {
		h.logger.Error("failed to load property", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close inquiry"})
		return
	}
	if property == nil || property.LandlordID != middleware.GetUserID(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return
	}

	if err := h.repo.Close(c.Request.Context(), inquiryID); err != nil {
		h.logger.Error("failed to close inquiry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to close inquiry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete handles DELETE /v1/inquiries/:id — the sending tenant retracts
// their inquiry. Ownership lives in the repository's WHERE clause.
func (h *InquiryHandler) Delete(c *gin.Context) {
	inquiryID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inquiry ID"})
		return
	}

	if err := h.repo.Delete(c.Request.Context(), middleware.GetUserID(c), inquiryID); err != nil {
		if errors.Is(err, repository.ErrNotOwner) {
			c.JSON(http.StatusNotFound, gin.H{"error": "inquiry not found"})
			return
		}
		h.logger.Error("failed to delete inquiry", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete inquiry"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
