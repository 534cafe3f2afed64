package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/gharkhoj/gharkhoj/internal/auth"
	"github.com/gharkhoj/gharkhoj/internal/middleware"
	"github.com/gharkhoj/gharkhoj/internal/models"
	"github.com/gharkhoj/gharkhoj/internal/repository"
)

// AuthHandler handles signup and login — the only public endpoints.
// Everything else sits behind AuthMiddleware, which these produce the
// token for.
type AuthHandler struct {
	userRepo    repository.UserRepository
	profileRepo repository.ProfileRepository
	roleRepo    repository.RoleRepository
	jwtSecret   string
	jwtTTL      time.Duration
	logger      *zap.Logger
}

func NewAuthHandler(
	userRepo repository.UserRepository,
	profileRepo repository.ProfileRepository,
	roleRepo repository.RoleRepository,
	jwtSecret string,
	jwtTTL time.Duration,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		userRepo:    userRepo,
		profileRepo: profileRepo,
		roleRepo:    roleRepo,
		jwtSecret:   jwtSecret,
		jwtTTL:      jwtTTL,
		logger:      logger,
	}
}

type signupRequest struct {
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6"`
	FullName string      `json:"full_name" binding:"required"`
	Role     models.Role `json:"role" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
	Role  models.Role  `json:"role"`
}

// Signup handles POST /v1/auth/signup. The chosen role is restricted to
// tenant or landlord; admin is only ever granted out-of-band.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != models.RoleTenant && req.Role != models.RoleLandlord {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be tenant or landlord"})
		return
	}

	existing, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to check existing user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}
	if existing != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	user, err := h.userRepo.Create(c.Request.Context(), req.Email, string(hash))
	if err != nil {
		// A concurrent signup can slip past the existence check above and
		// lose the race at the unique index instead.
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already registered"})
			return
		}
		h.logger.Error("failed to create user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	// Profile and role rows are created alongside the identity, the way
	// the signup flow always has: a user without them renders as
	// "Unknown" and roleless, which the rest of the app tolerates.
	if _, err := h.profileRepo.Create(c.Request.Context(), user.ID, req.FullName); err != nil {
		h.logger.Error("failed to create profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}
	if err := h.roleRepo.Assign(c.Request.Context(), user.ID, req.Role); err != nil {
		h.logger.Error("failed to assign role", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, req.Role, h.jwtSecret, h.jwtTTL)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup failed"})
		return
	}

	c.JSON(http.StatusCreated, authResponse{Token: token, User: user, Role: req.Role})
}

// Login handles POST /v1/auth/login. The error body never distinguishes
// "no such user" from "wrong password".
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.userRepo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		h.logger.Error("failed to find user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	role, err := h.roleRepo.GetByUserID(c.Request.Context(), user.ID)
	if err != nil {
		h.logger.Error("failed to resolve role", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, role, h.jwtSecret, h.jwtTTL)
	if err != nil {
		h.logger.Error("failed to generate token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	c.JSON(http.StatusOK, authResponse{Token: token, User: user, Role: role})
}

type updatePasswordRequest struct {
	Password string `json:"password" binding:"required,min=6"`
}

// UpdatePassword handles POST /v1/auth/password for the logged-in user.
func (h *AuthHandler) UpdatePassword(c *gin.Context) {
	var req updatePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("failed to hash password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password update failed"})
		return
	}

	userID := middleware.GetUserID(c)
	if err := h.userRepo.UpdatePassword(c.Request.Context(), userID, string(hash)); err != nil {
		h.logger.Error("failed to update password", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "password update failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me handles GET /v1/me: the session-resolution call clients make at
// startup to move from "resolving" to "ready".
func (h *AuthHandler) Me(c *gin.Context) {
	userID := middleware.GetUserID(c)

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	profile, err := h.profileRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load profile", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	role, err := h.roleRepo.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load role", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":    user,
		"profile": profile,
		"role":    role,
	})
}
