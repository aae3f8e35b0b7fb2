package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/flightbooker/backend/internal/apperrors"
	"github.com/flightbooker/backend/internal/database"
	"github.com/flightbooker/backend/internal/middleware"
	"github.com/flightbooker/backend/internal/models"
	"github.com/flightbooker/backend/pkg/jwt"
)

// AuthHandler handles registration, login and token refresh
type AuthHandler struct {
	userRepo   *database.UserRepository
	jwtService *jwt.Service
	logger     *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo *database.UserRepository, jwtService *jwt.Service, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

// tokenResponse is the common auth response shape
type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user"`
}

// Register creates a customer account
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}
	if err := req.Validate(); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid registration request"))
		return
	}

	existing, err := h.userRepo.GetUserByEmail(req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	if existing != nil {
		respondError(c, apperrors.E(apperrors.KindConflict, "an account with this email already exists"))
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := h.userRepo.CreateUser(req.Email, string(hash), req.FullName, models.RoleCustomer)
	if err != nil {
		respondError(c, err)
		return
	}

	h.logger.WithField("user_id", user.ID).Info("User registered")

	h.respondWithTokens(c, http.StatusCreated, user)
}

// Login authenticates by email and password
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}

	user, err := h.userRepo.GetUserByEmail(req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Invalid email or password",
		})
		return
	}

	h.respondWithTokens(c, http.StatusOK, user)
}

// Refresh exchanges a refresh token for a new token pair
// POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.Wrap(apperrors.KindInvalidArgument, err, "invalid request body"))
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": "Invalid or expired refresh token",
		})
		return
	}

	user, err := h.userRepo.GetUserByID(claims.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": "Account no longer exists",
		})
		return
	}

	h.respondWithTokens(c, http.StatusOK, user)
}

// Profile returns the authenticated user's account
// GET /api/v1/auth/profile
func (h *AuthHandler) Profile(c *gin.Context) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "User context not found",
		})
		return
	}

	user, err := h.userRepo.GetUserByID(actor.UserID)
	if err != nil {
		respondError(c, err)
		return
	}
	if user == nil {
		respondError(c, apperrors.E(apperrors.KindNotFound, "account not found"))
		return
	}

	c.JSON(http.StatusOK, user)
}

func (h *AuthHandler) respondWithTokens(c *gin.Context, status int, user *models.User) {
	access, err := h.jwtService.GenerateAccessToken(user.ID, user.Email, string(user.Role))
	if err != nil {
		respondError(c, err)
		return
	}
	refresh, err := h.jwtService.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(status, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         user,
	})
}
