package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/fullmargin/factures/config"
	"github.com/fullmargin/factures/middleware"
	"github.com/fullmargin/factures/models"
	"github.com/fullmargin/factures/stores"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthHandler struct {
	users *stores.UserStore
	cfg   *config.Config
	log   zerolog.Logger
}

func NewAuthHandler(db *gorm.DB, cfg *config.Config, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		users: stores.CreateUserStore(db),
		cfg:   cfg,
		log:   log,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone" binding:"max=20"`
	Role     string `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshToken request body
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// AuthPayload is returned by register, login and refresh.
type AuthPayload struct {
	User         *models.User `json:"user,omitempty"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refresh_token"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}
	if !models.ValidRole(req.Role) {
		respondFail(c, http.StatusBadRequest, "role must be supplier or merchant")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to hash password")
		respondFail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Phone:        req.Phone,
		Role:         req.Role,
	}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			respondFail(c, http.StatusConflict, "an account already exists for this email")
			return
		}
		h.log.Error().Err(err).Msg("failed to create user")
		respondFail(c, http.StatusInternalServerError, "internal server error")
		return
	}

	payload, err := h.issueTokens(user)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to sign tokens")
		respondFail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	h.log.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("user registered")
	respondOK(c, http.StatusCreated, "account created", payload)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		h.log.Error().Err(err).Msg("failed to load user")
		respondFail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		respondFail(c, http.StatusUnauthorized, "invalid email or password")
		return
	}

	payload, err := h.issueTokens(user)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to sign tokens")
		respondFail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, http.StatusOK, "", payload)
}

func (h *AuthHandler) Profile(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	user, err := h.users.GetByID(c.Request.Context(), id.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondFail(c, http.StatusNotFound, "user not found")
			return
		}
		h.log.Error().Err(err).Msg("failed to load profile")
		respondFail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	respondOK(c, http.StatusOK, "", user)
}

// Refresh handles token refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondFail(c, http.StatusBadRequest, err.Error())
		return
	}

	claims, err := middleware.ParseToken(req.RefreshToken, h.cfg.JWTRefreshSecret, middleware.TokenRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Invalid or expired refresh token", "code": "InvalidToken"})
		return
	}

	// The account may have been removed since the token was issued.
	user, err := h.users.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		respondFail(c, http.StatusUnauthorized, "User not found")
		return
	}

	payload, err := h.issueTokens(user)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to sign tokens")
		respondFail(c, http.StatusInternalServerError, "internal server error")
		return
	}
	payload.User = nil
	respondOK(c, http.StatusOK, "", payload)
}

func (h *AuthHandler) issueTokens(user *models.User) (*AuthPayload, error) {
	accessToken, err := middleware.GenerateToken(user.ID, user.Role, middleware.TokenAccess, h.cfg.JWTSecret, h.cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}
	refreshToken, err := middleware.GenerateToken(user.ID, user.Role, middleware.TokenRefresh, h.cfg.JWTRefreshSecret, h.cfg.JWTRefreshExpiry)
	if err != nil {
		return nil, err
	}
	return &AuthPayload{User: user, Token: accessToken, RefreshToken: refreshToken}, nil
}
