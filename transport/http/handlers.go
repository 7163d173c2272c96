package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/rumsan/gatekeeper/core"
	"github.com/rumsan/gatekeeper/service"
	"github.com/rumsan/gatekeeper/settings"
)

// AuthHandlers contains HTTP handlers for auth and settings endpoints
type AuthHandlers struct {
	authService *service.AuthService
	settings    *settings.Service
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authService *service.AuthService, settingsService *settings.Service) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		settings:    settingsService,
	}
}

func requestContext(c *gin.Context) core.RequestContext {
	return core.RequestContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// respondError maps service errors to HTTP responses. Every credential
// rejection collapses to the same 401 body so callers cannot probe which
// part of the second factor failed.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrDecryptionFailed),
		errors.Is(err, core.ErrChallengeExpired),
		errors.Is(err, core.ErrIdentityMismatch),
		errors.Is(err, core.ErrCredentialNotFound),
		errors.Is(err, core.ErrUserNotFound),
		errors.Is(err, core.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, core.ErrSettingReadOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": "Setting is read-only"})
	case errors.Is(err, core.ErrAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "Already exists"})
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

// RequestOTP handles the one-time code request
func (h *AuthHandlers) RequestOTP(c *gin.Context) {
	var req struct {
		Address  string `json:"address" binding:"required"`
		Service  string `json:"service"`
		ClientID string `json:"clientId"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	resp, err := h.authService.RequestOTP(c.Request.Context(), req.Address, core.Service(req.Service), req.ClientID, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// LoginOTP handles the one-time code login
func (h *AuthHandlers) LoginOTP(c *gin.Context) {
	var req struct {
		Challenge string `json:"challenge" binding:"required"`
		OTP       string `json:"otp" binding:"required"`
		Service   string `json:"service"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	login, err := h.authService.LoginWithOTP(c.Request.Context(), req.Challenge, req.OTP, core.Service(req.Service), requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, login)
}

// WalletChallenge handles the wallet challenge request
func (h *AuthHandlers) WalletChallenge(c *gin.Context) {
	var req struct {
		ClientID string `json:"clientId"`
	}
	// body is optional for this endpoint
	_ = c.ShouldBindJSON(&req)

	resp, err := h.authService.WalletChallenge(c.Request.Context(), req.ClientID, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// LoginWallet handles the wallet signature login
func (h *AuthHandlers) LoginWallet(c *gin.Context) {
	var req struct {
		Challenge string `json:"challenge" binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	login, err := h.authService.LoginWithWallet(c.Request.Context(), req.Challenge, req.Signature, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, login)
}

// LoginGoogle handles the Google ID-token login
func (h *AuthHandlers) LoginGoogle(c *gin.Context) {
	var req struct {
		IDToken         string `json:"idToken" binding:"required"`
		WalletSignature string `json:"walletSignature"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	login, err := h.authService.LoginWithGoogle(c.Request.Context(), req.IDToken, req.WalletSignature, requestContext(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, login)
}

// Me returns the identity snapshot embedded in the caller's access token
func (h *AuthHandlers) Me(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}
	c.JSON(http.StatusOK, user)
}

// PublicSetting returns a non-private setting by name
func (h *AuthHandlers) PublicSetting(c *gin.Context) {
	setting, err := h.settings.Public(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// ListSettings returns a filtered page of settings, private values masked
func (h *AuthHandlers) ListSettings(c *gin.Context) {
	query := settings.ListQuery{Name: c.Query("name")}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		query.Page = page
	}
	if perPage, err := strconv.Atoi(c.Query("perPage")); err == nil {
		query.PerPage = perPage
	}

	result, err := h.settings.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSetting returns a setting by name, private values masked
func (h *AuthHandlers) GetSetting(c *gin.Context) {
	setting, err := h.settings.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, setting)
}

// CreateSetting stores a new setting
func (h *AuthHandlers) CreateSetting(c *gin.Context) {
	var req core.Setting
	if err := c.ShouldBindJSON(&req); err != nil || req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	created, err := h.settings.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateSetting replaces a setting's value and flags
func (h *AuthHandlers) UpdateSetting(c *gin.Context) {
	var req core.Setting
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	req.Name = c.Param("name")

	updated, err := h.settings.Update(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}
