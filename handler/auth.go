package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/config"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/middleware"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/service"
)

type AuthHandler struct {
	config  *config.Config
	manager *service.ImpersonationManager
}

func NewAuthHandler(cfg *config.Config, manager *service.ImpersonationManager) *AuthHandler {
	return &AuthHandler{config: cfg, manager: manager}
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token          string `json:"token"`
	ExpiresAt      string `json:"expires_at"`
	UserID         string `json:"user_id"`
	Username       string `json:"username"`
	OrganizationID string `json:"organization_id"`
	PlatformAdmin  bool   `json:"platform_admin"`
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user := h.config.FindUser(req.Username)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	// Simple password check (in production, use bcrypt)
	if user.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid username or password"})
		return
	}

	token, expiresAt, err := middleware.GenerateToken(user, &h.config.Auth)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:          token,
		ExpiresAt:      expiresAt.Format("2006-01-02T15:04:05Z07:00"),
		UserID:         user.ID,
		Username:       user.Username,
		OrganizationID: user.OrganizationID,
		PlatformAdmin:  user.PlatformAdmin,
	})
}

// GetCurrentUser returns the current user info, including the organization
// their reads are effectively scoped to.
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	resp := gin.H{
		"user_id":         middleware.GetUserID(c),
		"username":        middleware.GetUsername(c),
		"organization_id": middleware.GetOrganizationID(c),
		"platform_admin":  middleware.IsPlatformAdmin(c),
	}
	resp["effective_organization_id"] = effectiveOrgID(c, h.manager)
	if state := h.manager.Current(middleware.GetUserID(c)); state != nil {
		resp["impersonation"] = state
	}
	c.JSON(http.StatusOK, resp)
}
