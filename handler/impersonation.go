package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/middleware"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/service"
)

// ImpersonationHandler exposes the admin impersonation lifecycle. Failures
// surface as {success:false, error} with the admin left in their own
// context; the manager never leaves half-applied state behind.
type ImpersonationHandler struct {
	manager *service.ImpersonationManager
}

func NewImpersonationHandler(manager *service.ImpersonationManager) *ImpersonationHandler {
	return &ImpersonationHandler{manager: manager}
}

type StartOrgImpersonationRequest struct {
	OrgID   string `json:"org_id" binding:"required"`
	OrgName string `json:"org_name"`
	Reason  string `json:"reason" binding:"required"`
}

type StartUserImpersonationRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	UserName string `json:"user_name"`
	Reason   string `json:"reason" binding:"required"`
}

// StartOrg begins impersonating an organization.
func (h *ImpersonationHandler) StartOrg(c *gin.Context) {
	var req StartOrgImpersonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}

	actor := service.Actor{
		ID:        middleware.GetUserID(c),
		UserAgent: c.Request.UserAgent(),
	}
	err := h.manager.StartOrgImpersonation(c.Request.Context(), actor, req.OrgID, req.OrgName, req.Reason)
	h.respond(c, err)
}

// StartUser begins impersonating a user.
func (h *ImpersonationHandler) StartUser(c *gin.Context) {
	var req StartUserImpersonationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request"})
		return
	}

	actor := service.Actor{
		ID:        middleware.GetUserID(c),
		UserAgent: c.Request.UserAgent(),
	}
	err := h.manager.StartUserImpersonation(c.Request.Context(), actor, req.UserID, req.UserName, req.Reason)
	h.respond(c, err)
}

// Stop ends the caller's impersonation session.
func (h *ImpersonationHandler) Stop(c *gin.Context) {
	err := h.manager.StopImpersonation(c.Request.Context(), middleware.GetUserID(c))
	h.respond(c, err)
}

// Current restores and verifies the caller's session against server truth.
// A missing or stale session is not an error: the caller is simply not
// impersonating anymore.
func (h *ImpersonationHandler) Current(c *gin.Context) {
	state, err := h.manager.Restore(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
		return
	}
	if state == nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"active": true, "session": state})
}

func (h *ImpersonationHandler) respond(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"success": true})
	case errors.Is(err, service.ErrReasonTooShort):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, service.ErrNotPlatformAdmin):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": err.Error()})
	}
}
