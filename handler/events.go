package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/middleware"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/service"
)

type EventHandler struct {
	events  *service.EventService
	manager *service.ImpersonationManager
}

func NewEventHandler(events *service.EventService, manager *service.ImpersonationManager) *EventHandler {
	return &EventHandler{events: events, manager: manager}
}

type RecordEventRequest struct {
	EventType   string `json:"event_type" binding:"required"`
	Description string `json:"description"`
	EventDate   string `json:"event_date"` // YYYY-MM-DD, defaults to today
}

// Record appends a lifecycle event to a contract.
func (h *EventHandler) Record(c *gin.Context) {
	var req RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var eventDate *time.Time
	if req.EventDate != "" {
		parsed, err := time.Parse("2006-01-02", req.EventDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event_date, expected YYYY-MM-DD"})
			return
		}
		eventDate = &parsed
	}

	event, err := h.events.RecordEvent(
		c.Request.Context(),
		c.Param("id"),
		lifecycle.EventType(req.EventType),
		req.Description,
		eventDate,
		middleware.GetUserID(c),
	)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContractNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		case errors.Is(err, service.ErrInvalidEventType),
			errors.Is(err, service.ErrEventNotPermitted),
			errors.Is(err, service.ErrInvalidTransition):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record event: " + err.Error()})
		}
		return
	}

	c.JSON(http.StatusCreated, event)
}

// List returns a contract's event history, newest first.
func (h *EventHandler) List(c *gin.Context) {
	events, err := h.events.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrContractNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"events": events})
}
