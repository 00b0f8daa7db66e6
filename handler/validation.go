package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/service"
)

type ValidationHandler struct {
	contracts   ContractDirectory
	extractions service.ExtractionStore
	jobs        service.JobStore
	queue       *service.ValidationQueue
	poller      *service.Poller
	manager     *service.ImpersonationManager
}

func NewValidationHandler(contracts ContractDirectory, extractions service.ExtractionStore, jobs service.JobStore, queue *service.ValidationQueue, poller *service.Poller, manager *service.ImpersonationManager) *ValidationHandler {
	return &ValidationHandler{
		contracts:   contracts,
		extractions: extractions,
		jobs:        jobs,
		queue:       queue,
		poller:      poller,
		manager:     manager,
	}
}

type TriggerValidationRequest struct {
	DraftExtraction   map[string]any `json:"draft_extraction" binding:"required"`
	DocumentReference *string        `json:"document_reference"`
}

// Trigger enqueues a (re-)validation of a contract with the supplied draft
// extraction and starts watching the job.
func (h *ValidationHandler) Trigger(c *gin.Context) {
	contract := h.lookup(c)
	if contract == nil {
		return
	}

	var req TriggerValidationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	jobID, err := h.queue.Submit(c.Request.Context(), contract.ID, req.DraftExtraction, req.DocumentReference)
	if err != nil {
		if errors.Is(err, service.ErrQueueFull) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Validation queue full, try again later"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to queue validation: " + err.Error()})
		return
	}
	h.poller.Watch(contract.ID)

	c.JSON(http.StatusAccepted, gin.H{
		"id":     contract.ID,
		"job_id": jobID,
		"status": model.ValidationStatusValidating,
	})
}

// GetValidation returns the canonical extraction (including the diff from
// the draft) and the latest job status.
func (h *ValidationHandler) GetValidation(c *gin.Context) {
	contract := h.lookup(c)
	if contract == nil {
		return
	}

	resp := gin.H{
		"id":                contract.ID,
		"validation_status": contract.ValidationStatus,
	}

	canonical, err := h.extractions.GetByContractAndSource(c.Request.Context(), contract.ID, model.SourceCCAAgent)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load extraction"})
		return
	}
	if canonical != nil {
		resp["canonical"] = canonical
	}

	draft, err := h.extractions.GetByContractAndSource(c.Request.Context(), contract.ID, model.SourceDraft)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load extraction"})
		return
	}
	if draft != nil {
		resp["draft"] = draft
	}

	job, err := h.jobs.LatestByContract(c.Request.Context(), contract.ID)
	if err == nil && job != nil {
		resp["job"] = job
	}

	c.JSON(http.StatusOK, resp)
}

func (h *ValidationHandler) lookup(c *gin.Context) *model.Contract {
	id := c.Param("id")
	contract, err := h.contracts.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load contract"})
		}
		return nil
	}
	if contract.OrganizationID != effectiveOrgID(c, h.manager) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contract not found"})
		return nil
	}
	return contract
}
