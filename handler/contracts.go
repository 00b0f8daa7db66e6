package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/middleware"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/service"
)

// ContractDirectory is the contract access surface handlers need beyond the
// service-layer stores. store.ContractRepo satisfies it.
type ContractDirectory interface {
	Create(ctx context.Context, contract *model.Contract) error
	GetByID(ctx context.Context, id string) (*model.Contract, error)
	ListByOrganization(ctx context.Context, orgID string) ([]model.Contract, error)
	SetDocumentObject(ctx context.Context, id string, objectName string) error
}

// DocumentStore is the document access surface the upload path needs.
// service.DocumentService satisfies it.
type DocumentStore interface {
	Upload(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error
	PresignedURL(ctx context.Context, objectName string) (string, error)
	Delete(ctx context.Context, objectName string) error
}

type ContractHandler struct {
	contracts ContractDirectory
	documents DocumentStore
	queue     *service.ValidationQueue
	poller    *service.Poller
	manager   *service.ImpersonationManager
}

func NewContractHandler(contracts ContractDirectory, documents DocumentStore, queue *service.ValidationQueue, poller *service.Poller, manager *service.ImpersonationManager) *ContractHandler {
	return &ContractHandler{
		contracts: contracts,
		documents: documents,
		queue:     queue,
		poller:    poller,
		manager:   manager,
	}
}

type CreateContractRequest struct {
	Title         string     `json:"title" binding:"required"`
	TipoRenovacao string     `json:"tipo_renovacao"`
	DataTermo     *time.Time `json:"data_termo"`
}

// Create registers a new contract in draft state for the effective
// organization.
func (h *ContractHandler) Create(c *gin.Context) {
	var req CreateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	contract := &model.Contract{
		ID:             uuid.New().String(),
		OrganizationID: effectiveOrgID(c, h.manager),
		Title:          req.Title,
		Estado:         lifecycle.StateDraft,
		TipoRenovacao:  req.TipoRenovacao,
		DataTermo:      req.DataTermo,
	}
	if err := h.contracts.Create(c.Request.Context(), contract); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contract: " + err.Error()})
		return
	}

	c.JSON(http.StatusCreated, contract)
}

// List returns all contracts for the effective organization, without
// extraction payloads.
func (h *ContractHandler) List(c *gin.Context) {
	orgID := effectiveOrgID(c, h.manager)
	contracts, err := h.contracts.ListByOrganization(c.Request.Context(), orgID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contracts"})
		return
	}

	result := make([]gin.H, len(contracts))
	for i, contract := range contracts {
		result[i] = gin.H{
			"id":                contract.ID,
			"title":             contract.Title,
			"estado":            contract.Estado,
			"validation_status": contract.ValidationStatus,
			"data_termo":        contract.DataTermo,
			"created_at":        contract.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at":        contract.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"contracts": result})
}

// Get returns a single contract
func (h *ContractHandler) Get(c *gin.Context) {
	contract := h.lookup(c)
	if contract == nil {
		return
	}
	c.JSON(http.StatusOK, contract)
}

// GetStatus returns the lifecycle state and validation status of a contract
func (h *ContractHandler) GetStatus(c *gin.Context) {
	contract := h.lookup(c)
	if contract == nil {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                contract.ID,
		"estado":            contract.Estado,
		"validation_status": contract.ValidationStatus,
	})
}

// Upload stores a contract document and kicks off validation with the
// supplied draft extraction. Submission is detached: the response reports
// whether the task was queued, not whether validation will succeed.
func (h *ContractHandler) Upload(c *gin.Context) {
	contract := h.lookup(c)
	if contract == nil {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" && ext != ".docx" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF and DOCX files are allowed"})
		return
	}
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		if ext == ".pdf" {
			contentType = "application/pdf"
		} else {
			contentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
		}
	}

	// Optional draft extraction accompanying the document.
	draft := map[string]any{}
	if raw := c.Request.FormValue("draft_extraction"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &draft); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid draft_extraction JSON"})
			return
		}
	}

	objectName := fmt.Sprintf("%s/%s/%s", contract.OrganizationID, contract.ID, header.Filename)
	if err := h.documents.Upload(c.Request.Context(), objectName, file, header.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload document: " + err.Error()})
		return
	}
	if err := h.contracts.SetDocumentObject(c.Request.Context(), contract.ID, objectName); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record document: " + err.Error()})
		return
	}

	// Re-uploads supersede the previous document; drop it best-effort so
	// the bucket does not accumulate orphaned objects.
	if prev := contract.DocumentObject; prev != "" && prev != objectName {
		if err := h.documents.Delete(c.Request.Context(), prev); err != nil {
			slog.Warn("failed to delete superseded document",
				"contract_id", contract.ID,
				"object", prev,
				"error", err,
			)
		}
	}

	documentRef, err := h.documents.PresignedURL(c.Request.Context(), objectName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate document URL: " + err.Error()})
		return
	}

	jobID, err := h.queue.Submit(c.Request.Context(), contract.ID, draft, &documentRef)
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
		"id":       contract.ID,
		"filename": header.Filename,
		"job_id":   jobID,
		"status":   model.ValidationStatusValidating,
	})
}

// lookup fetches the contract from the path parameter and enforces tenant
// scoping; it writes the error response itself and returns nil on failure.
func (h *ContractHandler) lookup(c *gin.Context) *model.Contract {
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

// effectiveOrgID resolves the organization whose data the caller sees: the
// impersonated org when an org impersonation is active, otherwise the
// caller's own org.
func effectiveOrgID(c *gin.Context, manager *service.ImpersonationManager) string {
	if manager != nil {
		if orgID, ok := manager.EffectiveOrganizationID(middleware.GetUserID(c)); ok {
			return orgID
		}
	}
	return middleware.GetOrganizationID(c)
}
