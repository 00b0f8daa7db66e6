package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// Store interfaces consumed by the services in this package. The gorm repos
// in the store package satisfy them; tests substitute in-memory fakes.

type ContractStore interface {
	GetByID(ctx context.Context, id string) (*model.Contract, error)
	UpdateEstado(ctx context.Context, id string, estado lifecycle.State) error
	UpdateValidationStatus(ctx context.Context, id string, status string) error
}

type ExtractionStore interface {
	Upsert(ctx context.Context, extraction *model.ContractExtraction) error
	GetByContractAndSource(ctx context.Context, contractID, source string) (*model.ContractExtraction, error)
}

type JobStore interface {
	Create(ctx context.Context, job *model.ContractAIJob) error
	UpdateStatus(ctx context.Context, id, status, errMsg string) error
	LatestByContract(ctx context.Context, contractID string) (*model.ContractAIJob, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry *model.AuditLog) error
}

// ValidationAgent produces a canonical extraction from a draft.
// CCAService is the production implementation.
type ValidationAgent interface {
	ValidateContract(ctx context.Context, req *CCAValidateRequest) (*CCAValidateResponse, error)
}

// ValidationResult is the structured outcome returned to callers. Agent
// failures never escape as errors: the result carries the failure and the
// UI keeps showing the draft.
type ValidationResult struct {
	Success  bool                  `json:"success"`
	Status   string                `json:"status,omitempty"`
	Error    string                `json:"error,omitempty"`
	Fallback string                `json:"fallback,omitempty"`
	Diff     map[string]FieldDelta `json:"diff,omitempty"`
}

// ValidationService drives a contract through draft persistence, external
// canonical validation, diff reconciliation and status bookkeeping.
type ValidationService struct {
	contracts   ContractStore
	extractions ExtractionStore
	jobs        JobStore
	audits      AuditStore
	agent       ValidationAgent
	clientID    string
	matterID    string
}

func NewValidationService(contracts ContractStore, extractions ExtractionStore, jobs JobStore, audits AuditStore, agent ValidationAgent) *ValidationService {
	return &ValidationService{
		contracts:   contracts,
		extractions: extractions,
		jobs:        jobs,
		audits:      audits,
		agent:       agent,
	}
}

// WithBusinessContext sets the optional client/matter identifiers forwarded
// to the agent.
func (s *ValidationService) WithBusinessContext(clientID, matterID string) *ValidationService {
	s.clientID = clientID
	s.matterID = matterID
	return s
}

// RunValidation executes one validation attempt for a contract. Steps are
// strictly sequential: mark validating, persist draft, call agent, compute
// diff, persist canonical, update contract status. jobID may be empty when
// no job row tracks this attempt.
//
// The returned error is non-nil only when the contract does not exist or a
// precondition write fails; agent failures come back inside the result.
func (s *ValidationService) RunValidation(ctx context.Context, contractID string, draft map[string]any, documentRef *string, jobID string) (*ValidationResult, error) {
	if _, err := s.contracts.GetByID(ctx, contractID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, err
	}

	startedAt := time.Now()

	if err := s.contracts.UpdateValidationStatus(ctx, contractID, model.ValidationStatusValidating); err != nil {
		return nil, err
	}

	// Persist the draft so a validation failure still leaves it visible.
	if err := s.extractions.Upsert(ctx, &model.ContractExtraction{
		ID:         uuid.New().String(),
		ContratoID: contractID,
		Source:     model.SourceDraft,
		Status:     model.ExtractionStatusProvisional,
		Fields:     draft,
		StartedAt:  startedAt,
	}); err != nil {
		return nil, err
	}

	// Provisional canonical row with an empty field map; the same
	// (contrato_id, source) key absorbs every later write.
	if err := s.extractions.Upsert(ctx, &model.ContractExtraction{
		ID:         uuid.New().String(),
		ContratoID: contractID,
		Source:     model.SourceCCAAgent,
		Status:     model.ExtractionStatusProvisional,
		Fields:     map[string]any{},
		StartedAt:  startedAt,
	}); err != nil {
		return nil, err
	}

	s.markJob(ctx, jobID, model.JobStatusRunning, "")

	resp, err := s.agent.ValidateContract(ctx, &CCAValidateRequest{
		ContractID:        contractID,
		DocumentReference: documentRef,
		ExtractionDraft:   draft,
		ClientID:          s.clientID,
		MatterID:          s.matterID,
	})
	if err != nil {
		return s.failValidation(ctx, contractID, jobID, startedAt, err.Error()), nil
	}

	switch resp.Status {
	case model.ExtractionStatusValidated, model.ExtractionStatusNeedsReview, model.ExtractionStatusFailed:
	default:
		return s.failValidation(ctx, contractID, jobID, startedAt, "agent returned unknown status: "+resp.Status), nil
	}

	diff := ComputeDiff(draft, resp.ExtractionCanonical)
	completedAt := time.Now()

	if err := s.extractions.Upsert(ctx, &model.ContractExtraction{
		ID:            uuid.New().String(),
		ContratoID:    contractID,
		Source:        model.SourceCCAAgent,
		Status:        resp.Status,
		Fields:        resp.ExtractionCanonical,
		Confidence:    resp.Confidence,
		Evidence:      marshalEvidence(resp.Evidence),
		ReviewNotes:   resp.ReviewNotes,
		DiffFromDraft: DiffToJSONMap(diff),
		StartedAt:     startedAt,
		CompletedAt:   &completedAt,
	}); err != nil {
		return s.failValidation(ctx, contractID, jobID, startedAt, "failed to persist canonical extraction: "+err.Error()), nil
	}

	if err := s.contracts.UpdateValidationStatus(ctx, contractID, resp.Status); err != nil {
		slog.Warn("failed to update contract validation status",
			"contract_id", contractID,
			"status", resp.Status,
			"error", err,
		)
	}
	s.markJob(ctx, jobID, resp.Status, "")

	if len(diff) > 0 {
		s.auditDiff(ctx, contractID, diff)
	}

	return &ValidationResult{
		Success: true,
		Status:  resp.Status,
		Diff:    diff,
	}, nil
}

// failValidation records a failed attempt: canonical row marked failed with
// the error, contract status failed, job failed, audit entry appended. The
// caller gets a structured failure with the draft as fallback.
func (s *ValidationService) failValidation(ctx context.Context, contractID, jobID string, startedAt time.Time, errMsg string) *ValidationResult {
	completedAt := time.Now()

	if err := s.extractions.Upsert(ctx, &model.ContractExtraction{
		ID:          uuid.New().String(),
		ContratoID:  contractID,
		Source:      model.SourceCCAAgent,
		Status:      model.ExtractionStatusFailed,
		Fields:      map[string]any{},
		ErrorMsg:    errMsg,
		StartedAt:   startedAt,
		CompletedAt: &completedAt,
	}); err != nil {
		slog.Warn("failed to persist failed extraction", "contract_id", contractID, "error", err)
	}

	if err := s.contracts.UpdateValidationStatus(ctx, contractID, model.ValidationStatusFailed); err != nil {
		slog.Warn("failed to update contract validation status", "contract_id", contractID, "error", err)
	}
	s.markJob(ctx, jobID, model.JobStatusFailed, errMsg)

	s.appendAudit(ctx, &model.AuditLog{
		Action:      model.AuditActionValidationFailed,
		RecordTable: model.Contract{}.TableName(),
		RecordID:    contractID,
		Metadata: map[string]any{
			"error": errMsg,
		},
	})

	slog.Error("contract validation failed",
		"contract_id", contractID,
		"error", errMsg,
	)

	return &ValidationResult{
		Success:  false,
		Status:   model.ValidationStatusFailed,
		Error:    errMsg,
		Fallback: "draft",
	}
}

// auditDiff records the draft vs. canonical discrepancies. Best effort: an
// audit write failure never rolls back the committed extraction.
func (s *ValidationService) auditDiff(ctx context.Context, contractID string, diff map[string]FieldDelta) {
	fields := make([]any, 0, len(diff))
	oldData := make(map[string]any, len(diff))
	newData := make(map[string]any, len(diff))
	for field, delta := range diff {
		fields = append(fields, field)
		oldData[field] = delta.Draft
		newData[field] = delta.Canonical
	}

	s.appendAudit(ctx, &model.AuditLog{
		Action:      model.AuditActionValidationDiff,
		RecordTable: model.ContractExtraction{}.TableName(),
		RecordID:    contractID,
		OldData:     oldData,
		NewData:     newData,
		Metadata: map[string]any{
			"field_count": len(diff),
			"fields":      fields,
		},
	})
}

func (s *ValidationService) appendAudit(ctx context.Context, entry *model.AuditLog) {
	if err := s.audits.Append(ctx, entry); err != nil {
		slog.Warn("failed to append audit entry",
			"action", entry.Action,
			"record_id", entry.RecordID,
			"error", err,
		)
	}
}

func (s *ValidationService) markJob(ctx context.Context, jobID, status, errMsg string) {
	if jobID == "" {
		return
	}
	if err := s.jobs.UpdateStatus(ctx, jobID, status, errMsg); err != nil {
		slog.Warn("failed to update job status", "job_id", jobID, "status", status, "error", err)
	}
}

func marshalEvidence(evidence []any) datatypes.JSON {
	if len(evidence) == 0 {
		return nil
	}
	data, err := json.Marshal(evidence)
	if err != nil {
		slog.Warn("failed to marshal evidence list", "error", err)
		return nil
	}
	return datatypes.JSON(data)
}
