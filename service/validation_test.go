package service

import (
	"context"
	"errors"
	"testing"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/config"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

func newTestContract(id string) *model.Contract {
	return &model.Contract{
		ID:             id,
		OrganizationID: "org-1",
		Title:          "Contrato de Prestacao de Servicos",
		Estado:         lifecycle.StateActive,
	}
}

func TestRunValidationSuccessWithDiff(t *testing.T) {
	contracts := newFakeContracts(newTestContract("contract-1"))
	extractions := newFakeExtractions()
	jobs := newFakeJobs()
	audits := newFakeAudits()
	confidence := 90.0
	agent := &fakeAgent{resp: &CCAValidateResponse{
		ExtractionCanonical: map[string]any{
			"tipo_contrato": "prestacao_servicos",
			"data_termo":    "2027-12-31",
		},
		Status:     model.ExtractionStatusValidated,
		Confidence: &confidence,
	}}

	svc := NewValidationService(contracts, extractions, jobs, audits, agent)

	draft := map[string]any{
		"tipo_contrato": "prestacao_servicos",
		"data_termo":    "2026-12-31",
	}
	result, err := svc.RunValidation(context.Background(), "contract-1", draft, nil, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !result.Success {
		t.Fatalf("Expected success, got %+v", result)
	}
	if result.Status != model.ExtractionStatusValidated {
		t.Errorf("Expected validated, got %s", result.Status)
	}
	if len(result.Diff) != 1 {
		t.Fatalf("Expected 1 differing field, got %v", result.Diff)
	}
	if _, ok := result.Diff["data_termo"]; !ok {
		t.Error("Expected data_termo in diff")
	}

	// Both extraction rows persisted under their sources.
	draftRow, err := extractions.GetByContractAndSource(context.Background(), "contract-1", model.SourceDraft)
	if err != nil {
		t.Fatalf("Expected draft row: %v", err)
	}
	if draftRow.Status != model.ExtractionStatusProvisional {
		t.Errorf("Expected provisional draft row, got %s", draftRow.Status)
	}
	canonRow, err := extractions.GetByContractAndSource(context.Background(), "contract-1", model.SourceCCAAgent)
	if err != nil {
		t.Fatalf("Expected canonical row: %v", err)
	}
	if canonRow.Status != model.ExtractionStatusValidated {
		t.Errorf("Expected validated canonical row, got %s", canonRow.Status)
	}
	if canonRow.DiffFromDraft == nil {
		t.Error("Expected diff persisted on canonical row")
	}
	if canonRow.CompletedAt == nil {
		t.Error("Expected completed_at on canonical row")
	}

	// Contract went validating -> validated.
	statuses := contracts.statuses()
	if len(statuses) != 2 || statuses[0] != model.ValidationStatusValidating || statuses[1] != model.ValidationStatusValidated {
		t.Errorf("Expected [validating validated], got %v", statuses)
	}

	// The diff was audited.
	diffEntries := audits.byAction(model.AuditActionValidationDiff)
	if len(diffEntries) != 1 {
		t.Fatalf("Expected 1 diff audit entry, got %d", len(diffEntries))
	}
	entry := diffEntries[0]
	if entry.RecordID != "contract-1" {
		t.Errorf("Expected contract-1, got %s", entry.RecordID)
	}
	if entry.OldData["data_termo"] != "2026-12-31" || entry.NewData["data_termo"] != "2027-12-31" {
		t.Errorf("Expected old/new values in audit, got %v / %v", entry.OldData, entry.NewData)
	}
}

func TestRunValidationNoDiffSkipsAudit(t *testing.T) {
	contracts := newFakeContracts(newTestContract("contract-1"))
	extractions := newFakeExtractions()
	audits := newFakeAudits()
	draft := map[string]any{"tipo_contrato": "nda"}
	agent := &fakeAgent{resp: &CCAValidateResponse{
		ExtractionCanonical: map[string]any{"tipo_contrato": "nda"},
		Status:              model.ExtractionStatusValidated,
	}}

	svc := NewValidationService(contracts, extractions, newFakeJobs(), audits, agent)

	result, err := svc.RunValidation(context.Background(), "contract-1", draft, nil, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Success || len(result.Diff) != 0 {
		t.Fatalf("Expected clean success, got %+v", result)
	}
	if entries := audits.byAction(model.AuditActionValidationDiff); len(entries) != 0 {
		t.Errorf("Expected no diff audit for identical extractions, got %d", len(entries))
	}
}

func TestRunValidationAgentFailure(t *testing.T) {
	contracts := newFakeContracts(newTestContract("contract-1"))
	extractions := newFakeExtractions()
	jobs := newFakeJobs()
	audits := newFakeAudits()
	agent := &fakeAgent{err: errFakeUnavailable}

	svc := NewValidationService(contracts, extractions, jobs, audits, agent)

	jobs.Create(context.Background(), &model.ContractAIJob{ID: "job-1", ContratoID: "contract-1", Status: model.JobStatusQueued})

	draft := map[string]any{"tipo_contrato": "nda"}
	result, err := svc.RunValidation(context.Background(), "contract-1", draft, nil, "job-1")
	if err != nil {
		t.Fatalf("Agent failure must not surface as error, got %v", err)
	}

	if result.Success {
		t.Fatal("Expected failure result")
	}
	if result.Fallback != "draft" {
		t.Errorf("Expected draft fallback, got %s", result.Fallback)
	}
	if result.Error == "" {
		t.Error("Expected error message in result")
	}

	// Draft preserved, canonical row marked failed.
	if _, err := extractions.GetByContractAndSource(context.Background(), "contract-1", model.SourceDraft); err != nil {
		t.Errorf("Expected draft row preserved: %v", err)
	}
	canonRow, err := extractions.GetByContractAndSource(context.Background(), "contract-1", model.SourceCCAAgent)
	if err != nil {
		t.Fatalf("Expected canonical row: %v", err)
	}
	if canonRow.Status != model.ExtractionStatusFailed {
		t.Errorf("Expected failed canonical row, got %s", canonRow.Status)
	}
	if canonRow.ErrorMsg == "" {
		t.Error("Expected error message on canonical row")
	}

	if got := contracts.validationStatus("contract-1"); got != model.ValidationStatusFailed {
		t.Errorf("Expected contract failed, got %s", got)
	}
	if got := jobs.status("job-1"); got != model.JobStatusFailed {
		t.Errorf("Expected job failed, got %s", got)
	}

	entries := audits.byAction(model.AuditActionValidationFailed)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 failure audit entry, got %d", len(entries))
	}
	if entries[0].Metadata["error"] == "" {
		t.Error("Expected error in audit metadata")
	}
}

func TestRunValidationUnknownAgentStatus(t *testing.T) {
	contracts := newFakeContracts(newTestContract("contract-1"))
	agent := &fakeAgent{resp: &CCAValidateResponse{
		ExtractionCanonical: map[string]any{},
		Status:              "done",
	}}

	svc := NewValidationService(contracts, newFakeExtractions(), newFakeJobs(), newFakeAudits(), agent)

	result, err := svc.RunValidation(context.Background(), "contract-1", map[string]any{}, nil, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Success {
		t.Fatal("Expected failure for unknown agent status")
	}
	if got := contracts.validationStatus("contract-1"); got != model.ValidationStatusFailed {
		t.Errorf("Expected contract failed, got %s", got)
	}
}

func TestRunValidationContractNotFound(t *testing.T) {
	svc := NewValidationService(newFakeContracts(), newFakeExtractions(), newFakeJobs(), newFakeAudits(), &fakeAgent{})

	_, err := svc.RunValidation(context.Background(), "missing", map[string]any{}, nil, "")
	if !errors.Is(err, ErrContractNotFound) {
		t.Fatalf("Expected ErrContractNotFound, got %v", err)
	}
}

func TestRunValidationDevModeSynthesis(t *testing.T) {
	contracts := newFakeContracts(newTestContract("contract-1"))
	extractions := newFakeExtractions()

	// An unconfigured CCA service echoes the draft back as canonical.
	agent := NewCCAService(&config.CCAConfig{BaseURL: ""})
	svc := NewValidationService(contracts, extractions, newFakeJobs(), newFakeAudits(), agent)

	draft := map[string]any{"tipo_contrato": "nda", "lei_aplicavel": "PT"}
	result, err := svc.RunValidation(context.Background(), "contract-1", draft, nil, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("Expected success, got %+v", result)
	}
	if len(result.Diff) != 0 {
		t.Errorf("Expected no diff when draft is echoed, got %v", result.Diff)
	}

	canonRow, err := extractions.GetByContractAndSource(context.Background(), "contract-1", model.SourceCCAAgent)
	if err != nil {
		t.Fatalf("Expected canonical row: %v", err)
	}
	if canonRow.Confidence == nil || *canonRow.Confidence != devModeConfidence {
		t.Errorf("Expected placeholder confidence, got %v", canonRow.Confidence)
	}
}

func TestRunValidationReValidationOverwrites(t *testing.T) {
	contracts := newFakeContracts(newTestContract("contract-1"))
	extractions := newFakeExtractions()
	agent := &fakeAgent{resp: &CCAValidateResponse{
		ExtractionCanonical: map[string]any{"tipo_contrato": "nda"},
		Status:              model.ExtractionStatusValidated,
	}}

	svc := NewValidationService(contracts, extractions, newFakeJobs(), newFakeAudits(), agent)

	for i := 0; i < 3; i++ {
		if _, err := svc.RunValidation(context.Background(), "contract-1", map[string]any{"tipo_contrato": "nda"}, nil, ""); err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
	}

	// One draft row and one canonical row, regardless of attempts.
	if got := extractions.count(); got != 2 {
		t.Errorf("Expected 2 extraction rows after re-validation, got %d", got)
	}
}
