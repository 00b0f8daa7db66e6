package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/config"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// devModeConfidence is the placeholder confidence attached to synthesized
// canonical results when no agent endpoint is configured.
const devModeConfidence = 85.0

// CCAService calls the external canonical-validation agent.
type CCAService struct {
	config     *config.CCAConfig
	httpClient *http.Client
}

// CCAValidateRequest is the payload sent to the validation agent.
type CCAValidateRequest struct {
	ContractID        string         `json:"contract_id"`
	DocumentReference *string        `json:"document_reference"`
	ExtractionDraft   map[string]any `json:"extraction_draft"`
	ClientID          string         `json:"client_id,omitempty"`
	MatterID          string         `json:"matter_id,omitempty"`
}

// CCAValidateResponse is the agent's canonical result.
type CCAValidateResponse struct {
	ExtractionCanonical map[string]any `json:"extraction_canonical"`
	Status              string         `json:"status"` // validated, needs_review, failed
	Confidence          *float64       `json:"confidence"`
	ReviewNotes         string         `json:"review_notes"`
	Evidence            []any          `json:"evidence"`
}

func NewCCAService(cfg *config.CCAConfig) *CCAService {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &CCAService{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Configured reports whether an external agent endpoint is set. Without one
// the service runs in dev mode and synthesizes canonical results.
func (s *CCAService) Configured() bool {
	return s.config.BaseURL != ""
}

// ValidateContract sends the draft extraction to the agent and returns the
// canonical result. The call is bounded by the configured timeout; a timeout
// is indistinguishable from a hard failure to the caller. In dev mode the
// draft is echoed back as canonical with a placeholder confidence.
func (s *CCAService) ValidateContract(ctx context.Context, req *CCAValidateRequest) (*CCAValidateResponse, error) {
	if !s.Configured() {
		slog.Info("cca agent not configured, synthesizing canonical result",
			"contract_id", req.ContractID,
		)
		confidence := devModeConfidence
		return &CCAValidateResponse{
			ExtractionCanonical: req.ExtractionDraft,
			Status:              model.ExtractionStatusValidated,
			Confidence:          &confidence,
			ReviewNotes:         "synthesized locally: no validation agent configured",
		}, nil
	}

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/cca/validate-contract", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("X-API-Key", s.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call validation agent: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("validation agent returned %d: %s", resp.StatusCode, string(body))
	}

	var result CCAValidateResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w, body: %s", err, string(body))
	}

	return &result, nil
}
