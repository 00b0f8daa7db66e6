package model

import (
	"time"

	"gorm.io/datatypes"
)

// Extraction sources. Drafts and canonical results share the table and are
// distinguished by source; upserts are keyed on (contrato_id, source).
const (
	SourceDraft    = "ai_draft"
	SourceCCAAgent = "cca_agent"
)

// Extraction status values.
const (
	ExtractionStatusProvisional = "provisional"
	ExtractionStatusValidated   = "validated"
	ExtractionStatusNeedsReview = "needs_review"
	ExtractionStatusFailed      = "failed"
)

// ContractExtraction holds one field extraction for a contract: the AI draft
// or the canonical result from the validation agent. Re-validation overwrites
// the row in place, it never accumulates history.
type ContractExtraction struct {
	ID            string             `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	ContratoID    string             `gorm:"column:contrato_id;type:uuid;not null;uniqueIndex:idx_extraction_contract_source" json:"contrato_id"`
	Source        string             `gorm:"column:source;type:varchar(32);not null;uniqueIndex:idx_extraction_contract_source" json:"source"`
	Status        string             `gorm:"column:status;type:varchar(20);not null" json:"status"`
	Fields        datatypes.JSONMap  `gorm:"column:fields" json:"fields"`
	Confidence    *float64           `gorm:"column:confidence" json:"confidence,omitempty"`
	Evidence      datatypes.JSON     `gorm:"column:evidence" json:"evidence,omitempty"`
	ReviewNotes   string             `gorm:"column:review_notes;type:text" json:"review_notes,omitempty"`
	DiffFromDraft datatypes.JSONMap  `gorm:"column:diff_from_draft" json:"diff_from_draft,omitempty"`
	ErrorMsg      string             `gorm:"column:error_msg;type:text" json:"error_msg,omitempty"`
	StartedAt     time.Time          `gorm:"column:started_at" json:"started_at"`
	CompletedAt   *time.Time         `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (ContractExtraction) TableName() string {
	return "contract_extractions"
}
