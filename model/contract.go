package model

import (
	"time"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
)

// Contract represents a legal agreement owned by an organization.
type Contract struct {
	ID               string          `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	OrganizationID   string          `gorm:"column:organization_id;type:uuid;index" json:"organization_id"`
	Title            string          `gorm:"column:title;type:varchar(255)" json:"title"`
	Estado           lifecycle.State `gorm:"column:estado;type:varchar(32);not null;index" json:"estado"`
	TipoRenovacao    string          `gorm:"column:tipo_renovacao;type:varchar(50)" json:"tipo_renovacao,omitempty"`
	DataTermo        *time.Time      `gorm:"column:data_termo;index" json:"data_termo,omitempty"`
	ValidationStatus *string         `gorm:"column:validation_status;type:varchar(20)" json:"validation_status,omitempty"`
	DocumentObject   string          `gorm:"column:document_object;type:varchar(512)" json:"document_object,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Contract) TableName() string {
	return "contratos"
}

// Contract-facing validation status values. The column is null before the
// first extraction run.
const (
	ValidationStatusValidating  = "validating"
	ValidationStatusValidated   = "validated"
	ValidationStatusNeedsReview = "needs_review"
	ValidationStatusFailed      = "failed"
)
