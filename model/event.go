package model

import (
	"time"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
)

// ContractEvent is one immutable historical fact about a contract.
// Rows are append-only and never updated.
type ContractEvent struct {
	ID          string              `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	ContratoID  string              `gorm:"column:contrato_id;type:uuid;not null;index" json:"contrato_id"`
	EventType   lifecycle.EventType `gorm:"column:event_type;type:varchar(32);not null;index" json:"event_type"`
	Description string              `gorm:"column:description;type:text" json:"description,omitempty"`
	EventDate   time.Time           `gorm:"column:event_date;type:date;not null" json:"event_date"`
	CreatedBy   string              `gorm:"column:created_by;type:varchar(100)" json:"created_by,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
}

func (ContractEvent) TableName() string {
	return "contract_events"
}
