package model

import (
	"time"

	"gorm.io/datatypes"
)

// Audit actions written by the validation pipeline.
const (
	AuditActionValidationFailed = "cca_validation_failed"
	AuditActionValidationDiff   = "cca_validation_diff"
)

// AuditLog is an immutable record of a state-relevant change. The audit
// trail is observability, not a correctness dependency: writers treat a
// failed insert as a logged warning, never a rollback.
type AuditLog struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Action      string            `gorm:"column:action;type:varchar(64);not null;index" json:"action"`
	RecordTable string            `gorm:"column:record_table;type:varchar(64)" json:"record_table"`
	RecordID    string            `gorm:"column:record_id;type:varchar(64);index" json:"record_id"`
	OldData     datatypes.JSONMap `gorm:"column:old_data" json:"old_data,omitempty"`
	NewData     datatypes.JSONMap `gorm:"column:new_data" json:"new_data,omitempty"`
	Metadata    datatypes.JSONMap `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time         `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
