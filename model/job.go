package model

import "time"

// Job status values. The contract-facing vocabulary is coarser: queued and
// running both surface as "validating" on the contract row.
const (
	JobStatusQueued      = "queued"
	JobStatusRunning     = "running"
	JobStatusValidated   = "validated"
	JobStatusNeedsReview = "needs_review"
	JobStatusFailed      = "failed"
)

// ContractAIJob tracks one asynchronous validation attempt. Rows are
// append-only; watchers read the most recent row by started_at.
type ContractAIJob struct {
	ID          string     `gorm:"column:id;primaryKey;type:uuid" json:"id"`
	ContratoID  string     `gorm:"column:contrato_id;type:uuid;not null;index" json:"contrato_id"`
	Status      string     `gorm:"column:status;type:varchar(20);not null" json:"status"`
	ErrorMsg    string     `gorm:"column:error_msg;type:text" json:"error_msg,omitempty"`
	StartedAt   time.Time  `gorm:"column:started_at;not null;index" json:"started_at"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
}

func (ContractAIJob) TableName() string {
	return "contract_ai_jobs"
}

// JobTerminal reports whether a job status is terminal.
func JobTerminal(status string) bool {
	switch status {
	case JobStatusValidated, JobStatusNeedsReview, JobStatusFailed:
		return true
	}
	return false
}

// ContractStatusForJob maps a job status onto the contract-facing
// validation status.
func ContractStatusForJob(jobStatus string) string {
	switch jobStatus {
	case JobStatusValidated:
		return ValidationStatusValidated
	case JobStatusNeedsReview:
		return ValidationStatusNeedsReview
	case JobStatusFailed:
		return ValidationStatusFailed
	default:
		return ValidationStatusValidating
	}
}
