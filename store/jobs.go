package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// JobRepo wraps the append-only contract_ai_jobs table.
type JobRepo struct {
	db *gorm.DB
}

func NewJobRepo(db *gorm.DB) *JobRepo {
	return &JobRepo{db: db}
}

func (r *JobRepo) Create(ctx context.Context, job *model.ContractAIJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// UpdateStatus moves a job to a new status, stamping completed_at when the
// status is terminal.
func (r *JobRepo) UpdateStatus(ctx context.Context, id, status, errMsg string) error {
	updates := map[string]interface{}{
		"status":    status,
		"error_msg": errMsg,
	}
	if model.JobTerminal(status) {
		now := time.Now()
		updates["completed_at"] = &now
	}
	return r.db.WithContext(ctx).
		Model(&model.ContractAIJob{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// LatestByContract returns the most recently started job for a contract,
// or nil if none exists.
func (r *JobRepo) LatestByContract(ctx context.Context, contractID string) (*model.ContractAIJob, error) {
	var job model.ContractAIJob
	err := r.db.WithContext(ctx).
		Where("contrato_id = ?", contractID).
		Order("started_at DESC").
		First(&job).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}
