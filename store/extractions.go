package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// ExtractionRepo wraps the contract_extractions table. The (contrato_id,
// source) pair is the concurrency boundary: writes are upserts keyed on it,
// so exactly one row exists per pair after the first attempt.
type ExtractionRepo struct {
	db *gorm.DB
}

func NewExtractionRepo(db *gorm.DB) *ExtractionRepo {
	return &ExtractionRepo{db: db}
}

// Upsert inserts the extraction or overwrites the existing row for the same
// (contrato_id, source). Re-validation overwrites in place, it never
// accumulates rows.
func (r *ExtractionRepo) Upsert(ctx context.Context, extraction *model.ContractExtraction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "contrato_id"}, {Name: "source"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"status", "fields", "confidence", "evidence", "review_notes",
				"diff_from_draft", "error_msg", "started_at", "completed_at",
			}),
		}).
		Create(extraction).Error
}

func (r *ExtractionRepo) GetByContractAndSource(ctx context.Context, contractID, source string) (*model.ContractExtraction, error) {
	var extraction model.ContractExtraction
	err := r.db.WithContext(ctx).
		Where("contrato_id = ? AND source = ?", contractID, source).
		First(&extraction).Error
	if err != nil {
		return nil, err
	}
	return &extraction, nil
}

// CountByContractAndSource exists for invariant checks: it must never
// exceed one.
func (r *ExtractionRepo) CountByContractAndSource(ctx context.Context, contractID, source string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ContractExtraction{}).
		Where("contrato_id = ? AND source = ?", contractID, source).
		Count(&count).Error
	return count, err
}
