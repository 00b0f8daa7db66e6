package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// AuditRepo wraps the append-only audit_logs table.
type AuditRepo struct {
	db *gorm.DB
}

func NewAuditRepo(db *gorm.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Append(ctx context.Context, entry *model.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *AuditRepo) ListByRecord(ctx context.Context, recordID string) ([]model.AuditLog, error) {
	var entries []model.AuditLog
	err := r.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}
