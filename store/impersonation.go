package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// ImpersonationRepo wraps the impersonation_sessions table: insert on start,
// update on stop, sweep for staleness.
type ImpersonationRepo struct {
	db *gorm.DB
}

func NewImpersonationRepo(db *gorm.DB) *ImpersonationRepo {
	return &ImpersonationRepo{db: db}
}

func (r *ImpersonationRepo) Create(ctx context.Context, session *model.ImpersonationSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *ImpersonationRepo) GetByID(ctx context.Context, id string) (*model.ImpersonationSession, error) {
	var session model.ImpersonationSession
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// End marks the session ended with an end timestamp. Ending an already ended
// session is a no-op.
func (r *ImpersonationRepo) End(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ImpersonationSession{}).
		Where("id = ? AND status = ?", id, model.ImpersonationStatusActive).
		Updates(map[string]interface{}{
			"status":   model.ImpersonationStatusEnded,
			"ended_at": &at,
		}).Error
}

// ExpireStale ends every active session that started before the cutoff.
// Runs before any verification so stale sessions never resume.
func (r *ImpersonationRepo) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.ImpersonationSession{}).
		Where("status = ? AND started_at < ?", model.ImpersonationStatusActive, cutoff).
		Updates(map[string]interface{}{
			"status":   model.ImpersonationStatusEnded,
			"ended_at": &now,
		})
	return result.RowsAffected, result.Error
}
