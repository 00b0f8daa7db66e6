package store

import (
	"context"

	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// EventRepo wraps the append-only contract_events table. There is no update
// or delete path: events are immutable once written.
type EventRepo struct {
	db *gorm.DB
}

func NewEventRepo(db *gorm.DB) *EventRepo {
	return &EventRepo{db: db}
}

func (r *EventRepo) Append(ctx context.Context, event *model.ContractEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *EventRepo) ListByContract(ctx context.Context, contractID string) ([]model.ContractEvent, error) {
	var events []model.ContractEvent
	err := r.db.WithContext(ctx).
		Where("contrato_id = ?", contractID).
		Order("event_date DESC, created_at DESC").
		Find(&events).Error
	return events, err
}
