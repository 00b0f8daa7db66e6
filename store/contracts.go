package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/lifecycle"
	"github.com/CCA-SociedadeAdvogados/legal-hub-backend/model"
)

// ContractRepo wraps all operations on the contratos table.
type ContractRepo struct {
	db *gorm.DB
}

func NewContractRepo(db *gorm.DB) *ContractRepo {
	return &ContractRepo{db: db}
}

func (r *ContractRepo) Create(ctx context.Context, contract *model.Contract) error {
	return r.db.WithContext(ctx).Create(contract).Error
}

func (r *ContractRepo) GetByID(ctx context.Context, id string) (*model.Contract, error) {
	var contract model.Contract
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&contract).Error
	if err != nil {
		return nil, err
	}
	return &contract, nil
}

func (r *ContractRepo) ListByOrganization(ctx context.Context, orgID string) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("created_at DESC").
		Find(&contracts).Error
	return contracts, err
}

// UpdateEstado sets the contract's lifecycle state.
func (r *ContractRepo) UpdateEstado(ctx context.Context, id string, estado lifecycle.State) error {
	return r.db.WithContext(ctx).
		Model(&model.Contract{}).
		Where("id = ?", id).
		Update("estado", estado).Error
}

// UpdateValidationStatus sets the contract-facing validation status. Writes
// are idempotent "set to known value" operations; last writer wins.
func (r *ContractRepo) UpdateValidationStatus(ctx context.Context, id string, status string) error {
	return r.db.WithContext(ctx).
		Model(&model.Contract{}).
		Where("id = ?", id).
		Update("validation_status", status).Error
}

func (r *ContractRepo) SetDocumentObject(ctx context.Context, id string, objectName string) error {
	return r.db.WithContext(ctx).
		Model(&model.Contract{}).
		Where("id = ?", id).
		Update("document_object", objectName).Error
}

// ActivePastTermination returns active contracts whose termination date has
// passed, for the nightly expiration sweep.
func (r *ContractRepo) ActivePastTermination(ctx context.Context, now time.Time) ([]model.Contract, error) {
	var contracts []model.Contract
	err := r.db.WithContext(ctx).
		Where("estado = ? AND data_termo IS NOT NULL AND data_termo < ?", lifecycle.StateActive, now).
		Find(&contracts).Error
	return contracts, err
}
