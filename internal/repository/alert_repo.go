package repository

import (
	"context"
	"errors"

	"guardianledger/internal/apperr"
	"guardianledger/internal/model"

	"gorm.io/gorm"
)

var ErrAlertNotFound = apperr.NotFound("alert not found")

type AlertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create AlertID 由 model.Alert 的 BeforeCreate 钩子生成
func (r *AlertRepository) Create(ctx context.Context, tx *gorm.DB, alert *model.Alert) error {
	return conn(r.db, tx).WithContext(ctx).Create(alert).Error
}

func (r *AlertRepository) GetByAlertID(ctx context.Context, alertID string) (*model.Alert, error) {
	var alert model.Alert
	err := r.db.WithContext(ctx).Where("alert_id = ?", alertID).First(&alert).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAlertNotFound
		}
		return nil, err
	}
	return &alert, nil
}

func (r *AlertRepository) CountByTransactionID(ctx context.Context, transactionID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Alert{}).
		Where("transaction_id = ?", transactionID).
		Count(&count).Error
	return count, err
}

func (r *AlertRepository) ListByRelationship(ctx context.Context, relationshipID string, limit int) ([]*model.Alert, error) {
	var alerts []*model.Alert
	err := r.db.WithContext(ctx).
		Where("guardian_relationship_id = ?", relationshipID).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

func (r *AlertRepository) Delete(ctx context.Context, alertID string) error {
	result := r.db.WithContext(ctx).Where("alert_id = ?", alertID).Delete(&model.Alert{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}
