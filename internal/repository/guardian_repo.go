package repository

import (
	"context"
	"errors"

	"guardianledger/internal/apperr"
	"guardianledger/internal/model"

	"gorm.io/gorm"
)

var (
	ErrGuardianNotFound      = apperr.NotFound("guardian relationship not found")
	ErrGuardianDuplicate     = apperr.Conflict("guardian relationship already exists")
	ErrGuardianStatusInvalid = apperr.InvalidState("guardian relationship status does not allow this operation")
)

type GuardianRepository struct {
	db *gorm.DB
}

func NewGuardianRepository(db *gorm.DB) *GuardianRepository {
	return &GuardianRepository{db: db}
}

func (r *GuardianRepository) Create(ctx context.Context, rel *model.GuardianRelationship) error {
	err := r.db.WithContext(ctx).Create(rel).Error
	if isDuplicateKey(err) {
		return ErrGuardianDuplicate
	}
	return err
}

func (r *GuardianRepository) GetByID(ctx context.Context, relationshipID string) (*model.GuardianRelationship, error) {
	var rel model.GuardianRelationship
	err := r.db.WithContext(ctx).Where("guardian_relationship_id = ?", relationshipID).First(&rel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGuardianNotFound
		}
		return nil, err
	}
	return &rel, nil
}

// FindActiveForSenior 取 senior 最早建立的有效监护关系，没有时返回 nil, nil
func (r *GuardianRepository) FindActiveForSenior(ctx context.Context, tx *gorm.DB, seniorUserID string) (*model.GuardianRelationship, error) {
	var rel model.GuardianRelationship
	err := conn(r.db, tx).WithContext(ctx).
		Where("senior_user_id = ? AND status = ?", seniorUserID, model.GuardianStatusActive).
		Order("id ASC").
		First(&rel).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rel, nil
}

func (r *GuardianRepository) ExistsPair(ctx context.Context, seniorUserID, guardianUserID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.GuardianRelationship{}).
		Where("senior_user_id = ? AND guardian_user_id = ?", seniorUserID, guardianUserID).
		Count(&count).Error
	return count > 0, err
}

func (r *GuardianRepository) ListBySenior(ctx context.Context, seniorUserID string, limit int) ([]*model.GuardianRelationship, error) {
	var rels []*model.GuardianRelationship
	err := r.db.WithContext(ctx).
		Where("senior_user_id = ?", seniorUserID).
		Order("id ASC").
		Limit(limit).
		Find(&rels).Error
	return rels, err
}

// UpdateStatus 条件更新，只有当前状态仍为 fromStatus 时才生效
func (r *GuardianRepository) UpdateStatus(ctx context.Context, relationshipID, fromStatus, toStatus string) error {
	if !model.CanGuardianTransitionTo(fromStatus, toStatus) {
		return ErrGuardianStatusInvalid
	}

	result := r.db.WithContext(ctx).
		Model(&model.GuardianRelationship{}).
		Where("guardian_relationship_id = ? AND status = ?", relationshipID, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrGuardianStatusInvalid
	}

	return nil
}

func (r *GuardianRepository) Delete(ctx context.Context, relationshipID string) error {
	result := r.db.WithContext(ctx).
		Where("guardian_relationship_id = ?", relationshipID).
		Delete(&model.GuardianRelationship{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrGuardianNotFound
	}
	return nil
}
