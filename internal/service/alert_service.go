package service

import (
	"context"

	"guardianledger/internal/model"
	"guardianledger/internal/repository"

	"gorm.io/gorm"
)

const maxAlertList = 50

type AlertService struct {
	alertRepo    *repository.AlertRepository
	guardianRepo *repository.GuardianRepository
}

func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{
		alertRepo:    repository.NewAlertRepository(db),
		guardianRepo: repository.NewGuardianRepository(db),
	}
}

// ListForRelationship 按监护关系列出提醒，最新的在前
func (s *AlertService) ListForRelationship(ctx context.Context, relationshipID string) ([]*model.Alert, error) {
	if _, err := s.guardianRepo.GetByID(ctx, relationshipID); err != nil {
		return nil, err
	}
	return s.alertRepo.ListByRelationship(ctx, relationshipID, maxAlertList)
}

func (s *AlertService) GetAlert(ctx context.Context, alertID string) (*model.Alert, error) {
	return s.alertRepo.GetByAlertID(ctx, alertID)
}

func (s *AlertService) DeleteAlert(ctx context.Context, alertID string) error {
	return s.alertRepo.Delete(ctx, alertID)
}
