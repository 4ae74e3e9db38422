package service

import (
	"context"
	"errors"
	"fmt"

	"guardianledger/internal/apperr"
	"guardianledger/internal/model"
	"guardianledger/internal/repository"
	"guardianledger/pkg/idgen"

	"gorm.io/gorm"
)

const maxGuardianList = 20

type GuardianService struct {
	guardianRepo *repository.GuardianRepository
	userRepo     *repository.UserRepository
}

func NewGuardianService(db *gorm.DB) *GuardianService {
	return &GuardianService{
		guardianRepo: repository.NewGuardianRepository(db),
		userRepo:     repository.NewUserRepository(db),
	}
}

// InviteGuardian 按手机号邀请监护人，关系从 pending 开始
func (s *GuardianService) InviteGuardian(ctx context.Context, seniorUserID, guardianPhone string) (*model.GuardianRelationship, error) {
	if _, err := s.userRepo.GetByUserID(ctx, seniorUserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("senior user %s not found", seniorUserID)
		}
		return nil, err
	}

	guardian, err := s.userRepo.GetByPhone(ctx, guardianPhone)
	if err != nil {
		return nil, fmt.Errorf("查询监护人失败: %w", err)
	}
	if guardian == nil {
		return nil, apperr.NotFound("guardian user with this phone number not found")
	}
	if guardian.UserID == seniorUserID {
		return nil, apperr.InvalidArgument("a user cannot be their own guardian")
	}

	exists, err := s.guardianRepo.ExistsPair(ctx, seniorUserID, guardian.UserID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, repository.ErrGuardianDuplicate
	}

	rel := &model.GuardianRelationship{
		GuardianRelationshipID: idgen.NewID(),
		SeniorUserID:           seniorUserID,
		GuardianUserID:         guardian.UserID,
		Status:                 model.GuardianStatusPending,
	}
	if err := s.guardianRepo.Create(ctx, rel); err != nil {
		return nil, err
	}
	return rel, nil
}

func (s *GuardianService) ListForSenior(ctx context.Context, seniorUserID string) ([]*model.GuardianRelationship, error) {
	return s.guardianRepo.ListBySenior(ctx, seniorUserID, maxGuardianList)
}

func (s *GuardianService) AcceptInvitation(ctx context.Context, relationshipID string) (*model.GuardianRelationship, error) {
	return s.transition(ctx, relationshipID, model.GuardianStatusActive)
}

func (s *GuardianService) RevokeRelationship(ctx context.Context, relationshipID string) (*model.GuardianRelationship, error) {
	return s.transition(ctx, relationshipID, model.GuardianStatusRevoked)
}

func (s *GuardianService) transition(ctx context.Context, relationshipID, toStatus string) (*model.GuardianRelationship, error) {
	rel, err := s.guardianRepo.GetByID(ctx, relationshipID)
	if err != nil {
		return nil, err
	}

	if err := s.guardianRepo.UpdateStatus(ctx, relationshipID, rel.Status, toStatus); err != nil {
		return nil, err
	}

	rel.Status = toStatus
	return rel, nil
}

func (s *GuardianService) DeleteRelationship(ctx context.Context, relationshipID string) error {
	return s.guardianRepo.Delete(ctx, relationshipID)
}
