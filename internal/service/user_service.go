package service

import (
	"context"
	"fmt"

	"guardianledger/internal/model"
	"guardianledger/internal/repository"
	"guardianledger/pkg/idgen"

	"gorm.io/gorm"
)

const maxUserList = 100

type UserService struct {
	userRepo *repository.UserRepository
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{userRepo: repository.NewUserRepository(db)}
}

type CreateUserRequest struct {
	FullName    string
	PhoneNumber string
	Email       *string
	AgeGroup    *string
	IsActive    bool
}

// UpdateUserRequest nil 字段不修改
type UpdateUserRequest struct {
	FullName *string
	Email    *string
	IsActive *bool
}

func (s *UserService) CreateUser(ctx context.Context, req *CreateUserRequest) (*model.User, error) {
	existing, err := s.userRepo.GetByPhone(ctx, req.PhoneNumber)
	if err != nil {
		return nil, fmt.Errorf("查询手机号失败: %w", err)
	}
	if existing != nil {
		return nil, repository.ErrPhoneDuplicate
	}

	user := &model.User{
		UserID:      idgen.NewID(),
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Email:       req.Email,
		AgeGroup:    req.AgeGroup,
		IsActive:    req.IsActive,
	}
	// 唯一索引兜底并发注册
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.GetByUserID(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context, limit int) ([]*model.User, error) {
	if limit <= 0 || limit > maxUserList {
		limit = maxUserList
	}
	return s.userRepo.List(ctx, limit)
}

func (s *UserService) UpdateUser(ctx context.Context, userID string, req *UpdateUserRequest) (*model.User, error) {
	updates := map[string]interface{}{}
	if req.FullName != nil {
		updates["full_name"] = *req.FullName
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.userRepo.Update(ctx, userID, updates); err != nil {
			return nil, err
		}
	}
	return s.userRepo.GetByUserID(ctx, userID)
}

func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.userRepo.Delete(ctx, userID)
}
