package service

import (
	"context"
	"errors"

	"guardianledger/internal/apperr"
	"guardianledger/internal/model"
	"guardianledger/internal/repository"
	"guardianledger/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const maxAccountList = 10

type AccountService struct {
	accountRepo *repository.AccountRepository
	userRepo    *repository.UserRepository
}

func NewAccountService(db *gorm.DB) *AccountService {
	return &AccountService{
		accountRepo: repository.NewAccountRepository(db),
		userRepo:    repository.NewUserRepository(db),
	}
}

type CreateAccountRequest struct {
	OwnerUserID string
	Balance     decimal.Decimal
	AccountType string
}

// CreateAccount 开户，户主必须存在；余额只能在这里设置初始值
func (s *AccountService) CreateAccount(ctx context.Context, req *CreateAccountRequest) (*model.Account, error) {
	if req.Balance.IsNegative() {
		return nil, apperr.InvalidArgument("initial balance must not be negative")
	}

	if _, err := s.userRepo.GetByUserID(ctx, req.OwnerUserID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperr.NotFound("owner user %s not found", req.OwnerUserID)
		}
		return nil, err
	}

	accountType := req.AccountType
	if accountType == "" {
		accountType = model.AccountTypeSavings
	}

	account := &model.Account{
		AccountID:     idgen.NewID(),
		OwnerUserID:   req.OwnerUserID,
		AccountNumber: idgen.NewAccountNumber(),
		Balance:       req.Balance.Round(2),
		AccountType:   accountType,
		Status:        model.AccountStatusActive,
	}
	if err := s.accountRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *AccountService) GetAccount(ctx context.Context, accountID string) (*model.Account, error) {
	return s.accountRepo.GetByAccountID(ctx, nil, accountID)
}

func (s *AccountService) ListByOwner(ctx context.Context, ownerUserID string) ([]*model.Account, error) {
	return s.accountRepo.ListByOwner(ctx, ownerUserID, maxAccountList)
}

func (s *AccountService) DeleteAccount(ctx context.Context, accountID string) error {
	return s.accountRepo.Delete(ctx, accountID)
}
