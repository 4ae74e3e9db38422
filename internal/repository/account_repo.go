package repository

import (
	"context"
	"errors"

	"guardianledger/internal/apperr"
	"guardianledger/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrAccountNotFound   = apperr.NotFound("account not found")
	ErrInsufficientFunds = apperr.InvalidState("insufficient funds")
)

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *model.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *AccountRepository) GetByAccountID(ctx context.Context, tx *gorm.DB, accountID string) (*model.Account, error) {
	var account model.Account
	err := conn(r.db, tx).WithContext(ctx).Where("account_id = ?", accountID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) ListByOwner(ctx context.Context, ownerUserID string, limit int) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.WithContext(ctx).
		Where("owner_user_id = ?", ownerUserID).
		Order("id ASC").
		Limit(limit).
		Find(&accounts).Error
	return accounts, err
}

func (r *AccountRepository) Delete(ctx context.Context, accountID string) error {
	result := r.db.WithContext(ctx).Where("account_id = ?", accountID).Delete(&model.Account{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Deduct 扣减余额
//
// 不允许透支时余额检查放在 WHERE 条件里，检查和扣减是同一条语句，
// 并发扣款不会把余额扣成负数。
func (r *AccountRepository) Deduct(ctx context.Context, tx *gorm.DB, accountID string, amount decimal.Decimal, allowOverdraft bool) error {
	db := conn(r.db, tx)

	query := db.WithContext(ctx).
		Model(&model.Account{}).
		Where("account_id = ?", accountID)
	if !allowOverdraft {
		query = query.Where("balance >= CAST(? AS DECIMAL(18,2))", amount)
	}

	result := query.Updates(map[string]interface{}{
		"balance": gorm.Expr("balance - CAST(? AS DECIMAL(18,2))", amount),
		"version": gorm.Expr("version + 1"),
	})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.WithContext(ctx).Model(&model.Account{}).Where("account_id = ?", accountID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrAccountNotFound
		}
		return ErrInsufficientFunds
	}

	return nil
}

func (r *AccountRepository) Increase(ctx context.Context, tx *gorm.DB, accountID string, amount decimal.Decimal) error {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Account{}).
		Where("account_id = ?", accountID).
		Updates(map[string]interface{}{
			"balance": gorm.Expr("balance + CAST(? AS DECIMAL(18,2))", amount),
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrAccountNotFound
	}

	return nil
}
