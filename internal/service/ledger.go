package service

import (
	"context"
	"errors"

	"guardianledger/internal/apperr"
	"guardianledger/internal/model"
	"guardianledger/internal/repository"

	"gorm.io/gorm"
)

// Ledger 结算：扣减转出账户，增加转入账户
//
// 两步都在调用方传入的 tx 中执行，任何一步失败整笔回滚。
type Ledger struct {
	accountRepo    *repository.AccountRepository
	allowOverdraft bool
}

func NewLedger(db *gorm.DB, allowOverdraft bool) *Ledger {
	return &Ledger{
		accountRepo:    repository.NewAccountRepository(db),
		allowOverdraft: allowOverdraft,
	}
}

func (l *Ledger) Settle(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	err := l.accountRepo.Deduct(ctx, tx, trans.SourceAccountID, trans.Amount, l.allowOverdraft)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return apperr.NotFound("source account %s not found", trans.SourceAccountID)
		}
		return err
	}

	if trans.DestinationAccountID == nil {
		return nil
	}

	err = l.accountRepo.Increase(ctx, tx, *trans.DestinationAccountID, trans.Amount)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return apperr.NotFound("destination account %s not found", *trans.DestinationAccountID)
		}
		return err
	}

	return nil
}
