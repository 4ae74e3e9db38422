package repository

import (
	"context"
	"errors"
	"time"

	"guardianledger/internal/apperr"
	"guardianledger/internal/model"

	"gorm.io/gorm"
)

var (
	ErrTransactionNotFound      = apperr.NotFound("transaction not found")
	ErrTransactionStatusInvalid = apperr.InvalidState("transaction is not pending review")
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	return conn(r.db, tx).WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByTransactionID(ctx context.Context, tx *gorm.DB, transactionID string) (*model.Transaction, error) {
	var trans model.Transaction
	err := conn(r.db, tx).WithContext(ctx).Where("transaction_id = ?", transactionID).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// UpdateStatus 状态机迁移
//
// WHERE 带上 fromStatus，相当于 compare-and-swap：两个请求同时审核同一笔交易，
// 只有一个能更新成功，另一个 RowsAffected == 0 返回 ErrTransactionStatusInvalid。
func (r *TransactionRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, transactionID, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrTransactionStatusInvalid
	}

	now := time.Now()
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Transaction{}).
		Where("transaction_id = ? AND status = ?", transactionID, fromStatus).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"resolved_at": &now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrTransactionStatusInvalid
	}

	return nil
}

// MarkGuardianAlerted 标记交易已提醒监护人，只能从 false 变为 true
func (r *TransactionRepository) MarkGuardianAlerted(ctx context.Context, tx *gorm.DB, transactionID string) error {
	result := conn(r.db, tx).WithContext(ctx).
		Model(&model.Transaction{}).
		Where("transaction_id = ? AND guardian_alerted = ?", transactionID, false).
		Update("guardian_alerted", true)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrTransactionStatusInvalid
	}

	return nil
}

// ListUnalertedPending 超过 before 仍处于待审核、且创建时没有提醒过监护人的交易
//
// 判断依据是交易上的 guardian_alerted，提醒记录被删除后交易仍然只能等监护人审核。
func (r *TransactionRepository) ListUnalertedPending(ctx context.Context, before time.Time, limit int) ([]*model.Transaction, error) {
	var transactions []*model.Transaction
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.TransactionStatusPendingReview, before).
		Where("guardian_alerted = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, page, pageSize int) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("source_account_id = ? OR destination_account_id = ?", accountID, accountID).
		Session(&gorm.Session{})

	err := query.Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}
