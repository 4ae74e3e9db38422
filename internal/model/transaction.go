package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TransactionTypeTransfer = "transfer"
)

const (
	TransactionStatusPendingReview = "pending_review"
	TransactionStatusCompleted     = "completed"
	TransactionStatusCancelled     = "cancelled"
)

// completed 和 cancelled 为终态
var transactionTransitions = map[string][]string{
	TransactionStatusPendingReview: {TransactionStatusCompleted, TransactionStatusCancelled},
}

func CanTransitionTo(currentStatus, targetStatus string) bool {
	return allowed(transactionTransitions, currentStatus, targetStatus)
}

func allowed(transitions map[string][]string, currentStatus, targetStatus string) bool {
	allowedStatuses, exists := transitions[currentStatus]
	if !exists {
		return false
	}
	for _, s := range allowedStatuses {
		if s == targetStatus {
			return true
		}
	}
	return false
}

// Transaction 转账交易
// IsFlaggedAsHighRisk 在创建时确定，之后不再变更
// GuardianAlerted 记录创建时是否已提醒监护人，删除提醒不影响它
type Transaction struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	TransactionID        string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"transaction_id"`
	SourceAccountID      string          `gorm:"type:varchar(36);index;not null" json:"source_account_id"`
	DestinationAccountID *string         `gorm:"type:varchar(36);index" json:"destination_account_id"`
	Amount               decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	TransactionType      string          `gorm:"type:varchar(20);not null" json:"transaction_type"`
	Status               string          `gorm:"type:varchar(20);index;not null" json:"status"`
	IsFlaggedAsHighRisk  bool            `gorm:"not null" json:"is_flagged_as_high_risk"`
	GuardianAlerted      bool            `gorm:"not null;default:false;index" json:"guardian_alerted"`
	ResolvedAt           *time.Time      `json:"resolved_at"`
	CreatedAt            time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}
