package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountTypeSavings  = "savings"
	AccountStatusActive = "active"
)

// Account 银行账户
// Balance 只允许通过交易结算变动
type Account struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"-"`
	AccountID     string          `gorm:"type:varchar(36);uniqueIndex;not null" json:"account_id"`
	OwnerUserID   string          `gorm:"type:varchar(36);index;not null" json:"owner_user_id"`
	AccountNumber string          `gorm:"type:varchar(12);index;not null" json:"account_number"`
	Balance       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"balance"`
	AccountType   string          `gorm:"type:varchar(20);not null" json:"account_type"`
	Status        string          `gorm:"type:varchar(20);not null" json:"status"`
	Version       int             `gorm:"not null;default:0" json:"-"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}
