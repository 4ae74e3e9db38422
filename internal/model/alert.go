package model

import (
	"time"

	"guardianledger/pkg/idgen"

	"gorm.io/gorm"
)

const (
	AlertTypeHighAmount = "high_amount"
	AlertStatusSent     = "sent"
)

// Alert 发给监护人的高风险交易提醒
// AlertID 由存储层在写入时生成，调用方不传
type Alert struct {
	AlertID                string    `gorm:"type:varchar(32);primaryKey" json:"alert_id"`
	GuardianRelationshipID string    `gorm:"type:varchar(36);index;not null" json:"guardian_relationship_id"`
	TransactionID          string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"transaction_id"`
	AlertType              string    `gorm:"type:varchar(20);not null" json:"alert_type"`
	Status                 string    `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.AlertID == "" {
		a.AlertID = idgen.GenerateAlertNo()
	}
	return nil
}
