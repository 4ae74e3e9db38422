package model

import (
	"encoding/json"
	"time"
)

const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

type OutboxMessage struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageKey string    `gorm:"type:varchar(64);not null" json:"message_key"`
	Topic      string    `gorm:"type:varchar(64);not null" json:"topic"`
	Payload    string    `gorm:"type:text;not null" json:"payload"`
	Status     string    `gorm:"type:varchar(20);index;not null;default:PENDING" json:"status"`
	RetryCount int       `gorm:"not null;default:0" json:"retry_count"`
	CreatedAt  time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_message"
}

// NewOutboxMessage 构造待发送消息，payload 序列化为 JSON
func NewOutboxMessage(topic, key string, payload interface{}) (*OutboxMessage, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		MessageKey: key,
		Topic:      topic,
		Payload:    string(b),
		Status:     OutboxStatusPending,
	}, nil
}

// GuardianAlertEvent 监护人提醒消息体
type GuardianAlertEvent struct {
	AlertID                string `json:"alert_id"`
	GuardianRelationshipID string `json:"guardian_relationship_id"`
	GuardianUserID         string `json:"guardian_user_id"`
	SeniorUserID           string `json:"senior_user_id"`
	TransactionID          string `json:"transaction_id"`
	Amount                 string `json:"amount"`
	AlertType              string `json:"alert_type"`
	CreatedAt              string `json:"created_at"`
}

// TransactionResultEvent 交易进入终态时发出
type TransactionResultEvent struct {
	TransactionID        string  `json:"transaction_id"`
	SourceAccountID      string  `json:"source_account_id"`
	DestinationAccountID *string `json:"destination_account_id,omitempty"`
	Amount               string  `json:"amount"`
	Status               string  `json:"status"`
	ResolvedBy           string  `json:"resolved_by"`
	ResolvedAt           string  `json:"resolved_at"`
}
