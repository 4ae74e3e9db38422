package model

import (
	"time"
)

const (
	GuardianStatusPending = "pending"
	GuardianStatusActive  = "active"
	GuardianStatusRevoked = "revoked"
)

var guardianTransitions = map[string][]string{
	GuardianStatusPending: {GuardianStatusActive, GuardianStatusRevoked},
	GuardianStatusActive:  {GuardianStatusRevoked},
}

// CanGuardianTransitionTo 邀请只能被接受一次，撤销后不可恢复
func CanGuardianTransitionTo(currentStatus, targetStatus string) bool {
	return allowed(guardianTransitions, currentStatus, targetStatus)
}

// GuardianRelationship 监护关系：guardian 可以审核 senior 的高风险交易
type GuardianRelationship struct {
	ID                     int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	GuardianRelationshipID string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"guardian_relationship_id"`
	SeniorUserID           string    `gorm:"type:varchar(36);uniqueIndex:idx_senior_guardian;index;not null" json:"senior_user_id"`
	GuardianUserID         string    `gorm:"type:varchar(36);uniqueIndex:idx_senior_guardian;not null" json:"guardian_user_id"`
	Status                 string    `gorm:"type:varchar(20);index;not null" json:"status"`
	CreatedAt              time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (GuardianRelationship) TableName() string {
	return "guardians"
}
