package model

import (
	"time"
)

type User struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID      string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	FullName    string    `gorm:"type:varchar(128);not null" json:"full_name"`
	PhoneNumber string    `gorm:"type:varchar(11);uniqueIndex;not null" json:"phone_number"`
	Email       *string   `gorm:"type:varchar(128)" json:"email"`
	AgeGroup    *string   `gorm:"type:varchar(32)" json:"age_group"`
	IsActive    bool      `gorm:"not null;default:false" json:"is_active"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
