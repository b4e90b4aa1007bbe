package model

import (
	"time"

	"github.com/google/uuid"
)

type Doctor struct {
	Id                        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email                     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName                  string    `gorm:"type:varchar(255);not null" json:"full_name"`
	ChatNotificationsEnabled  bool      `gorm:"default:true" json:"chat_notifications_enabled"`
	EmailNotificationsEnabled bool      `gorm:"default:true" json:"email_notifications_enabled"`
	CreatedAt                 time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                 time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Doctor) TableName() string {
	return "doctors"
}
