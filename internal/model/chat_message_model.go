package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage rows are immutable once written; only IsRead flips when the
// recipient opens the thread.
type ChatMessage struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	ConsultationId uuid.UUID `gorm:"type:uuid;not null;index:idx_chat_messages_consultation_created,priority:1" json:"consultation_id"`
	SenderType     string    `gorm:"type:varchar(20);not null" json:"sender_type"`
	SenderName     string    `gorm:"type:varchar(255);not null" json:"sender_name"`
	Text           string    `gorm:"type:text;not null" json:"message"`
	IsRead         bool      `gorm:"default:false" json:"is_read"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_chat_messages_consultation_created,priority:2" json:"created_at"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
