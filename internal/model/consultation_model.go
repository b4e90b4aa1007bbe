package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ConsultationStatusActive    = "ACTIVE"
	ConsultationStatusCompleted = "COMPLETED"
)

const (
	SenderTypeDoctor  = "DOCTOR"
	SenderTypePatient = "PATIENT"
)

type Consultation struct {
	Id                uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	DoctorId          uuid.UUID `gorm:"type:uuid;not null;index" json:"doctor_id"`
	PatientId         uuid.UUID `gorm:"type:uuid;not null;index" json:"patient_id"`
	Status            string    `gorm:"type:varchar(20);not null;default:'ACTIVE'" json:"status"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
	LastMessageSender string     `gorm:"type:varchar(20)" json:"last_message_sender,omitempty"`
	HasUnreadMessages bool       `gorm:"default:false" json:"has_unread_messages"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Consultation) TableName() string {
	return "consultations"
}
