package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	PatientStatusActive     = "ACTIVE"
	PatientStatusWaitlisted = "WAITLISTED"
)

type Patient struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	FullName  string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Status    string    `gorm:"type:varchar(20);not null;default:'WAITLISTED'" json:"status"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}
