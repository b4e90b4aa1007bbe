package repository

import (
	"context"

	"teleconsult-be/internal/model"

	"github.com/google/uuid"
)

type DoctorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
}

type PatientRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Patient, error)
}
