package repository

import (
	"context"
	"time"

	"teleconsult-be/internal/model"

	"github.com/google/uuid"
)

type ConsultationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
	UpdateLastMessage(ctx context.Context, id uuid.UUID, sender string, at time.Time, hasUnread bool) error
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error
	ClearUnread(ctx context.Context, id uuid.UUID) error
}
