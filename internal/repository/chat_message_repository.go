package repository

import (
	"context"

	"teleconsult-be/internal/model"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *model.ChatMessage) error

	// CreateWithLimit inserts the message only while the consultation holds
	// fewer than limit persisted messages. The count and insert run inside one
	// transaction that locks the consultation row, so two racing sends cannot
	// both slip under the cap. Returns created=false with the current count
	// when the cap is hit.
	CreateWithLimit(ctx context.Context, message *model.ChatMessage, limit int) (created bool, count int64, err error)

	ListByConsultation(ctx context.Context, consultationID uuid.UUID, limit, offset int) ([]model.ChatMessage, int64, error)
	CountByConsultation(ctx context.Context, consultationID uuid.UUID) (int64, error)
	MarkReadByConsultation(ctx context.Context, consultationID uuid.UUID, senderType string) error
}
