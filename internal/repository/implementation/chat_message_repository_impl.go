package implementation

import (
	"context"

	"teleconsult-be/internal/model"
	"teleconsult-be/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatMessageRepositoryImpl struct {
	db *gorm.DB
}

func NewChatMessageRepository(db *gorm.DB) repository.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{db: db}
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *model.ChatMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *ChatMessageRepositoryImpl) CreateWithLimit(ctx context.Context, message *model.ChatMessage, limit int) (bool, int64, error) {
	var created bool
	var count int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialize concurrent sends for the same consultation on its row lock
		// so the count below cannot go stale between read and insert.
		var consultation model.Consultation
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&consultation, "id = ?", message.ConsultationId).Error; err != nil {
			return err
		}

		if err := tx.Model(&model.ChatMessage{}).
			Where("consultation_id = ?", message.ConsultationId).
			Count(&count).Error; err != nil {
			return err
		}

		if count >= int64(limit) {
			return nil
		}

		if err := tx.Create(message).Error; err != nil {
			return err
		}
		created = true
		count++
		return nil
	})

	return created, count, err
}

func (r *ChatMessageRepositoryImpl) ListByConsultation(ctx context.Context, consultationID uuid.UUID, limit, offset int) ([]model.ChatMessage, int64, error) {
	var messages []model.ChatMessage
	var total int64

	db := r.db.WithContext(ctx).Model(&model.ChatMessage{}).Where("consultation_id = ?", consultationID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error

	return messages, total, err
}

func (r *ChatMessageRepositoryImpl) CountByConsultation(ctx context.Context, consultationID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("consultation_id = ?", consultationID).
		Count(&count).Error
	return count, err
}

func (r *ChatMessageRepositoryImpl) MarkReadByConsultation(ctx context.Context, consultationID uuid.UUID, senderType string) error {
	return r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Where("consultation_id = ? AND sender_type = ? AND is_read = ?", consultationID, senderType, false).
		Update("is_read", true).Error
}
