package implementation

import (
	"context"
	"errors"
	"time"

	"teleconsult-be/internal/model"
	"teleconsult-be/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ConsultationRepositoryImpl struct {
	db *gorm.DB
}

func NewConsultationRepository(db *gorm.DB) repository.ConsultationRepository {
	return &ConsultationRepositoryImpl{db: db}
}

func (r *ConsultationRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	var consultation model.Consultation
	err := r.db.WithContext(ctx).First(&consultation, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &consultation, nil
}

func (r *ConsultationRepositoryImpl) UpdateLastMessage(ctx context.Context, id uuid.UUID, sender string, at time.Time, hasUnread bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Consultation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message_at":     at,
			"last_message_sender": sender,
			"has_unread_messages": hasUnread,
		}).Error
}

func (r *ConsultationRepositoryImpl) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&model.Consultation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.ConsultationStatusCompleted,
			"completed_at": at,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("consultation not found")
	}
	return nil
}

func (r *ConsultationRepositoryImpl) ClearUnread(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Consultation{}).
		Where("id = ?", id).
		Update("has_unread_messages", false).Error
}
