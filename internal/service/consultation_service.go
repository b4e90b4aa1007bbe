package service

import (
	"context"
	"time"

	"teleconsult-be/internal/model"
	"teleconsult-be/internal/pkg/logger"
	"teleconsult-be/internal/repository"
	"teleconsult-be/pkg/events"

	"github.com/google/uuid"
)

type ConsultationService struct {
	consultations repository.ConsultationRepository
	messages      repository.ChatMessageRepository
	publisher     EventPublisher
	logger        logger.ILogger
}

func NewConsultationService(
	consultations repository.ConsultationRepository,
	messages repository.ChatMessageRepository,
	publisher EventPublisher,
	log logger.ILogger,
) *ConsultationService {
	return &ConsultationService{
		consultations: consultations,
		messages:      messages,
		publisher:     publisher,
		logger:        log,
	}
}

func (s *ConsultationService) GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	consultation, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if consultation == nil {
		return nil, ErrConsultationNotFound
	}
	return consultation, nil
}

func (s *ConsultationService) History(ctx context.Context, id uuid.UUID, limit, offset int) ([]model.ChatMessage, int64, error) {
	return s.messages.ListByConsultation(ctx, id, limit, offset)
}

// MarkRead flags the other party's messages as read. A doctor reading the
// thread also clears the consultation's unread badge.
func (s *ConsultationService) MarkRead(ctx context.Context, id uuid.UUID, readerType string) error {
	senderType := model.SenderTypePatient
	if readerType == "patient" {
		senderType = model.SenderTypeDoctor
	}

	if err := s.messages.MarkReadByConsultation(ctx, id, senderType); err != nil {
		return err
	}

	if readerType == "doctor" {
		return s.consultations.ClearUnread(ctx, id)
	}
	return nil
}

// End marks the consultation COMPLETED. Completion is terminal, so a repeat
// call simply rewrites the same state; no race guard is needed.
func (s *ConsultationService) End(ctx context.Context, id uuid.UUID) (time.Time, error) {
	consultation, err := s.consultations.GetByID(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	if consultation == nil {
		return time.Time{}, ErrConsultationNotFound
	}

	completedAt := time.Now()
	if err := s.consultations.MarkCompleted(ctx, id, completedAt); err != nil {
		return time.Time{}, err
	}

	s.logger.Info("ConsultationService", "Consultation completed", map[string]interface{}{
		"consultation_id": id,
	})

	// Downstream consumers (alerting, reporting) hear about completion over
	// the bus. Best-effort, same as the chat event.
	if s.publisher != nil {
		evt := events.BaseEvent{
			Type: events.TypeConsultationComplete,
			Data: map[string]interface{}{
				"consultation_id": id.String(),
				"doctor_id":       consultation.DoctorId.String(),
				"patient_id":      consultation.PatientId.String(),
				"completed_at":    completedAt,
			},
			OccurredAt: completedAt,
		}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Error("ConsultationService", "Failed to publish completion event", map[string]interface{}{
				"consultation_id": id, "error": err.Error(),
			})
		}
	}

	return completedAt, nil
}
