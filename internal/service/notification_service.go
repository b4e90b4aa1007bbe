package service

import (
	"context"
	"encoding/json"
	"fmt"

	"teleconsult-be/internal/dto"
	"teleconsult-be/internal/model"
	"teleconsult-be/internal/pkg/logger"
	"teleconsult-be/internal/repository"
	"teleconsult-be/pkg/events"
	pktNats "teleconsult-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EmailTopic is the in-process queue drained by the email dispatch service.
const EmailTopic = "NOTIFY_EMAIL"

// NotificationDelivery defines how to push real-time updates.
// Typically implemented by the WebSocket Hub.
type NotificationDelivery interface {
	SendToDoctor(doctorID uuid.UUID, notification model.Notification)
}

type NotificationService struct {
	repo       repository.NotificationRepository
	doctors    repository.DoctorRepository
	subscriber *pktNats.Subscriber
	delivery   NotificationDelivery
	emailQueue *gochannel.GoChannel
	logger     logger.ILogger
}

func NewNotificationService(
	repo repository.NotificationRepository,
	doctors repository.DoctorRepository,
	sub *pktNats.Subscriber,
	delivery NotificationDelivery,
	emailQueue *gochannel.GoChannel,
	log logger.ILogger,
) *NotificationService {
	return &NotificationService{
		repo:       repo,
		doctors:    doctors,
		subscriber: sub,
		delivery:   delivery,
		emailQueue: emailQueue,
		logger:     log,
	}
}

// Start begins listening to the event bus with a durable consumer.
func (s *NotificationService) Start() {
	err := s.subscriber.Subscribe("consult."+events.TypeChatMessageReceived, "notif-worker", s.handleChatMessageReceived)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to start notification subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("NotificationService", "Notification service started", nil)
}

// handleChatMessageReceived turns one chat domain event into an in-app
// notification and, when the doctor allows it, an email job. Every step is
// best-effort relative to the chat message itself, which was persisted and
// broadcast before this event was even published.
func (s *NotificationService) handleChatMessageReceived(ctx context.Context, event events.Event) error {
	payload := event.Payload()

	doctorIDStr, _ := payload["doctor_id"].(string)
	doctorID, err := uuid.Parse(doctorIDStr)
	if err != nil {
		s.logger.Warn("NotificationService", "Event missing doctor_id, dropping", map[string]interface{}{"payload": payload})
		return nil
	}

	patientName, _ := payload["patient_name"].(string)
	preview, _ := payload["preview"].(string)
	consultationID, _ := payload["consultation_id"].(string)

	doctor, err := s.doctors.GetByID(ctx, doctorID)
	if err != nil {
		return err // NATS will retry
	}
	if doctor == nil {
		s.logger.Warn("NotificationService", "Doctor not found, dropping event", map[string]interface{}{"doctor_id": doctorIDStr})
		return nil
	}

	metaMap := make(map[string]interface{})
	for k, v := range payload {
		metaMap[k] = v
	}
	if consultationID != "" {
		metaMap["action_url"] = fmt.Sprintf("/consultations/%s", consultationID)
	}
	metaJSON, _ := json.Marshal(metaMap)

	notif := model.Notification{
		ID:       uuid.New(),
		DoctorID: doctorID,
		TypeCode: model.NotificationTypeNewChatMessage,
		Title:    "New message",
		Message:  fmt.Sprintf("%s sent you a new message", patientName),
		Metadata: datatypes.JSON(metaJSON),
		IsRead:   false,
	}

	if err := s.repo.CreateNotification(ctx, &notif); err != nil {
		s.logger.Error("NotificationService", "Error saving notification", map[string]interface{}{
			"doctor_id": doctorIDStr, "error": err,
		})
		return err
	}

	if s.delivery != nil {
		s.delivery.SendToDoctor(doctorID, notif)
	}

	if doctor.EmailNotificationsEnabled && doctor.Email != "" {
		s.enqueueEmail(dto.EmailJob{
			To:             doctor.Email,
			DoctorName:     doctor.FullName,
			PatientName:    patientName,
			Preview:        preview,
			ConsultationId: consultationID,
		})
	}

	return nil
}

func (s *NotificationService) enqueueEmail(job dto.EmailJob) {
	if s.emailQueue == nil {
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		s.logger.Error("NotificationService", "Failed to marshal email job", map[string]interface{}{"error": err})
		return
	}

	if err := s.emailQueue.Publish(EmailTopic, message.NewMessage(watermill.NewUUID(), payload)); err != nil {
		s.logger.Error("NotificationService", "Failed to enqueue email job", map[string]interface{}{"error": err})
	}
}

// GetNotifications fetches notifications for a doctor.
func (s *NotificationService) GetNotifications(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]model.Notification, int64, error) {
	return s.repo.GetNotificationsByDoctorID(ctx, doctorID, limit, offset)
}

// GetUnreadCount fetches unread count.
func (s *NotificationService) GetUnreadCount(ctx context.Context, doctorID uuid.UUID) (int64, error) {
	return s.repo.GetUnreadCount(ctx, doctorID)
}

// MarkAsRead marks a notification as read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, id)
}

// MarkAllAsRead marks all notifications as read for a doctor.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, doctorID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, doctorID)
}
