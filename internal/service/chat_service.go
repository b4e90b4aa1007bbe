package service

import (
	"context"
	"strings"
	"time"

	"teleconsult-be/internal/model"
	"teleconsult-be/internal/pkg/logger"
	"teleconsult-be/internal/repository"
	"teleconsult-be/pkg/events"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// EventPublisher abstracts the NATS publisher so the relay can be tested
// without a broker.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// patientStatusCacheTTL bounds how long a WAITLISTED→ACTIVE promotion can
// keep a patient message-capped. Doctor preferences use the cache default.
const patientStatusCacheTTL = 30 * time.Second

// SendMessageInput carries the wire-level send request. SenderType travels
// lowercase ("doctor"/"patient") as it does on the websocket protocol.
type SendMessageInput struct {
	ConsultationID uuid.UUID
	SenderType     string
	SenderName     string
	Text           string
}

// SendMessageResult is everything the event router needs to finish the
// fanout after persistence has completed.
type SendMessageResult struct {
	Message      *model.ChatMessage
	Consultation *model.Consultation

	// NotifyDoctor is set when the patient sent and the doctor has chat
	// notifications enabled; the router then emits the unread-badge event.
	NotifyDoctor bool
	Doctor       *model.Doctor
}

type ChatService struct {
	consultations repository.ConsultationRepository
	messages      repository.ChatMessageRepository
	doctors       repository.DoctorRepository
	patients      repository.PatientRepository
	publisher     EventPublisher
	cache         *gocache.Cache
	limit         int
	logger        logger.ILogger
}

func NewChatService(
	consultations repository.ConsultationRepository,
	messages repository.ChatMessageRepository,
	doctors repository.DoctorRepository,
	patients repository.PatientRepository,
	publisher EventPublisher,
	waitlistLimit int,
	log logger.ILogger,
) *ChatService {
	return &ChatService{
		consultations: consultations,
		messages:      messages,
		doctors:       doctors,
		patients:      patients,
		publisher:     publisher,
		cache:         gocache.New(5*time.Minute, 10*time.Minute),
		limit:         waitlistLimit,
		logger:        log,
	}
}

// SendMessage validates, persists and prepares fanout for one chat message.
//
// Persistence and the consultation metadata update always complete before
// any notification is attempted; a fanout failure is logged, never returned.
// For waitlisted patients the cap check and the insert run as one atomic
// store operation, so racing sends cannot exceed the cap.
func (s *ChatService) SendMessage(ctx context.Context, in SendMessageInput) (*SendMessageResult, error) {
	consultation, err := s.consultations.GetByID(ctx, in.ConsultationID)
	if err != nil {
		return nil, err
	}
	if consultation == nil {
		return nil, ErrConsultationNotFound
	}

	patient, err := s.getPatient(ctx, consultation.PatientId)
	if err != nil {
		return nil, err
	}

	message := &model.ChatMessage{
		ConsultationId: in.ConsultationID,
		SenderType:     strings.ToUpper(in.SenderType),
		SenderName:     in.SenderName,
		Text:           in.Text,
	}

	if patient.Status == model.PatientStatusWaitlisted {
		created, count, err := s.messages.CreateWithLimit(ctx, message, s.limit)
		if err != nil {
			return nil, err
		}
		if !created {
			return nil, &MessageLimitError{Limit: s.limit, CurrentCount: count}
		}
	} else {
		if err := s.messages.Create(ctx, message); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	hasUnread := in.SenderType == "patient"
	if err := s.consultations.UpdateLastMessage(ctx, in.ConsultationID, in.SenderType, now, hasUnread); err != nil {
		// The message is already durable; a stale thread summary is not
		// worth failing the send over.
		s.logger.Error("ChatService", "Failed to update consultation metadata", map[string]interface{}{
			"consultation_id": in.ConsultationID, "error": err.Error(),
		})
	}

	result := &SendMessageResult{
		Message:      message,
		Consultation: consultation,
	}

	if in.SenderType == "patient" {
		doctor, err := s.getDoctor(ctx, consultation.DoctorId)
		if err != nil {
			s.logger.Error("ChatService", "Failed to resolve doctor for fanout", map[string]interface{}{
				"doctor_id": consultation.DoctorId, "error": err.Error(),
			})
			return result, nil
		}
		result.Doctor = doctor

		if doctor.ChatNotificationsEnabled {
			result.NotifyDoctor = true
			s.publishMessageReceived(ctx, consultation, message)
		}
	}

	return result, nil
}

// publishMessageReceived hands the "new chat" domain event to the bus.
// Best-effort: the message is already persisted and broadcast either way.
func (s *ChatService) publishMessageReceived(ctx context.Context, consultation *model.Consultation, message *model.ChatMessage) {
	if s.publisher == nil {
		return
	}

	evt := events.BaseEvent{
		Type: events.TypeChatMessageReceived,
		Data: map[string]interface{}{
			"doctor_id":       consultation.DoctorId.String(),
			"patient_id":      consultation.PatientId.String(),
			"consultation_id": consultation.Id.String(),
			"message_id":      message.Id.String(),
			"patient_name":    message.SenderName,
			"preview":         preview(message.Text, 120),
		},
		OccurredAt: time.Now(),
	}

	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Error("ChatService", "Failed to publish chat event", map[string]interface{}{
			"consultation_id": consultation.Id, "error": err.Error(),
		})
	}
}

func (s *ChatService) getPatient(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	key := "patient:" + id.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Patient), nil
	}

	patient, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, ErrPatientNotFound
	}

	s.cache.Set(key, patient, patientStatusCacheTTL)
	return patient, nil
}

func (s *ChatService) getDoctor(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	key := "doctor:" + id.String()
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*model.Doctor), nil
	}

	doctor, err := s.doctors.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doctor == nil {
		return nil, ErrDoctorNotFound
	}

	s.cache.Set(key, doctor, gocache.DefaultExpiration)
	return doctor, nil
}

// preview truncates on a rune boundary; message text is user input and may
// be multi-byte.
func preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}
