package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"teleconsult-be/internal/model"
	"teleconsult-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

type fakeConsultationRepo struct {
	consultations map[uuid.UUID]*model.Consultation

	lastMessageSender string
	lastMessageUnread bool
	updateCalls       int
	completedAt       *time.Time
	unreadCleared     bool
}

func newFakeConsultationRepo() *fakeConsultationRepo {
	return &fakeConsultationRepo{consultations: make(map[uuid.UUID]*model.Consultation)}
}

func (f *fakeConsultationRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	return f.consultations[id], nil
}

func (f *fakeConsultationRepo) UpdateLastMessage(ctx context.Context, id uuid.UUID, sender string, at time.Time, hasUnread bool) error {
	f.updateCalls++
	f.lastMessageSender = sender
	f.lastMessageUnread = hasUnread
	if c, ok := f.consultations[id]; ok {
		c.LastMessageAt = &at
		c.LastMessageSender = sender
		c.HasUnreadMessages = hasUnread
	}
	return nil
}

func (f *fakeConsultationRepo) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error {
	f.completedAt = &at
	if c, ok := f.consultations[id]; ok {
		c.Status = model.ConsultationStatusCompleted
		c.CompletedAt = &at
	}
	return nil
}

func (f *fakeConsultationRepo) ClearUnread(ctx context.Context, id uuid.UUID) error {
	f.unreadCleared = true
	if c, ok := f.consultations[id]; ok {
		c.HasUnreadMessages = false
	}
	return nil
}

type fakeMessageRepo struct {
	messages map[uuid.UUID][]model.ChatMessage
	limit    int

	markedReadSender string
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID][]model.ChatMessage)}
}

func (f *fakeMessageRepo) Create(ctx context.Context, message *model.ChatMessage) error {
	message.Id = uuid.New()
	message.CreatedAt = time.Now()
	f.messages[message.ConsultationId] = append(f.messages[message.ConsultationId], *message)
	return nil
}

func (f *fakeMessageRepo) CreateWithLimit(ctx context.Context, message *model.ChatMessage, limit int) (bool, int64, error) {
	count := int64(len(f.messages[message.ConsultationId]))
	if count >= int64(limit) {
		return false, count, nil
	}
	return true, count + 1, f.Create(ctx, message)
}

func (f *fakeMessageRepo) ListByConsultation(ctx context.Context, consultationID uuid.UUID, limit, offset int) ([]model.ChatMessage, int64, error) {
	all := f.messages[consultationID]
	return all, int64(len(all)), nil
}

func (f *fakeMessageRepo) CountByConsultation(ctx context.Context, consultationID uuid.UUID) (int64, error) {
	return int64(len(f.messages[consultationID])), nil
}

func (f *fakeMessageRepo) MarkReadByConsultation(ctx context.Context, consultationID uuid.UUID, senderType string) error {
	f.markedReadSender = senderType
	return nil
}

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]*model.Doctor
}

func (f *fakeDoctorRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	return f.doctors[id], nil
}

type fakePatientRepo struct {
	patients map[uuid.UUID]*model.Patient
}

func (f *fakePatientRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	return f.patients[id], nil
}

type fakePublisher struct {
	published []events.Event
	fail      bool
}

func (f *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	if f.fail {
		return errors.New("bus down")
	}
	f.published = append(f.published, event)
	return nil
}

type chatFixture struct {
	service       *ChatService
	consultations *fakeConsultationRepo
	messages      *fakeMessageRepo
	publisher     *fakePublisher

	consultationID uuid.UUID
	doctorID       uuid.UUID
	patientID      uuid.UUID
	doctor         *model.Doctor
	patient        *model.Patient
}

func newChatFixture(t *testing.T, patientStatus string) *chatFixture {
	t.Helper()

	consultationID := uuid.New()
	doctorID := uuid.New()
	patientID := uuid.New()

	consultations := newFakeConsultationRepo()
	consultations.consultations[consultationID] = &model.Consultation{
		Id:        consultationID,
		DoctorId:  doctorID,
		PatientId: patientID,
		Status:    model.ConsultationStatusActive,
	}

	doctor := &model.Doctor{
		Id:                       doctorID,
		Email:                    "doc@example.com",
		FullName:                 "Dr. Sari",
		ChatNotificationsEnabled: true,
	}
	patient := &model.Patient{
		Id:       patientID,
		Email:    "patient@example.com",
		FullName: "Budi",
		Status:   patientStatus,
	}

	messages := newFakeMessageRepo()
	publisher := &fakePublisher{}

	svc := NewChatService(
		consultations,
		messages,
		&fakeDoctorRepo{doctors: map[uuid.UUID]*model.Doctor{doctorID: doctor}},
		&fakePatientRepo{patients: map[uuid.UUID]*model.Patient{patientID: patient}},
		publisher,
		10,
		nopLogger{},
	)

	return &chatFixture{
		service:        svc,
		consultations:  consultations,
		messages:       messages,
		publisher:      publisher,
		consultationID: consultationID,
		doctorID:       doctorID,
		patientID:      patientID,
		doctor:         doctor,
		patient:        patient,
	}
}

func TestSendMessagePersistsAndUpdatesThread(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusActive)

	result, err := f.service.SendMessage(context.Background(), SendMessageInput{
		ConsultationID: f.consultationID,
		SenderType:     "patient",
		SenderName:     "Budi",
		Text:           "Good morning doctor",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, model.SenderTypePatient, result.Message.SenderType)
	assert.NotEqual(t, uuid.Nil, result.Message.Id)
	assert.Len(t, f.messages.messages[f.consultationID], 1)

	assert.Equal(t, 1, f.consultations.updateCalls)
	assert.Equal(t, "patient", f.consultations.lastMessageSender)
	assert.True(t, f.consultations.lastMessageUnread)
}

func TestSendMessageDoctorSenderLeavesThreadRead(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusActive)

	result, err := f.service.SendMessage(context.Background(), SendMessageInput{
		ConsultationID: f.consultationID,
		SenderType:     "doctor",
		SenderName:     "Dr. Sari",
		Text:           "Please rest and hydrate",
	})
	require.NoError(t, err)

	assert.Equal(t, model.SenderTypeDoctor, result.Message.SenderType)
	assert.Equal(t, "doctor", f.consultations.lastMessageSender)
	assert.False(t, f.consultations.lastMessageUnread)

	// Doctor replies never trigger doctor-facing notifications.
	assert.False(t, result.NotifyDoctor)
	assert.Empty(t, f.publisher.published)
}

func TestSendMessageNotifiesDoctorOnPatientMessage(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusActive)

	result, err := f.service.SendMessage(context.Background(), SendMessageInput{
		ConsultationID: f.consultationID,
		SenderType:     "patient",
		SenderName:     "Budi",
		Text:           "I still have a fever",
	})
	require.NoError(t, err)

	assert.True(t, result.NotifyDoctor)
	require.NotNil(t, result.Doctor)
	assert.Equal(t, f.doctorID, result.Doctor.Id)

	require.Len(t, f.publisher.published, 1)
	evt := f.publisher.published[0]
	assert.Equal(t, events.TypeChatMessageReceived, evt.EventType())
	assert.Equal(t, f.doctorID.String(), evt.Payload()["doctor_id"])
	assert.Equal(t, "I still have a fever", evt.Payload()["preview"])
}

func TestSendMessageRespectsDoctorNotificationPreference(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusActive)
	f.doctor.ChatNotificationsEnabled = false

	result, err := f.service.SendMessage(context.Background(), SendMessageInput{
		ConsultationID: f.consultationID,
		SenderType:     "patient",
		SenderName:     "Budi",
		Text:           "Hello",
	})
	require.NoError(t, err)

	assert.False(t, result.NotifyDoctor)
	assert.Empty(t, f.publisher.published)
}

func TestSendMessageWaitlistedUnderCap(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusWaitlisted)

	for i := 0; i < 10; i++ {
		_, err := f.service.SendMessage(context.Background(), SendMessageInput{
			ConsultationID: f.consultationID,
			SenderType:     "patient",
			SenderName:     "Budi",
			Text:           "msg",
		})
		require.NoError(t, err)
	}
	assert.Len(t, f.messages.messages[f.consultationID], 10)
}

func TestSendMessageWaitlistedCapReached(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusWaitlisted)

	for i := 0; i < 10; i++ {
		_, err := f.service.SendMessage(context.Background(), SendMessageInput{
			ConsultationID: f.consultationID,
			SenderType:     "patient",
			SenderName:     "Budi",
			Text:           "msg",
		})
		require.NoError(t, err)
	}

	_, err := f.service.SendMessage(context.Background(), SendMessageInput{
		ConsultationID: f.consultationID,
		SenderType:     "patient",
		SenderName:     "Budi",
		Text:           "one too many",
	})

	var limitErr *MessageLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 10, limitErr.Limit)
	assert.Equal(t, int64(10), limitErr.CurrentCount)

	// The rejected message must not be persisted.
	assert.Len(t, f.messages.messages[f.consultationID], 10)
}

func TestSendMessageWaitlistedCapCountsAllSenders(t *testing.T) {
	// The cap applies to the consultation's message total while the patient
	// is waitlisted, regardless of sender, matching the store-level check.
	f := newChatFixture(t, model.PatientStatusWaitlisted)

	for i := 0; i < 10; i++ {
		_, err := f.service.SendMessage(context.Background(), SendMessageInput{
			ConsultationID: f.consultationID,
			SenderType:     "doctor",
			SenderName:     "Dr. Sari",
			Text:           "msg",
		})
		require.NoError(t, err)
	}

	_, err := f.service.SendMessage(context.Background(), SendMessageInput{
		ConsultationID: f.consultationID,
		SenderType:     "patient",
		SenderName:     "Budi",
		Text:           "blocked",
	})
	var limitErr *MessageLimitError
	require.ErrorAs(t, err, &limitErr)
}

func TestSendMessageActivePatientIgnoresCap(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusActive)

	for i := 0; i < 15; i++ {
		_, err := f.service.SendMessage(context.Background(), SendMessageInput{
			ConsultationID: f.consultationID,
			SenderType:     "patient",
			SenderName:     "Budi",
			Text:           "msg",
		})
		require.NoError(t, err)
	}
	assert.Len(t, f.messages.messages[f.consultationID], 15)
}

func TestSendMessageUnknownConsultation(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusActive)

	_, err := f.service.SendMessage(context.Background(), SendMessageInput{
		ConsultationID: uuid.New(),
		SenderType:     "patient",
		SenderName:     "Budi",
		Text:           "hello?",
	})
	assert.ErrorIs(t, err, ErrConsultationNotFound)
}

func TestSendMessagePublishFailureDoesNotFailSend(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusActive)
	f.publisher.fail = true

	result, err := f.service.SendMessage(context.Background(), SendMessageInput{
		ConsultationID: f.consultationID,
		SenderType:     "patient",
		SenderName:     "Budi",
		Text:           "still delivered",
	})
	require.NoError(t, err)
	assert.True(t, result.NotifyDoctor)
	assert.Len(t, f.messages.messages[f.consultationID], 1)
}

func TestSendMessagePatientStatusCacheIsShortLived(t *testing.T) {
	f := newChatFixture(t, model.PatientStatusWaitlisted)

	_, err := f.service.SendMessage(context.Background(), SendMessageInput{
		ConsultationID: f.consultationID,
		SenderType:     "patient",
		SenderName:     "Budi",
		Text:           "hello",
	})
	require.NoError(t, err)

	// A WAITLISTED -> ACTIVE promotion must not stay capped behind a stale
	// cache entry longer than the short TTL.
	item, ok := f.service.cache.Items()["patient:"+f.patientID.String()]
	require.True(t, ok, "patient lookup should be cached")
	ttl := time.Until(time.Unix(0, item.Expiration))
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, patientStatusCacheTTL)
}

func TestPreviewTruncation(t *testing.T) {
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}

	assert.Equal(t, "short", preview("short", 120))
	got := preview(string(long), 120)
	assert.Len(t, got, 123)
	assert.Equal(t, "...", got[120:])
}

func TestPreviewKeepsMultiByteRunesIntact(t *testing.T) {
	long := strings.Repeat("好", 130)

	got := preview(long, 120)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, 123, utf8.RuneCountInString(got))
	assert.Equal(t, "...", got[len(got)-3:])

	// Short multi-byte text passes through untouched.
	assert.Equal(t, "résumé", preview("résumé", 120))
}
