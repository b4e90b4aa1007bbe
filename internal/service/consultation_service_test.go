package service

import (
	"context"
	"testing"

	"teleconsult-be/internal/model"
	"teleconsult-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConsultationFixture(t *testing.T) (*ConsultationService, *fakeConsultationRepo, *fakeMessageRepo, uuid.UUID) {
	svc, consultations, messages, _, id := newConsultationFixtureWithBus(t)
	return svc, consultations, messages, id
}

func newConsultationFixtureWithBus(t *testing.T) (*ConsultationService, *fakeConsultationRepo, *fakeMessageRepo, *fakePublisher, uuid.UUID) {
	t.Helper()

	id := uuid.New()
	consultations := newFakeConsultationRepo()
	consultations.consultations[id] = &model.Consultation{
		Id:        id,
		DoctorId:  uuid.New(),
		PatientId: uuid.New(),
		Status:    model.ConsultationStatusActive,
	}
	messages := newFakeMessageRepo()
	publisher := &fakePublisher{}

	svc := NewConsultationService(consultations, messages, publisher, nopLogger{})
	return svc, consultations, messages, publisher, id
}

func TestConsultationGetByID(t *testing.T) {
	svc, _, _, id := newConsultationFixture(t)

	consultation, err := svc.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, consultation.Id)

	_, err = svc.GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrConsultationNotFound)
}

func TestConsultationMarkReadByDoctor(t *testing.T) {
	svc, consultations, messages, id := newConsultationFixture(t)
	consultations.consultations[id].HasUnreadMessages = true

	require.NoError(t, svc.MarkRead(context.Background(), id, "doctor"))

	// Doctor reading marks the patient's messages and clears the badge.
	assert.Equal(t, model.SenderTypePatient, messages.markedReadSender)
	assert.True(t, consultations.unreadCleared)
	assert.False(t, consultations.consultations[id].HasUnreadMessages)
}

func TestConsultationMarkReadByPatient(t *testing.T) {
	svc, consultations, messages, id := newConsultationFixture(t)

	require.NoError(t, svc.MarkRead(context.Background(), id, "patient"))

	assert.Equal(t, model.SenderTypeDoctor, messages.markedReadSender)
	assert.False(t, consultations.unreadCleared)
}

func TestConsultationEnd(t *testing.T) {
	svc, consultations, _, id := newConsultationFixture(t)

	completedAt, err := svc.End(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, completedAt.IsZero())

	stored := consultations.consultations[id]
	assert.Equal(t, model.ConsultationStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, completedAt, *stored.CompletedAt)
}

func TestConsultationEndPublishesCompletionEvent(t *testing.T) {
	svc, consultations, _, publisher, id := newConsultationFixtureWithBus(t)

	completedAt, err := svc.End(context.Background(), id)
	require.NoError(t, err)

	require.Len(t, publisher.published, 1)
	evt := publisher.published[0]
	assert.Equal(t, events.TypeConsultationComplete, evt.EventType())
	assert.Equal(t, id.String(), evt.Payload()["consultation_id"])
	assert.Equal(t, consultations.consultations[id].DoctorId.String(), evt.Payload()["doctor_id"])
	assert.Equal(t, completedAt, evt.Payload()["completed_at"])
}

func TestConsultationEndPublishFailureDoesNotFailEnd(t *testing.T) {
	svc, consultations, _, publisher, id := newConsultationFixtureWithBus(t)
	publisher.fail = true

	_, err := svc.End(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, model.ConsultationStatusCompleted, consultations.consultations[id].Status)
}

func TestConsultationEndIsIdempotent(t *testing.T) {
	svc, consultations, _, id := newConsultationFixture(t)

	_, err := svc.End(context.Background(), id)
	require.NoError(t, err)
	_, err = svc.End(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, model.ConsultationStatusCompleted, consultations.consultations[id].Status)
}

func TestConsultationEndUnknownID(t *testing.T) {
	svc, _, _, _ := newConsultationFixture(t)

	_, err := svc.End(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrConsultationNotFound)
}
