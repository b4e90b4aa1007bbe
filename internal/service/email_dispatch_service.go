package service

import (
	"context"
	"encoding/json"
	"log"

	"teleconsult-be/internal/dto"
	"teleconsult-be/internal/pkg/mailer"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IEmailDispatchService interface {
	Consume(ctx context.Context) error
}

// emailDispatchService drains the in-process email queue so slow SMTP
// round-trips never sit on the notification worker's path.
type emailDispatchService struct {
	pubSub *gochannel.GoChannel
	mailer mailer.IEmailService
}

func NewEmailDispatchService(pubSub *gochannel.GoChannel, mail mailer.IEmailService) IEmailDispatchService {
	return &emailDispatchService{
		pubSub: pubSub,
		mailer: mail,
	}
}

func (es *emailDispatchService) Consume(ctx context.Context) error {
	messages, err := es.pubSub.Subscribe(ctx, EmailTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			es.processMessage(msg)
		}
	}()

	return nil
}

func (es *emailDispatchService) processMessage(msg *message.Message) {
	var job dto.EmailJob
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		log.Printf("[ERROR] Failed to unmarshal email job: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if err := es.mailer.SendNewMessageAlert(job.To, job.DoctorName, job.PatientName, job.Preview, job.ConsultationId); err != nil {
		log.Printf("[ERROR] Failed to send message alert to %s: %v", job.To, err)
		msg.Nack() // Retry transient SMTP failures
		return
	}

	msg.Ack()
}
