package mailer

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

type IEmailService interface {
	SendNewMessageAlert(toEmail, doctorName, patientName, preview, consultationID string) error
}

type emailService struct {
	dialer      *gomail.Dialer
	senderEmail string
	clientURL   string // Used to construct the deep link into the consultation
}

func NewEmailService(host string, port int, username, password, senderEmail, clientURL string) IEmailService {
	d := gomail.NewDialer(host, port, username, password)

	return &emailService{
		dialer:      d,
		senderEmail: senderEmail,
		clientURL:   clientURL,
	}
}

func (s *emailService) SendNewMessageAlert(toEmail, doctorName, patientName, preview, consultationID string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.senderEmail)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", fmt.Sprintf("New message from %s", patientName))

	consultationLink := fmt.Sprintf("%s/consultations/%s", s.clientURL, consultationID)

	body := fmt.Sprintf(`
		<div style="font-family: Arial, sans-serif; padding: 20px; color: #333;">
			<h2>Hi Dr. %s,</h2>
			<p><strong>%s</strong> sent you a new message:</p>
			<blockquote style="border-left: 4px solid #4CAF50; margin: 10px 0; padding: 10px 15px; background: #f9f9f9;">%s</blockquote>
			<a href="%s" style="background-color: #007BFF; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px; display: inline-block;">Open Consultation</a>
			<p>You can disable these emails in your notification settings.</p>
		</div>
	`, doctorName, patientName, preview, consultationLink)

	m.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		fmt.Printf("[MAILER ERROR] Failed to send message alert to %s: %v\n", toEmail, err)
		return err
	}

	fmt.Printf("[MAILER] New message alert sent to %s\n", toEmail)
	return nil
}
