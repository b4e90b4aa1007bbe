package service

import (
	"errors"
	"fmt"
)

var (
	ErrConsultationNotFound = errors.New("consultation not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrDoctorNotFound       = errors.New("doctor not found")
)

// MessageLimitError is the policy rejection for waitlisted patients. It is a
// dedicated type because the client must distinguish "limit reached" from
// "something broke".
type MessageLimitError struct {
	Limit        int
	CurrentCount int64
}

func (e *MessageLimitError) Error() string {
	return fmt.Sprintf("message limit reached: %d of %d messages used", e.CurrentCount, e.Limit)
}
