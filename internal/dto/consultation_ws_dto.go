package dto

// Inbound websocket event payloads. Validation tags are enforced by the event
// router before any handler runs; user types travel lowercase on the wire.

type JoinDoctorRoomPayload struct {
	DoctorId string `json:"doctorId" validate:"required,uuid"`
}

type JoinAdminRoomPayload struct {
	AdminId string `json:"adminId" validate:"required"`
}

type JoinPatientRoomPayload struct {
	PatientId string `json:"patientId" validate:"required,uuid"`
}

type JoinConsultationPayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
	UserType       string `json:"userType" validate:"required,oneof=doctor patient"`
	UserName       string `json:"userName" validate:"required,max=255"`
}

type PresencePayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
	UserType       string `json:"userType" validate:"required,oneof=doctor patient"`
}

type InitiateVideoCallPayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
	DoctorName     string `json:"doctorName" validate:"required,max=255"`
}

type AcceptVideoCallPayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
	PatientName    string `json:"patientName" validate:"required,max=255"`
}

type DeclineVideoCallPayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
	PatientName    string `json:"patientName" validate:"required,max=255"`
	Reason         string `json:"reason" validate:"max=500"`
}

type SendMessagePayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
	SenderType     string `json:"senderType" validate:"required,oneof=doctor patient"`
	SenderName     string `json:"senderName" validate:"required,max=255"`
	Message        string `json:"message" validate:"required,max=5000"`
}

type TypingPayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
	UserType       string `json:"userType" validate:"required,oneof=doctor patient"`
	UserName       string `json:"userName" validate:"required,max=255"`
}

type StopTypingPayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
}

type LeaveConsultationPayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
	UserType       string `json:"userType" validate:"required,oneof=doctor patient"`
	UserName       string `json:"userName" validate:"required,max=255"`
}

type EndConsultationPayload struct {
	ConsultationId string `json:"consultationId" validate:"required,uuid"`
}

// EmailJob is queued by the notification worker and drained by the email
// dispatch service.
type EmailJob struct {
	To             string `json:"to"`
	DoctorName     string `json:"doctor_name"`
	PatientName    string `json:"patient_name"`
	Preview        string `json:"preview"`
	ConsultationId string `json:"consultation_id"`
}
