package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"teleconsult-be/internal/dto"
	"teleconsult-be/internal/pkg/logger"
	"teleconsult-be/internal/service"
	"teleconsult-be/pkg/video"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type inboundEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Router dispatches inbound websocket events. Each connection's read pump
// feeds it one event at a time, so handlers run sequentially per connection;
// cross-connection state (rooms, presence) is owned by the hub and tracker.
type Router struct {
	hub           *Hub
	presence      *PresenceTracker
	chat          *service.ChatService
	consultations *service.ConsultationService
	video         *video.Issuer
	validate      *validator.Validate
	logger        logger.ILogger
}

func NewRouter(
	hub *Hub,
	presence *PresenceTracker,
	chat *service.ChatService,
	consultations *service.ConsultationService,
	videoIssuer *video.Issuer,
	log logger.ILogger,
) *Router {
	return &Router{
		hub:           hub,
		presence:      presence,
		chat:          chat,
		consultations: consultations,
		video:         videoIssuer,
		validate:      validator.New(),
		logger:        log,
	}
}

// Dispatch routes one raw inbound frame. Handler failures surface as an
// `error` event on the originating connection only; nothing is fatal to the
// process.
func (r *Router) Dispatch(c *Client, raw []byte) {
	var env inboundEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		r.emitError(c, "invalid message envelope", err)
		return
	}

	switch env.Event {
	case "join-doctor-room":
		r.handleJoinDoctorRoom(c, env.Data)
	case "join-admin-room":
		r.handleJoinAdminRoom(c, env.Data)
	case "join-patient-room":
		r.handleJoinPatientRoom(c, env.Data)
	case "join-consultation":
		r.handleJoinConsultation(c, env.Data)
	case "user-online-in-consultation":
		r.handleUserOnline(c, env.Data)
	case "user-offline-in-consultation":
		r.handleUserOffline(c, env.Data)
	case "initiate-video-call":
		r.handleInitiateVideoCall(c, env.Data)
	case "accept-video-call":
		r.handleAcceptVideoCall(c, env.Data)
	case "decline-video-call":
		r.handleDeclineVideoCall(c, env.Data)
	case "send-message":
		r.handleSendMessage(c, env.Data)
	case "typing":
		r.handleTyping(c, env.Data)
	case "stop-typing":
		r.handleStopTyping(c, env.Data)
	case "leave-consultation":
		r.handleLeaveConsultation(c, env.Data)
	case "end-consultation":
		r.handleEndConsultation(c, env.Data)
	default:
		r.emitError(c, "unknown event: "+env.Event, nil)
	}
}

func (r *Router) handleJoinDoctorRoom(c *Client, data json.RawMessage) {
	var payload dto.JoinDoctorRoomPayload
	if !r.decode(c, data, &payload) {
		return
	}
	r.hub.Join(c, DoctorRoom(payload.DoctorId))
	r.hub.Emit(c, "joined-doctor-room", map[string]interface{}{"doctorId": payload.DoctorId})
}

func (r *Router) handleJoinAdminRoom(c *Client, data json.RawMessage) {
	var payload dto.JoinAdminRoomPayload
	if !r.decode(c, data, &payload) {
		return
	}
	r.hub.Join(c, AdminRoom(payload.AdminId))
	r.hub.Emit(c, "joined-admin-room", map[string]interface{}{"adminId": payload.AdminId})
}

func (r *Router) handleJoinPatientRoom(c *Client, data json.RawMessage) {
	var payload dto.JoinPatientRoomPayload
	if !r.decode(c, data, &payload) {
		return
	}
	r.hub.Join(c, PatientRoom(payload.PatientId))
	r.hub.Emit(c, "joined-patient-room", map[string]interface{}{"patientId": payload.PatientId})
}

func (r *Router) handleJoinConsultation(c *Client, data json.RawMessage) {
	var payload dto.JoinConsultationPayload
	if !r.decode(c, data, &payload) {
		return
	}

	room := ConsultationRoom(payload.ConsultationId)
	r.hub.Join(c, room)
	c.UserType = payload.UserType
	c.UserName = payload.UserName
	c.setCurrentConsultation(payload.ConsultationId)

	transitioned := r.presence.SetOnline(payload.ConsultationId, payload.UserType, c.ID)

	r.hub.Emit(c, "joined-consultation", map[string]interface{}{
		"consultationId": payload.ConsultationId,
	})

	now := time.Now()
	r.hub.BroadcastRoom(room, "user-joined", map[string]interface{}{
		"userType":  payload.UserType,
		"userName":  payload.UserName,
		"timestamp": now,
	}, c)

	if transitioned {
		r.hub.BroadcastRoom(room, "user-status-changed", map[string]interface{}{
			"userType":  payload.UserType,
			"isOnline":  true,
			"timestamp": now,
		}, c)
	}

	// Echo the current state of the other party so a late joiner renders
	// correct presence without waiting on a future transition.
	for _, userType := range r.presence.OnlineTypes(payload.ConsultationId) {
		if userType == payload.UserType {
			continue
		}
		r.hub.Emit(c, "user-status-changed", map[string]interface{}{
			"userType":  userType,
			"isOnline":  true,
			"timestamp": now,
		})
	}
}

func (r *Router) handleUserOnline(c *Client, data json.RawMessage) {
	var payload dto.PresencePayload
	if !r.decode(c, data, &payload) {
		return
	}
	r.presence.SetOnline(payload.ConsultationId, payload.UserType, c.ID)
	r.hub.BroadcastRoom(ConsultationRoom(payload.ConsultationId), "user-status-changed", map[string]interface{}{
		"userType":  payload.UserType,
		"isOnline":  true,
		"timestamp": time.Now(),
	}, c)
}

func (r *Router) handleUserOffline(c *Client, data json.RawMessage) {
	var payload dto.PresencePayload
	if !r.decode(c, data, &payload) {
		return
	}
	r.presence.SetOffline(payload.ConsultationId, payload.UserType)
	r.hub.BroadcastRoom(ConsultationRoom(payload.ConsultationId), "user-status-changed", map[string]interface{}{
		"userType":  payload.UserType,
		"isOnline":  false,
		"timestamp": time.Now(),
	}, c)
}

func (r *Router) handleInitiateVideoCall(c *Client, data json.RawMessage) {
	var payload dto.InitiateVideoCallPayload
	if !r.decode(c, data, &payload) {
		return
	}
	if !r.requireMembership(c, payload.ConsultationId) {
		return
	}

	r.hub.BroadcastRoom(ConsultationRoom(payload.ConsultationId), "incoming-video-call", map[string]interface{}{
		"consultationId": payload.ConsultationId,
		"doctorName":     payload.DoctorName,
		"timestamp":      time.Now(),
	}, c)
}

func (r *Router) handleAcceptVideoCall(c *Client, data json.RawMessage) {
	var payload dto.AcceptVideoCallPayload
	if !r.decode(c, data, &payload) {
		return
	}
	if !r.requireMembership(c, payload.ConsultationId) {
		return
	}

	accepted := map[string]interface{}{
		"consultationId": payload.ConsultationId,
		"patientName":    payload.PatientName,
		"timestamp":      time.Now(),
	}

	// Media setup is the provider's job; a token mint failure must not block
	// the handshake.
	if r.video != nil {
		if token, err := r.video.RoomToken(payload.ConsultationId, payload.PatientName); err == nil {
			accepted["roomToken"] = token
		} else if !errors.Is(err, video.ErrNotConfigured) {
			r.logger.Warn("Router", "Failed to mint media room token", map[string]interface{}{
				"consultation_id": payload.ConsultationId, "error": err.Error(),
			})
		}
	}

	r.hub.BroadcastRoom(ConsultationRoom(payload.ConsultationId), "video-call-accepted", accepted, c)
	r.hub.Emit(c, "video-call-accepted", accepted)
}

func (r *Router) handleDeclineVideoCall(c *Client, data json.RawMessage) {
	var payload dto.DeclineVideoCallPayload
	if !r.decode(c, data, &payload) {
		return
	}
	if !r.requireMembership(c, payload.ConsultationId) {
		return
	}

	r.hub.BroadcastRoom(ConsultationRoom(payload.ConsultationId), "video-call-declined", map[string]interface{}{
		"consultationId": payload.ConsultationId,
		"patientName":    payload.PatientName,
		"reason":         payload.Reason,
		"timestamp":      time.Now(),
	}, c)
}

func (r *Router) handleSendMessage(c *Client, data json.RawMessage) {
	var payload dto.SendMessagePayload
	if !r.decode(c, data, &payload) {
		return
	}
	if !r.requireMembership(c, payload.ConsultationId) {
		return
	}

	consultationID, err := uuid.Parse(payload.ConsultationId)
	if err != nil {
		r.emitError(c, "invalid consultation id", err)
		return
	}

	result, err := r.chat.SendMessage(context.Background(), service.SendMessageInput{
		ConsultationID: consultationID,
		SenderType:     payload.SenderType,
		SenderName:     payload.SenderName,
		Text:           payload.Message,
	})
	if err != nil {
		var limitErr *service.MessageLimitError
		if errors.As(err, &limitErr) {
			r.hub.Emit(c, "message-limit-reached", map[string]interface{}{
				"message":      "Message limit reached for waitlisted patients",
				"limit":        limitErr.Limit,
				"currentCount": limitErr.CurrentCount,
			})
			return
		}
		r.emitError(c, "failed to send message", err)
		return
	}

	wireMessage := map[string]interface{}{
		"id":             result.Message.Id,
		"consultationId": payload.ConsultationId,
		"senderType":     payload.SenderType,
		"senderName":     payload.SenderName,
		"message":        payload.Message,
		"createdAt":      result.Message.CreatedAt,
	}

	r.hub.BroadcastRoom(ConsultationRoom(payload.ConsultationId), "receive-message", wireMessage, c)
	r.hub.Emit(c, "message-sent", wireMessage)

	if result.NotifyDoctor && result.Doctor != nil {
		r.hub.BroadcastRoom(DoctorRoom(result.Doctor.Id.String()), "new-message-notification", map[string]interface{}{
			"consultationId": payload.ConsultationId,
			"patientName":    payload.SenderName,
			"message":        payload.Message,
			"timestamp":      time.Now(),
		}, nil)
	}

	if payload.SenderType == "doctor" {
		r.hub.BroadcastRoom(PatientRoom(result.Consultation.PatientId.String()), "doctor-replied", map[string]interface{}{
			"consultationId": payload.ConsultationId,
			"doctorName":     payload.SenderName,
			"timestamp":      time.Now(),
		}, nil)
	}
}

func (r *Router) handleTyping(c *Client, data json.RawMessage) {
	var payload dto.TypingPayload
	if !r.decode(c, data, &payload) {
		return
	}
	r.hub.BroadcastRoom(ConsultationRoom(payload.ConsultationId), "user-typing", map[string]interface{}{
		"userType": payload.UserType,
		"userName": payload.UserName,
	}, c)
}

func (r *Router) handleStopTyping(c *Client, data json.RawMessage) {
	var payload dto.StopTypingPayload
	if !r.decode(c, data, &payload) {
		return
	}
	r.hub.BroadcastRoom(ConsultationRoom(payload.ConsultationId), "user-stop-typing", map[string]interface{}{}, c)
}

func (r *Router) handleLeaveConsultation(c *Client, data json.RawMessage) {
	var payload dto.LeaveConsultationPayload
	if !r.decode(c, data, &payload) {
		return
	}

	room := ConsultationRoom(payload.ConsultationId)
	now := time.Now()

	// user-left is a navigation-away signal, distinct from the offline
	// transition a network loss produces.
	r.hub.BroadcastRoom(room, "user-left", map[string]interface{}{
		"userType":  payload.UserType,
		"userName":  payload.UserName,
		"timestamp": now,
	}, c)

	if r.presence.SetOfflineIfOwner(payload.ConsultationId, payload.UserType, c.ID) {
		r.hub.BroadcastRoom(room, "user-status-changed", map[string]interface{}{
			"userType":  payload.UserType,
			"isOnline":  false,
			"timestamp": now,
		}, c)
	}

	r.hub.Leave(c, room)
	c.clearCurrentConsultation()
}

func (r *Router) handleEndConsultation(c *Client, data json.RawMessage) {
	var payload dto.EndConsultationPayload
	if !r.decode(c, data, &payload) {
		return
	}

	consultationID, err := uuid.Parse(payload.ConsultationId)
	if err != nil {
		r.emitError(c, "invalid consultation id", err)
		return
	}

	completedAt, err := r.consultations.End(context.Background(), consultationID)
	if err != nil {
		r.emitError(c, "failed to end consultation", err)
		return
	}

	// Everyone in the room hears this one, the caller included.
	r.hub.BroadcastRoom(ConsultationRoom(payload.ConsultationId), "consultation-ended", map[string]interface{}{
		"consultationId": payload.ConsultationId,
		"timestamp":      completedAt,
	}, nil)
}

// HandleDisconnect performs the same cleanup as an explicit leave, plus the
// offline-presence broadcast. Safe to call more than once; the first call
// claims the client's current consultation.
func (r *Router) HandleDisconnect(c *Client) {
	consultationID, had := c.clearCurrentConsultation()
	if !had {
		return
	}

	room := ConsultationRoom(consultationID)
	if r.presence.SetOfflineIfOwner(consultationID, c.UserType, c.ID) {
		r.hub.BroadcastRoom(room, "user-status-changed", map[string]interface{}{
			"userType":  c.UserType,
			"isOnline":  false,
			"timestamp": time.Now(),
		}, c)
	}
	r.hub.Leave(c, room)
}

// requireMembership rejects send/signaling events from connections that
// never joined the consultation room.
func (r *Router) requireMembership(c *Client, consultationID string) bool {
	if r.hub.InRoom(c, ConsultationRoom(consultationID)) {
		return true
	}
	r.emitError(c, "not joined to consultation "+consultationID, nil)
	return false
}

func (r *Router) decode(c *Client, data json.RawMessage, payload interface{}) bool {
	if err := json.Unmarshal(data, payload); err != nil {
		r.emitError(c, "invalid payload", err)
		return false
	}
	if err := r.validate.Struct(payload); err != nil {
		r.emitError(c, "payload validation failed", err)
		return false
	}
	return true
}

func (r *Router) emitError(c *Client, message string, err error) {
	details := map[string]interface{}{"message": message}
	if err != nil {
		details["error"] = err.Error()
	}
	r.logger.Warn("Router", message, details)
	r.hub.Emit(c, "error", details)
}
