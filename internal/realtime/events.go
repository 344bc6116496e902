package realtime

import (
	"encoding/json"
	"time"

	"github.com/edugather/gatherd/internal/chat"
)

// Event types - Server → Client
const (
	EventMessage           = "message"
	EventMessageAttachment = "message_with_attachment"
	EventMessageUpdated    = "message_updated"
	EventMessagePinned     = "message_pinned"
	EventMessageUnpinned   = "message_unpinned"
	EventMessageDeleted    = "message_deleted"
	EventMessageForwarded  = "message_forwarded"
	EventMeetingStarted    = "meetingStarted"
)

// Event types - Client → Server
const (
	EventMeetingEnded         = "meetingEnded"
	EventUpdateMeetingStatus  = "updateMeetingStatus"
	EventMeetingStatusChanged = "meetingStatusChanged"
)

// Connection scopes for the hello payload.
const (
	ScopeChannel       = "channel"
	ScopeNotifications = "notifications"
)

// Event is the base envelope for all messages on the event connection.
type Event struct {
	Name      string          `json:"event"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// NewEvent builds an outbound event with the current timestamp.
func NewEvent(name string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Name:      name,
		Payload:   data,
		Timestamp: time.Now().Unix(),
	}, nil
}

// HelloPayload authenticates and scopes the connection. Sent as the first
// frame after the websocket upgrade.
type HelloPayload struct {
	Type      string `json:"type" validate:"required,oneof=channel notifications"`
	ChannelID string `json:"channelId" validate:"required_if=Type channel"`
	UserID    string `json:"userId" validate:"required"`
}

// --- Server → Client payloads ---

// MessagePayload carries a full wire message. Used by message,
// message_with_attachment, message_updated, message_pinned, message_unpinned
// and message_forwarded events.
type MessagePayload struct {
	chat.WireMessage
}

// MessageDeletedPayload carries only the id of the deleted message.
type MessageDeletedPayload struct {
	MessageID string `json:"messageId" validate:"required"`
}

// MeetingStartedPayload announces a meeting whose setup completed. A zero
// StartTime means "now".
type MeetingStartedPayload struct {
	MeetingID string    `json:"meetingId" validate:"required"`
	StartTime time.Time `json:"startTime,omitempty"`
}

// --- Client → Server payloads ---

type MeetingEndedPayload struct {
	MeetingID string `json:"meetingId" validate:"required"`
}

type UpdateMeetingStatusPayload struct {
	MeetingID string `json:"meetingId" validate:"required"`
	Status    string `json:"status" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"` // ISO-8601
	Reason    string `json:"reason,omitempty"`
}

type MeetingStatusChangedPayload struct {
	MeetingID string `json:"meetingId" validate:"required"`
	Status    string `json:"status" validate:"required"`
	EndTime   string `json:"endTime" validate:"required"`
}
