package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventName discriminates realtime events on the wire.
type EventName string

const (
	// client -> hub
	EventJoinPersonalRoom  EventName = "join-personal-room"
	EventJoinIncidentRoom  EventName = "join-incident-room"
	EventLeaveIncidentRoom EventName = "leave-incident-room"
	EventChatSend          EventName = "chat-send"

	// hub -> client
	EventIncidentNearby         EventName = "incident-nearby"
	EventResponderJoined        EventName = "responder-joined"
	EventResponderStatusChanged EventName = "responder-status-changed"
	EventIncidentResolved       EventName = "incident-resolved"
	EventChatMessage            EventName = "chat-message"
	EventError                  EventName = "error"
)

// Event is one realtime event kind with a fixed payload schema.
type Event interface {
	EventName() EventName
}

type JoinPersonalRoom struct {
	UserID string `json:"user_id"`
}

type JoinIncidentRoom struct {
	IncidentID string `json:"incident_id"`
}

type LeaveIncidentRoom struct {
	IncidentID string `json:"incident_id"`
}

type ChatSend struct {
	IncidentID string `json:"incident_id"`
	SenderName string `json:"sender_name"`
	Text       string `json:"text"`
}

type IncidentNearby struct {
	Incident       IncidentSummary `json:"incident"`
	DistanceMeters float64         `json:"distance_m"`
}

type ResponderJoined struct {
	IncidentID string        `json:"incident_id"`
	Responder  PublicProfile `json:"responder"`
	Progress   Progress      `json:"progress"`
	JoinedAt   time.Time     `json:"joined_at"`
}

type ResponderStatusChanged struct {
	IncidentID  string   `json:"incident_id"`
	ResponderID string   `json:"responder_id"`
	Progress    Progress `json:"progress"`
}

type IncidentResolved struct {
	IncidentID string `json:"incident_id"`
}

type ChatMessage struct {
	IncidentID string    `json:"incident_id"`
	ID         string    `json:"id"`
	SenderName string    `json:"sender_name"`
	Text       string    `json:"text"`
	SentAt     time.Time `json:"sent_at"`
}

type ErrorNotice struct {
	Message string `json:"message"`
}

func (JoinPersonalRoom) EventName() EventName       { return EventJoinPersonalRoom }
func (JoinIncidentRoom) EventName() EventName       { return EventJoinIncidentRoom }
func (LeaveIncidentRoom) EventName() EventName      { return EventLeaveIncidentRoom }
func (ChatSend) EventName() EventName               { return EventChatSend }
func (IncidentNearby) EventName() EventName         { return EventIncidentNearby }
func (ResponderJoined) EventName() EventName        { return EventResponderJoined }
func (ResponderStatusChanged) EventName() EventName { return EventResponderStatusChanged }
func (IncidentResolved) EventName() EventName       { return EventIncidentResolved }
func (ChatMessage) EventName() EventName            { return EventChatMessage }
func (ErrorNotice) EventName() EventName            { return EventError }

// ChatMessageEvent builds the outbound event for a logged message.
func ChatMessageEvent(m Message) ChatMessage {
	return ChatMessage{
		IncidentID: m.IncidentID,
		ID:         m.ID,
		SenderName: m.SenderName,
		Text:       m.Text,
		SentAt:     m.SentAt,
	}
}

// Frame is the wire envelope: {"event": "<name>", "data": {...}}.
type Frame struct {
	Event EventName       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// EncodeEvent serialises ev into a wire frame.
func EncodeEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	return json.Marshal(Frame{Event: ev.EventName(), Data: data})
}

// DecodeClientEvent parses a frame sent by a client. Only client -> hub
// events are accepted.
func DecodeClientEvent(raw []byte) (Event, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("%w: malformed frame", ErrInvalidInput)
	}

	var ev Event
	switch f.Event {
	case EventJoinPersonalRoom:
		ev = &JoinPersonalRoom{}
	case EventJoinIncidentRoom:
		ev = &JoinIncidentRoom{}
	case EventLeaveIncidentRoom:
		ev = &LeaveIncidentRoom{}
	case EventChatSend:
		ev = &ChatSend{}
	default:
		return nil, fmt.Errorf("%w: unsupported event %q", ErrInvalidInput, f.Event)
	}

	if len(f.Data) > 0 {
		if err := json.Unmarshal(f.Data, ev); err != nil {
			return nil, fmt.Errorf("%w: bad %s payload", ErrInvalidInput, f.Event)
		}
	}
	return ev, nil
}

// PersonalRoom is the room keyed by a user's identity.
func PersonalRoom(userID string) string { return "user:" + userID }

// IncidentRoom is the room keyed by an incident id.
func IncidentRoom(incidentID string) string { return "incident:" + incidentID }
