package model

import "encoding/json"

// EventType tags the wire envelope. Inbound types form a closed set;
// anything else is ignored for forward compatibility.
type EventType string

const (
	// Inbound.
	EventHandshake   EventType = "handshake"
	EventJoinChat    EventType = "join_chat"
	EventSendMessage EventType = "send_message"

	// Outbound.
	EventNewMessage  EventType = "new_message"
	EventUserOnline  EventType = "user_online"
	EventUserOffline EventType = "user_offline"
	EventOnlineUsers EventType = "online_users"
	EventError       EventType = "error"
)

// Error codes carried on the error event payload.
const (
	CodeAuth       = "auth_error"
	CodeValidation = "validation_error"
	CodeNotFound   = "not_found"
	CodeSendFailed = "send_failed"
)

// Event is the envelope for everything crossing the websocket.
type Event struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type HandshakePayload struct {
	Token string `json:"token"`
}

type JoinChatPayload struct {
	OtherUserID string `json:"otherUserId"`
}

type SendMessagePayload struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	MediaURL   string `json:"mediaUrl,omitempty"`
}

type PresencePayload struct {
	UserID string `json:"userId"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// NewEvent marshals payload and wraps it in an envelope of type t.
func NewEvent(t EventType, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Event{Type: t, Data: data})
}
