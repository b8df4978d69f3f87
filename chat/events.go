// Package chat implements the StayHub chat client: a realtime websocket
// transport, an in-memory conversation store, the active message
// timeline, and presence/typing tracking. All chat state lives in
// memory and is rebuilt from the REST API on demand.
package chat

import (
	"encoding/json"

	"github.com/StayHubLab/stayhub-go/api"
)

// EventType identifies the type of a realtime event.
type EventType string

const (
	// Client -> Server
	EventJoinConversation  EventType = "joinConversation"
	EventLeaveConversation EventType = "leaveConversation"
	EventSendMessage       EventType = "sendMessage"
	EventTyping            EventType = "typing"

	// Server -> Client
	EventNewMessage  EventType = "newMessage"
	EventUserTyping  EventType = "userTyping"
	EventUserOnline  EventType = "userOnline"
	EventUserOffline EventType = "userOffline"
)

// Envelope wraps all realtime events with a type field.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope creates an envelope with the given type and payload.
func NewEnvelope(eventType EventType, data interface{}) (*Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Envelope{Type: eventType, Data: raw}, nil
}

// ParseEnvelope parses a raw frame into an envelope.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// JoinPayload is sent to enter or leave a conversation room.
type JoinPayload struct {
	ConversationID string `json:"conversationId"`
}

// SendPayload is sent to deliver a message over the realtime channel.
type SendPayload struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
}

// TypingPayload reports the local user's typing state.
type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	Typing         bool   `json:"isTyping"`
}

// TypingEvent is pushed when a remote user's typing state changes.
type TypingEvent struct {
	ConversationID string   `json:"conversationId"`
	User           api.User `json:"user"`
	Typing         bool     `json:"isTyping"`
}

// PresenceEvent is pushed when a user comes online or goes offline.
type PresenceEvent struct {
	User api.User `json:"user"`
}
