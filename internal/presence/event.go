package presence

import (
	"encoding/json"
	"time"
)

const (
	EventPresenceAnnounce = "presence-announce"
	EventPresenceSnapshot = "presence-snapshot"
	EventMessageSent      = "message-sent"
	EventMessageReceived  = "message-received"
	EventError            = "error"
)

// Event is the frame exchanged over the realtime channel.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type inboundEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type AnnouncePayload struct {
	UserID string `json:"userId"`
}

type SnapshotPayload struct {
	Users []Online `json:"users"`
}

type MessageSentPayload struct {
	SenderID       string `json:"senderId"`
	ReceiverID     string `json:"receiverId"`
	Text           string `json:"text"`
	ConversationID string `json:"conversationId"`
}

type MessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	SenderID       string    `json:"senderId"`
	ReceiverID     string    `json:"receiverId"`
	Text           string    `json:"text"`
	OfferID        *string   `json:"offerId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func MessageReceived(p MessagePayload) Event {
	return Event{Type: EventMessageReceived, Payload: p}
}

func errorEvent(code, message string) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Code: code, Message: message}}
}
