package model

import (
	"strings"
	"time"
)

// SenderType represents who authored a message.
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAgent SenderType = "agent"
	SenderBot   SenderType = "bot"
)

// TempIDPrefix marks client-generated provisional message IDs. A provisional
// ID is replaced by the server-assigned ID on send confirmation and must never
// leave the client.
const TempIDPrefix = "tmp-"

// Message represents one utterance within a conversation.
type Message struct {
	// Identity. ID is the server ID, or a temporary client-generated ID
	// while a send is pending confirmation.
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`

	// Content
	Text       string     `json:"message"`
	SenderType SenderType `json:"sender_type"`
	SenderName string     `json:"sender_info,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Transient send-state flags. Never set on messages that came from the
	// server; carried to the UI so a pending or failed send stays visible.
	IsSending bool `json:"is_sending,omitempty"`
	IsError   bool `json:"is_error,omitempty"`
}

// Provisional reports whether the message is a client-side entry still
// awaiting reconciliation with the server (pending or failed).
func (m *Message) Provisional() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// SendMessageRequest is the request to create a new message.
type SendMessageRequest struct {
	Text string `json:"message"`
}

// SendMessageResponse is the upstream acknowledgement of a sent message.
type SendMessageResponse struct {
	MessageID string `json:"message_id"`
}
