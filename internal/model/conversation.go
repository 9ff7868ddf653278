// Package model defines data structures for the feedback inbox.
package model

import (
	"time"
)

// Status represents the lifecycle state of a conversation.
type Status string

const (
	StatusActive   Status = "active"
	StatusPending  Status = "pending"
	StatusResolved Status = "resolved"
	StatusClosed   Status = "closed"
)

// Valid reports whether s is one of the known status values. Transition
// legality between statuses is decided server-side; the client offers all of
// them.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusPending, StatusResolved, StatusClosed:
		return true
	}
	return false
}

// Category represents the kind of feedback a conversation carries.
type Category string

const (
	CategoryInquiry    Category = "inquiry"
	CategoryComplaint  Category = "complaint"
	CategorySuggestion Category = "suggestion"
	CategoryTechnical  Category = "technical"
	CategoryOther      Category = "other"
)

// Valid reports whether c is one of the known category values.
func (c Category) Valid() bool {
	switch c {
	case CategoryInquiry, CategoryComplaint, CategorySuggestion, CategoryTechnical, CategoryOther:
		return true
	}
	return false
}

// UserInfo identifies the resident who opened a conversation.
type UserInfo struct {
	Name      string `json:"name"`
	Barangay  string `json:"barangay,omitempty"`
	Anonymous bool   `json:"anonymous,omitempty"`
}

// Conversation is a support thread summary as held in the list store.
type Conversation struct {
	ID                  string     `json:"id"`
	Subject             string     `json:"subject"`
	Status              Status     `json:"status"`
	Category            Category   `json:"category"`
	UserInfo            UserInfo   `json:"user_info"`
	AssignedTo          *Agent     `json:"assigned_to,omitempty"`
	LatestMessage       string     `json:"latest_message,omitempty"`
	LatestMessageSender SenderType `json:"latest_message_sender,omitempty"`
	UnreadCount         int        `json:"unread_count,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	LastActivity        time.Time  `json:"last_activity"`
}

// ConversationDetail is the full view of one conversation returned by the
// upstream API: metadata plus the complete (or delta) message history.
type ConversationDetail struct {
	Conversation Conversation `json:"conversation"`
	Messages     []Message    `json:"messages"`
}

// SetStatusRequest is the request to change a conversation's status.
type SetStatusRequest struct {
	Status Status `json:"status"`
}

// AssignRequest is the request to assign a conversation to an agent.
type AssignRequest struct {
	AgentID string `json:"agent_id"`
}
