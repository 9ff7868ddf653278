package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/skportal/feedback-inbox/internal/model"
)

// ValidateMessageContent validates outgoing message text.
func ValidateMessageContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message cannot be empty")
	}
	if len(content) > 10000 {
		return errors.New("message exceeds maximum length")
	}
	if !utf8.ValidString(content) {
		return errors.New("message must be valid UTF-8")
	}
	return nil
}

// ValidateConversationID validates a conversation ID. Upstream IDs are
// opaque, so only shape is checked.
func ValidateConversationID(id string) error {
	if id == "" {
		return errors.New("conversation ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("conversation ID exceeds maximum length")
	}
	return nil
}

// ValidateAgentID validates an agent ID.
func ValidateAgentID(id string) error {
	if id == "" {
		return errors.New("agent ID cannot be empty")
	}
	if len(id) > 128 {
		return errors.New("agent ID exceeds maximum length")
	}
	return nil
}

// ValidateStatus validates a conversation status value.
func ValidateStatus(status model.Status) error {
	if !status.Valid() {
		return errors.New("unknown status value")
	}
	return nil
}

// ValidateCategory validates a category filter value, allowing the "all"
// sentinel and empty.
func ValidateCategory(category string) error {
	if category == "" || category == "all" {
		return nil
	}
	if !model.Category(category).Valid() {
		return errors.New("unknown category value")
	}
	return nil
}

// ValidateStatusFilter validates a status filter value, allowing the "all"
// sentinel and empty.
func ValidateStatusFilter(status string) error {
	if status == "" || status == "all" {
		return nil
	}
	if !model.Status(status).Valid() {
		return errors.New("unknown status value")
	}
	return nil
}
