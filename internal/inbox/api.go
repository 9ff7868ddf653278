// Package inbox implements the client-side synchronization engine for the
// feedback inbox: the conversation list store, the open-conversation session,
// the optimistic send pipeline, the filter projection and the polling
// scheduler that drives refreshes.
package inbox

import (
	"context"
	"time"

	"github.com/skportal/feedback-inbox/internal/model"
)

// API is the slice of the upstream feedback API the engine consumes.
type API interface {
	ActiveConversations(ctx context.Context) ([]model.Conversation, error)
	ClosedConversations(ctx context.Context) ([]model.Conversation, error)
	Conversation(ctx context.Context, id string, since *time.Time) (*model.ConversationDetail, error)
	SendMessage(ctx context.Context, conversationID, text string) (string, error)
	SetStatus(ctx context.Context, conversationID string, status model.Status) error
	Assign(ctx context.Context, conversationID, agentID string) error
	Agents(ctx context.Context) ([]model.Agent, error)
}
