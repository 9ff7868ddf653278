package inbox

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skportal/feedback-inbox/internal/model"
	"github.com/skportal/feedback-inbox/pkg/metrics"
)

// sendTimeout bounds the background delivery of one optimistic send.
const sendTimeout = 30 * time.Second

// Send appends a provisional agent message to the open conversation and
// delivers it in the background. The provisional entry is visible
// immediately with a temporary ID and IsSending set; delivery reconciles it
// by that temporary ID, swapping in the server ID on success or flagging
// IsError on failure. Failed messages stay in the list so the user can see
// what did not go through; there is no automatic retry.
//
// Rapid successive sends each get their own provisional entry and temporary
// ID and reconcile independently, in append order.
func (s *Session) Send(ctx context.Context, text string) (*model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.conv == nil {
		s.mu.Unlock()
		return nil, ErrNoConversation
	}
	gen := s.gen
	conversationID := s.conv.ID

	msg := model.Message{
		ID:             model.TempIDPrefix + uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Text:           text,
		SenderType:     model.SenderAgent,
		SenderName:     s.who.Name,
		CreatedAt:      time.Now(),
		IsSending:      true,
	}
	s.messages = append(s.messages, msg)
	s.mu.Unlock()

	// The caller's context ends with its request; delivery keeps going.
	go s.deliver(conversationID, msg.ID, text, gen)

	return &msg, nil
}

// deliver performs the create-message request for one provisional entry and
// reconciles the outcome.
func (s *Session) deliver(conversationID, tempID, text string, gen uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	serverID, err := s.api.SendMessage(ctx, conversationID, text)

	s.mu.Lock()
	if s.gen != gen || s.conv == nil || s.conv.ID != conversationID {
		// The user navigated away; the provisional entry is gone with
		// the rest of the session state.
		s.mu.Unlock()
		metrics.StaleResponsesDropped.Inc()
		return
	}
	for i := range s.messages {
		if s.messages[i].ID != tempID {
			continue
		}
		s.messages[i].IsSending = false
		if err != nil {
			s.messages[i].IsError = true
		} else {
			s.messages[i].ID = serverID
		}
		break
	}
	s.mu.Unlock()

	if err != nil {
		metrics.SendsTotal.WithLabelValues("error").Inc()
		s.log.Warn("message send failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return
	}

	metrics.SendsTotal.WithLabelValues("ok").Inc()
	if s.onSent != nil {
		// Refresh the list so the latest-message preview updates.
		s.onSent()
	}
}
