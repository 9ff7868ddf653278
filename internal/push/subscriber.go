package push

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/skportal/feedback-inbox/internal/inbox"
	"github.com/skportal/feedback-inbox/pkg/logger"
	"github.com/skportal/feedback-inbox/pkg/metrics"
)

const (
	// SubjectInbox carries notifications that the conversation lists
	// changed (new conversation, status moved, new unread).
	SubjectInbox = "feedback.inbox"

	// SubjectConversations is the wildcard for per-conversation activity;
	// the last token is the conversation ID.
	SubjectConversations = "feedback.conversation.*"
)

// Notification is the payload published by the upstream on both subjects.
type Notification struct {
	ConversationID string    `json:"conversation_id,omitempty"`
	Kind           string    `json:"kind"` // message, status, assignment
	OccurredAt     time.Time `json:"occurred_at"`
}

// Subscriber turns upstream notifications into targeted refresh nudges.
type Subscriber struct {
	client *Client
	engine *inbox.Engine
	log    *logger.Logger
	subs   []*nats.Subscription
}

// NewSubscriber creates a subscriber feeding the given engine.
func NewSubscriber(client *Client, engine *inbox.Engine, log *logger.Logger) *Subscriber {
	return &Subscriber{client: client, engine: engine, log: log}
}

// Start subscribes to both subjects. Handlers run on the NATS delivery
// goroutine and only schedule gated asynchronous refreshes, so a burst of
// notifications collapses into at most one in-flight fetch per target.
func (s *Subscriber) Start() error {
	inboxSub, err := s.client.Conn().Subscribe(SubjectInbox, s.handleInbox)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectInbox, err)
	}
	s.subs = append(s.subs, inboxSub)

	convSub, err := s.client.Conn().Subscribe(SubjectConversations, s.handleConversation)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", SubjectConversations, err)
	}
	s.subs = append(s.subs, convSub)

	s.log.Info("push subscriber started",
		zap.String("subjects", SubjectInbox+", "+SubjectConversations))
	return nil
}

// Stop drains the subscriptions.
func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	s.subs = nil
}

func (s *Subscriber) handleInbox(msg *nats.Msg) {
	metrics.PushNotificationsTotal.WithLabelValues("inbox").Inc()

	ctx := context.Background()
	s.engine.RefreshActive(ctx)
	if s.engine.ClosedVisible() {
		s.engine.RefreshClosed(ctx)
	}
}

func (s *Subscriber) handleConversation(msg *nats.Msg) {
	metrics.PushNotificationsTotal.WithLabelValues("conversation").Inc()

	var note Notification
	if err := json.Unmarshal(msg.Data, &note); err != nil {
		s.log.Debug("bad push payload", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	if note.ConversationID == "" {
		return
	}

	ctx := context.Background()
	if s.engine.Sess.OpenID() == note.ConversationID {
		s.engine.RefreshConversation(ctx, note.ConversationID)
		return
	}
	// Activity on a conversation that is not open shows up in the list
	// previews instead.
	s.engine.RefreshActive(ctx)
}
