package inbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/skportal/feedback-inbox/internal/model"
	"github.com/skportal/feedback-inbox/internal/operator"
	"github.com/skportal/feedback-inbox/pkg/logger"
	"github.com/skportal/feedback-inbox/pkg/metrics"
)

var (
	// ErrNoConversation is returned by operations that need an open
	// conversation when none is open.
	ErrNoConversation = errors.New("no conversation open")

	// ErrEmptyMessage is returned when a send carries no text.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrWriteInFlight is returned when a status or assignment write is
	// requested while a previous one has not resolved yet.
	ErrWriteInFlight = errors.New("another update is still in flight")
)

// Session represents the one conversation currently open, including its full
// message list. At most one conversation is open at a time; opening another
// replaces it wholesale.
//
// Every asynchronous result is applied only after an identity check: the
// response's conversation ID and the generation captured at request time must
// both still be current, otherwise the response is stale and discarded.
type Session struct {
	api  API
	list *ListStore
	who  operator.Identity
	log  *logger.Logger

	// onSent is invoked after a confirmed send so the list store can
	// refresh the latest-message preview.
	onSent func()

	mu       sync.Mutex
	gen      uint64
	conv     *model.Conversation
	messages []model.Message

	// writeBusy holds off a second status or assignment write while one is
	// still in flight. Sends are not covered; they pipeline by design.
	writeBusy bool
}

// NewSession creates a session with nothing open.
func NewSession(api API, list *ListStore, who operator.Identity, log *logger.Logger) *Session {
	return &Session{api: api, list: list, who: who, log: log}
}

// Open fetches a conversation's metadata and full message history and makes
// it the open conversation. Any previously open conversation is replaced. On
// fetch failure the session keeps its previous state and the error is
// returned.
func (s *Session) Open(ctx context.Context, conversationID string) (*model.ConversationDetail, error) {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	detail, err := s.api.Conversation(ctx, conversationID, nil)
	if err != nil {
		s.log.Warn("conversation open failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || detail.Conversation.ID != conversationID {
		metrics.StaleResponsesDropped.Inc()
		return nil, ErrNoConversation
	}

	conv := detail.Conversation
	s.conv = &conv
	s.messages = append([]model.Message(nil), detail.Messages...)
	metrics.SessionOpen.Set(1)

	return detail, nil
}

// Close clears the open conversation. The caller is responsible for the
// immediate list reload that follows leaving the conversation view.
func (s *Session) Close() {
	s.mu.Lock()
	s.gen++
	s.conv = nil
	s.messages = nil
	s.mu.Unlock()
	metrics.SessionOpen.Set(0)
}

// OpenID returns the ID of the open conversation, or "" if none is open.
func (s *Session) OpenID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return ""
	}
	return s.conv.ID
}

// Snapshot returns a copy of the open conversation and its messages. The
// boolean is false when nothing is open.
func (s *Session) Snapshot() (model.Conversation, []model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return model.Conversation{}, nil, false
	}
	return *s.conv, append([]model.Message(nil), s.messages...), true
}

// Refresh performs a delta fetch for the open conversation, using the
// timestamp of the last server-confirmed message as a watermark. The server
// is the merge authority: when the response holds more messages than
// currently confirmed, the message list is replaced with the response (still-
// pending provisional entries are re-appended); otherwise the list is left
// untouched. A no-op when nothing is open.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.conv == nil {
		s.mu.Unlock()
		return nil
	}
	gen := s.gen
	conversationID := s.conv.ID
	since := s.watermarkLocked()
	s.mu.Unlock()

	detail, err := s.api.Conversation(ctx, conversationID, since)
	if err != nil {
		s.log.Debug("conversation refresh failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		return err
	}

	s.apply(gen, conversationID, detail)
	return nil
}

// watermarkLocked returns the created-at of the newest server-confirmed
// message, or nil when none is held. Callers must hold s.mu.
func (s *Session) watermarkLocked() *time.Time {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if !s.messages[i].Provisional() {
			t := s.messages[i].CreatedAt
			return &t
		}
	}
	return nil
}

// apply merges a refresh response into the session, unless the user has
// navigated away since the fetch was issued.
func (s *Session) apply(gen uint64, conversationID string, detail *model.ConversationDetail) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stale := s.gen != gen || s.conv == nil ||
		s.conv.ID != conversationID || detail.Conversation.ID != conversationID
	if stale {
		metrics.StaleResponsesDropped.Inc()
		return
	}

	// Metadata (status, assignment, unread) is always taken from the
	// response; setStatus and assign rely on this for reconciliation.
	conv := detail.Conversation
	s.conv = &conv
	s.list.UpdateStatus(conversationID, conv.Status)

	confirmed := 0
	for i := range s.messages {
		if !s.messages[i].Provisional() {
			confirmed++
		}
	}
	if len(detail.Messages) <= confirmed {
		return
	}

	// Provisional entries survive the replacement, matched by temporary
	// ID rather than position, so an in-flight send is never dropped.
	merged := append([]model.Message(nil), detail.Messages...)
	for i := range s.messages {
		if s.messages[i].Provisional() {
			merged = append(merged, s.messages[i])
		}
	}
	s.messages = merged
}

// beginWrite claims the single write slot for the open conversation and
// returns its ID. At most one status or assignment write may be in flight at a
// time; a second is rejected, not queued.
func (s *Session) beginWrite() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conv == nil {
		return "", ErrNoConversation
	}
	if s.writeBusy {
		return "", ErrWriteInFlight
	}
	s.writeBusy = true
	return s.conv.ID, nil
}

func (s *Session) endWrite() {
	s.mu.Lock()
	s.writeBusy = false
	s.mu.Unlock()
}

// SetStatus issues a status change for the open conversation, reflects the
// new status optimistically on success, then forces a refresh so the
// server-confirmed state wins either way. A write failure is not surfaced
// separately; the refresh reconciles whatever the server decided.
func (s *Session) SetStatus(ctx context.Context, status model.Status) error {
	conversationID, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer s.endWrite()

	if err := s.api.SetStatus(ctx, conversationID, status); err != nil {
		s.log.Warn("status change failed",
			zap.String("conversation_id", conversationID),
			zap.String("status", string(status)), zap.Error(err))
	} else {
		// Provisional until the forced refresh confirms it.
		s.mu.Lock()
		if s.conv != nil && s.conv.ID == conversationID {
			s.conv.Status = status
		}
		s.mu.Unlock()
		s.list.UpdateStatus(conversationID, status)
	}

	return s.Refresh(ctx)
}

// Assign assigns the open conversation to an agent and refreshes. No
// optimistic update: the rendered assignment depends on the agent reference,
// which only the server holds in full.
func (s *Session) Assign(ctx context.Context, agentID string) error {
	conversationID, err := s.beginWrite()
	if err != nil {
		return err
	}
	defer s.endWrite()

	if err := s.api.Assign(ctx, conversationID, agentID); err != nil {
		s.log.Warn("assignment failed",
			zap.String("conversation_id", conversationID),
			zap.String("agent_id", agentID), zap.Error(err))
	}

	return s.Refresh(ctx)
}
