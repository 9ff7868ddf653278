package inbox

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/skportal/feedback-inbox/internal/model"
	"github.com/skportal/feedback-inbox/pkg/logger"
	"github.com/skportal/feedback-inbox/pkg/metrics"
)

// ListStore is the authoritative client-side cache of conversation summaries,
// split into the active and closed partitions. Loads replace a partition
// wholesale; summaries are cheap and the lists are bounded, so there is no
// incremental merge. A failed load leaves the previous contents untouched.
type ListStore struct {
	api API
	log *logger.Logger

	mu           sync.RWMutex
	active       []model.Conversation
	closed       []model.Conversation
	closedLoaded bool
}

// NewListStore creates an empty list store backed by the given API.
func NewListStore(api API, log *logger.Logger) *ListStore {
	return &ListStore{api: api, log: log}
}

// LoadActive fetches the active partition and replaces it wholesale. On error
// the previous contents are retained; the next poll tick is the retry.
func (s *ListStore) LoadActive(ctx context.Context) error {
	convs, err := s.api.ActiveConversations(ctx)
	if err != nil {
		s.log.Warn("active conversations load failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.active = convs
	s.mu.Unlock()

	metrics.ConversationsCached.WithLabelValues("active").Set(float64(len(convs)))
	return nil
}

// LoadClosed fetches the closed partition and replaces it wholesale.
func (s *ListStore) LoadClosed(ctx context.Context) error {
	convs, err := s.api.ClosedConversations(ctx)
	if err != nil {
		s.log.Warn("closed conversations load failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.closed = convs
	s.closedLoaded = true
	s.mu.Unlock()

	metrics.ConversationsCached.WithLabelValues("closed").Set(float64(len(convs)))
	return nil
}

// EnsureClosed loads the closed partition if it has never been loaded. The
// closed list is fetched lazily, only once the UI asks for it, and cached
// until explicitly reloaded.
func (s *ListStore) EnsureClosed(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.closedLoaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.LoadClosed(ctx)
}

// ClosedLoaded reports whether the closed partition has ever been loaded.
func (s *ListStore) ClosedLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closedLoaded
}

// Active returns a snapshot of the active partition.
func (s *ListStore) Active() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Conversation(nil), s.active...)
}

// Closed returns a snapshot of the closed partition.
func (s *ListStore) Closed() []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Conversation(nil), s.closed...)
}

// UpdateStatus pushes a status change from the open session onto the matching
// summary. Repartitioning between active and closed is left to the next
// reload; the server stays authoritative for list membership.
func (s *ListStore) UpdateStatus(conversationID string, status model.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.active {
		if s.active[i].ID == conversationID {
			s.active[i].Status = status
			return
		}
	}
	for i := range s.closed {
		if s.closed[i].ID == conversationID {
			s.closed[i].Status = status
			return
		}
	}
}
