package inbox

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/skportal/feedback-inbox/internal/model"
	"github.com/skportal/feedback-inbox/internal/operator"
	"github.com/skportal/feedback-inbox/pkg/logger"
	"github.com/skportal/feedback-inbox/pkg/metrics"
)

// Fetch target identifiers used for in-flight coalescing.
const (
	targetActiveList = "list:active"
	targetClosedList = "list:closed"
)

func conversationTarget(id string) string {
	return "conv:" + id
}

// targetKind collapses per-conversation targets into one metric label value;
// conversation IDs must never become label cardinality.
func targetKind(target string) string {
	if strings.HasPrefix(target, "conv:") {
		return "conversation"
	}
	return target
}

// gate tracks outstanding fetches per target. A tick that fires while a
// fetch for the same target is still in flight is skipped, not queued, which
// keeps response reordering from corrupting state.
type gate struct {
	mu   sync.Mutex
	busy map[string]bool
}

func (g *gate) tryAcquire(target string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy == nil {
		g.busy = make(map[string]bool)
	}
	if g.busy[target] {
		return false
	}
	g.busy[target] = true
	return true
}

func (g *gate) release(target string) {
	g.mu.Lock()
	delete(g.busy, target)
	g.mu.Unlock()
}

// Engine ties the list store, the open-conversation session and the cached
// agent directory together, and owns the coalescing gate shared by the
// poller, the push subscriber and user actions.
type Engine struct {
	api  API
	log  *logger.Logger
	List *ListStore
	Sess *Session

	gate          gate
	wakeC         chan struct{}
	closedVisible atomic.Bool

	agentsMu     sync.Mutex
	agents       []model.Agent
	agentsLoaded bool
}

// NewEngine creates an engine acting as the given operator.
func NewEngine(api API, who operator.Identity, log *logger.Logger) *Engine {
	e := &Engine{
		api:   api,
		log:   log,
		wakeC: make(chan struct{}, 1),
	}
	e.List = NewListStore(api, log)
	e.Sess = NewSession(api, e.List, who, log)
	e.Sess.onSent = func() {
		e.RefreshActive(context.Background())
	}
	return e
}

// OpenConversation opens and focuses a conversation, waking the poller so it
// switches to the focus cadence.
func (e *Engine) OpenConversation(ctx context.Context, conversationID string) (*model.ConversationDetail, error) {
	detail, err := e.Sess.Open(ctx, conversationID)
	e.Wake()
	return detail, err
}

// CloseConversation leaves the open conversation and reloads the list
// immediately, so status and unread changes show without waiting for the
// next background tick.
func (e *Engine) CloseConversation(ctx context.Context) {
	e.Sess.Close()
	e.RefreshActive(ctx)
	e.Wake()
}

// Focused reports whether a conversation is open.
func (e *Engine) Focused() bool {
	return e.Sess.OpenID() != ""
}

// SetClosedVisible records whether the closed-partition view is currently
// shown; only then is the closed list included in background ticks.
func (e *Engine) SetClosedVisible(visible bool) {
	e.closedVisible.Store(visible)
}

// ClosedVisible reports whether the closed-partition view is shown.
func (e *Engine) ClosedVisible() bool {
	return e.closedVisible.Load()
}

// RefreshActive refreshes the active partition asynchronously, unless a
// fetch for it is already outstanding.
func (e *Engine) RefreshActive(ctx context.Context) {
	e.refresh(ctx, targetActiveList, e.List.LoadActive)
}

// RefreshClosed refreshes the closed partition asynchronously.
func (e *Engine) RefreshClosed(ctx context.Context) {
	e.refresh(ctx, targetClosedList, e.List.LoadClosed)
}

// RefreshConversation refreshes the open conversation asynchronously. A
// no-op when the given conversation is no longer the open one.
func (e *Engine) RefreshConversation(ctx context.Context, conversationID string) {
	if e.Sess.OpenID() != conversationID {
		return
	}
	e.refresh(ctx, conversationTarget(conversationID), e.Sess.Refresh)
}

func (e *Engine) refresh(ctx context.Context, target string, fetch func(context.Context) error) {
	kind := targetKind(target)
	metrics.PollTicksTotal.WithLabelValues(kind).Inc()
	if !e.gate.tryAcquire(target) {
		metrics.PollCoalescedTotal.WithLabelValues(kind).Inc()
		return
	}
	// The triggering request often finishes before the fetch does; the
	// fetch lifetime is bounded by the gate, not by the caller.
	ctx = context.WithoutCancel(ctx)
	go func() {
		defer e.gate.release(target)
		if err := fetch(ctx); err != nil {
			e.log.Debug("refresh failed", zap.String("target", target), zap.Error(err))
		}
	}()
}

// Agents returns the assignable agents, fetched once and cached for the
// lifetime of the process. A failed fetch is not cached.
func (e *Engine) Agents(ctx context.Context) ([]model.Agent, error) {
	e.agentsMu.Lock()
	defer e.agentsMu.Unlock()

	if !e.agentsLoaded {
		agents, err := e.api.Agents(ctx)
		if err != nil {
			return nil, err
		}
		e.agents = agents
		e.agentsLoaded = true
	}
	return append([]model.Agent(nil), e.agents...), nil
}

// Wake nudges the poller to re-evaluate its cadence and target. Non-blocking.
func (e *Engine) Wake() {
	select {
	case e.wakeC <- struct{}{}:
	default:
	}
}

func (e *Engine) wake() <-chan struct{} {
	return e.wakeC
}
