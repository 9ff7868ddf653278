package inbox

import (
	"context"
	"testing"
	"time"

	"github.com/skportal/feedback-inbox/internal/model"
	"github.com/skportal/feedback-inbox/internal/operator"
	"github.com/skportal/feedback-inbox/pkg/logger"
)

func TestNoDuplicateInFlightFetch(t *testing.T) {
	release := make(chan struct{})
	api := &stubAPI{active: []model.Conversation{testConversation("c1")}}
	// Make every active fetch hang until released so the target stays busy.
	blocking := &blockingAPI{stubAPI: api, release: release}
	engine := NewEngine(blocking, operator.Identity{AgentID: "agent-1"}, logger.NewNop())
	ctx := context.Background()

	engine.RefreshActive(ctx)
	waitFor(t, func() bool {
		active, _, _, _ := api.counts()
		return active == 1
	}, "first fetch to start")

	// Ticks firing while the fetch is outstanding are skipped, not queued.
	engine.RefreshActive(ctx)
	engine.RefreshActive(ctx)
	time.Sleep(30 * time.Millisecond)
	if active, _, _, _ := api.counts(); active != 1 {
		t.Fatalf("expected coalescing to hold fetches at 1, got %d", active)
	}

	close(release)
	waitFor(t, func() bool {
		engine.RefreshActive(ctx)
		active, _, _, _ := api.counts()
		return active >= 2
	}, "target to free up after the fetch resolves")
}

// blockingAPI delays ActiveConversations until release is closed.
type blockingAPI struct {
	*stubAPI
	release chan struct{}
}

func (b *blockingAPI) ActiveConversations(ctx context.Context) ([]model.Conversation, error) {
	convs, err := b.stubAPI.ActiveConversations(ctx)
	<-b.release
	return convs, err
}

// cancelAwareAPI refuses work once the given context is cancelled.
type cancelAwareAPI struct {
	*stubAPI
}

func (c *cancelAwareAPI) ActiveConversations(ctx context.Context) ([]model.Conversation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.stubAPI.ActiveConversations(ctx)
}

func TestCloseReloadOutlivesCallerContext(t *testing.T) {
	conv := testConversation("c1")
	api := &stubAPI{
		active:   []model.Conversation{conv},
		detailFn: staticDetail(conv, testMessages("c1", 1)),
	}
	engine := NewEngine(&cancelAwareAPI{stubAPI: api}, operator.Identity{AgentID: "agent-1"}, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := engine.OpenConversation(ctx, "c1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	before, _, _, _ := api.counts()

	// An HTTP request context dies as soon as its handler returns; the
	// immediate reload on close must not die with it.
	cancel()
	engine.CloseConversation(ctx)

	waitFor(t, func() bool {
		active, _, _, _ := api.counts()
		return active == before+1
	}, "list reload to complete after the caller context is cancelled")
	if got := engine.List.Active(); len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("list not reloaded: %d conversations", len(got))
	}
}

func TestRefreshTargetKindBounded(t *testing.T) {
	if got := targetKind(conversationTarget("c-123")); got != "conversation" {
		t.Fatalf("conversation target kind = %q, want conversation", got)
	}
	if got := targetKind(conversationTarget("c-456")); got != "conversation" {
		t.Fatalf("conversation ids must not leak into the kind, got %q", got)
	}
	if got := targetKind(targetActiveList); got != targetActiveList {
		t.Fatalf("active list kind = %q", got)
	}
	if got := targetKind(targetClosedList); got != targetClosedList {
		t.Fatalf("closed list kind = %q", got)
	}
}

func TestCloseConversationReloadsListImmediately(t *testing.T) {
	conv := testConversation("c1")
	api := &stubAPI{
		active:   []model.Conversation{conv},
		detailFn: staticDetail(conv, testMessages("c1", 1)),
	}
	engine := newTestEngine(api)
	ctx := context.Background()

	if _, err := engine.OpenConversation(ctx, "c1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !engine.Focused() {
		t.Fatalf("expected engine focused after open")
	}

	before, _, _, _ := api.counts()
	engine.CloseConversation(ctx)

	if engine.Focused() {
		t.Fatalf("expected engine unfocused after close")
	}
	waitFor(t, func() bool {
		active, _, _, _ := api.counts()
		return active == before+1
	}, "immediate list reload on close")
}

func TestPollerTickTargetsOpenConversationOnly(t *testing.T) {
	conv := testConversation("c1")
	api := &stubAPI{
		active:   []model.Conversation{conv},
		detailFn: staticDetail(conv, testMessages("c1", 2)),
	}
	engine := newTestEngine(api)
	poller := NewPoller(engine, time.Second, time.Second, logger.NewNop())
	ctx := context.Background()

	if _, err := engine.OpenConversation(ctx, "c1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	activeBefore, _, detailBefore, _ := api.counts()

	poller.tick(ctx)

	waitFor(t, func() bool {
		_, _, detail, _ := api.counts()
		return detail == detailBefore+1
	}, "focused tick to refresh the conversation")

	// The list is not polled while a conversation is focused.
	time.Sleep(30 * time.Millisecond)
	if active, _, _, _ := api.counts(); active != activeBefore {
		t.Fatalf("focused tick must not touch the list, fetches went %d -> %d", activeBefore, active)
	}
}

func TestPollerIdleTickRefreshesVisiblePartitions(t *testing.T) {
	api := &stubAPI{
		active: []model.Conversation{testConversation("c1")},
		closed: []model.Conversation{testConversation("c2")},
	}
	engine := newTestEngine(api)
	poller := NewPoller(engine, time.Second, time.Second, logger.NewNop())
	ctx := context.Background()

	poller.tick(ctx)
	waitFor(t, func() bool {
		active, _, _, _ := api.counts()
		return active == 1
	}, "idle tick to refresh the active list")

	// Closed partition excluded until its view is shown.
	time.Sleep(30 * time.Millisecond)
	if _, closed, _, _ := api.counts(); closed != 0 {
		t.Fatalf("closed partition polled while hidden: %d fetches", closed)
	}

	engine.SetClosedVisible(true)
	poller.tick(ctx)
	waitFor(t, func() bool {
		_, closed, _, _ := api.counts()
		return closed == 1
	}, "idle tick to include the shown closed partition")
}

func TestPollerCadenceFollowsFocus(t *testing.T) {
	conv := testConversation("c1")
	api := &stubAPI{detailFn: staticDetail(conv, testMessages("c1", 1))}
	engine := newTestEngine(api)
	poller := NewPoller(engine, 3*time.Second, 10*time.Second, logger.NewNop())

	if got := poller.interval(); got != 10*time.Second {
		t.Fatalf("idle interval: expected 10s, got %v", got)
	}
	if _, err := engine.OpenConversation(context.Background(), "c1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := poller.interval(); got != 3*time.Second {
		t.Fatalf("focus interval: expected 3s, got %v", got)
	}
}

func TestPollerRunHonoursCancellation(t *testing.T) {
	api := &stubAPI{active: []model.Conversation{testConversation("c1")}}
	engine := newTestEngine(api)
	poller := NewPoller(engine, 10*time.Millisecond, 10*time.Millisecond, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool {
		active, _, _, _ := api.counts()
		return active >= 2
	}, "periodic ticks")

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("poller did not stop on cancellation")
	}
}

func TestAgentsFetchedOnceAndCached(t *testing.T) {
	api := &stubAPI{agents: []model.Agent{{ID: "agent-7", Name: "Chairman Lim", Role: "chairman"}}}
	engine := newTestEngine(api)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		agents, err := engine.Agents(ctx)
		if err != nil {
			t.Fatalf("agents: %v", err)
		}
		if len(agents) != 1 || agents[0].ID != "agent-7" {
			t.Fatalf("unexpected agents: %+v", agents)
		}
	}

	api.mu.Lock()
	calls := api.agentCalls
	api.mu.Unlock()
	if calls != 1 {
		t.Fatalf("expected a single agents fetch, got %d", calls)
	}
}
