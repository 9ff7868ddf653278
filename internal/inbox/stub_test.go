package inbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/skportal/feedback-inbox/internal/model"
	"github.com/skportal/feedback-inbox/internal/operator"
	"github.com/skportal/feedback-inbox/pkg/logger"
)

// stubAPI is a controllable in-memory upstream for engine tests.
type stubAPI struct {
	mu sync.Mutex

	active []model.Conversation
	closed []model.Conversation
	agents []model.Agent

	detailFn    func(id string, since *time.Time) (*model.ConversationDetail, error)
	sendFn      func(conversationID, text string) (string, error)
	setStatusFn func(conversationID string, status model.Status) error
	assignFn    func(conversationID, agentID string) error
	activeErr   error

	activeCalls int
	closedCalls int
	detailCalls int
	sendCalls   int
	agentCalls  int
	lastSince   *time.Time
}

func (a *stubAPI) ActiveConversations(ctx context.Context) ([]model.Conversation, error) {
	a.mu.Lock()
	a.activeCalls++
	convs := append([]model.Conversation(nil), a.active...)
	err := a.activeErr
	a.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return convs, nil
}

func (a *stubAPI) ClosedConversations(ctx context.Context) ([]model.Conversation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closedCalls++
	return append([]model.Conversation(nil), a.closed...), nil
}

func (a *stubAPI) Conversation(ctx context.Context, id string, since *time.Time) (*model.ConversationDetail, error) {
	a.mu.Lock()
	a.detailCalls++
	a.lastSince = since
	fn := a.detailFn
	a.mu.Unlock()
	if fn == nil {
		return nil, errors.New("no detail stub")
	}
	return fn(id, since)
}

func (a *stubAPI) SendMessage(ctx context.Context, conversationID, text string) (string, error) {
	a.mu.Lock()
	a.sendCalls++
	fn := a.sendFn
	a.mu.Unlock()
	if fn == nil {
		return "", errors.New("no send stub")
	}
	return fn(conversationID, text)
}

func (a *stubAPI) SetStatus(ctx context.Context, conversationID string, status model.Status) error {
	a.mu.Lock()
	fn := a.setStatusFn
	a.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(conversationID, status)
}

func (a *stubAPI) Assign(ctx context.Context, conversationID, agentID string) error {
	a.mu.Lock()
	fn := a.assignFn
	a.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(conversationID, agentID)
}

func (a *stubAPI) Agents(ctx context.Context) ([]model.Agent, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.agentCalls++
	if a.agents == nil {
		return nil, errors.New("agents unavailable")
	}
	return append([]model.Agent(nil), a.agents...), nil
}

func (a *stubAPI) counts() (active, closed, detail, send int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.activeCalls, a.closedCalls, a.detailCalls, a.sendCalls
}

// staticDetail returns a detail stub that always serves the given messages
// for the given conversation.
func staticDetail(conv model.Conversation, messages []model.Message) func(string, *time.Time) (*model.ConversationDetail, error) {
	return func(id string, since *time.Time) (*model.ConversationDetail, error) {
		if id != conv.ID {
			return nil, errors.New("unknown conversation")
		}
		return &model.ConversationDetail{
			Conversation: conv,
			Messages:     append([]model.Message(nil), messages...),
		}, nil
	}
}

func testConversation(id string) model.Conversation {
	now := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	return model.Conversation{
		ID:       id,
		Subject:  "Streetlight broken along Mabini St",
		Status:   model.StatusActive,
		Category: model.CategoryComplaint,
		UserInfo: model.UserInfo{Name: "Ana Reyes", Barangay: "San Isidro"},

		CreatedAt:    now,
		LastActivity: now,
	}
}

func testMessages(conversationID string, n int) []model.Message {
	base := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)
	msgs := make([]model.Message, 0, n)
	for i := 0; i < n; i++ {
		sender := model.SenderUser
		if i%2 == 1 {
			sender = model.SenderAgent
		}
		msgs = append(msgs, model.Message{
			ID:             "m" + string(rune('1'+i)),
			ConversationID: conversationID,
			Text:           "message",
			SenderType:     sender,
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		})
	}
	return msgs
}

func newTestSession(api *stubAPI) *Session {
	list := NewListStore(api, logger.NewNop())
	who := operator.Identity{AgentID: "agent-1", Name: "Kagawad Cruz", Role: "kagawad"}
	return NewSession(api, list, who, logger.NewNop())
}

func newTestEngine(api *stubAPI) *Engine {
	who := operator.Identity{AgentID: "agent-1", Name: "Kagawad Cruz", Role: "kagawad"}
	return NewEngine(api, who, logger.NewNop())
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
