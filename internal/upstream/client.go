// Package upstream provides the client for the collaborating feedback API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skportal/feedback-inbox/internal/model"
	"github.com/skportal/feedback-inbox/pkg/metrics"
)

// APIError is a non-2xx response from the upstream API. Callers treat any
// error as a generic failure; the status and message are kept for logging.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("upstream returned %d", e.Status)
}

// Client is a client for the feedback API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	tracer  trace.Tracer
}

// NewClient creates a new upstream API client.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		tracer:  otel.Tracer("upstream"),
	}
}

// ActiveConversations lists the active-partition conversation summaries.
func (c *Client) ActiveConversations(ctx context.Context) ([]model.Conversation, error) {
	var convs []model.Conversation
	if err := c.do(ctx, "list_active", http.MethodGet, "/conversations/active", nil, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// ClosedConversations lists the closed-partition conversation summaries.
func (c *Client) ClosedConversations(ctx context.Context) ([]model.Conversation, error) {
	var convs []model.Conversation
	if err := c.do(ctx, "list_closed", http.MethodGet, "/conversations/closed", nil, nil, &convs); err != nil {
		return nil, err
	}
	return convs, nil
}

// Conversation fetches one conversation with its message history. A non-nil
// since is passed as a watermark; the server remains the merge authority and
// may still return the full history.
func (c *Client) Conversation(ctx context.Context, id string, since *time.Time) (*model.ConversationDetail, error) {
	var query url.Values
	if since != nil {
		query = url.Values{"since": []string{since.UTC().Format(time.RFC3339Nano)}}
	}
	var detail model.ConversationDetail
	if err := c.do(ctx, "get_conversation", http.MethodGet, "/conversations/"+url.PathEscape(id), query, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// SendMessage creates a message in a conversation and returns the
// server-assigned message ID.
func (c *Client) SendMessage(ctx context.Context, conversationID, text string) (string, error) {
	req := model.SendMessageRequest{Text: text}
	var resp model.SendMessageResponse
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, "send_message", http.MethodPost, path, nil, &req, &resp); err != nil {
		return "", err
	}
	return resp.MessageID, nil
}

// SetStatus changes a conversation's status. The server may reject or further
// transform the status; callers reconcile via a follow-up fetch.
func (c *Client) SetStatus(ctx context.Context, conversationID string, status model.Status) error {
	req := model.SetStatusRequest{Status: status}
	path := "/conversations/" + url.PathEscape(conversationID) + "/status"
	return c.do(ctx, "set_status", http.MethodPut, path, nil, &req, nil)
}

// Assign assigns a conversation to an agent.
func (c *Client) Assign(ctx context.Context, conversationID, agentID string) error {
	req := model.AssignRequest{AgentID: agentID}
	path := "/conversations/" + url.PathEscape(conversationID) + "/assign"
	return c.do(ctx, "assign", http.MethodPut, path, nil, &req, nil)
}

// Agents lists the assignable agents.
func (c *Client) Agents(ctx context.Context) ([]model.Agent, error) {
	var agents []model.Agent
	if err := c.do(ctx, "list_agents", http.MethodGet, "/agents", nil, nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// errorBody is the conventional upstream error envelope.
type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) error {
	ctx, span := c.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
	))
	defer span.End()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstream(op, "error", time.Since(start).Seconds())
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	metrics.RecordUpstream(op, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb errorBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&eb); err == nil {
			apiErr.Message = eb.Error
		}
		span.SetStatus(codes.Error, apiErr.Error())
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", op, err)
		}
	}

	return nil
}
