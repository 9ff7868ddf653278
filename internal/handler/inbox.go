// Package handler provides HTTP handlers for the local inbox API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/skportal/feedback-inbox/internal/inbox"
	"github.com/skportal/feedback-inbox/internal/middleware"
	"github.com/skportal/feedback-inbox/internal/model"
	"github.com/skportal/feedback-inbox/pkg/logger"
)

// InboxHandler exposes the sync engine to the portal front-end.
type InboxHandler struct {
	engine *inbox.Engine
	logger *logger.Logger
}

// NewInboxHandler creates a new inbox handler.
func NewInboxHandler(engine *inbox.Engine, log *logger.Logger) *InboxHandler {
	return &InboxHandler{engine: engine, logger: log}
}

// listResponse is the envelope for the filtered conversation list.
type listResponse struct {
	Partition     string               `json:"partition"`
	Conversations []model.Conversation `json:"conversations"`
	Total         int                  `json:"total"`
}

// List handles GET /api/v1/inbox/conversations
//
// Query parameters: partition (active|closed, default active), status,
// category, q. The response is the filter projection over the requested
// partition's cached summaries.
func (h *InboxHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	partition := q.Get("partition")
	if partition == "" {
		partition = "active"
	}
	if partition != "active" && partition != "closed" {
		writeError(w, r, http.StatusBadRequest, "partition must be active or closed")
		return
	}
	if err := middleware.ValidateStatusFilter(q.Get("status")); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := middleware.ValidateCategory(q.Get("category")); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var convs []model.Conversation
	if partition == "closed" {
		h.engine.SetClosedVisible(true)
		// Lazy: the closed partition is first loaded when asked for.
		if err := h.engine.List.EnsureClosed(ctx); err != nil && !h.engine.List.ClosedLoaded() {
			writeError(w, r, http.StatusBadGateway, "failed to load closed conversations")
			return
		}
		convs = h.engine.List.Closed()
	} else {
		h.engine.SetClosedVisible(false)
		convs = h.engine.List.Active()
	}

	visible := inbox.Project(convs, inbox.Filter{
		Query:    q.Get("q"),
		Status:   q.Get("status"),
		Category: q.Get("category"),
	})

	writeJSON(w, http.StatusOK, listResponse{
		Partition:     partition,
		Conversations: visible,
		Total:         len(visible),
	})
}

// Open handles GET /api/v1/inbox/conversations/{id}
//
// Opens and focuses the conversation, returning its metadata and full
// message history.
func (h *InboxHandler) Open(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	detail, err := h.engine.OpenConversation(ctx, conversationID)
	if err != nil {
		h.logger.Warn("failed to open conversation",
			zap.String("conversation_id", conversationID), zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "failed to load conversation")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// CloseOpen handles DELETE /api/v1/inbox/open
//
// Leaves the open conversation and returns to the list view.
func (h *InboxHandler) CloseOpen(w http.ResponseWriter, r *http.Request) {
	h.engine.CloseConversation(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// Send handles POST /api/v1/inbox/conversations/{id}/messages
//
// Appends a provisional message and returns it immediately with 202; the
// delivery outcome shows up on the message itself (server ID, or is_error).
func (h *InboxHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if h.engine.Sess.OpenID() != conversationID {
		writeError(w, r, http.StatusConflict, "conversation is not open")
		return
	}

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Text); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	msg, err := h.engine.Sess.Send(ctx, req.Text)
	if err != nil {
		if errors.Is(err, inbox.ErrNoConversation) {
			writeError(w, r, http.StatusConflict, "conversation is not open")
			return
		}
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, msg)
}

// SetStatus handles PUT /api/v1/inbox/conversations/{id}/status
func (h *InboxHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if h.engine.Sess.OpenID() != conversationID {
		writeError(w, r, http.StatusConflict, "conversation is not open")
		return
	}

	var req model.SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateStatus(req.Status); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// A rejected write is not surfaced here; the forced refresh inside
	// SetStatus reconciles the server-confirmed state, which is what we
	// return.
	if err := h.engine.Sess.SetStatus(ctx, req.Status); err != nil {
		if errors.Is(err, inbox.ErrNoConversation) {
			writeError(w, r, http.StatusConflict, "conversation is not open")
			return
		}
		if errors.Is(err, inbox.ErrWriteInFlight) {
			writeError(w, r, http.StatusConflict, "an update is already in flight")
			return
		}
	}

	conv, _, ok := h.engine.Sess.Snapshot()
	if !ok {
		writeError(w, r, http.StatusConflict, "conversation is not open")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Assign handles PUT /api/v1/inbox/conversations/{id}/assign
func (h *InboxHandler) Assign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if h.engine.Sess.OpenID() != conversationID {
		writeError(w, r, http.StatusConflict, "conversation is not open")
		return
	}

	var req model.AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateAgentID(req.AgentID); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.Sess.Assign(ctx, req.AgentID); err != nil {
		if errors.Is(err, inbox.ErrNoConversation) {
			writeError(w, r, http.StatusConflict, "conversation is not open")
			return
		}
		if errors.Is(err, inbox.ErrWriteInFlight) {
			writeError(w, r, http.StatusConflict, "an update is already in flight")
			return
		}
	}

	conv, _, ok := h.engine.Sess.Snapshot()
	if !ok {
		writeError(w, r, http.StatusConflict, "conversation is not open")
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// Agents handles GET /api/v1/inbox/agents
func (h *InboxHandler) Agents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.engine.Agents(r.Context())
	if err != nil {
		h.logger.Warn("failed to list agents", zap.Error(err))
		writeError(w, r, http.StatusBadGateway, "failed to list agents")
		return
	}
	writeJSON(w, http.StatusOK, agents)
}
