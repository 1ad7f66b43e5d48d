package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/careloop/server/internal/rag"
	"github.com/careloop/server/internal/store"
	"github.com/careloop/server/pkg/api"
)

// Assistant runs the conversation pipeline. *rag.Engine satisfies it.
type Assistant interface {
	NewChat(ctx context.Context, userID int64, query string) (*store.Chat, *store.Turn, error)
	Reply(ctx context.Context, chatID int64, query string) (*store.Turn, error)
}

// ChatHandler handles the conversation endpoints.
type ChatHandler struct {
	Assistant Assistant
	Store     *store.Store
	Users     UserResolver
}

// Create handles POST /api/chats. The first query opens the chat, names it
// and produces the opening answer in one call.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Resolve(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown_user", err.Error())
		return
	}

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	chat, turn, err := h.Assistant.NewChat(r.Context(), user.ID, req.Query)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := toAPIChat(chat, []store.Turn{*turn}, "")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

// Reply handles POST /api/chats/{id}.
func (h *ChatHandler) Reply(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDFromPath(w, r)
	if !ok {
		return
	}

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	turn, err := h.Assistant.Reply(r.Context(), chatID, req.Query)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAPITurn(*turn))
}

// Get handles GET /api/chats/{id} and returns the chat with its full turn
// history and current summary.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chatID, ok := chatIDFromPath(w, r)
	if !ok {
		return
	}

	chat, err := h.Store.GetChat(r.Context(), chatID)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	turns, err := h.Store.GetTurns(r.Context(), chatID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	summary := ""
	if sum, err := h.Store.GetSummary(r.Context(), chatID); err == nil && sum != nil {
		summary = sum.Content
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toAPIChat(chat, turns, summary))
}

// List handles GET /api/chats and returns the caller's chats, newest first,
// without turn bodies.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := h.Users.Resolve(r.Context(), r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown_user", err.Error())
		return
	}

	chats, err := h.Store.ListChats(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}

	resp := api.ChatListResponse{Chats: make([]api.Chat, len(chats))}
	for i, c := range chats {
		resp.Chats[i] = toAPIChat(&c, nil, "")
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func chatIDFromPath(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "chat id must be an integer")
		return 0, false
	}
	return id, true
}

// writeEngineError maps pipeline errors onto HTTP statuses. Only a failed
// answer generation surfaces as a gateway error; everything else the caller
// can correct.
func writeEngineError(w http.ResponseWriter, err error) {
	var genErr *rag.GenerationError
	switch {
	case errors.Is(err, rag.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "invalid_request", "query must not be empty")
	case errors.Is(err, store.ErrChatNotFound):
		writeError(w, http.StatusNotFound, "not_found", "chat not found")
	case errors.As(err, &genErr):
		writeError(w, http.StatusBadGateway, "generation_failed", genErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func toAPITurn(t store.Turn) api.Turn {
	return api.Turn{
		ID:        t.ID,
		ChatID:    t.ChatID,
		Question:  t.Question,
		Answer:    t.Answer,
		CreatedAt: t.CreatedAt,
	}
}

func toAPIChat(c *store.Chat, turns []store.Turn, summary string) api.Chat {
	out := api.Chat{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt,
		Summary:   summary,
	}
	for _, t := range turns {
		out.Turns = append(out.Turns, toAPITurn(t))
	}
	return out
}
