package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/careloop/server/internal/rag"
	"github.com/careloop/server/internal/store"
	"github.com/careloop/server/pkg/api"
)

// fakeAssistant persists real rows so handler responses can be checked
// against the store, without running the generation pipeline.
type fakeAssistant struct {
	st  *store.Store
	err error
}

func (f *fakeAssistant) NewChat(ctx context.Context, userID int64, query string) (*store.Chat, *store.Turn, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	if strings.TrimSpace(query) == "" {
		return nil, nil, rag.ErrEmptyQuery
	}
	chat, err := f.st.CreateChat(ctx, userID, "Test Chat Title")
	if err != nil {
		return nil, nil, err
	}
	turn, err := f.st.CreateTurn(ctx, chat.ID, query, "a canned answer")
	if err != nil {
		return nil, nil, err
	}
	return chat, turn, nil
}

func (f *fakeAssistant) Reply(ctx context.Context, chatID int64, query string) (*store.Turn, error) {
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(query) == "" {
		return nil, rag.ErrEmptyQuery
	}
	if _, err := f.st.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	return f.st.CreateTurn(ctx, chatID, query, "a canned answer")
}

func newTestHandler(t *testing.T) (*ChatHandler, *store.Store) {
	t.Helper()
	st, err := store.NewInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	h := &ChatHandler{
		Assistant: &fakeAssistant{st: st},
		Store:     st,
		Users:     &EmailHeaderResolver{Store: st},
	}
	return h, st
}

func newMux(h *ChatHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chats", h.Create)
	mux.HandleFunc("GET /api/chats", h.List)
	mux.HandleFunc("GET /api/chats/{id}", h.Get)
	mux.HandleFunc("POST /api/chats/{id}", h.Reply)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateChat(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, newMux(h), "POST", "/api/chats", `{"query":"What causes migraines?"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var chat api.Chat
	if err := json.Unmarshal(rec.Body.Bytes(), &chat); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if chat.Title != "Test Chat Title" {
		t.Errorf("title = %q", chat.Title)
	}
	if len(chat.Turns) != 1 || chat.Turns[0].Question != "What causes migraines?" {
		t.Errorf("turns = %+v", chat.Turns)
	}
}

func TestCreateChatEmptyQuery(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, newMux(h), "POST", "/api/chats", `{"query":"  "}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var resp api.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error.Code != "invalid_request" {
		t.Errorf("error code = %q", resp.Error.Code)
	}
}

func TestReplyUnknownChatIs404(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, newMux(h), "POST", "/api/chats/999", `{"query":"hello"}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var resp api.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error.Code != "not_found" {
		t.Errorf("error code = %q", resp.Error.Code)
	}
}

func TestReplyBadChatID(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, newMux(h), "POST", "/api/chats/abc", `{"query":"hello"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGenerationFailureIs502(t *testing.T) {
	h, st := newTestHandler(t)
	h.Assistant = &fakeAssistant{st: st, err: &rag.GenerationError{Err: context.DeadlineExceeded}}

	rec := doJSON(t, newMux(h), "POST", "/api/chats", `{"query":"hi"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp api.ErrorResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Error.Code != "generation_failed" {
		t.Errorf("error code = %q", resp.Error.Code)
	}
}

func TestGetChatIncludesHistoryAndSummary(t *testing.T) {
	h, st := newTestHandler(t)
	ctx := context.Background()
	user, _ := st.CreateUser(ctx, "ada", "ada@example.com")
	chat, _ := st.CreateChat(ctx, user.ID, "History")
	st.CreateTurn(ctx, chat.ID, "q1", "a1")
	st.CreateTurn(ctx, chat.ID, "q2", "a2")
	st.UpsertSummary(ctx, chat.ID, "the rolling summary")

	rec := doJSON(t, newMux(h), "GET", "/api/chats/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got api.Chat
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Turns) != 2 || got.Turns[0].Question != "q1" || got.Turns[1].Question != "q2" {
		t.Errorf("turns = %+v", got.Turns)
	}
	if got.Summary != "the rolling summary" {
		t.Errorf("summary = %q", got.Summary)
	}
}

func TestListChatsScopedToHeaderUser(t *testing.T) {
	h, st := newTestHandler(t)
	mux := newMux(h)
	ctx := context.Background()

	ada, _ := st.CreateUser(ctx, "ada", "ada@example.com")
	bob, _ := st.CreateUser(ctx, "bob", "bob@example.com")
	st.CreateChat(ctx, ada.ID, "Ada One")
	st.CreateChat(ctx, bob.ID, "Bob One")
	st.CreateChat(ctx, ada.ID, "Ada Two")

	req := httptest.NewRequest("GET", "/api/chats", nil)
	req.Header.Set("X-User-Email", "ada@example.com")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp api.ChatListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Chats) != 2 {
		t.Fatalf("chats = %d, want 2", len(resp.Chats))
	}
	// Newest first.
	if resp.Chats[0].Title != "Ada Two" || resp.Chats[1].Title != "Ada One" {
		t.Errorf("order = %q, %q", resp.Chats[0].Title, resp.Chats[1].Title)
	}
}

func TestResolverCreatesUserOnFirstSight(t *testing.T) {
	h, st := newTestHandler(t)
	req := httptest.NewRequest("GET", "/api/chats", nil)
	req.Header.Set("X-User-Email", "new@example.com")
	rec := httptest.NewRecorder()
	newMux(h).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	user, err := st.GetUserByEmail(context.Background(), "new@example.com")
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if user.Name != "new" {
		t.Errorf("derived name = %q, want local part of email", user.Name)
	}
}

func TestResolverDefaultsWithoutHeader(t *testing.T) {
	h, st := newTestHandler(t)
	rec := doJSON(t, newMux(h), "GET", "/api/chats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, err := st.GetUserByEmail(context.Background(), DefaultUserEmail); err != nil {
		t.Errorf("default user not created: %v", err)
	}
}
