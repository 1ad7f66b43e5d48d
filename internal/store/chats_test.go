package store

import (
	"context"
	"errors"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.AutoMigrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return s
}

func seedChat(t *testing.T, s *Store) *Chat {
	t.Helper()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "Ada", "ada@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	c, err := s.CreateChat(ctx, u.ID, "Headache Causes And Relief")
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return c
}

func TestChatRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedChat(t, s)

	got, err := s.GetChat(ctx, c.ID)
	if err != nil {
		t.Fatalf("get chat: %v", err)
	}
	if got.Title != "Headache Causes And Relief" {
		t.Errorf("title = %q", got.Title)
	}
	if got.UserID != c.UserID {
		t.Errorf("user id = %d, want %d", got.UserID, c.UserID)
	}
}

func TestGetChatNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetChat(context.Background(), 999)
	if !errors.Is(err, ErrChatNotFound) {
		t.Errorf("err = %v, want ErrChatNotFound", err)
	}
}

func TestGetUserByEmailNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestTurnsPreserveInsertionOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedChat(t, s)

	questions := []string{"first", "second", "third"}
	for _, q := range questions {
		if _, err := s.CreateTurn(ctx, c.ID, q, "answer to "+q); err != nil {
			t.Fatalf("create turn: %v", err)
		}
	}

	turns, err := s.GetTurns(ctx, c.ID)
	if err != nil {
		t.Fatalf("get turns: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}
	for i, q := range questions {
		if turns[i].Question != q {
			t.Errorf("turn %d question = %q, want %q", i, turns[i].Question, q)
		}
	}

	n, err := s.CountTurns(ctx, c.ID)
	if err != nil {
		t.Fatalf("count turns: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3", n)
	}
}

func TestSummarySingleRowPerChat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := seedChat(t, s)

	if sum, err := s.GetSummary(ctx, c.ID); err != nil || sum != nil {
		t.Fatalf("fresh chat summary = (%v, %v), want (nil, nil)", sum, err)
	}

	for i, content := range []string{"v1", "v2", "v3"} {
		if err := s.UpsertSummary(ctx, c.ID, content); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	sum, err := s.GetSummary(ctx, c.ID)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if sum.Content != "v3" {
		t.Errorf("summary = %q, want v3", sum.Content)
	}

	// The row must have been updated in place, never duplicated.
	var count int
	row := s.db.QueryRow(`SELECT COUNT(*) FROM summaries WHERE chat_id = ?`, c.ID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count summaries: %v", err)
	}
	if count != 1 {
		t.Errorf("summary rows = %d, want 1", count)
	}
}

func TestListChatsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "Ada", "ada@example.com")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	first, _ := s.CreateChat(ctx, u.ID, "first")
	second, _ := s.CreateChat(ctx, u.ID, "second")

	chats, err := s.ListChats(ctx, u.ID)
	if err != nil {
		t.Fatalf("list chats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}
	if chats[0].ID != second.ID || chats[1].ID != first.ID {
		t.Errorf("chats not ordered newest first: %v", []int64{chats[0].ID, chats[1].ID})
	}
}
