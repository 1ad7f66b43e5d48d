package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// User is a registered account. Authentication happens upstream; the store
// only resolves identities.
type User struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
}

// Chat is one conversation. Its title is assigned at creation and never
// changes.
type Chat struct {
	ID        int64
	UserID    int64
	Title     string
	CreatedAt time.Time
}

// Turn is one user question plus the assistant's answer. Turns are immutable
// once created and ordered by creation.
type Turn struct {
	ID        int64
	ChatID    int64
	Question  string
	Answer    string
	CreatedAt time.Time
}

// Summary is the single rolling long-term summary of a chat.
type Summary struct {
	ID        int64
	ChatID    int64
	Content   string
	UpdatedAt time.Time
}

const timeLayout = "2006-01-02 15:04:05"

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, name, email string) (*User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email) VALUES (?, ?)`, name, email)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user id: %w", err)
	}
	return &User{ID: id, Name: name, Email: email}, nil
}

// GetUserByEmail looks a user up by email. Returns ErrUserNotFound when the
// email is unknown.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, created_at FROM users WHERE email = ?`, email)

	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return &u, nil
}

// CreateChat creates a chat with its immutable title.
func (s *Store) CreateChat(ctx context.Context, userID int64, title string) (*Chat, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (user_id, title) VALUES (?, ?)`, userID, title)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create chat id: %w", err)
	}
	return &Chat{ID: id, UserID: userID, Title: title}, nil
}

// GetChat fetches a chat by id. Returns ErrChatNotFound for unknown ids.
func (s *Store) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, created_at FROM chats WHERE id = ?`, chatID)

	var c Chat
	var created string
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	c.CreatedAt = parseTime(created)
	return &c, nil
}

// ListChats returns a user's chats, newest first.
func (s *Store) ListChats(ctx context.Context, userID int64) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, title, created_at FROM chats WHERE user_id = ? ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		var created string
		if err := rows.Scan(&c.ID, &c.UserID, &c.Title, &created); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		c.CreatedAt = parseTime(created)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// CreateTurn appends a completed turn to a chat.
func (s *Store) CreateTurn(ctx context.Context, chatID int64, question, answer string) (*Turn, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (chat_id, question, answer) VALUES (?, ?, ?)`,
		chatID, question, answer)
	if err != nil {
		return nil, fmt.Errorf("create turn: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create turn id: %w", err)
	}
	return &Turn{ID: id, ChatID: chatID, Question: question, Answer: answer}, nil
}

// GetTurns returns all turns of a chat in creation order.
func (s *Store) GetTurns(ctx context.Context, chatID int64) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, question, answer, created_at FROM turns WHERE chat_id = ? ORDER BY id ASC`, chatID)
	if err != nil {
		return nil, fmt.Errorf("get turns: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		var created string
		if err := rows.Scan(&t.ID, &t.ChatID, &t.Question, &t.Answer, &created); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.CreatedAt = parseTime(created)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// CountTurns returns the number of turns in a chat.
func (s *Store) CountTurns(ctx context.Context, chatID int64) (int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE chat_id = ?`, chatID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count turns: %w", err)
	}
	return n, nil
}

// GetSummary returns the chat's live summary, or nil when none exists.
func (s *Store) GetSummary(ctx context.Context, chatID int64) (*Summary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, content, updated_at FROM summaries WHERE chat_id = ?`, chatID)

	var sum Summary
	var updated string
	if err := row.Scan(&sum.ID, &sum.ChatID, &sum.Content, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get summary: %w", err)
	}
	sum.UpdatedAt = parseTime(updated)
	return &sum, nil
}

// UpsertSummary creates the chat's summary row or replaces its content in
// place. The UNIQUE(chat_id) constraint guarantees a single live summary.
func (s *Store) UpsertSummary(ctx context.Context, chatID int64, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (chat_id, content) VALUES (?, ?)
		 ON CONFLICT(chat_id) DO UPDATE SET content = excluded.content, updated_at = datetime('now')`,
		chatID, content)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}
	return nil
}
