// Package rag implements the reply pipeline: two-tier conversational memory
// (verbatim recent turns plus a rolling long-term summary), follow-up query
// rewriting, passage retrieval, and bounded prompt assembly for the
// downstream generation call.
package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/careloop/server/internal/retrieval"
	"github.com/careloop/server/internal/store"
)

// Generator is the text-generation collaborator. It owns its own retry and
// rate-limit behavior; an error from Generate is terminal for the caller's
// current request.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Retriever is the passage-retrieval collaborator. "No results" is an empty
// slice, never an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]retrieval.Passage, error)
}

// Store is the persistence collaborator for chats, turns and summaries.
type Store interface {
	CreateChat(ctx context.Context, userID int64, title string) (*store.Chat, error)
	GetChat(ctx context.Context, chatID int64) (*store.Chat, error)
	CreateTurn(ctx context.Context, chatID int64, question, answer string) (*store.Turn, error)
	GetTurns(ctx context.Context, chatID int64) ([]store.Turn, error)
	GetSummary(ctx context.Context, chatID int64) (*store.Summary, error)
	UpsertSummary(ctx context.Context, chatID int64, content string) error
}

// ErrEmptyQuery rejects a request before any collaborator call is made.
var ErrEmptyQuery = errors.New("query must not be empty")

// GenerationError wraps a terminal failure of the generation collaborator.
// It is the only failure fatal to a request: no turn is persisted when the
// reply could not be generated.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("reply generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
