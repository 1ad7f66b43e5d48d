package rag

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/careloop/server/internal/store"
)

// optimizeQuery rewrites a follow-up query into a standalone question using
// the given recent turns. Callers must only invoke this when the chat has at
// least one prior turn; for a fresh chat the raw query is used verbatim.
//
// Optimization is best-effort: if the generation call fails terminally the
// original query is returned unchanged rather than failing the whole reply.
func (e *Engine) optimizeQuery(ctx context.Context, query string, recent []store.Turn) string {
	prompt := fmt.Sprintf(standaloneQueryPrompt, FormatTurns(recent), query)

	rewritten, err := e.generator.Generate(ctx, prompt, 0)
	if err != nil {
		log.Printf("query optimization failed, using raw query: %v", err)
		return query
	}

	rewritten = strings.Trim(strings.TrimSpace(rewritten), `"`)
	if rewritten == "" {
		return query
	}
	return rewritten
}
