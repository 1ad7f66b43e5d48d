package rag

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// titleWordFallback caps the fallback title derived from the raw query.
const titleWordFallback = 5

// generateTitle produces the fixed-length chat title from the opening query.
// Title generation is best-effort: on failure the opening words of the query
// serve as the title so chat creation never fails on a cosmetic step.
func (e *Engine) generateTitle(ctx context.Context, firstQuery string) string {
	prompt := fmt.Sprintf(titlePrompt, firstQuery)
	title, err := e.generator.Generate(ctx, prompt, e.opts.TitleTokens*4)
	if err != nil {
		log.Printf("title generation failed, falling back to query prefix: %v", err)
		return fallbackTitle(firstQuery)
	}

	title = strings.Trim(strings.TrimSpace(title), `"`)
	if title == "" {
		return fallbackTitle(firstQuery)
	}
	return title
}

func fallbackTitle(query string) string {
	words := strings.Fields(query)
	if len(words) > titleWordFallback {
		words = words[:titleWordFallback]
	}
	return strings.Join(words, " ")
}
