package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/careloop/server/internal/store"
)

// SummaryStrategy decides how a chat's long-term summary evolves after a new
// turn. Update returns the resulting summary text and whether it differs from
// the existing one; (existing, false) means nothing to persist.
type SummaryStrategy interface {
	Update(ctx context.Context, existing string, latest store.Turn, history []store.Turn) (text string, changed bool, err error)
}

// RelevanceGated is the default strategy. With no existing summary it
// synthesizes a fresh one from the full turn history. With an existing
// summary it first classifies whether the newest turn is significant enough
// to merge; irrelevant or ambiguous turns leave the summary untouched.
type RelevanceGated struct {
	Generator       Generator
	SummaryTokens   int // max tokens for the generated summary text
	relevanceTokens int
}

// NewRelevanceGated creates the default strategy bound to a generator.
func NewRelevanceGated(g Generator, summaryTokens int) *RelevanceGated {
	if summaryTokens <= 0 {
		summaryTokens = 1250
	}
	return &RelevanceGated{
		Generator:       g,
		SummaryTokens:   summaryTokens,
		relevanceTokens: 8,
	}
}

func (s *RelevanceGated) Update(ctx context.Context, existing string, latest store.Turn, history []store.Turn) (string, bool, error) {
	if existing == "" {
		return s.fresh(ctx, history)
	}
	return s.merge(ctx, existing, latest)
}

// fresh synthesizes the chat's first summary from its full history.
func (s *RelevanceGated) fresh(ctx context.Context, history []store.Turn) (string, bool, error) {
	if len(history) == 0 {
		return "", false, nil
	}
	prompt := fmt.Sprintf(freshSummaryPrompt, FormatTurns(history))
	text, err := s.Generator.Generate(ctx, prompt, s.SummaryTokens)
	if err != nil {
		return "", false, fmt.Errorf("fresh summary: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false, nil
	}
	return text, true, nil
}

// merge folds the newest turn into the existing summary, gated on relevance.
func (s *RelevanceGated) merge(ctx context.Context, existing string, latest store.Turn) (string, bool, error) {
	rendered := FormatTurns([]store.Turn{latest})

	relevant, err := s.isRelevant(ctx, existing, rendered)
	if err != nil {
		return existing, false, fmt.Errorf("relevance check: %w", err)
	}
	if !relevant {
		return existing, false, nil
	}

	prompt := fmt.Sprintf(mergeSummaryPrompt, existing, rendered)
	text, err := s.Generator.Generate(ctx, prompt, s.SummaryTokens)
	if err != nil {
		return existing, false, fmt.Errorf("merge summary: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" || text == existing {
		return existing, false, nil
	}
	return text, true, nil
}

// isRelevant classifies whether new content merits updating the summary.
// The model is constrained to a single yes/no token; anything else counts as
// "no", so an ambiguous signal never triggers a merge.
func (s *RelevanceGated) isRelevant(ctx context.Context, summary, newContent string) (bool, error) {
	prompt := fmt.Sprintf(relevancePrompt, summary, newContent)
	reply, err := s.Generator.Generate(ctx, prompt, s.relevanceTokens)
	if err != nil {
		return false, err
	}

	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, nil
	}
}
