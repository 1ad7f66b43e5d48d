package rag

import (
	"strings"

	"github.com/careloop/server/internal/store"
)

// FormatTurns renders turns as conversation text, two lines per turn:
//
//	User: <question>
//	AI: <answer>
//
// Order is preserved and no truncation happens here; callers decide how many
// turns to pass. An empty slice yields an empty string.
func FormatTurns(turns []store.Turn) string {
	if len(turns) == 0 {
		return ""
	}
	lines := make([]string, 0, len(turns)*2)
	for _, t := range turns {
		lines = append(lines, "User: "+t.Question)
		lines = append(lines, "AI: "+t.Answer)
	}
	return strings.Join(lines, "\n")
}

// lastN returns the trailing n turns in their original chronological order.
func lastN(turns []store.Turn, n int) []store.Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}
