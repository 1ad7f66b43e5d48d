package retrieval

import "context"

// Passage is a retrieved snippet from the reference corpus, ranked by
// relevance. Passages are transient and are never persisted by the core.
type Passage struct {
	ID     string
	Text   string
	Source string // originating file, for ingest bookkeeping
	Score  float32
}

// EmbedFunc is a function that produces a float32 embedding vector from text.
type EmbedFunc func(ctx context.Context, text string) ([]float32, error)
