package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/philippgille/chromem-go"
)

// Index is a chromem-go backed passage index with hybrid search. Semantic
// similarity is blended with keyword overlap so literal medical terms in the
// query still rank passages that embeddings alone would miss.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.RWMutex
}

const collectionName = "passages"

// NewIndex opens (or creates) a persistent passage index at persistDir.
func NewIndex(persistDir string, embed EmbedFunc) (*Index, error) {
	db, err := chromem.NewPersistentDB(persistDir, false)
	if err != nil {
		return nil, fmt.Errorf("create persistent DB: %w", err)
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}

	return &Index{db: db, collection: col}, nil
}

// NewIndexInMemory creates an in-memory index for testing.
func NewIndexInMemory(embed EmbedFunc) (*Index, error) {
	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, chromem.EmbeddingFunc(embed))
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}
	return &Index{db: db, collection: col}, nil
}

// Add indexes a batch of passages. Passages without an ID get one assigned.
func (ix *Index) Add(ctx context.Context, passages []Passage) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	docs := make([]chromem.Document, 0, len(passages))
	for _, p := range passages {
		if p.ID == "" {
			p.ID = uuid.New().String()
		}
		docs = append(docs, chromem.Document{
			ID:      p.ID,
			Content: p.Text,
			Metadata: map[string]string{
				"source": p.Source,
			},
		})
	}

	if err := ix.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}
	return nil
}

// Retrieve returns up to k passages for the query, ordered by combined score
// descending. An empty index yields (nil, nil); "no results" is not an error.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]Passage, error) {
	if k <= 0 {
		k = 5
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	count := ix.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	results, err := ix.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection: %w", err)
	}

	// Hybrid score: 70% semantic + 30% keyword overlap.
	queryWords := extractWords(query)
	passages := make([]Passage, 0, len(results))
	for _, r := range results {
		kw := keywordScore(queryWords, r.Content)
		passages = append(passages, Passage{
			ID:     r.ID,
			Text:   r.Content,
			Source: r.Metadata["source"],
			Score:  0.7*r.Similarity + 0.3*kw,
		})
	}

	sort.Slice(passages, func(i, j int) bool {
		return passages[i].Score > passages[j].Score
	})

	return passages, nil
}

// Count returns the number of indexed passages.
func (ix *Index) Count() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.collection.Count()
}

// Keyword scoring helpers.

// extractWords returns lowercased words from text with length >= 3.
func extractWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if len(w) >= 3 {
			words = append(words, w)
		}
	}
	return words
}

// keywordScore computes the fraction of query words found in the content.
func keywordScore(queryWords []string, content string) float32 {
	if len(queryWords) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	matches := 0
	for _, w := range queryWords {
		if strings.Contains(lower, w) {
			matches++
		}
	}
	return float32(matches) / float32(len(queryWords))
}
