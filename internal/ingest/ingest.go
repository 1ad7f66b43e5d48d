// Package ingest loads reference documents, splits them into overlapping
// chunks and feeds the chunks into the passage index.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"strings"

	"github.com/careloop/server/internal/retrieval"
)

// Sink receives chunked passages. *retrieval.Index satisfies it.
type Sink interface {
	Add(ctx context.Context, passages []retrieval.Passage) error
}

// Ingestor turns documents into indexed passages.
type Ingestor struct {
	sink      Sink
	chunkSize int
	overlap   int
}

func New(sink Sink) *Ingestor {
	return &Ingestor{sink: sink, chunkSize: DefaultChunkSize, overlap: DefaultOverlap}
}

// WithChunking overrides the chunk size and overlap.
func (in *Ingestor) WithChunking(size, overlap int) *Ingestor {
	in.chunkSize = size
	in.overlap = overlap
	return in
}

// File extracts, chunks and indexes a single document. It returns the
// number of passages added.
func (in *Ingestor) File(ctx context.Context, path string) (int, error) {
	text, err := ExtractText(path)
	if err != nil {
		return 0, err
	}

	chunks := Chunk(text, in.chunkSize, in.overlap)
	if len(chunks) == 0 {
		return 0, nil
	}

	source := filepath.Base(path)
	passages := make([]retrieval.Passage, len(chunks))
	for i, c := range chunks {
		passages[i] = retrieval.Passage{Text: c, Source: source}
	}
	if err := in.sink.Add(ctx, passages); err != nil {
		return 0, fmt.Errorf("index %s: %w", path, err)
	}
	return len(passages), nil
}

// Dir walks root and ingests every supported document beneath it.
// Unsupported files are skipped; extraction failures are logged and
// skipped so one corrupt file does not abort a corpus load.
func (in *Ingestor) Dir(ctx context.Context, root string) (int, error) {
	total := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !supportedExt(path) {
			return nil
		}
		n, err := in.File(ctx, path)
		if err != nil {
			log.Printf("skipping %s: %v", path, err)
			return nil
		}
		log.Printf("ingested %s: %d passages", path, n)
		total += n
		return nil
	})
	if err != nil {
		return total, fmt.Errorf("walk %s: %w", root, err)
	}
	return total, nil
}

func supportedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".html", ".htm", ".txt", ".md":
		return true
	}
	return false
}
