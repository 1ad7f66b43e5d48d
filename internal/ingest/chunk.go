package ingest

import "strings"

const (
	// DefaultChunkSize is the target chunk length in characters.
	DefaultChunkSize = 500
	// DefaultOverlap is how many trailing characters each chunk shares
	// with the next one.
	DefaultOverlap = 50
)

// Chunk splits text into overlapping pieces of roughly size characters.
// Splits land on word boundaries where possible so no chunk starts or
// ends mid-word. Whitespace runs are collapsed first; an empty or
// whitespace-only input yields no chunks.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var cur []string
	curLen := 0
	for _, w := range words {
		add := len(w)
		if curLen > 0 {
			add++ // joining space
		}
		if curLen+add > size && curLen > 0 {
			chunks = append(chunks, strings.Join(cur, " "))
			cur = tailWords(cur, overlap)
			curLen = joinedLen(cur)
		}
		cur = append(cur, w)
		curLen += len(w)
	}
	if len(cur) > 0 {
		chunk := strings.Join(cur, " ")
		// The final tail may be pure overlap already emitted.
		if len(chunks) == 0 || !strings.HasSuffix(chunks[len(chunks)-1], chunk) {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}

// tailWords returns the suffix of words whose joined length is at most n.
func tailWords(words []string, n int) []string {
	total := 0
	for i := len(words) - 1; i >= 0; i-- {
		add := len(words[i])
		if total > 0 {
			add++
		}
		if total+add > n {
			return words[i+1:]
		}
		total += add
	}
	return words
}

func joinedLen(words []string) int {
	total := 0
	for i, w := range words {
		if i > 0 {
			total++
		}
		total += len(w)
	}
	return total
}
