package retrieval

import (
	"context"

	"github.com/careloop/server/internal/llm"
)

// NewRemoteEmbedFunc returns an EmbedFunc that calls the inference server's
// /v1/embeddings endpoint via the llm client.
func NewRemoteEmbedFunc(client *llm.Client) EmbedFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return client.Embed(ctx, text)
	}
}
