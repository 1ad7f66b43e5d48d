package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/careloop/server/internal/config"
	"github.com/careloop/server/internal/ingest"
	"github.com/careloop/server/internal/llm"
	"github.com/careloop/server/internal/retrieval"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Load reference documents into the passage index",
	Long: `Extract, chunk and embed reference documents so the assistant can
ground its answers in them. Accepts files or directories; supported
formats are PDF, HTML, plain text and Markdown.

The embedding endpoint configured with --llm-url must be reachable.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		if llmURL, _ := cmd.Flags().GetString("llm-url"); llmURL != "" {
			cfg.LLMURL = llmURL
		}
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			cfg.Model = model
		}
		if indexDir, _ := cmd.Flags().GetString("index-dir"); indexDir != "" {
			cfg.IndexDir = indexDir
		}
		chunkSize, _ := cmd.Flags().GetInt("chunk-size")
		overlap, _ := cmd.Flags().GetInt("chunk-overlap")

		if err := config.EnsureDirs(cfg); err != nil {
			return err
		}

		client := llm.New(cfg.LLMURL, cfg.Model)
		index, err := retrieval.NewIndex(cfg.IndexDir, retrieval.NewRemoteEmbedFunc(client))
		if err != nil {
			return err
		}

		in := ingest.New(index).WithChunking(chunkSize, overlap)

		ctx := cmd.Context()
		total := 0
		for _, path := range args {
			n, err := ingestPath(ctx, in, path)
			if err != nil {
				return err
			}
			total += n
		}

		fmt.Printf("Indexed %d passages (%d total in index)\n", total, index.Count())
		return nil
	},
}

func ingestPath(ctx context.Context, in *ingest.Ingestor, path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return in.Dir(ctx, path)
	}
	return in.File(ctx, path)
}

func init() {
	ingestCmd.Flags().String("llm-url", "", "OpenAI-compatible inference server URL")
	ingestCmd.Flags().String("model", "", "model name for embedding requests")
	ingestCmd.Flags().String("index-dir", "", "passage index directory")
	ingestCmd.Flags().Int("chunk-size", ingest.DefaultChunkSize, "chunk size in characters")
	ingestCmd.Flags().Int("chunk-overlap", ingest.DefaultOverlap, "overlap between consecutive chunks")
	rootCmd.AddCommand(ingestCmd)
}
