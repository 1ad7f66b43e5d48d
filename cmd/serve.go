package cmd

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/careloop/server/internal/config"
	"github.com/careloop/server/internal/llm"
	"github.com/careloop/server/internal/rag"
	"github.com/careloop/server/internal/retrieval"
	"github.com/careloop/server/internal/server"
	"github.com/careloop/server/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Careloop backend server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()

		if host, _ := cmd.Flags().GetString("host"); host != "" {
			cfg.Host = host
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Port = port
		}
		if llmURL, _ := cmd.Flags().GetString("llm-url"); llmURL != "" {
			cfg.LLMURL = llmURL
		}
		if model, _ := cmd.Flags().GetString("model"); model != "" {
			cfg.Model = model
		}
		if indexDir, _ := cmd.Flags().GetString("index-dir"); indexDir != "" {
			cfg.IndexDir = indexDir
		}
		if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
			cfg.DBPath = dbPath
		}

		if err := config.EnsureDirs(cfg); err != nil {
			return err
		}

		client := llm.New(cfg.LLMURL, cfg.Model)

		// The server still starts when the backend is down; replies fail
		// with a gateway error until it comes back.
		pingCtx, cancelPing := context.WithTimeout(cmd.Context(), 3*time.Second)
		if err := client.Health(pingCtx); err != nil {
			log.Printf("Warning: inference server %s not reachable: %v", client.BaseURL(), err)
		}
		cancelPing()

		index, err := retrieval.NewIndex(cfg.IndexDir, retrieval.NewRemoteEmbedFunc(client))
		if err != nil {
			return err
		}
		log.Printf("Passage index ready (%d passages)", index.Count())

		st, err := store.New(cfg.DBPath)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := st.AutoMigrate(ctx); err != nil {
			return err
		}

		engine := rag.NewEngine(client, index, st, rag.DefaultOptions())

		srv := server.New(cfg, engine, st)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().String("host", "0.0.0.0", "bind address")
	serveCmd.Flags().Int("port", 8080, "listen port")
	serveCmd.Flags().String("llm-url", "", "OpenAI-compatible inference server URL")
	serveCmd.Flags().String("model", "", "model name for generation requests")
	serveCmd.Flags().String("index-dir", "", "passage index directory")
	serveCmd.Flags().String("db", "", "SQLite database path")
	rootCmd.AddCommand(serveCmd)
}
