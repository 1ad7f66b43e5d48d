package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/careloop/server/internal/config"
	"github.com/careloop/server/internal/rag"
	"github.com/careloop/server/internal/store"
)

// Server is the Careloop HTTP API server.
type Server struct {
	cfg    *config.Config
	http   *http.Server
	engine *rag.Engine
	store  *store.Store
}

// New creates a new Server around an assembled conversation engine.
func New(cfg *config.Config, engine *rag.Engine, st *store.Store) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		store:  st,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.http = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: withLogging(withCORS(mux)),
	}

	return s
}

// Start starts the server and blocks until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	log.Printf("Careloop server listening on %s", s.http.Addr)
	log.Printf("LLM backend: %s (model %s)", s.cfg.LLMURL, s.cfg.Model)
	log.Printf("Passage index: %s", s.cfg.IndexDir)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
