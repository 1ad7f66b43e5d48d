package server

import (
	"log"
	"net/http"

	"github.com/careloop/server/internal/server/handlers"
)

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health
	mux.HandleFunc("GET /health", handlers.Health)

	// Conversations
	chats := &handlers.ChatHandler{
		Assistant: s.engine,
		Store:     s.store,
		Users:     &handlers.EmailHeaderResolver{Store: s.store},
	}
	mux.HandleFunc("POST /api/chats", chats.Create)
	mux.HandleFunc("GET /api/chats", chats.List)
	mux.HandleFunc("GET /api/chats/{id}", chats.Get)
	mux.HandleFunc("POST /api/chats/{id}", chats.Reply)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-User-Email")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
