// Package web provides the reference comment backend: four POST endpoints
// per deck, guarded by a static API key, over the SQLite comment table.
package web

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/evcraddock/slidenotes/internal/comment"
	"github.com/evcraddock/slidenotes/internal/logging"
)

// Server is the reference backend HTTP server.
type Server struct {
	repo   *comment.Repository
	router chi.Router
}

// NewServer creates a server over db that accepts apiKey.
func NewServer(db *sql.DB, apiKey string) (*Server, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}

	s := &Server{repo: comment.NewRepository(db)}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger)

	r.Get("/health", s.handleHealth)
	r.Route("/api/decks/{deck}/comments", func(r chi.Router) {
		r.Use(RequireAPIKey(apiKey))
		r.Post("/read", s.apiRead)
		r.Post("/create", s.apiCreate)
		r.Post("/update", s.apiUpdate)
		r.Post("/delete", s.apiDelete)
	})

	s.router = r
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on port until ctx is canceled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting comment backend", "addr", "http://localhost"+srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	apiJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}
