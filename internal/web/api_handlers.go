package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/evcraddock/slidenotes/internal/comment"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// apiError writes a JSON error response.
func apiError(w http.ResponseWriter, msg string, code int) {
	apiJSON(w, map[string]string{"error": msg}, code)
}

// apiJSON writes a JSON response with the given status code.
func apiJSON(w http.ResponseWriter, data interface{}, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encoding response", "error", err)
	}
}

// decode reads a JSON request body into v. It writes the error response and
// returns false on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		apiError(w, "invalid JSON", http.StatusBadRequest)
		return false
	}
	return true
}

// listResponse is the read payload.
type listResponse struct {
	Value []*comment.Comment `json:"value"`
}

func (s *Server) apiRead(w http.ResponseWriter, r *http.Request) {
	comments, err := s.repo.ListByDeck(chi.URLParam(r, "deck"))
	if err != nil {
		slog.Error("listing comments", "error", err)
		apiError(w, "failed to list comments", http.StatusInternalServerError)
		return
	}
	if comments == nil {
		comments = []*comment.Comment{}
	}
	apiJSON(w, listResponse{Value: comments}, http.StatusOK)
}

func (s *Server) apiCreate(w http.ResponseWriter, r *http.Request) {
	var c comment.Comment
	if !decode(w, r, &c) {
		return
	}
	if err := c.Validate(); err != nil {
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := s.repo.Upsert(chi.URLParam(r, "deck"), c)
	if err != nil {
		slog.Error("saving comment", "id", c.ID, "error", err)
		apiError(w, "failed to save comment", http.StatusInternalServerError)
		return
	}
	apiJSON(w, stored, http.StatusCreated)
}

func (s *Server) apiUpdate(w http.ResponseWriter, r *http.Request) {
	var p comment.Patch
	if !decode(w, r, &p) {
		return
	}
	if p.ID == "" {
		apiError(w, "id is required", http.StatusBadRequest)
		return
	}

	updated, err := s.repo.Update(chi.URLParam(r, "deck"), p)
	switch {
	case errors.Is(err, comment.ErrNotFound):
		apiError(w, "comment not found", http.StatusNotFound)
		return
	case errors.Is(err, comment.ErrEmptyText):
		apiError(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		slog.Error("updating comment", "id", p.ID, "error", err)
		apiError(w, "failed to update comment", http.StatusInternalServerError)
		return
	}
	apiJSON(w, map[string]string{"id": updated.ID, "updatedAt": updated.UpdatedAt}, http.StatusOK)
}

func (s *Server) apiDelete(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID string `json:"id"`
	}
	if !decode(w, r, &body) {
		return
	}
	if body.ID == "" {
		apiError(w, "id is required", http.StatusBadRequest)
		return
	}

	err := s.repo.Delete(chi.URLParam(r, "deck"), body.ID)
	switch {
	case errors.Is(err, comment.ErrNotFound):
		apiError(w, "comment not found", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("deleting comment", "id", body.ID, "error", err)
		apiError(w, "failed to delete comment", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
