package httpapi

import (
	"errors"
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

type sourceContentResponse struct {
	Content     *string    `json:"content"`
	ExtractedAt *time.Time `json:"extractedAt,omitempty"`
	ContentHash string     `json:"contentHash,omitempty"`
	Message     string     `json:"message,omitempty"`
}

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	list, err := s.sources.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to fetch sources")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleSourceContent(w http.ResponseWriter, r *http.Request) {
	snap, err := s.sources.Content(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNoSnapshot) {
		writeJSON(w, http.StatusOK, sourceContentResponse{Message: "No content synced yet"})
		return
	}
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to fetch source content")
		return
	}
	writeJSON(w, http.StatusOK, sourceContentResponse{Content: &snap.Content, ExtractedAt: &snap.ExtractedAt, ContentHash: snap.ContentHash})
}

func (s *Server) handleSyncSources(w http.ResponseWriter, r *http.Request) {
	report, err := s.sources.Sync(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to sync sources")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
