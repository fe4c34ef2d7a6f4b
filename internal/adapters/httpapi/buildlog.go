package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/buildlog"
)

type createBuildLogRequest struct {
	WeekStart       string `json:"weekStart"`
	ClientWork      string `json:"clientWork"`
	SoftwareDev     string `json:"softwareDev"`
	Prototyping     string `json:"prototyping"`
	Reading         string `json:"reading"`
	VoiceTranscript string `json:"voiceTranscript"`
}

type updateBuildLogRequest struct {
	ClientWork      *string `json:"clientWork"`
	SoftwareDev     *string `json:"softwareDev"`
	Prototyping     *string `json:"prototyping"`
	Reading         *string `json:"reading"`
	VoiceTranscript *string `json:"voiceTranscript"`
	Status          *string `json:"status"`
}

func (s *Server) handleListBuildLogs(w http.ResponseWriter, r *http.Request) {
	entries, err := s.buildLogs.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to fetch build log entries")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleCreateBuildLog(w http.ResponseWriter, r *http.Request) {
	var req createBuildLogRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := s.buildLogs.Create(r.Context(), buildlog.CreateInput(req))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to create build log entry")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleGetBuildLog(w http.ResponseWriter, r *http.Request) {
	entry, err := s.buildLogs.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to fetch build log entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleUpdateBuildLog(w http.ResponseWriter, r *http.Request) {
	var req updateBuildLogRequest
	if !decodeBody(w, r, &req) {
		return
	}
	entry, err := s.buildLogs.Update(r.Context(), chi.URLParam(r, "id"), buildlog.UpdateInput(req))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to update build log entry")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteBuildLog(w http.ResponseWriter, r *http.Request) {
	if err := s.buildLogs.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err, "Failed to delete build log entry")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
