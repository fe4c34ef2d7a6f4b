package httpapi

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/readings"
)

type captureReadingRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Excerpt     string `json:"excerpt"`
	Description string `json:"description"`
}

type captureReadingResponse struct {
	ID      string               `json:"id"`
	Status  domain.ReadingStatus `json:"status"`
	Reading domain.Reading       `json:"reading"`
	Message string               `json:"message,omitempty"`
}

type listReadingsResponse struct {
	Readings []domain.Reading `json:"readings"`
	Total    int              `json:"total"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

type updateReadingRequest struct {
	Status          *string   `json:"status"`
	UserNote        *string   `json:"userNote"`
	UserTags        *[]string `json:"userTags"`
	UsedInContentID *string   `json:"usedInContentId"`
}

type readingResultResponse struct {
	Success bool           `json:"success"`
	Reading domain.Reading `json:"reading"`
}

func (s *Server) handleListReadings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid limit")
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid offset")
		return
	}
	q := r.URL.Query()
	list, total, filter, err := s.readings.List(r.Context(), domain.ReadingFilter{
		Status: domain.ReadingStatus(q.Get("status")),
		Tag:    q.Get("tag"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to fetch readings")
		return
	}
	writeJSON(w, http.StatusOK, listReadingsResponse{Readings: list, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (s *Server) handleCaptureReading(w http.ResponseWriter, r *http.Request) {
	var req captureReadingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reading, created, err := s.readings.Capture(r.Context(), readings.CaptureInput(req))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to create reading")
		return
	}
	if !created {
		writeJSON(w, http.StatusOK, captureReadingResponse{ID: reading.ID, Status: reading.Status, Reading: reading, Message: "Reading already exists"})
		return
	}
	writeJSON(w, http.StatusCreated, captureReadingResponse{ID: reading.ID, Status: reading.Status, Reading: reading})
}

func (s *Server) handleCountReadings(w http.ResponseWriter, r *http.Request) {
	counts, err := s.readings.Count(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to count readings")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleGetReading(w http.ResponseWriter, r *http.Request) {
	reading, err := s.readings.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to fetch reading")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleUpdateReading(w http.ResponseWriter, r *http.Request) {
	var req updateReadingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	reading, err := s.readings.Update(r.Context(), chi.URLParam(r, "id"), readings.UpdateInput(req))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to update reading")
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleDeleteReading(w http.ResponseWriter, r *http.Request) {
	if err := s.readings.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err, "Failed to delete reading")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleAnalyzeReading(w http.ResponseWriter, r *http.Request) {
	reading, err := s.readings.Analyze(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to analyze reading")
		return
	}
	writeJSON(w, http.StatusOK, readingResultResponse{Success: true, Reading: reading})
}

func (s *Server) handleFetchReading(w http.ResponseWriter, r *http.Request) {
	reading, err := s.readings.FetchContent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to fetch reading content")
		return
	}
	writeJSON(w, http.StatusOK, readingResultResponse{Success: true, Reading: reading})
}
