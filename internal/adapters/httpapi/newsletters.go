package httpapi

import (
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/adapters/render"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/generation"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/newsletter"
)

type createNewsletterRequest struct {
	Title       string `json:"title"`
	IssueNumber *int   `json:"issueNumber"`
	Slug        string `json:"slug"`
	Theme       string `json:"theme"`
}

type createNewsletterResponse struct {
	ID         string            `json:"id"`
	Newsletter domain.Newsletter `json:"newsletter"`
}

type listNewslettersResponse struct {
	Newsletters []domain.Newsletter `json:"newsletters"`
	Total       int                 `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

type getNewsletterResponse struct {
	Newsletter domain.Newsletter          `json:"newsletter"`
	Metadata   *domain.NewsletterMetadata `json:"metadata"`
}

type newsletterResponse struct {
	Newsletter domain.Newsletter `json:"newsletter"`
}

type sectionEditRequest struct {
	ID           string `json:"id"`
	BodyMarkdown string `json:"bodyMarkdown"`
}

type updateNewsletterRequest struct {
	Title        *string                    `json:"title"`
	Status       *string                    `json:"status"`
	BodyMarkdown *string                    `json:"bodyMarkdown"`
	Metadata     *domain.NewsletterMetadata `json:"metadata"`
	Sections     []sectionEditRequest       `json:"sections"`
}

type generateRequest struct {
	SectionID         string   `json:"sectionId"`
	SelectedBuildLogs []string `json:"selectedBuildLogs"`
	SelectedReadings  []string `json:"selectedReadings"`
	Theme             string   `json:"theme"`
}

type linkSourcesRequest struct {
	SourceIDs []string `json:"sourceIds"`
}

func (s *Server) handleListNewsletters(w http.ResponseWriter, r *http.Request) {
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
	list, total, filter, err := s.newsletters.List(r.Context(), domain.NewsletterFilter{
		Status: domain.ContentStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to fetch newsletters")
		return
	}
	writeJSON(w, http.StatusOK, listNewslettersResponse{Newsletters: list, Total: total, Limit: filter.Limit, Offset: filter.Offset})
}

func (s *Server) handleCreateNewsletter(w http.ResponseWriter, r *http.Request) {
	var req createNewsletterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := s.newsletters.Create(r.Context(), newsletter.CreateInput(req))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to create newsletter")
		return
	}
	writeJSON(w, http.StatusCreated, createNewsletterResponse{ID: n.ID, Newsletter: n})
}

func (s *Server) handleGetNewsletter(w http.ResponseWriter, r *http.Request) {
	n, err := s.newsletters.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to fetch newsletter")
		return
	}
	meta := n.Metadata
	if meta == nil {
		meta = &domain.NewsletterMetadata{SelectedBuildLogs: []string{}, SelectedReadings: []string{}}
	}
	writeJSON(w, http.StatusOK, getNewsletterResponse{Newsletter: n, Metadata: meta})
}

func (s *Server) handleUpdateNewsletter(w http.ResponseWriter, r *http.Request) {
	var req updateNewsletterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	in := newsletter.UpdateInput{
		Title:        req.Title,
		Status:       req.Status,
		BodyMarkdown: req.BodyMarkdown,
		Metadata:     req.Metadata,
	}
	for _, sec := range req.Sections {
		in.Sections = append(in.Sections, domain.SectionEdit(sec))
	}
	n, err := s.newsletters.Update(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to update newsletter")
		return
	}
	writeJSON(w, http.StatusOK, newsletterResponse{Newsletter: n})
}

func (s *Server) handleDeleteNewsletter(w http.ResponseWriter, r *http.Request) {
	if err := s.newsletters.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, r, err, "Failed to delete newsletter")
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

func (s *Server) handleLinkSources(w http.ResponseWriter, r *http.Request) {
	var req linkSourcesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := s.newsletters.LinkSources(r.Context(), chi.URLParam(r, "id"), req.SourceIDs)
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to link sources")
		return
	}
	writeJSON(w, http.StatusOK, newsletterResponse{Newsletter: n})
}

func (s *Server) handleExportNewsletter(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format == "" {
		format = "markdown"
	}
	if format != "markdown" && format != "html" {
		writeError(w, http.StatusBadRequest, "invalid_request", "format must be markdown or html")
		return
	}
	n, err := s.newsletters.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to export newsletter")
		return
	}

	body := render.Markdown(n)
	contentType := "text/markdown; charset=utf-8"
	if format == "html" {
		body, err = render.HTML(n)
		if err != nil {
			s.writeDomainError(w, r, err, "Failed to export newsletter")
			return
		}
		contentType = "text/html; charset=utf-8"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (s *Server) handleGenerateSection(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SectionID) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "sectionId is required")
		return
	}
	res, err := s.generation.GenerateSection(r.Context(), generation.Request{
		NewsletterID: chi.URLParam(r, "id"),
		SectionID:    req.SectionID,
		BuildLogIDs:  req.SelectedBuildLogs,
		ReadingIDs:   req.SelectedReadings,
		Theme:        strings.TrimSpace(req.Theme),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "Failed to generate content")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
