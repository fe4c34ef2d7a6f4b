package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/buildlog"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/generation"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/newsletter"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/readings"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/sources"
)

// NewsletterService: операции над выпусками.
type NewsletterService interface {
	Create(ctx context.Context, in newsletter.CreateInput) (domain.Newsletter, error)
	List(ctx context.Context, filter domain.NewsletterFilter) ([]domain.Newsletter, int, domain.NewsletterFilter, error)
	Get(ctx context.Context, id string) (domain.Newsletter, error)
	Update(ctx context.Context, id string, in newsletter.UpdateInput) (domain.Newsletter, error)
	Delete(ctx context.Context, id string) error
	LinkSources(ctx context.Context, id string, sourceIDs []string) (domain.Newsletter, error)
}

// GenerationService генерирует разделы выпуска.
type GenerationService interface {
	GenerateSection(ctx context.Context, req generation.Request) (generation.Result, error)
}

// BuildLogService: операции над недельным журналом.
type BuildLogService interface {
	Create(ctx context.Context, in buildlog.CreateInput) (domain.BuildLogEntry, error)
	List(ctx context.Context) ([]domain.BuildLogEntry, error)
	Get(ctx context.Context, id string) (domain.BuildLogEntry, error)
	Update(ctx context.Context, id string, in buildlog.UpdateInput) (domain.BuildLogEntry, error)
	Delete(ctx context.Context, id string) error
}

// ReadingService: операции над статьями.
type ReadingService interface {
	Capture(ctx context.Context, in readings.CaptureInput) (domain.Reading, bool, error)
	List(ctx context.Context, filter domain.ReadingFilter) ([]domain.Reading, int, domain.ReadingFilter, error)
	Count(ctx context.Context) (domain.ReadingCounts, error)
	Get(ctx context.Context, id string) (domain.Reading, error)
	Update(ctx context.Context, id string, in readings.UpdateInput) (domain.Reading, error)
	Delete(ctx context.Context, id string) error
	Analyze(ctx context.Context, id string) (domain.Reading, error)
	FetchContent(ctx context.Context, id string) (domain.Reading, error)
}

// SourceService: операции над источниками.
type SourceService interface {
	List(ctx context.Context) ([]domain.Source, error)
	Content(ctx context.Context, id string) (domain.SourceSnapshot, error)
	Sync(ctx context.Context) (sources.SyncReport, error)
}

// Server обслуживает JSON API панели.
type Server struct {
	newsletters NewsletterService
	generation  GenerationService
	buildLogs   BuildLogService
	readings    ReadingService
	sources     SourceService
	log         zerolog.Logger
}

// Option настраивает Server.
type Option func(*Server)

// WithLogger задаёт логгер.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithNewsletters подключает маршруты выпусков и генерации.
func WithNewsletters(n NewsletterService, g GenerationService) Option {
	return func(s *Server) {
		s.newsletters = n
		s.generation = g
	}
}

// WithBuildLogs подключает маршруты журнала.
func WithBuildLogs(b BuildLogService) Option {
	return func(s *Server) {
		s.buildLogs = b
	}
}

// WithReadings подключает маршруты статей.
func WithReadings(r ReadingService) Option {
	return func(s *Server) {
		s.readings = r
	}
}

// WithSources подключает маршруты источников.
func WithSources(src SourceService) Option {
	return func(s *Server) {
		s.sources = src
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type conflictResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Entry any    `json:"entry,omitempty"`
}

type successResponse struct {
	Success bool `json:"success"`
}

// NewServer создаёт API сервер.
func NewServer(opts ...Option) *Server {
	srv := &Server{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(srv)
	}
	return srv
}

// Router возвращает маршруты /api. Группы без сервиса не регистрируются.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	if s.newsletters != nil {
		r.Route("/api/newsletter", func(r chi.Router) {
			r.Get("/", s.handleListNewsletters)
			r.Post("/", s.handleCreateNewsletter)
			r.Get("/{id}", s.handleGetNewsletter)
			r.Patch("/{id}", s.handleUpdateNewsletter)
			r.Delete("/{id}", s.handleDeleteNewsletter)
			r.Put("/{id}/sources", s.handleLinkSources)
			r.Get("/{id}/export", s.handleExportNewsletter)
			if s.generation != nil {
				r.Post("/{id}/generate", s.handleGenerateSection)
			}
		})
	}

	if s.buildLogs != nil {
		r.Route("/api/build-log", func(r chi.Router) {
			r.Get("/", s.handleListBuildLogs)
			r.Post("/", s.handleCreateBuildLog)
			r.Get("/{id}", s.handleGetBuildLog)
			r.Patch("/{id}", s.handleUpdateBuildLog)
			r.Delete("/{id}", s.handleDeleteBuildLog)
		})
	}

	if s.readings != nil {
		r.Route("/api/readings", func(r chi.Router) {
			r.Get("/", s.handleListReadings)
			r.Post("/", s.handleCaptureReading)
			r.Get("/count", s.handleCountReadings)
			r.Get("/{id}", s.handleGetReading)
			r.Patch("/{id}", s.handleUpdateReading)
			r.Delete("/{id}", s.handleDeleteReading)
			r.Post("/{id}/analyze", s.handleAnalyzeReading)
			r.Post("/{id}/fetch", s.handleFetchReading)
		})
	}

	if s.sources != nil {
		r.Route("/api/sources", func(r chi.Router) {
			r.Get("/", s.handleListSources)
			r.Post("/sync", s.handleSyncSources)
			r.Get("/{id}/content", s.handleSourceContent)
		})
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// writeDomainError переводит ошибку usecase в HTTP ответ. Внутренние ошибки
// логируются, клиенту уходит fallback.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var (
		vErr     *domain.ValidationError
		conflict *domain.ConflictError
	)
	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, "invalid_request", vErr.Message)
	case errors.Is(err, domain.ErrUnknownSection):
		detail := strings.TrimPrefix(err.Error(), domain.ErrUnknownSection.Error())
		writeError(w, http.StatusBadRequest, "unknown_section", "Unknown section type"+detail)
	case errors.Is(err, domain.ErrNewsletterNotFound):
		writeError(w, http.StatusNotFound, "newsletter_not_found", "Newsletter not found")
	case errors.Is(err, domain.ErrSectionNotFound):
		writeError(w, http.StatusNotFound, "section_not_found", "Section not found")
	case errors.Is(err, domain.ErrReadingNotFound):
		writeError(w, http.StatusNotFound, "reading_not_found", "Reading not found")
	case errors.Is(err, domain.ErrBuildLogNotFound):
		writeError(w, http.StatusNotFound, "build_log_not_found", "Build log entry not found")
	case errors.Is(err, domain.ErrSourceNotFound):
		writeError(w, http.StatusNotFound, "source_not_found", "Source not found")
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, conflictResponse{Error: conflict.Message, Code: "conflict", Entry: conflict.Existing})
	case errors.Is(err, domain.ErrGenerationInProgress):
		writeError(w, http.StatusConflict, "generation_in_progress", "Generation already in progress for this section")
	case errors.Is(err, domain.ErrBuildLogFinalized):
		writeError(w, http.StatusConflict, "build_log_finalized", "Build log entry is finalized")
	case errors.Is(err, domain.ErrCompletionNotConfigured):
		writeError(w, http.StatusInternalServerError, "completion_not_configured", "Completion service is not configured")
	default:
		s.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("api: request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}
