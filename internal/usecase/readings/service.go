package readings

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service управляет входящими статьями и их анализом.
type Service struct {
	repo      domain.ReadingRepo
	sources   domain.SourceRepo
	completer domain.Completer
	fetcher   domain.PageFetcher
	log       zerolog.Logger
	now       func() time.Time
}

// NewService создаёт сервис статей. completer и fetcher могут быть nil.
func NewService(repo domain.ReadingRepo, sources domain.SourceRepo, completer domain.Completer, fetcher domain.PageFetcher, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		sources:   sources,
		completer: completer,
		fetcher:   fetcher,
		log:       logger.With().Str("component", "readings").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CaptureInput: данные из букмарклета.
type CaptureInput struct {
	URL         string
	Title       string
	Excerpt     string
	Description string
}

// Capture сохраняет статью. Повторный URL возвращает существующую запись и created=false.
func (s *Service) Capture(ctx context.Context, in CaptureInput) (reading domain.Reading, created bool, err error) {
	rawURL := strings.TrimSpace(in.URL)
	title := strings.TrimSpace(in.Title)
	if rawURL == "" || title == "" {
		return domain.Reading{}, false, domain.NewValidationError("url", "URL and title are required")
	}
	if u, err := url.Parse(rawURL); err != nil || u.Host == "" {
		return domain.Reading{}, false, domain.NewValidationError("url", "Invalid URL")
	}

	existing, err := s.repo.GetReadingByURL(ctx, rawURL)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, domain.ErrReadingNotFound):
		return domain.Reading{}, false, fmt.Errorf("поиск статьи: %w", err)
	}

	excerpt := strings.TrimSpace(in.Excerpt)
	if excerpt == "" {
		excerpt = strings.TrimSpace(in.Description)
	}
	reading, err = s.repo.CreateReading(ctx, domain.Reading{
		URL:        rawURL,
		Title:      title,
		Excerpt:    excerpt,
		Status:     domain.ReadingStatusInbox,
		AIChapters: []string{},
		AITags:     []string{},
		UserTags:   []string{},
	})
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			if r, ok := conflict.Existing.(domain.Reading); ok {
				return r, false, nil
			}
		}
		return domain.Reading{}, false, fmt.Errorf("сохранение статьи: %w", err)
	}
	s.log.Info().Str("reading_id", reading.ID).Str("url", rawURL).Msg("readings: captured")
	return reading, true, nil
}

// List возвращает статьи по фильтру и их общее количество.
func (s *Service) List(ctx context.Context, filter domain.ReadingFilter) ([]domain.Reading, int, domain.ReadingFilter, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, filter, domain.NewValidationError("status", fmt.Sprintf("Invalid status: %s", filter.Status))
	}
	filter.Tag = strings.TrimSpace(filter.Tag)
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	list, total, err := s.repo.ListReadings(ctx, filter)
	if err != nil {
		return nil, 0, filter, fmt.Errorf("список статей: %w", err)
	}
	return list, total, filter, nil
}

// Count возвращает количество статей по статусам.
func (s *Service) Count(ctx context.Context) (domain.ReadingCounts, error) {
	return s.repo.CountReadings(ctx)
}

// Get возвращает статью.
func (s *Service) Get(ctx context.Context, id string) (domain.Reading, error) {
	return s.repo.GetReading(ctx, id)
}

// UpdateInput: правка пользовательских полей.
type UpdateInput struct {
	Status          *string
	UserNote        *string
	UserTags        *[]string
	UsedInContentID *string
}

// Update меняет статус и пользовательские поля. Принятие ставит AcceptedAt.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.Reading, error) {
	patch := domain.ReadingPatch{UserNote: in.UserNote, UsedInContentID: in.UsedInContentID}
	if in.Status != nil {
		status := domain.ReadingStatus(*in.Status)
		if !status.Valid() {
			return domain.Reading{}, domain.NewValidationError("status", fmt.Sprintf("Invalid status: %s", *in.Status))
		}
		patch.Status = &status
		if status == domain.ReadingStatusAccepted {
			now := s.now()
			patch.AcceptedAt = &now
		}
	}
	if in.UserTags != nil {
		tags := NormalizeTags(*in.UserTags)
		patch.UserTags = &tags
	}
	r, err := s.repo.UpdateReading(ctx, id, patch)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("обновление статьи: %w", err)
	}
	return r, nil
}

// Delete удаляет статью.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteReading(ctx, id)
}

// FetchContent загружает полный текст статьи по её URL.
func (s *Service) FetchContent(ctx context.Context, id string) (domain.Reading, error) {
	if s.fetcher == nil {
		return domain.Reading{}, errors.New("page fetcher is not configured")
	}
	r, err := s.repo.GetReading(ctx, id)
	if err != nil {
		return domain.Reading{}, err
	}
	text, err := s.fetcher.Fetch(ctx, r.URL)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("загрузка страницы %s: %w", r.URL, err)
	}
	updated, err := s.repo.UpdateReadingContent(ctx, id, text)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("сохранение текста: %w", err)
	}
	s.log.Info().Str("reading_id", id).Int("chars", len(text)).Msg("readings: content fetched")
	return updated, nil
}

// Analyze просит модель оценить статью и перезаписывает только поля модели.
func (s *Service) Analyze(ctx context.Context, id string) (r domain.Reading, err error) {
	if s.completer == nil {
		return domain.Reading{}, domain.ErrCompletionNotConfigured
	}
	reading, err := s.repo.GetReading(ctx, id)
	if err != nil {
		return domain.Reading{}, err
	}
	defer func() {
		if err != nil {
			metrics.IncReadingAnalysis("error")
		}
	}()

	sources, err := s.sources.ListSourcesByCategories(ctx, analysisCategories)
	if err != nil {
		return domain.Reading{}, fmt.Errorf("загрузка источников: %w", err)
	}
	resp, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      analysisSystemPrompt,
		User:        analysisUserPrompt(reading, buildSupportMaterial(sources)),
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
		JSON:        true,
	})
	if err != nil {
		return domain.Reading{}, fmt.Errorf("анализ статьи: %w", err)
	}
	text, ok := resp.FirstText()
	if !ok {
		return domain.Reading{}, domain.ErrNoContentGenerated
	}
	analysis, err := ParseAnalysis(text)
	if err != nil {
		s.log.Warn().Str("reading_id", id).Str("response", clipRunes(text, 300)).Msg("readings: analysis is not a JSON object")
		return domain.Reading{}, err
	}

	r, err = s.repo.SaveReadingAnalysis(ctx, id, analysis, s.now())
	if err != nil {
		return domain.Reading{}, fmt.Errorf("сохранение анализа: %w", err)
	}
	outcome := "relevant"
	if IsNotRelevant(analysis) {
		outcome = "not_relevant"
	}
	metrics.IncReadingAnalysis(outcome)
	s.log.Info().Str("reading_id", id).Str("outcome", outcome).Int("tokens", resp.InputTokens+resp.OutputTokens).Msg("readings: analyzed")
	return r, nil
}

// NormalizeTags удаляет пустые и дублирующиеся значения, сохраняя порядок.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	cleaned := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}
