package newsletter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Service управляет жизненным циклом выпусков.
type Service struct {
	repo domain.ContentRepo
	log  zerolog.Logger
	now  func() time.Time
}

// NewService создаёт сервис выпусков.
func NewService(repo domain.ContentRepo, logger zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  logger.With().Str("component", "newsletter").Logger(),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateInput: параметры нового выпуска.
type CreateInput struct {
	Title       string
	IssueNumber *int
	Slug        string
	Theme       string
}

// Create создаёт выпуск и пять пустых разделов одной транзакцией.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Newsletter, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return domain.Newsletter{}, domain.NewValidationError("title", "Title is required")
	}

	slug := Slugify(in.Slug)
	if slug == "" {
		slug = Slugify(title)
	}

	issue := 1
	fullTitle := title
	if in.IssueNumber != nil {
		issue = *in.IssueNumber
		fullTitle = fmt.Sprintf("Issue #%d: %s", issue, title)
	}

	parent := domain.Content{
		Type:         domain.ContentTypeNewsletter,
		Title:        fullTitle,
		BodyMarkdown: "",
		Status:       domain.ContentStatusDraft,
		Metadata: &domain.NewsletterMetadata{
			IssueNumber:       issue,
			SelectedBuildLogs: []string{},
			SelectedReadings:  []string{},
			Theme:             strings.TrimSpace(in.Theme),
		},
	}
	if slug != "" {
		parent.Slug = &slug
	}

	sections := make([]domain.Content, 0, len(domain.NewsletterSections))
	for i, name := range domain.NewsletterSections {
		sections = append(sections, domain.Content{
			Type:          domain.ContentTypeNewsletterSection,
			Title:         name,
			Status:        domain.ContentStatusDraft,
			SequenceOrder: i + 1,
		})
	}

	n, err := s.repo.CreateNewsletter(ctx, parent, sections)
	if err != nil {
		return domain.Newsletter{}, fmt.Errorf("создание выпуска: %w", err)
	}
	s.log.Info().Str("newsletter_id", n.ID).Int("issue", issue).Msg("newsletter: created")
	return n, nil
}

// List возвращает выпуски и их общее количество.
func (s *Service) List(ctx context.Context, filter domain.NewsletterFilter) ([]domain.Newsletter, int, domain.NewsletterFilter, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, filter, domain.NewValidationError("status", fmt.Sprintf("Invalid status: %s", filter.Status))
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	list, total, err := s.repo.ListNewsletters(ctx, filter)
	if err != nil {
		return nil, 0, filter, fmt.Errorf("список выпусков: %w", err)
	}
	return list, total, filter, nil
}

// Get возвращает выпуск с разделами и источниками.
func (s *Service) Get(ctx context.Context, id string) (domain.Newsletter, error) {
	return s.repo.GetNewsletter(ctx, id)
}

// UpdateInput: частичное обновление выпуска.
type UpdateInput struct {
	Title        *string
	Status       *string
	BodyMarkdown *string
	Metadata     *domain.NewsletterMetadata
	Sections     []domain.SectionEdit
}

// Update применяет частичное обновление; разделы проверяются на принадлежность выпуску.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.Newsletter, error) {
	patch := domain.NewsletterPatch{
		BodyMarkdown: in.BodyMarkdown,
		Metadata:     in.Metadata,
		Sections:     in.Sections,
	}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return domain.Newsletter{}, domain.NewValidationError("title", "Title cannot be empty")
		}
		patch.Title = &title
	}
	if in.Status != nil {
		status := domain.ContentStatus(*in.Status)
		if !status.Valid() {
			return domain.Newsletter{}, domain.NewValidationError("status", fmt.Sprintf("Invalid status: %s", *in.Status))
		}
		patch.Status = &status
		if status == domain.ContentStatusPublished {
			now := s.now()
			patch.PublishedAt = &now
		}
	}
	if patch.Metadata != nil {
		if patch.Metadata.IssueNumber <= 0 {
			patch.Metadata.IssueNumber = 1
		}
	}

	n, err := s.repo.UpdateNewsletter(ctx, id, patch)
	if err != nil {
		return domain.Newsletter{}, fmt.Errorf("обновление выпуска: %w", err)
	}
	return n, nil
}

// Delete удаляет выпуск вместе с разделами.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.DeleteNewsletter(ctx, id); err != nil {
		return fmt.Errorf("удаление выпуска: %w", err)
	}
	s.log.Info().Str("newsletter_id", id).Msg("newsletter: deleted")
	return nil
}

// LinkSources заменяет набор источников выпуска.
func (s *Service) LinkSources(ctx context.Context, id string, sourceIDs []string) (domain.Newsletter, error) {
	seen := make(map[string]struct{}, len(sourceIDs))
	ids := make([]string, 0, len(sourceIDs))
	for _, sid := range sourceIDs {
		sid = strings.TrimSpace(sid)
		if sid == "" {
			continue
		}
		if _, ok := seen[sid]; ok {
			continue
		}
		seen[sid] = struct{}{}
		ids = append(ids, sid)
	}
	if err := s.repo.SetNewsletterSources(ctx, id, ids); err != nil {
		return domain.Newsletter{}, fmt.Errorf("привязка источников: %w", err)
	}
	return s.repo.GetNewsletter(ctx, id)
}
