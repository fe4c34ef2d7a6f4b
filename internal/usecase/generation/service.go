package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
)

const (
	sectionMaxTokens   = 2000
	sectionTemperature = 0.7
	defaultLockTTL     = 5 * time.Minute
)

// Service генерирует текст одного раздела выпуска за вызов.
type Service struct {
	contents  domain.ContentRepo
	assembler *Assembler
	completer domain.Completer
	locker    domain.SectionLocker
	lockTTL   time.Duration
	log       zerolog.Logger
}

// NewService создаёт оркестратор генерации. completer может быть nil,
// тогда генерация возвращает ErrCompletionNotConfigured.
func NewService(contents domain.ContentRepo, assembler *Assembler, completer domain.Completer, locker domain.SectionLocker, lockTTL time.Duration, logger zerolog.Logger) *Service {
	if lockTTL <= 0 {
		lockTTL = defaultLockTTL
	}
	return &Service{
		contents:  contents,
		assembler: assembler,
		completer: completer,
		locker:    locker,
		lockTTL:   lockTTL,
		log:       logger.With().Str("component", "generation").Logger(),
	}
}

// Request: параметры генерации раздела.
type Request struct {
	NewsletterID string
	SectionID    string
	BuildLogIDs  []string
	ReadingIDs   []string
	// Theme переопределяет тему из метаданных выпуска.
	Theme string
}

// Result: сгенерированный текст и израсходованные токены.
type Result struct {
	Content    string `json:"content"`
	TokensUsed int    `json:"tokensUsed"`
}

// LockKey: ключ блокировки генерации раздела.
func LockKey(sectionID string) string {
	return "generation:section:" + sectionID
}

// GenerateSection проверяет выпуск, раздел и его тип, затем под блокировкой
// раздела вызывает модель и записывает первый текстовый блок ответа.
func (s *Service) GenerateSection(ctx context.Context, req Request) (res Result, err error) {
	n, err := s.contents.GetNewsletter(ctx, req.NewsletterID)
	if err != nil {
		return Result{}, err
	}
	sec, ok := n.Section(req.SectionID)
	if !ok {
		return Result{}, domain.ErrSectionNotFound
	}
	prompt, err := PromptFor(sec.Title)
	if err != nil {
		return Result{}, err
	}
	if s.completer == nil {
		return Result{}, domain.ErrCompletionNotConfigured
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, LockKey(sec.ID), s.lockTTL)
		if err != nil {
			metrics.IncGenerationConflict()
			return Result{}, err
		}
		defer release()
	}

	start := time.Now()
	defer func() { metrics.ObserveSectionGeneration(sec.Title, start, err) }()

	theme := req.Theme
	if theme == "" && n.Metadata != nil {
		theme = n.Metadata.Theme
	}
	pc, err := s.assembler.Assemble(ctx, req.BuildLogIDs, req.ReadingIDs, theme)
	if err != nil {
		return Result{}, err
	}

	resp, err := s.completer.Complete(ctx, domain.CompletionRequest{
		System:      prompt.System,
		User:        prompt.User(pc),
		MaxTokens:   sectionMaxTokens,
		Temperature: sectionTemperature,
	})
	if err != nil {
		return Result{}, fmt.Errorf("генерация раздела %q: %w", sec.Title, err)
	}
	text, ok := resp.FirstText()
	if !ok {
		return Result{}, domain.ErrNoContentGenerated
	}

	if err := s.contents.UpdateSectionBody(ctx, sec.ID, text, domain.ContentStatusGenerated); err != nil {
		return Result{}, fmt.Errorf("сохранение раздела: %w", err)
	}
	tokens := resp.InputTokens + resp.OutputTokens
	s.log.Info().
		Str("newsletter_id", n.ID).
		Str("section_id", sec.ID).
		Str("section", sec.Title).
		Int("tokens", tokens).
		Msg("generation: section generated")
	return Result{Content: text, TokensUsed: tokens}, nil
}
