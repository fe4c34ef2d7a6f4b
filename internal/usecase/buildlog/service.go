package buildlog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

const dateLayout = "2006-01-02"

// Service ведёт недельный журнал работы.
type Service struct {
	repo domain.BuildLogRepo
	log  zerolog.Logger
}

// NewService создаёт сервис журнала.
func NewService(repo domain.BuildLogRepo, logger zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		log:  logger.With().Str("component", "buildlog").Logger(),
	}
}

// CreateInput: новая недельная запись.
type CreateInput struct {
	WeekStart       string
	ClientWork      string
	SoftwareDev     string
	Prototyping     string
	Reading         string
	VoiceTranscript string
}

// ParseWeekStart принимает дату YYYY-MM-DD или RFC3339 и возвращает полночь UTC этого дня.
func ParseWeekStart(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, domain.NewValidationError("weekStart", "weekStart is required")
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, domain.NewValidationError("weekStart", fmt.Sprintf("Invalid weekStart: %s", raw))
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// Create создаёт запись недели. Повтор недели возвращает ConflictError с существующей записью.
func (s *Service) Create(ctx context.Context, in CreateInput) (domain.BuildLogEntry, error) {
	start, err := ParseWeekStart(in.WeekStart)
	if err != nil {
		return domain.BuildLogEntry{}, err
	}
	entry, err := s.repo.CreateBuildLog(ctx, domain.BuildLogEntry{
		WeekStart:       start,
		WeekEnd:         start.AddDate(0, 0, 6),
		ClientWork:      in.ClientWork,
		SoftwareDev:     in.SoftwareDev,
		Prototyping:     in.Prototyping,
		Reading:         in.Reading,
		VoiceTranscript: in.VoiceTranscript,
		Status:          domain.BuildLogStatusDraft,
	})
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return domain.BuildLogEntry{}, err
		}
		return domain.BuildLogEntry{}, fmt.Errorf("создание записи журнала: %w", err)
	}
	s.log.Info().Str("entry_id", entry.ID).Str("week_start", start.Format(dateLayout)).Msg("buildlog: created")
	return entry, nil
}

// List возвращает записи, свежие недели первыми.
func (s *Service) List(ctx context.Context) ([]domain.BuildLogEntry, error) {
	return s.repo.ListBuildLogs(ctx)
}

// Get возвращает запись.
func (s *Service) Get(ctx context.Context, id string) (domain.BuildLogEntry, error) {
	return s.repo.GetBuildLog(ctx, id)
}

// UpdateInput: частичная правка. nil означает «не менять».
type UpdateInput struct {
	ClientWork      *string
	SoftwareDev     *string
	Prototyping     *string
	Reading         *string
	VoiceTranscript *string
	Status          *string
}

// Update применяет правку. Текст финализированной записи меняется только вместе с возвратом в draft.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (domain.BuildLogEntry, error) {
	patch := domain.BuildLogPatch{
		ClientWork:      in.ClientWork,
		SoftwareDev:     in.SoftwareDev,
		Prototyping:     in.Prototyping,
		Reading:         in.Reading,
		VoiceTranscript: in.VoiceTranscript,
	}
	if in.Status != nil {
		status := domain.BuildLogStatus(*in.Status)
		if !status.Valid() {
			return domain.BuildLogEntry{}, domain.NewValidationError("status", fmt.Sprintf("Invalid status: %s", *in.Status))
		}
		patch.Status = &status
	}

	current, err := s.repo.GetBuildLog(ctx, id)
	if err != nil {
		return domain.BuildLogEntry{}, err
	}
	reopening := patch.Status != nil && *patch.Status == domain.BuildLogStatusDraft
	if current.Status == domain.BuildLogStatusFinalized && patch.HasTextEdits() && !reopening {
		return domain.BuildLogEntry{}, domain.ErrBuildLogFinalized
	}

	entry, err := s.repo.UpdateBuildLog(ctx, id, patch)
	if err != nil {
		return domain.BuildLogEntry{}, fmt.Errorf("обновление записи журнала: %w", err)
	}
	return entry, nil
}

// Delete удаляет запись.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteBuildLog(ctx, id)
}
