package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
)

// Статусы синхронизации одного источника.
const (
	SyncUpdated   = "updated"
	SyncUnchanged = "unchanged"
	SyncError     = "error"
)

// Service отслеживает изменения документов стратегии.
type Service struct {
	repo  domain.SourceRepo
	files domain.TemplateStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewService создаёт сервис источников. files читает файлы относительно базовой папки.
func NewService(repo domain.SourceRepo, files domain.TemplateStore, logger zerolog.Logger) *Service {
	return &Service{
		repo:  repo,
		files: files,
		log:   logger.With().Str("component", "sources").Logger(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// List возвращает источники с последними снимками.
func (s *Service) List(ctx context.Context) ([]domain.Source, error) {
	return s.repo.ListSources(ctx)
}

// Content возвращает последний снимок источника или domain.ErrNoSnapshot.
func (s *Service) Content(ctx context.Context, id string) (domain.SourceSnapshot, error) {
	return s.repo.LatestSnapshot(ctx, id)
}

// SyncResult: итог синхронизации одного источника.
type SyncResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// SyncReport: сводка синхронизации.
type SyncReport struct {
	Synced    int          `json:"synced"`
	Unchanged int          `json:"unchanged"`
	Errors    int          `json:"errors"`
	Results   []SyncResult `json:"results"`
}

// Hash возвращает sha256 содержимого в hex.
func Hash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Sync перечитывает отслеживаемые файлы. Снимок пишется только при смене хеша,
// время синхронизации обновляется всегда. Ошибка одного источника не прерывает остальные.
func (s *Service) Sync(ctx context.Context) (SyncReport, error) {
	list, err := s.repo.ListWatchedFileSources(ctx)
	if err != nil {
		return SyncReport{}, fmt.Errorf("список источников: %w", err)
	}

	report := SyncReport{Results: make([]SyncResult, 0, len(list))}
	for _, src := range list {
		res := SyncResult{ID: src.ID, Name: src.Name}
		status, err := s.syncOne(ctx, src)
		if err != nil {
			res.Status = SyncError
			res.Error = err.Error()
			report.Errors++
			s.log.Warn().Err(err).Str("source", src.Name).Msg("sources: sync failed")
		} else {
			res.Status = status
			if status == SyncUpdated {
				report.Synced++
			} else {
				report.Unchanged++
			}
		}
		metrics.IncSourceSync(res.Status)
		report.Results = append(report.Results, res)
	}
	s.log.Info().Int("synced", report.Synced).Int("unchanged", report.Unchanged).Int("errors", report.Errors).Msg("sources: sync finished")
	return report, nil
}

func (s *Service) syncOne(ctx context.Context, src domain.Source) (string, error) {
	content, err := s.files.Load(ctx, src.Path)
	if err != nil {
		return "", err
	}
	hash := Hash(content)
	now := s.now()
	if hash == src.LastHash {
		if err := s.repo.TouchSource(ctx, src.ID, now); err != nil {
			return "", fmt.Errorf("обновление времени синхронизации: %w", err)
		}
		return SyncUnchanged, nil
	}
	if err := s.repo.RecordSnapshot(ctx, src.ID, content, hash, now); err != nil {
		return "", fmt.Errorf("сохранение снимка: %w", err)
	}
	return SyncUpdated, nil
}

// Seed заменяет каталог источников. Снимки сохранившихся путей остаются.
func (s *Service) Seed(ctx context.Context, catalogue Catalogue) (int, error) {
	list := catalogue.Domain()
	if err := s.repo.ReplaceSources(ctx, list); err != nil {
		return 0, fmt.Errorf("замена каталога: %w", err)
	}
	s.log.Info().Int("sources", len(list)).Msg("sources: catalogue seeded")
	return len(list), nil
}
