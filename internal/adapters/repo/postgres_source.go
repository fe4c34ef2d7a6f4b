package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
)

func sourceColumns(alias string) string {
	a := alias + "."
	return a + "id, " + a + "name, " + a + "path, " + a + "type, " + a + "category, " + a + "description, " +
		a + "last_hash, " + a + "last_synced, " + a + "watch_enabled, " + a + "created_at"
}

func scanSource(row pgx.Row) (domain.Source, error) {
	var s domain.Source
	err := row.Scan(&s.ID, &s.Name, &s.Path, &s.Type, &s.Category, &s.Description, &s.LastHash, &s.LastSynced, &s.WatchEnabled, &s.CreatedAt)
	return s, err
}

// sourcesWithLatest выбирает источники вместе с последним снимком.
const sourcesWithLatest = `
SELECT s.id, s.name, s.path, s.type, s.category, s.description, s.last_hash, s.last_synced, s.watch_enabled, s.created_at,
	sn.id, sn.content, sn.content_hash, sn.extracted_at
FROM sources s
LEFT JOIN LATERAL (
	SELECT id, content, content_hash, extracted_at
	FROM source_snapshots
	WHERE source_id = s.id
	ORDER BY extracted_at DESC
	LIMIT 1
) sn ON TRUE
`

func scanSourceWithLatest(row pgx.Row) (domain.Source, error) {
	var (
		s           domain.Source
		snapID      *string
		snapContent *string
		snapHash    *string
		snapAt      *time.Time
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Path, &s.Type, &s.Category, &s.Description, &s.LastHash, &s.LastSynced, &s.WatchEnabled, &s.CreatedAt,
		&snapID, &snapContent, &snapHash, &snapAt); err != nil {
		return domain.Source{}, err
	}
	if snapID != nil {
		snap := domain.SourceSnapshot{ID: *snapID, SourceID: s.ID}
		if snapContent != nil {
			snap.Content = *snapContent
		}
		if snapHash != nil {
			snap.ContentHash = *snapHash
		}
		if snapAt != nil {
			snap.ExtractedAt = *snapAt
		}
		s.Latest = &snap
	}
	return s, nil
}

func (p *Postgres) querySources(ctx context.Context, op, where string, args ...any) ([]domain.Source, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, sourcesWithLatest+where, args...)
	metrics.ObserveNetworkRequest("postgres", op, "sources", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Source{}
	for rows.Next() {
		s, err := scanSourceWithLatest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListSources реализует domain.SourceRepo.
func (p *Postgres) ListSources(ctx context.Context) ([]domain.Source, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.querySources(ctx, "sources_list", `ORDER BY s.name`)
}

// ListWatchedFileSources реализует domain.SourceRepo.
func (p *Postgres) ListWatchedFileSources(ctx context.Context) ([]domain.Source, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.querySources(ctx, "sources_watched", `WHERE s.watch_enabled AND s.type = $1 ORDER BY s.name`, string(domain.SourceTypeFile))
}

// ListSourcesByCategories реализует domain.SourceRepo.
func (p *Postgres) ListSourcesByCategories(ctx context.Context, categories []string) ([]domain.Source, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.querySources(ctx, "sources_by_category", `WHERE s.category = ANY($1) ORDER BY s.name`, categories)
}

// GetSource реализует domain.SourceRepo.
func (p *Postgres) GetSource(ctx context.Context, id string) (domain.Source, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	s, err := scanSourceWithLatest(p.pool.QueryRow(ctx, sourcesWithLatest+`WHERE s.id = $1`, id))
	metrics.ObserveNetworkRequest("postgres", "sources_get", "sources", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Source{}, domain.ErrSourceNotFound
		}
		return domain.Source{}, err
	}
	return s, nil
}

// LatestSnapshot реализует domain.SourceRepo.
func (p *Postgres) LatestSnapshot(ctx context.Context, sourceID string) (domain.SourceSnapshot, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var snap domain.SourceSnapshot
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, source_id, content, content_hash, extracted_at
FROM source_snapshots
WHERE source_id = $1
ORDER BY extracted_at DESC
LIMIT 1
`, sourceID).Scan(&snap.ID, &snap.SourceID, &snap.Content, &snap.ContentHash, &snap.ExtractedAt)
	metrics.ObserveNetworkRequest("postgres", "source_snapshots_latest", "source_snapshots", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.SourceSnapshot{}, domain.ErrNoSnapshot
		}
		return domain.SourceSnapshot{}, err
	}
	return snap, nil
}

// RecordSnapshot реализует domain.SourceRepo.
func (p *Postgres) RecordSnapshot(ctx context.Context, sourceID, content, hash string, at time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	tx, err := p.begin(ctx, "source_snapshots")
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	start := time.Now()
	_, err = tx.Exec(ctx, `
INSERT INTO source_snapshots (id, source_id, content, content_hash, extracted_at)
VALUES ($1, $2, $3, $4, $5)
`, uuid.NewString(), sourceID, content, hash, at)
	metrics.ObserveNetworkRequest("postgres", "source_snapshots_insert", "source_snapshots", start, err)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrSourceNotFound
		}
		return err
	}
	start = time.Now()
	_, err = tx.Exec(ctx, `UPDATE sources SET last_hash = $2, last_synced = $3 WHERE id = $1`, sourceID, hash, at)
	metrics.ObserveNetworkRequest("postgres", "sources_update_hash", "sources", start, err)
	if err != nil {
		return err
	}
	return p.commit(ctx, tx, "source_snapshots")
}

// TouchSource реализует domain.SourceRepo.
func (p *Postgres) TouchSource(ctx context.Context, sourceID string, at time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `UPDATE sources SET last_synced = $2 WHERE id = $1`, sourceID, at)
	metrics.ObserveNetworkRequest("postgres", "sources_touch", "sources", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSourceNotFound
	}
	return nil
}

// ReplaceSources реализует domain.SourceRepo: источники сопоставляются по пути,
// снимки сохранившихся источников остаются, отсутствующие в каталоге удаляются.
func (p *Postgres) ReplaceSources(ctx context.Context, sources []domain.Source) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	tx, err := p.begin(ctx, "sources")
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	paths := make([]string, 0, len(sources))
	for _, s := range sources {
		paths = append(paths, s.Path)
	}
	start := time.Now()
	_, err = tx.Exec(ctx, `DELETE FROM sources WHERE NOT (path = ANY($1))`, paths)
	metrics.ObserveNetworkRequest("postgres", "sources_prune", "sources", start, err)
	if err != nil {
		return err
	}

	now := p.now()
	for _, s := range sources {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		if s.Type == "" {
			s.Type = domain.SourceTypeFile
		}
		start := time.Now()
		_, err := tx.Exec(ctx, `
INSERT INTO sources (id, name, path, type, category, description, watch_enabled, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (path) DO UPDATE SET
	name = EXCLUDED.name,
	type = EXCLUDED.type,
	category = EXCLUDED.category,
	description = EXCLUDED.description,
	watch_enabled = EXCLUDED.watch_enabled
`, s.ID, s.Name, s.Path, string(s.Type), s.Category, s.Description, s.WatchEnabled, now)
		metrics.ObserveNetworkRequest("postgres", "sources_upsert", "sources", start, err)
		if err != nil {
			return fmt.Errorf("upsert source %q: %w", s.Name, err)
		}
	}
	return p.commit(ctx, tx, "sources")
}
