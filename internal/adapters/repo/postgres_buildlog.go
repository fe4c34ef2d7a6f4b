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

const buildLogColumns = `id, week_start, week_end, client_work, software_dev, prototyping, reading, voice_transcript, status, created_at, updated_at`

func scanBuildLog(row pgx.Row) (domain.BuildLogEntry, error) {
	var e domain.BuildLogEntry
	err := row.Scan(&e.ID, &e.WeekStart, &e.WeekEnd, &e.ClientWork, &e.SoftwareDev, &e.Prototyping, &e.Reading, &e.VoiceTranscript, &e.Status, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (p *Postgres) queryBuildLogs(ctx context.Context, op, where string, args ...any) ([]domain.BuildLogEntry, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT `+buildLogColumns+` FROM build_log_entries `+where, args...)
	metrics.ObserveNetworkRequest("postgres", op, "build_log_entries", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.BuildLogEntry{}
	for rows.Next() {
		e, err := scanBuildLog(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListBuildLogs реализует domain.BuildLogRepo.
func (p *Postgres) ListBuildLogs(ctx context.Context) ([]domain.BuildLogEntry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.queryBuildLogs(ctx, "build_log_list", `ORDER BY week_start DESC`)
}

// GetBuildLogsByIDs реализует domain.BuildLogRepo. Порядок результата не гарантирован.
func (p *Postgres) GetBuildLogsByIDs(ctx context.Context, ids []string) ([]domain.BuildLogEntry, error) {
	if len(ids) == 0 {
		return []domain.BuildLogEntry{}, nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.queryBuildLogs(ctx, "build_log_by_ids", `WHERE id = ANY($1)`, ids)
}

// GetBuildLog реализует domain.BuildLogRepo.
func (p *Postgres) GetBuildLog(ctx context.Context, id string) (domain.BuildLogEntry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.getBuildLog(ctx, "build_log_get", `WHERE id = $1`, id)
}

// GetBuildLogByWeek реализует domain.BuildLogRepo.
func (p *Postgres) GetBuildLogByWeek(ctx context.Context, weekStart time.Time) (domain.BuildLogEntry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.getBuildLog(ctx, "build_log_by_week", `WHERE week_start = $1`, weekStart)
}

func (p *Postgres) getBuildLog(ctx context.Context, op, where string, arg any) (domain.BuildLogEntry, error) {
	start := time.Now()
	e, err := scanBuildLog(p.pool.QueryRow(ctx, `SELECT `+buildLogColumns+` FROM build_log_entries `+where, arg))
	metrics.ObserveNetworkRequest("postgres", op, "build_log_entries", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BuildLogEntry{}, domain.ErrBuildLogNotFound
		}
		return domain.BuildLogEntry{}, err
	}
	return e, nil
}

// CreateBuildLog реализует domain.BuildLogRepo. Повтор недели возвращает ConflictError с существующей записью.
func (p *Postgres) CreateBuildLog(ctx context.Context, entry domain.BuildLogEntry) (domain.BuildLogEntry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := p.now()
	start := time.Now()
	created, err := scanBuildLog(p.pool.QueryRow(ctx, `
INSERT INTO build_log_entries (id, week_start, week_end, client_work, software_dev, prototyping, reading, voice_transcript, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
RETURNING `+buildLogColumns,
		entry.ID, entry.WeekStart, entry.WeekEnd, entry.ClientWork, entry.SoftwareDev, entry.Prototyping, entry.Reading, entry.VoiceTranscript, string(entry.Status), now))
	metrics.ObserveNetworkRequest("postgres", "build_log_insert", "build_log_entries", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			existing, getErr := p.getBuildLog(ctx, "build_log_by_week", `WHERE week_start = $1`, entry.WeekStart)
			if getErr != nil {
				return domain.BuildLogEntry{}, fmt.Errorf("load existing build log: %w", getErr)
			}
			return domain.BuildLogEntry{}, &domain.ConflictError{Message: "Build log entry for this week already exists", Existing: existing}
		}
		return domain.BuildLogEntry{}, err
	}
	return created, nil
}

// UpdateBuildLog реализует domain.BuildLogRepo. nil-поля патча не меняются.
func (p *Postgres) UpdateBuildLog(ctx context.Context, id string, patch domain.BuildLogPatch) (domain.BuildLogEntry, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	start := time.Now()
	e, err := scanBuildLog(p.pool.QueryRow(ctx, `
UPDATE build_log_entries SET
	client_work = COALESCE($2, client_work),
	software_dev = COALESCE($3, software_dev),
	prototyping = COALESCE($4, prototyping),
	reading = COALESCE($5, reading),
	voice_transcript = COALESCE($6, voice_transcript),
	status = COALESCE($7, status),
	updated_at = $8
WHERE id = $1
RETURNING `+buildLogColumns,
		id, patch.ClientWork, patch.SoftwareDev, patch.Prototyping, patch.Reading, patch.VoiceTranscript, status, p.now()))
	metrics.ObserveNetworkRequest("postgres", "build_log_update", "build_log_entries", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BuildLogEntry{}, domain.ErrBuildLogNotFound
		}
		return domain.BuildLogEntry{}, err
	}
	return e, nil
}

// DeleteBuildLog реализует domain.BuildLogRepo.
func (p *Postgres) DeleteBuildLog(ctx context.Context, id string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM build_log_entries WHERE id = $1`, id)
	metrics.ObserveNetworkRequest("postgres", "build_log_delete", "build_log_entries", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBuildLogNotFound
	}
	return nil
}
