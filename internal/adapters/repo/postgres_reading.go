package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
)

const readingColumns = `id, url, title, excerpt, content, ai_relevance, ai_chapters, ai_tags, ai_angle, user_note, user_tags, status, used_in_content_id, created_at, updated_at, processed_at, accepted_at`

func scanReading(row pgx.Row) (domain.Reading, error) {
	var (
		r                        domain.Reading
		chapters, tags, userTags []byte
	)
	if err := row.Scan(&r.ID, &r.URL, &r.Title, &r.Excerpt, &r.Content, &r.AIRelevance, &chapters, &tags, &r.AIAngle, &r.UserNote, &userTags, &r.Status, &r.UsedInContentID, &r.CreatedAt, &r.UpdatedAt, &r.ProcessedAt, &r.AcceptedAt); err != nil {
		return domain.Reading{}, err
	}
	var err error
	if r.AIChapters, err = decodeStrings(chapters); err != nil {
		return domain.Reading{}, fmt.Errorf("decode ai_chapters %s: %w", r.ID, err)
	}
	if r.AITags, err = decodeStrings(tags); err != nil {
		return domain.Reading{}, fmt.Errorf("decode ai_tags %s: %w", r.ID, err)
	}
	if r.UserTags, err = decodeStrings(userTags); err != nil {
		return domain.Reading{}, fmt.Errorf("decode user_tags %s: %w", r.ID, err)
	}
	return r, nil
}

func decodeStrings(raw []byte) ([]string, error) {
	out := []string{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func encodeStrings(values []string) []byte {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return b
}

// ListReadings реализует domain.ReadingRepo. Тег ищется и в тегах модели, и в пользовательских.
func (p *Postgres) ListReadings(ctx context.Context, filter domain.ReadingFilter) ([]domain.Reading, int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	where := "TRUE"
	var args []any
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Tag != "" {
		args = append(args, filter.Tag)
		n := len(args)
		where += fmt.Sprintf(" AND (ai_tags @> jsonb_build_array($%d::text) OR user_tags @> jsonb_build_array($%d::text))", n, n)
	}

	var total int
	start := time.Now()
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM readings WHERE "+where, args...).Scan(&total)
	metrics.ObserveNetworkRequest("postgres", "readings_count", "readings", start, err)
	if err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM readings WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, readingColumns, where, len(args)-1, len(args))
	list, err := p.queryReadings(ctx, "readings_list", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (p *Postgres) queryReadings(ctx context.Context, op, query string, args ...any) ([]domain.Reading, error) {
	start := time.Now()
	rows, err := p.pool.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", op, "readings", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []domain.Reading{}
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountReadings реализует domain.ReadingRepo.
func (p *Postgres) CountReadings(ctx context.Context) (domain.ReadingCounts, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `SELECT status, COUNT(*) FROM readings GROUP BY status`)
	metrics.ObserveNetworkRequest("postgres", "readings_count_by_status", "readings", start, err)
	if err != nil {
		return domain.ReadingCounts{}, err
	}
	defer rows.Close()

	var counts domain.ReadingCounts
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return domain.ReadingCounts{}, err
		}
		switch domain.ReadingStatus(status) {
		case domain.ReadingStatusInbox:
			counts.Inbox = n
		case domain.ReadingStatusAccepted:
			counts.Accepted = n
		case domain.ReadingStatusArchived:
			counts.Archived = n
		case domain.ReadingStatusUsed:
			counts.Used = n
		}
		counts.Total += n
	}
	return counts, rows.Err()
}

// GetReadingsByIDs реализует domain.ReadingRepo. Порядок результата не гарантирован.
func (p *Postgres) GetReadingsByIDs(ctx context.Context, ids []string) ([]domain.Reading, error) {
	if len(ids) == 0 {
		return []domain.Reading{}, nil
	}
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.queryReadings(ctx, "readings_by_ids", `SELECT `+readingColumns+` FROM readings WHERE id = ANY($1)`, ids)
}

// GetReading реализует domain.ReadingRepo.
func (p *Postgres) GetReading(ctx context.Context, id string) (domain.Reading, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.getReading(ctx, "readings_get", `WHERE id = $1`, id)
}

// GetReadingByURL реализует domain.ReadingRepo.
func (p *Postgres) GetReadingByURL(ctx context.Context, url string) (domain.Reading, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.getReading(ctx, "readings_by_url", `WHERE url = $1`, url)
}

func (p *Postgres) getReading(ctx context.Context, op, where string, arg any) (domain.Reading, error) {
	start := time.Now()
	r, err := scanReading(p.pool.QueryRow(ctx, `SELECT `+readingColumns+` FROM readings `+where, arg))
	metrics.ObserveNetworkRequest("postgres", op, "readings", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reading{}, domain.ErrReadingNotFound
		}
		return domain.Reading{}, err
	}
	return r, nil
}

// CreateReading реализует domain.ReadingRepo.
func (p *Postgres) CreateReading(ctx context.Context, reading domain.Reading) (domain.Reading, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if reading.ID == "" {
		reading.ID = uuid.NewString()
	}
	now := p.now()
	start := time.Now()
	created, err := scanReading(p.pool.QueryRow(ctx, `
INSERT INTO readings (id, url, title, excerpt, content, ai_chapters, ai_tags, user_note, user_tags, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
RETURNING `+readingColumns,
		reading.ID, reading.URL, reading.Title, reading.Excerpt, reading.Content,
		encodeStrings(reading.AIChapters), encodeStrings(reading.AITags), reading.UserNote, encodeStrings(reading.UserTags),
		string(reading.Status), now))
	metrics.ObserveNetworkRequest("postgres", "readings_insert", "readings", start, err)
	if err != nil {
		if isUniqueViolation(err) {
			existing, getErr := p.getReading(ctx, "readings_by_url", `WHERE url = $1`, reading.URL)
			if getErr != nil {
				return domain.Reading{}, fmt.Errorf("load existing reading: %w", getErr)
			}
			return domain.Reading{}, &domain.ConflictError{Message: "Reading already exists", Existing: existing}
		}
		return domain.Reading{}, err
	}
	return created, nil
}

// UpdateReading реализует domain.ReadingRepo. Поля модели не затрагиваются.
func (p *Postgres) UpdateReading(ctx context.Context, id string, patch domain.ReadingPatch) (domain.Reading, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var status *string
	if patch.Status != nil {
		s := string(*patch.Status)
		status = &s
	}
	var userTags []byte
	if patch.UserTags != nil {
		userTags = encodeStrings(*patch.UserTags)
	}
	start := time.Now()
	r, err := scanReading(p.pool.QueryRow(ctx, `
UPDATE readings SET
	status = COALESCE($2, status),
	accepted_at = COALESCE($3, accepted_at),
	user_note = COALESCE($4, user_note),
	user_tags = COALESCE($5::jsonb, user_tags),
	used_in_content_id = COALESCE($6, used_in_content_id),
	updated_at = $7
WHERE id = $1
RETURNING `+readingColumns,
		id, status, patch.AcceptedAt, patch.UserNote, userTags, patch.UsedInContentID, p.now()))
	metrics.ObserveNetworkRequest("postgres", "readings_update", "readings", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reading{}, domain.ErrReadingNotFound
		}
		return domain.Reading{}, err
	}
	return r, nil
}

// UpdateReadingContent реализует domain.ReadingRepo.
func (p *Postgres) UpdateReadingContent(ctx context.Context, id, content string) (domain.Reading, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	r, err := scanReading(p.pool.QueryRow(ctx, `
UPDATE readings SET content = $2, updated_at = $3 WHERE id = $1
RETURNING `+readingColumns, id, content, p.now()))
	metrics.ObserveNetworkRequest("postgres", "readings_update_content", "readings", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reading{}, domain.ErrReadingNotFound
		}
		return domain.Reading{}, err
	}
	return r, nil
}

// SaveReadingAnalysis реализует domain.ReadingRepo.
func (p *Postgres) SaveReadingAnalysis(ctx context.Context, id string, analysis domain.ReadingAnalysis, processedAt time.Time) (domain.Reading, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	r, err := scanReading(p.pool.QueryRow(ctx, `
UPDATE readings SET ai_relevance = $2, ai_chapters = $3, ai_tags = $4, ai_angle = $5, processed_at = $6, updated_at = $6
WHERE id = $1
RETURNING `+readingColumns,
		id, analysis.Relevance, encodeStrings(analysis.Chapters), encodeStrings(analysis.Tags), analysis.Angle, processedAt))
	metrics.ObserveNetworkRequest("postgres", "readings_save_analysis", "readings", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Reading{}, domain.ErrReadingNotFound
		}
		return domain.Reading{}, err
	}
	return r, nil
}

// DeleteReading реализует domain.ReadingRepo.
func (p *Postgres) DeleteReading(ctx context.Context, id string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `DELETE FROM readings WHERE id = $1`, id)
	metrics.ObserveNetworkRequest("postgres", "readings_delete", "readings", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReadingNotFound
	}
	return nil
}
