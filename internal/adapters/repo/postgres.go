package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var (
	_ domain.ContentRepo  = (*Postgres)(nil)
	_ domain.BuildLogRepo = (*Postgres)(nil)
	_ domain.ReadingRepo  = (*Postgres)(nil)
	_ domain.SourceRepo   = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, now: func() time.Time { return time.Now().UTC() }}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

func (p *Postgres) begin(ctx context.Context, table string) (pgx.Tx, error) {
	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", table, start, err)
	return tx, err
}

func (p *Postgres) commit(ctx context.Context, tx pgx.Tx, table string) error {
	start := time.Now()
	err := tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", table, start, err)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

const contentColumns = `id, type, title, slug, body_markdown, metadata, status, published_at, sequence_order, parent_id, created_at, updated_at`

func scanContent(row pgx.Row) (domain.Content, error) {
	var (
		c        domain.Content
		metadata []byte
	)
	if err := row.Scan(&c.ID, &c.Type, &c.Title, &c.Slug, &c.BodyMarkdown, &metadata, &c.Status, &c.PublishedAt, &c.SequenceOrder, &c.ParentID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return domain.Content{}, err
	}
	if len(metadata) > 0 && string(metadata) != "null" {
		var meta domain.NewsletterMetadata
		if err := json.Unmarshal(metadata, &meta); err != nil {
			return domain.Content{}, fmt.Errorf("decode metadata %s: %w", c.ID, err)
		}
		c.Metadata = &meta
	}
	return c, nil
}

func encodeMetadata(meta *domain.NewsletterMetadata) ([]byte, error) {
	if meta == nil {
		return nil, nil
	}
	m := *meta
	if m.SelectedBuildLogs == nil {
		m.SelectedBuildLogs = []string{}
	}
	if m.SelectedReadings == nil {
		m.SelectedReadings = []string{}
	}
	return json.Marshal(m)
}

func insertContent(ctx context.Context, tx pgx.Tx, c domain.Content) error {
	metadata, err := encodeMetadata(c.Metadata)
	if err != nil {
		return err
	}
	start := time.Now()
	_, err = tx.Exec(ctx, `
INSERT INTO contents (id, type, title, slug, body_markdown, metadata, status, published_at, sequence_order, parent_id, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`, c.ID, string(c.Type), c.Title, c.Slug, c.BodyMarkdown, metadata, string(c.Status), c.PublishedAt, c.SequenceOrder, c.ParentID, c.CreatedAt, c.UpdatedAt)
	metrics.ObserveNetworkRequest("postgres", "contents_insert", "contents", start, err)
	return err
}

// CreateNewsletter реализует domain.ContentRepo.
func (p *Postgres) CreateNewsletter(ctx context.Context, parent domain.Content, sections []domain.Content) (domain.Newsletter, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	now := p.now()
	if parent.ID == "" {
		parent.ID = uuid.NewString()
	}
	parent.CreatedAt, parent.UpdatedAt = now, now

	tx, err := p.begin(ctx, "contents")
	if err != nil {
		return domain.Newsletter{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertContent(ctx, tx, parent); err != nil {
		return domain.Newsletter{}, fmt.Errorf("insert newsletter: %w", err)
	}
	out := domain.Newsletter{Content: parent, Sections: make([]domain.Content, 0, len(sections)), Sources: []domain.Source{}}
	for _, s := range sections {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		parentID := parent.ID
		s.ParentID = &parentID
		s.CreatedAt, s.UpdatedAt = now, now
		if err := insertContent(ctx, tx, s); err != nil {
			return domain.Newsletter{}, fmt.Errorf("insert section %q: %w", s.Title, err)
		}
		out.Sections = append(out.Sections, s)
	}
	if err := p.commit(ctx, tx, "contents"); err != nil {
		return domain.Newsletter{}, err
	}
	return out, nil
}

// ListNewsletters реализует domain.ContentRepo.
func (p *Postgres) ListNewsletters(ctx context.Context, filter domain.NewsletterFilter) ([]domain.Newsletter, int, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	where := "type = $1"
	args := []any{string(domain.ContentTypeNewsletter)}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}

	var total int
	start := time.Now()
	err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM contents WHERE "+where, args...).Scan(&total)
	metrics.ObserveNetworkRequest("postgres", "contents_count", "contents", start, err)
	if err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM contents WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, contentColumns, where, len(args)-1, len(args))
	start = time.Now()
	rows, err := p.pool.Query(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "contents_list", "contents", start, err)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		list []domain.Newsletter
		ids  []string
	)
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, 0, err
		}
		list = append(list, domain.Newsletter{Content: c, Sections: []domain.Content{}})
		ids = append(ids, c.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return []domain.Newsletter{}, total, nil
	}

	children, err := p.sectionsByParents(ctx, p.pool, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range list {
		if s, ok := children[list[i].ID]; ok {
			list[i].Sections = s
		}
	}
	return list, total, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (p *Postgres) sectionsByParents(ctx context.Context, q querier, parentIDs []string) (map[string][]domain.Content, error) {
	start := time.Now()
	rows, err := q.Query(ctx, `SELECT `+contentColumns+` FROM contents WHERE parent_id = ANY($1) ORDER BY sequence_order, created_at`, parentIDs)
	metrics.ObserveNetworkRequest("postgres", "contents_children", "contents", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string][]domain.Content, len(parentIDs))
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		if c.ParentID == nil {
			continue
		}
		out[*c.ParentID] = append(out[*c.ParentID], c)
	}
	return out, rows.Err()
}

// GetNewsletter реализует domain.ContentRepo.
func (p *Postgres) GetNewsletter(ctx context.Context, id string) (domain.Newsletter, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()
	return p.getNewsletter(ctx, p.pool, id)
}

func (p *Postgres) getNewsletter(ctx context.Context, q querier, id string) (domain.Newsletter, error) {
	start := time.Now()
	c, err := scanContent(q.QueryRow(ctx, `SELECT `+contentColumns+` FROM contents WHERE id = $1 AND type = $2`, id, string(domain.ContentTypeNewsletter)))
	metrics.ObserveNetworkRequest("postgres", "contents_get", "contents", start, err)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Newsletter{}, domain.ErrNewsletterNotFound
		}
		return domain.Newsletter{}, err
	}
	children, err := p.sectionsByParents(ctx, q, []string{id})
	if err != nil {
		return domain.Newsletter{}, err
	}
	n := domain.Newsletter{Content: c, Sections: children[id]}
	if n.Sections == nil {
		n.Sections = []domain.Content{}
	}

	start = time.Now()
	rows, err := q.Query(ctx, `
SELECT `+sourceColumns("s")+`
FROM content_sources cs
JOIN sources s ON s.id = cs.source_id
WHERE cs.content_id = $1
ORDER BY s.name
`, id)
	metrics.ObserveNetworkRequest("postgres", "content_sources_list", "content_sources", start, err)
	if err != nil {
		return domain.Newsletter{}, err
	}
	defer rows.Close()
	n.Sources = []domain.Source{}
	for rows.Next() {
		s, err := scanSource(rows)
		if err != nil {
			return domain.Newsletter{}, err
		}
		n.Sources = append(n.Sources, s)
	}
	return n, rows.Err()
}

// UpdateNewsletter реализует domain.ContentRepo: корень и правки разделов пишутся одной транзакцией.
func (p *Postgres) UpdateNewsletter(ctx context.Context, id string, patch domain.NewsletterPatch) (domain.Newsletter, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	tx, err := p.begin(ctx, "contents")
	if err != nil {
		return domain.Newsletter{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sets := []string{"updated_at = $2"}
	args := []any{id, p.now()}
	add := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Status != nil {
		add("status", string(*patch.Status))
	}
	if patch.BodyMarkdown != nil {
		add("body_markdown", *patch.BodyMarkdown)
	}
	if patch.Metadata != nil {
		metadata, err := encodeMetadata(patch.Metadata)
		if err != nil {
			return domain.Newsletter{}, err
		}
		add("metadata", metadata)
	}
	if patch.PublishedAt != nil {
		add("published_at", *patch.PublishedAt)
	}
	args = append(args, string(domain.ContentTypeNewsletter))
	query := fmt.Sprintf(`UPDATE contents SET %s WHERE id = $1 AND type = $%d`, strings.Join(sets, ", "), len(args))

	start := time.Now()
	tag, err := tx.Exec(ctx, query, args...)
	metrics.ObserveNetworkRequest("postgres", "contents_update", "contents", start, err)
	if err != nil {
		return domain.Newsletter{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.Newsletter{}, domain.ErrNewsletterNotFound
	}

	for _, edit := range patch.Sections {
		start := time.Now()
		tag, err := tx.Exec(ctx, `
UPDATE contents SET body_markdown = $3, status = $4, updated_at = $5
WHERE id = $1 AND parent_id = $2
`, edit.ID, id, edit.BodyMarkdown, string(domain.SectionStatusForBody(edit.BodyMarkdown)), p.now())
		metrics.ObserveNetworkRequest("postgres", "contents_section_update", "contents", start, err)
		if err != nil {
			return domain.Newsletter{}, err
		}
		if tag.RowsAffected() == 0 {
			return domain.Newsletter{}, fmt.Errorf("section %s: %w", edit.ID, domain.ErrSectionNotFound)
		}
	}

	n, err := p.getNewsletter(ctx, tx, id)
	if err != nil {
		return domain.Newsletter{}, err
	}
	if err := p.commit(ctx, tx, "contents"); err != nil {
		return domain.Newsletter{}, err
	}
	return n, nil
}

// DeleteNewsletter реализует domain.ContentRepo.
func (p *Postgres) DeleteNewsletter(ctx context.Context, id string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	tx, err := p.begin(ctx, "contents")
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	start := time.Now()
	_, err = tx.Exec(ctx, `DELETE FROM contents WHERE parent_id = $1`, id)
	metrics.ObserveNetworkRequest("postgres", "contents_delete_children", "contents", start, err)
	if err != nil {
		return err
	}
	start = time.Now()
	tag, err := tx.Exec(ctx, `DELETE FROM contents WHERE id = $1 AND type = $2`, id, string(domain.ContentTypeNewsletter))
	metrics.ObserveNetworkRequest("postgres", "contents_delete", "contents", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNewsletterNotFound
	}
	return p.commit(ctx, tx, "contents")
}

// UpdateSectionBody реализует domain.ContentRepo.
func (p *Postgres) UpdateSectionBody(ctx context.Context, sectionID, body string, status domain.ContentStatus) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE contents SET body_markdown = $2, status = $3, updated_at = $4
WHERE id = $1 AND type = $5
`, sectionID, body, string(status), p.now(), string(domain.ContentTypeNewsletterSection))
	metrics.ObserveNetworkRequest("postgres", "contents_section_body", "contents", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSectionNotFound
	}
	return nil
}

// SetNewsletterSources реализует domain.ContentRepo.
func (p *Postgres) SetNewsletterSources(ctx context.Context, id string, sourceIDs []string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	tx, err := p.begin(ctx, "content_sources")
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var exists bool
	start := time.Now()
	err = tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM contents WHERE id = $1 AND type = $2)`, id, string(domain.ContentTypeNewsletter)).Scan(&exists)
	metrics.ObserveNetworkRequest("postgres", "contents_exists", "contents", start, err)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrNewsletterNotFound
	}

	start = time.Now()
	_, err = tx.Exec(ctx, `DELETE FROM content_sources WHERE content_id = $1`, id)
	metrics.ObserveNetworkRequest("postgres", "content_sources_clear", "content_sources", start, err)
	if err != nil {
		return err
	}
	for _, sourceID := range sourceIDs {
		start := time.Now()
		_, err := tx.Exec(ctx, `INSERT INTO content_sources (content_id, source_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`, id, sourceID)
		metrics.ObserveNetworkRequest("postgres", "content_sources_insert", "content_sources", start, err)
		if err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("source %s: %w", sourceID, domain.ErrSourceNotFound)
			}
			return err
		}
	}
	return p.commit(ctx, tx, "content_sources")
}
