package domain

import (
	"context"
	"time"
)

// NewsletterFilter задаёт выборку выпусков.
type NewsletterFilter struct {
	Status ContentStatus
	Limit  int
	Offset int
}

// SectionEdit перезаписывает текст одного раздела.
type SectionEdit struct {
	ID           string
	BodyMarkdown string
}

// NewsletterPatch: частичное обновление выпуска. nil означает «не менять».
type NewsletterPatch struct {
	Title        *string
	Status       *ContentStatus
	BodyMarkdown *string
	Metadata     *NewsletterMetadata
	PublishedAt  *time.Time
	Sections     []SectionEdit
}

// ContentRepo хранит выпуски и их разделы.
type ContentRepo interface {
	// CreateNewsletter атомарно создаёт выпуск вместе с разделами.
	CreateNewsletter(ctx context.Context, parent Content, sections []Content) (Newsletter, error)
	ListNewsletters(ctx context.Context, filter NewsletterFilter) ([]Newsletter, int, error)
	GetNewsletter(ctx context.Context, id string) (Newsletter, error)
	UpdateNewsletter(ctx context.Context, id string, patch NewsletterPatch) (Newsletter, error)
	// DeleteNewsletter удаляет разделы, затем сам выпуск.
	DeleteNewsletter(ctx context.Context, id string) error
	UpdateSectionBody(ctx context.Context, sectionID, body string, status ContentStatus) error
	SetNewsletterSources(ctx context.Context, id string, sourceIDs []string) error
}

// BuildLogPatch: частичное обновление недельной записи.
type BuildLogPatch struct {
	ClientWork      *string
	SoftwareDev     *string
	Prototyping     *string
	Reading         *string
	VoiceTranscript *string
	Status          *BuildLogStatus
}

// HasTextEdits сообщает, меняет ли патч текстовые поля.
func (p BuildLogPatch) HasTextEdits() bool {
	return p.ClientWork != nil || p.SoftwareDev != nil || p.Prototyping != nil || p.Reading != nil || p.VoiceTranscript != nil
}

// BuildLogRepo хранит недельные записи.
type BuildLogRepo interface {
	ListBuildLogs(ctx context.Context) ([]BuildLogEntry, error)
	GetBuildLog(ctx context.Context, id string) (BuildLogEntry, error)
	GetBuildLogByWeek(ctx context.Context, weekStart time.Time) (BuildLogEntry, error)
	GetBuildLogsByIDs(ctx context.Context, ids []string) ([]BuildLogEntry, error)
	CreateBuildLog(ctx context.Context, entry BuildLogEntry) (BuildLogEntry, error)
	UpdateBuildLog(ctx context.Context, id string, patch BuildLogPatch) (BuildLogEntry, error)
	DeleteBuildLog(ctx context.Context, id string) error
}

// ReadingFilter задаёт выборку статей.
type ReadingFilter struct {
	Status ReadingStatus
	Tag    string
	Limit  int
	Offset int
}

// ReadingPatch: правка пользовательских полей статьи.
type ReadingPatch struct {
	Status          *ReadingStatus
	AcceptedAt      *time.Time
	UserNote        *string
	UserTags        *[]string
	UsedInContentID *string
}

// ReadingRepo хранит статьи.
type ReadingRepo interface {
	ListReadings(ctx context.Context, filter ReadingFilter) ([]Reading, int, error)
	CountReadings(ctx context.Context) (ReadingCounts, error)
	GetReading(ctx context.Context, id string) (Reading, error)
	GetReadingByURL(ctx context.Context, url string) (Reading, error)
	GetReadingsByIDs(ctx context.Context, ids []string) ([]Reading, error)
	// CreateReading возвращает ConflictError, если URL уже сохранён.
	CreateReading(ctx context.Context, reading Reading) (Reading, error)
	UpdateReading(ctx context.Context, id string, patch ReadingPatch) (Reading, error)
	UpdateReadingContent(ctx context.Context, id, content string) (Reading, error)
	// SaveReadingAnalysis перезаписывает только поля, полученные от модели.
	SaveReadingAnalysis(ctx context.Context, id string, analysis ReadingAnalysis, processedAt time.Time) (Reading, error)
	DeleteReading(ctx context.Context, id string) error
}

// SourceRepo хранит источники и их снимки.
type SourceRepo interface {
	ListSources(ctx context.Context) ([]Source, error)
	GetSource(ctx context.Context, id string) (Source, error)
	ListWatchedFileSources(ctx context.Context) ([]Source, error)
	ListSourcesByCategories(ctx context.Context, categories []string) ([]Source, error)
	LatestSnapshot(ctx context.Context, sourceID string) (SourceSnapshot, error)
	// RecordSnapshot добавляет снимок и обновляет хеш и время синхронизации.
	RecordSnapshot(ctx context.Context, sourceID, content, hash string, at time.Time) error
	TouchSource(ctx context.Context, sourceID string, at time.Time) error
	ReplaceSources(ctx context.Context, sources []Source) error
}

// TemplateStore читает статические документы стратегии.
type TemplateStore interface {
	Load(ctx context.Context, name string) (string, error)
}

// ContentBlock: часть ответа сервиса генерации.
type ContentBlock struct {
	Type string
	Text string
}

// CompletionRequest: один запрос к сервису генерации.
type CompletionRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	JSON        bool
}

// CompletionResponse: ответ сервиса генерации.
type CompletionResponse struct {
	Model        string
	Blocks       []ContentBlock
	InputTokens  int
	OutputTokens int
}

// FirstText возвращает первый текстовый блок ответа.
func (r CompletionResponse) FirstText() (string, bool) {
	for _, b := range r.Blocks {
		if b.Type == "text" {
			return b.Text, true
		}
	}
	return "", false
}

// Completer отправляет промпт во внешний сервис генерации.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// SectionLocker выдаёт рекомендательную блокировку на генерацию раздела.
type SectionLocker interface {
	// Acquire возвращает ErrGenerationInProgress, если ключ уже занят.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// PageFetcher загружает читаемый текст статьи.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}
