package domain

import "time"

// ContentType различает корневой выпуск и его разделы.
type ContentType string

const (
	// ContentTypeNewsletter: корневой узел выпуска.
	ContentTypeNewsletter ContentType = "newsletter"
	// ContentTypeNewsletterSection: раздел выпуска.
	ContentTypeNewsletterSection ContentType = "newsletter_section"
)

// ContentStatus описывает стадию жизненного цикла контента.
type ContentStatus string

const (
	ContentStatusDraft     ContentStatus = "draft"
	ContentStatusGenerated ContentStatus = "generated"
	ContentStatusReview    ContentStatus = "review"
	ContentStatusApproved  ContentStatus = "approved"
	ContentStatusScheduled ContentStatus = "scheduled"
	ContentStatusPublished ContentStatus = "published"
)

// Valid сообщает, входит ли статус в допустимый набор.
func (s ContentStatus) Valid() bool {
	switch s {
	case ContentStatusDraft, ContentStatusGenerated, ContentStatusReview,
		ContentStatusApproved, ContentStatusScheduled, ContentStatusPublished:
		return true
	}
	return false
}

// SectionStatusForBody возвращает статус раздела после записи текста.
func SectionStatusForBody(body string) ContentStatus {
	if body == "" {
		return ContentStatusDraft
	}
	return ContentStatusGenerated
}

// NewsletterMetadata хранит служебные поля выпуска.
type NewsletterMetadata struct {
	IssueNumber       int      `json:"issueNumber"`
	SelectedBuildLogs []string `json:"selectedBuildLogs"`
	SelectedReadings  []string `json:"selectedReadings"`
	Theme             string   `json:"theme,omitempty"`
}

// Content описывает узел двухуровневой иерархии (выпуск или его раздел).
type Content struct {
	ID            string              `json:"id"`
	Type          ContentType         `json:"type"`
	Title         string              `json:"title"`
	Slug          *string             `json:"slug,omitempty"`
	BodyMarkdown  string              `json:"bodyMarkdown"`
	Metadata      *NewsletterMetadata `json:"metadata,omitempty"`
	Status        ContentStatus       `json:"status"`
	PublishedAt   *time.Time          `json:"publishedAt,omitempty"`
	SequenceOrder int                 `json:"sequenceOrder"`
	ParentID      *string             `json:"parentId,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

// Newsletter объединяет корневой узел, его разделы и связанные источники.
type Newsletter struct {
	Content
	Sections []Content `json:"children"`
	Sources  []Source  `json:"sources"`
}

// Section возвращает раздел выпуска по идентификатору.
func (n Newsletter) Section(id string) (Content, bool) {
	for _, s := range n.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Content{}, false
}

// BuildLogStatus: статус недельной записи.
type BuildLogStatus string

const (
	BuildLogStatusDraft     BuildLogStatus = "draft"
	BuildLogStatusFinalized BuildLogStatus = "finalized"
)

// Valid сообщает, входит ли статус в допустимый набор.
func (s BuildLogStatus) Valid() bool {
	return s == BuildLogStatusDraft || s == BuildLogStatusFinalized
}

// BuildLogEntry: запись журнала за одну неделю.
type BuildLogEntry struct {
	ID              string         `json:"id"`
	WeekStart       time.Time      `json:"weekStart"`
	WeekEnd         time.Time      `json:"weekEnd"`
	ClientWork      string         `json:"clientWork"`
	SoftwareDev     string         `json:"softwareDev"`
	Prototyping     string         `json:"prototyping"`
	Reading         string         `json:"reading"`
	VoiceTranscript string         `json:"voiceTranscript"`
	Status          BuildLogStatus `json:"status"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// ReadingStatus: статус статьи во входящих.
type ReadingStatus string

const (
	ReadingStatusInbox    ReadingStatus = "inbox"
	ReadingStatusAccepted ReadingStatus = "accepted"
	ReadingStatusArchived ReadingStatus = "archived"
	ReadingStatusUsed     ReadingStatus = "used"
)

// Valid сообщает, входит ли статус в допустимый набор.
func (s ReadingStatus) Valid() bool {
	switch s {
	case ReadingStatusInbox, ReadingStatusAccepted, ReadingStatusArchived, ReadingStatusUsed:
		return true
	}
	return false
}

// Reading: сохранённая статья.
type Reading struct {
	ID              string        `json:"id"`
	URL             string        `json:"url"`
	Title           string        `json:"title"`
	Excerpt         string        `json:"excerpt"`
	Content         string        `json:"content"`
	AIRelevance     string        `json:"aiRelevance"`
	AIChapters      []string      `json:"aiChapters"`
	AITags          []string      `json:"aiTags"`
	AIAngle         *string       `json:"aiAngle"`
	UserNote        string        `json:"userNote"`
	UserTags        []string      `json:"userTags"`
	Status          ReadingStatus `json:"status"`
	UsedInContentID *string       `json:"usedInContentId,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	ProcessedAt     *time.Time    `json:"processedAt,omitempty"`
	AcceptedAt      *time.Time    `json:"acceptedAt,omitempty"`
}

// ReadingAnalysis: результат анализа статьи моделью.
type ReadingAnalysis struct {
	Relevance string   `json:"relevance"`
	Chapters  []string `json:"chapters"`
	Tags      []string `json:"tags"`
	Angle     *string  `json:"angle"`
}

// ReadingCounts: количество статей по статусам.
type ReadingCounts struct {
	Inbox    int `json:"inbox"`
	Accepted int `json:"accepted"`
	Archived int `json:"archived"`
	Used     int `json:"used"`
	Total    int `json:"total"`
}

// SourceType различает файл и папку.
type SourceType string

const (
	SourceTypeFile   SourceType = "file"
	SourceTypeFolder SourceType = "folder"
)

// Source: внешний документ, за изменениями которого мы следим.
type Source struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Path         string          `json:"path"`
	Type         SourceType      `json:"type"`
	Category     string          `json:"category"`
	Description  string          `json:"description"`
	LastHash     string          `json:"lastHash"`
	LastSynced   *time.Time      `json:"lastSynced,omitempty"`
	WatchEnabled bool            `json:"watchEnabled"`
	CreatedAt    time.Time       `json:"createdAt"`
	Latest       *SourceSnapshot `json:"latestSnapshot,omitempty"`
}

// SourceSnapshot: неизменяемый снимок содержимого источника.
type SourceSnapshot struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"sourceId"`
	Content     string    `json:"content"`
	ContentHash string    `json:"contentHash"`
	ExtractedAt time.Time `json:"extractedAt"`
}
