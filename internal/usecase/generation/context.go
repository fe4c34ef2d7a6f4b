package generation

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

// Документы стратегии, которые подмешиваются в каждый промпт.
const (
	MasterNarrativeFile  = "01-master-narrative.md"
	EditorialRulesFile   = "07-editorial-rules.md"
	NewsletterFormatFile = "06-newsletter-format.md"
)

const (
	noBuildLogs = "No build logs selected."
	noReadings  = "No readings selected."
)

// PromptContext: собранный контекст для одной генерации раздела.
type PromptContext struct {
	MasterNarrative  string
	EditorialRules   string
	NewsletterFormat string
	BuildLogs        string
	Readings         string
	Theme            string
}

// Assembler собирает контекст из документов стратегии, журнала и статей.
type Assembler struct {
	templates domain.TemplateStore
	buildLogs domain.BuildLogRepo
	readings  domain.ReadingRepo
	log       zerolog.Logger
}

// NewAssembler создаёт сборщик контекста.
func NewAssembler(templates domain.TemplateStore, buildLogs domain.BuildLogRepo, readings domain.ReadingRepo, logger zerolog.Logger) *Assembler {
	return &Assembler{templates: templates, buildLogs: buildLogs, readings: readings, log: logger}
}

// Assemble загружает документы и выбранные записи. Недоступный документ
// заменяется заглушкой, ошибка хранилища прерывает сборку.
func (a *Assembler) Assemble(ctx context.Context, buildLogIDs, readingIDs []string, theme string) (PromptContext, error) {
	pc := PromptContext{
		MasterNarrative:  a.loadOr(ctx, MasterNarrativeFile, "Master narrative not available."),
		EditorialRules:   a.loadOr(ctx, EditorialRulesFile, "Editorial rules not available."),
		NewsletterFormat: a.loadOr(ctx, NewsletterFormatFile, "Newsletter format not available."),
		Theme:            strings.TrimSpace(theme),
	}

	entries, err := a.buildLogs.GetBuildLogsByIDs(ctx, buildLogIDs)
	if err != nil {
		return PromptContext{}, fmt.Errorf("загрузка журнала: %w", err)
	}
	pc.BuildLogs = RenderBuildLogs(entries, buildLogIDs)

	readings, err := a.readings.GetReadingsByIDs(ctx, readingIDs)
	if err != nil {
		return PromptContext{}, fmt.Errorf("загрузка статей: %w", err)
	}
	pc.Readings = RenderReadings(readings, readingIDs)
	return pc, nil
}

func (a *Assembler) loadOr(ctx context.Context, name, placeholder string) string {
	if a.templates == nil {
		return placeholder
	}
	text, err := a.templates.Load(ctx, name)
	if err != nil {
		a.log.Warn().Err(err).Str("file", name).Msg("generation: template unavailable, using placeholder")
		return placeholder
	}
	return text
}

// RenderBuildLogs выводит записи в порядке ids; отсутствующие id пропускаются.
func RenderBuildLogs(entries []domain.BuildLogEntry, ids []string) string {
	byID := make(map[string]domain.BuildLogEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	blocks := make([]string, 0, len(ids))
	for _, id := range ids {
		e, ok := byID[id]
		if !ok {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("### Week of %s\n**Client Work:** %s\n**Software Development:** %s\n**Prototyping:** %s\n**Reading:** %s",
			e.WeekStart.Format("2006-01-02"), orNA(e.ClientWork), orNA(e.SoftwareDev), orNA(e.Prototyping), orNA(e.Reading)))
	}
	if len(blocks) == 0 {
		return noBuildLogs
	}
	return strings.Join(blocks, "\n\n")
}

// RenderReadings выводит статьи в порядке ids; пустые поля модели опускаются.
func RenderReadings(readings []domain.Reading, ids []string) string {
	byID := make(map[string]domain.Reading, len(readings))
	for _, r := range readings {
		byID[r.ID] = r
	}
	blocks := make([]string, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			continue
		}
		lines := []string{"### " + r.Title, "URL: " + r.URL}
		if r.AIRelevance != "" {
			lines = append(lines, "Relevance: "+r.AIRelevance)
		}
		if r.AIAngle != nil && *r.AIAngle != "" {
			lines = append(lines, "Angle: "+*r.AIAngle)
		}
		if r.Excerpt != "" {
			lines = append(lines, "Excerpt: "+r.Excerpt)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	if len(blocks) == 0 {
		return noReadings
	}
	return strings.Join(blocks, "\n\n")
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
