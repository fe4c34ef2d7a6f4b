package readings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

const (
	analysisMaxTokens   = 500
	analysisTemperature = 0.3

	narrativeBudget = 3000
	bookTOCBudget   = 2000
	patternBudget   = 1500
)

// Категории источников, из которых собирается опорный материал анализа.
var analysisCategories = []string{"narrative", "book", "pattern"}

const analysisSystemPrompt = `You are the editorial assistant for Simone Cicero, founder of Boundaryless.
Your task is to analyze articles and determine their relevance to Simone's thesis about programmable organizations and the O2A (Offering to Agreement) framework.

Always respond in valid JSON format.`

// notRelevantPrefix открывает поле relevance у статей вне тезиса.
const notRelevantPrefix = "NOT_RELEVANT"

type supportMaterial struct {
	MasterNarrative string
	BookTOC         string
	Patterns        string
}

// buildSupportMaterial обрезает последние снимки источников до фиксированных бюджетов.
func buildSupportMaterial(sources []domain.Source) supportMaterial {
	var (
		m        supportMaterial
		patterns strings.Builder
	)
	for _, s := range sources {
		content := ""
		if s.Latest != nil {
			content = s.Latest.Content
		}
		switch {
		case strings.Contains(s.Name, "Master Narrative"):
			m.MasterNarrative = clipRunes(content, narrativeBudget)
		case strings.Contains(s.Name, "Book TOC"):
			m.BookTOC = clipRunes(content, bookTOCBudget)
		case s.Category == "pattern":
			patterns.WriteString(clipRunes(content, patternBudget))
			patterns.WriteString("\n---\n")
		}
	}
	m.Patterns = patterns.String()
	if m.MasterNarrative == "" {
		m.MasterNarrative = "No master narrative loaded"
	}
	if m.BookTOC == "" {
		m.BookTOC = "No book TOC loaded"
	}
	if m.Patterns == "" {
		m.Patterns = "No patterns loaded"
	}
	return m
}

func analysisUserPrompt(r domain.Reading, m supportMaterial) string {
	text := r.Content
	if text == "" {
		text = r.Excerpt
	}
	if text == "" {
		text = r.Title
	}
	return fmt.Sprintf(`## CONTEXT - Main Thesis
%s

## CONTEXT - Book Structure
%s

## CONTEXT - O2A Patterns Summary
%s

## NEW ARTICLE
Title: %s
URL: %s
Content: %s

## GENERATE (in JSON):
{
  "relevance": "2-3 sentences on how this article connects to Simone's thesis",
  "chapters": ["Chapter X: Title", "Chapter Y: Title"],
  "tags": ["tag1", "tag2", "tag3"],
  "angle": "1 sentence: potential angle for using this in a newsletter"
}

If the article is NOT relevant to the thesis, respond:
{
  "relevance": "NOT_RELEVANT: [brief explanation]",
  "chapters": [],
  "tags": [],
  "angle": null
}`, m.MasterNarrative, m.BookTOC, m.Patterns, r.Title, r.URL, text)
}

// ParseAnalysis разбирает ответ модели. Допускаются пробелы и обёртка ```json,
// всё остальное должно быть ровно одним JSON-объектом без хвоста.
func ParseAnalysis(text string) (domain.ReadingAnalysis, error) {
	body := stripFence(strings.TrimSpace(text))
	if !strings.HasPrefix(body, "{") {
		return domain.ReadingAnalysis{}, domain.ErrAnalysisNotJSON
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	var a domain.ReadingAnalysis
	if err := dec.Decode(&a); err != nil {
		return domain.ReadingAnalysis{}, fmt.Errorf("%w: %v", domain.ErrAnalysisNotJSON, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return domain.ReadingAnalysis{}, fmt.Errorf("%w: trailing data after object", domain.ErrAnalysisNotJSON)
	}
	a.Relevance = strings.TrimSpace(a.Relevance)
	a.Chapters = NormalizeTags(a.Chapters)
	a.Tags = NormalizeTags(a.Tags)
	if a.Angle != nil && strings.TrimSpace(*a.Angle) == "" {
		a.Angle = nil
	}
	return a, nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	rest := strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		lang := strings.TrimSpace(rest[:i])
		if lang == "" || strings.EqualFold(lang, "json") {
			rest = rest[i+1:]
		}
	}
	rest = strings.TrimSpace(rest)
	rest = strings.TrimSuffix(rest, "```")
	return strings.TrimSpace(rest)
}

// IsNotRelevant сообщает, пометила ли модель статью как нерелевантную.
func IsNotRelevant(a domain.ReadingAnalysis) bool {
	return strings.HasPrefix(a.Relevance, notRelevantPrefix)
}

func clipRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
