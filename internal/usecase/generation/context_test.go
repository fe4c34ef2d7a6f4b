package generation

import (
	"strings"
	"testing"
	"time"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

func TestRenderBuildLogs(t *testing.T) {
	entries := []domain.BuildLogEntry{
		{ID: "a", WeekStart: time.Date(2025, 2, 3, 0, 0, 0, 0, time.UTC), ClientWork: "Client", SoftwareDev: "Go", Prototyping: " ", Reading: "Book"},
		{ID: "b", WeekStart: time.Date(2025, 1, 27, 0, 0, 0, 0, time.UTC)},
	}
	got := RenderBuildLogs(entries, []string{"b", "missing", "a"})
	want := "### Week of 2025-01-27\n**Client Work:** N/A\n**Software Development:** N/A\n**Prototyping:** N/A\n**Reading:** N/A" +
		"\n\n" +
		"### Week of 2025-02-03\n**Client Work:** Client\n**Software Development:** Go\n**Prototyping:** N/A\n**Reading:** Book"
	if got != want {
		t.Fatalf("неожиданный блок журнала:\n%s", got)
	}
	if RenderBuildLogs(entries, nil) != "No build logs selected." {
		t.Fatalf("ожидали заглушку без выбранных записей")
	}
	if RenderBuildLogs(nil, []string{"gone"}) != "No build logs selected." {
		t.Fatalf("ожидали заглушку, если ни одна запись не найдена")
	}
}

func TestRenderReadings(t *testing.T) {
	angle := "Use as opener"
	readings := []domain.Reading{
		{ID: "r1", Title: "Agents", URL: "https://a.example", AIRelevance: "Connects to O2A", AIAngle: &angle, Excerpt: "Short"},
		{ID: "r2", Title: "Bare", URL: "https://b.example"},
	}
	got := RenderReadings(readings, []string{"r2", "r1"})
	want := "### Bare\nURL: https://b.example\n\n### Agents\nURL: https://a.example\nRelevance: Connects to O2A\nAngle: Use as opener\nExcerpt: Short"
	if got != want {
		t.Fatalf("неожиданный блок статей:\n%s", got)
	}
	if RenderReadings(nil, nil) != "No readings selected." {
		t.Fatalf("ожидали заглушку без статей")
	}
}

func TestPromptCatalogCoversSections(t *testing.T) {
	pc := PromptContext{MasterNarrative: "N", EditorialRules: "R", NewsletterFormat: "F", BuildLogs: "B", Readings: "X"}
	for _, title := range domain.NewsletterSections {
		p, err := PromptFor(title)
		if err != nil {
			t.Fatalf("нет промпта для %q: %v", title, err)
		}
		user := p.User(pc)
		if !strings.Contains(user, "## TASK") {
			t.Fatalf("в промпте %q нет задачи", title)
		}
		if strings.Contains(user, "THEME FOR THIS ISSUE") {
			t.Fatalf("без темы секция темы не выводится (%q)", title)
		}
		if p.User(pc) != user {
			t.Fatalf("промпт %q должен быть чистой функцией контекста", title)
		}
	}
	if _, err := PromptFor("Sidebar"); err == nil {
		t.Fatalf("ожидали ошибку для неизвестного раздела")
	}
	pack := Prompts[domain.SectionPromptPack].User(pc)
	for _, label := range []string{"### DIAGNOSE", "### PROPOSE", "### IMPLEMENT"} {
		if !strings.Contains(pack, label) {
			t.Fatalf("в Prompt Pack нет %s", label)
		}
	}
}
