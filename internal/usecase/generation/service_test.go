package generation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/lock"
)

type stubContents struct {
	mu         sync.Mutex
	newsletter domain.Newsletter
	writes     map[string]string
	statuses   map[string]domain.ContentStatus
}

func newStubContents(n domain.Newsletter) *stubContents {
	return &stubContents{newsletter: n, writes: map[string]string{}, statuses: map[string]domain.ContentStatus{}}
}

func (s *stubContents) CreateNewsletter(context.Context, domain.Content, []domain.Content) (domain.Newsletter, error) {
	return domain.Newsletter{}, errors.New("not implemented")
}

func (s *stubContents) ListNewsletters(context.Context, domain.NewsletterFilter) ([]domain.Newsletter, int, error) {
	return nil, 0, nil
}

func (s *stubContents) GetNewsletter(_ context.Context, id string) (domain.Newsletter, error) {
	if id != s.newsletter.ID {
		return domain.Newsletter{}, domain.ErrNewsletterNotFound
	}
	return s.newsletter, nil
}

func (s *stubContents) UpdateNewsletter(context.Context, string, domain.NewsletterPatch) (domain.Newsletter, error) {
	return domain.Newsletter{}, nil
}

func (s *stubContents) DeleteNewsletter(context.Context, string) error { return nil }

func (s *stubContents) UpdateSectionBody(_ context.Context, sectionID, body string, status domain.ContentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[sectionID] = body
	s.statuses[sectionID] = status
	return nil
}

func (s *stubContents) SetNewsletterSources(context.Context, string, []string) error { return nil }

type stubBuildLogs struct {
	domain.BuildLogRepo
	entries []domain.BuildLogEntry
}

func (s stubBuildLogs) GetBuildLogsByIDs(_ context.Context, ids []string) ([]domain.BuildLogEntry, error) {
	var out []domain.BuildLogEntry
	for _, e := range s.entries {
		for _, id := range ids {
			if e.ID == id {
				out = append(out, e)
				break
			}
		}
	}
	return out, nil
}

type stubReadings struct {
	domain.ReadingRepo
	readings []domain.Reading
}

func (s stubReadings) GetReadingsByIDs(_ context.Context, ids []string) ([]domain.Reading, error) {
	var out []domain.Reading
	for _, r := range s.readings {
		for _, id := range ids {
			if r.ID == id {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

type stubTemplates map[string]string

func (s stubTemplates) Load(_ context.Context, name string) (string, error) {
	if v, ok := s[name]; ok {
		return v, nil
	}
	return "", errors.New("missing")
}

type stubCompleter struct {
	mu    sync.Mutex
	calls []domain.CompletionRequest
	resp  domain.CompletionResponse
	err   error
	block chan struct{}
	ready chan struct{}
}

func (s *stubCompleter) Complete(_ context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.ready != nil {
		close(s.ready)
	}
	if s.block != nil {
		<-s.block
	}
	return s.resp, s.err
}

func sampleNewsletter() domain.Newsletter {
	parent := "nl-1"
	n := domain.Newsletter{Content: domain.Content{ID: parent, Type: domain.ContentTypeNewsletter, Title: "Issue #1: Test"}}
	for i, title := range domain.NewsletterSections {
		n.Sections = append(n.Sections, domain.Content{
			ID:            "sec-" + string(rune('1'+i)),
			Type:          domain.ContentTypeNewsletterSection,
			Title:         title,
			SequenceOrder: i + 1,
			ParentID:      &parent,
		})
	}
	n.Sections = append(n.Sections, domain.Content{ID: "sec-odd", Title: "Sidebar", ParentID: &parent})
	return n
}

func newTestService(contents *stubContents, completer domain.Completer) *Service {
	week := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	asm := NewAssembler(
		stubTemplates{MasterNarrativeFile: "NARRATIVE TEXT"},
		stubBuildLogs{entries: []domain.BuildLogEntry{{ID: "bl-1", WeekStart: week, ClientWork: "Workshop"}}},
		stubReadings{},
		zerolog.Nop(),
	)
	return NewService(contents, asm, completer, lock.NewMemory(), time.Minute, zerolog.Nop())
}

func TestGenerateSectionPreconditions(t *testing.T) {
	contents := newStubContents(sampleNewsletter())
	completer := &stubCompleter{}
	svc := newTestService(contents, completer)

	cases := []struct {
		name string
		req  Request
		want error
	}{
		{"нет выпуска", Request{NewsletterID: "missing", SectionID: "sec-1"}, domain.ErrNewsletterNotFound},
		{"нет раздела", Request{NewsletterID: "nl-1", SectionID: "other"}, domain.ErrSectionNotFound},
		{"неизвестный раздел", Request{NewsletterID: "nl-1", SectionID: "sec-odd"}, domain.ErrUnknownSection},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GenerateSection(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("ожидали %v, получили %v", tc.want, err)
			}
		})
	}
	if len(completer.calls) != 0 || len(contents.writes) != 0 {
		t.Fatalf("при ошибке предусловий не должно быть вызовов и записей")
	}
}

func TestGenerateSectionSuccess(t *testing.T) {
	contents := newStubContents(sampleNewsletter())
	completer := &stubCompleter{resp: domain.CompletionResponse{
		Blocks:       []domain.ContentBlock{{Type: "tool_use"}, {Type: "text", Text: "Generated thesis"}},
		InputTokens:  120,
		OutputTokens: 30,
	}}
	svc := newTestService(contents, completer)

	res, err := svc.GenerateSection(context.Background(), Request{
		NewsletterID: "nl-1",
		SectionID:    "sec-1",
		BuildLogIDs:  []string{"bl-1", "bl-missing"},
		Theme:        "Agents as operators",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "Generated thesis" || res.TokensUsed != 150 {
		t.Fatalf("неожиданный результат %+v", res)
	}
	if contents.writes["sec-1"] != "Generated thesis" || contents.statuses["sec-1"] != domain.ContentStatusGenerated {
		t.Fatalf("раздел не сохранён: %+v", contents.writes)
	}
	if len(contents.writes) != 1 {
		t.Fatalf("соседние разделы не должны меняться, записи: %+v", contents.writes)
	}
	if len(completer.calls) != 1 {
		t.Fatalf("ожидали один вызов модели, получили %d", len(completer.calls))
	}
	call := completer.calls[0]
	if call.MaxTokens != 2000 || call.Temperature != 0.7 {
		t.Fatalf("неверные параметры генерации: %+v", call)
	}
	if call.System != Prompts[domain.SectionThesisFragment].System {
		t.Fatalf("неверный системный промпт")
	}
	for _, want := range []string{
		"## MASTER NARRATIVE\nNARRATIVE TEXT",
		"## EDITORIAL RULES\nEditorial rules not available.",
		"### Week of 2025-01-06\n**Client Work:** Workshop\n**Software Development:** N/A",
		"## SELECTED READINGS\nNo readings selected.",
		"## THEME FOR THIS ISSUE\nAgents as operators",
	} {
		if !strings.Contains(call.User, want) {
			t.Fatalf("в промпте нет %q:\n%s", want, call.User)
		}
	}
}

func TestGenerateSectionNoText(t *testing.T) {
	contents := newStubContents(sampleNewsletter())
	completer := &stubCompleter{resp: domain.CompletionResponse{Blocks: []domain.ContentBlock{{Type: "tool_use"}}}}
	svc := newTestService(contents, completer)

	_, err := svc.GenerateSection(context.Background(), Request{NewsletterID: "nl-1", SectionID: "sec-5"})
	if !errors.Is(err, domain.ErrNoContentGenerated) {
		t.Fatalf("ожидали ErrNoContentGenerated, получили %v", err)
	}
	if len(contents.writes) != 0 {
		t.Fatalf("без текста запись недопустима")
	}
}

func TestGenerateSectionCompletionError(t *testing.T) {
	contents := newStubContents(sampleNewsletter())
	svc := newTestService(contents, &stubCompleter{err: errors.New("overloaded")})
	if _, err := svc.GenerateSection(context.Background(), Request{NewsletterID: "nl-1", SectionID: "sec-2"}); err == nil {
		t.Fatalf("ожидали ошибку модели")
	}
	if len(contents.writes) != 0 {
		t.Fatalf("при ошибке модели запись недопустима")
	}
	if _, err := svc.GenerateSection(context.Background(), Request{NewsletterID: "nl-1", SectionID: "sec-2"}); err == nil || errors.Is(err, domain.ErrGenerationInProgress) {
		t.Fatalf("блокировка должна сниматься после ошибки, получили %v", err)
	}
}

func TestGenerateSectionWithoutCompleter(t *testing.T) {
	svc := newTestService(newStubContents(sampleNewsletter()), nil)
	if _, err := svc.GenerateSection(context.Background(), Request{NewsletterID: "nl-1", SectionID: "sec-1"}); !errors.Is(err, domain.ErrCompletionNotConfigured) {
		t.Fatalf("ожидали ErrCompletionNotConfigured, получили %v", err)
	}
}

func TestGenerateSectionRejectsConcurrentRequest(t *testing.T) {
	contents := newStubContents(sampleNewsletter())
	completer := &stubCompleter{
		resp:  domain.CompletionResponse{Blocks: []domain.ContentBlock{{Type: "text", Text: "first"}}},
		block: make(chan struct{}),
		ready: make(chan struct{}),
	}
	svc := newTestService(contents, completer)

	done := make(chan error, 1)
	go func() {
		_, err := svc.GenerateSection(context.Background(), Request{NewsletterID: "nl-1", SectionID: "sec-3"})
		done <- err
	}()
	<-completer.ready

	_, err := svc.GenerateSection(context.Background(), Request{NewsletterID: "nl-1", SectionID: "sec-3"})
	if !errors.Is(err, domain.ErrGenerationInProgress) {
		t.Fatalf("ожидали ErrGenerationInProgress, получили %v", err)
	}
	close(completer.block)
	if err := <-done; err != nil {
		t.Fatalf("первая генерация должна завершиться: %v", err)
	}
	if contents.writes["sec-3"] != "first" {
		t.Fatalf("ожидали запись первой генерации")
	}
}
