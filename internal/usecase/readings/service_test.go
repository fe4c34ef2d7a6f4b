package readings

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
)

type stubReadingRepo struct {
	domain.ReadingRepo
	byID      map[string]domain.Reading
	created   []domain.Reading
	createErr error
	patch     domain.ReadingPatch
	analysis  *domain.ReadingAnalysis
	content   string
}

func newStubReadingRepo(readings ...domain.Reading) *stubReadingRepo {
	s := &stubReadingRepo{byID: map[string]domain.Reading{}}
	for _, r := range readings {
		s.byID[r.ID] = r
	}
	return s
}

func (s *stubReadingRepo) GetReading(_ context.Context, id string) (domain.Reading, error) {
	r, ok := s.byID[id]
	if !ok {
		return domain.Reading{}, domain.ErrReadingNotFound
	}
	return r, nil
}

func (s *stubReadingRepo) GetReadingByURL(_ context.Context, url string) (domain.Reading, error) {
	for _, r := range s.byID {
		if r.URL == url {
			return r, nil
		}
	}
	return domain.Reading{}, domain.ErrReadingNotFound
}

func (s *stubReadingRepo) CreateReading(_ context.Context, r domain.Reading) (domain.Reading, error) {
	if s.createErr != nil {
		return domain.Reading{}, s.createErr
	}
	r.ID = "r-new"
	s.created = append(s.created, r)
	s.byID[r.ID] = r
	return r, nil
}

func (s *stubReadingRepo) ListReadings(_ context.Context, filter domain.ReadingFilter) ([]domain.Reading, int, error) {
	return []domain.Reading{}, 0, nil
}

func (s *stubReadingRepo) UpdateReading(_ context.Context, id string, patch domain.ReadingPatch) (domain.Reading, error) {
	r, ok := s.byID[id]
	if !ok {
		return domain.Reading{}, domain.ErrReadingNotFound
	}
	s.patch = patch
	if patch.Status != nil {
		r.Status = *patch.Status
	}
	if patch.UserTags != nil {
		r.UserTags = *patch.UserTags
	}
	r.AcceptedAt = patch.AcceptedAt
	return r, nil
}

func (s *stubReadingRepo) UpdateReadingContent(_ context.Context, id, content string) (domain.Reading, error) {
	r := s.byID[id]
	s.content = content
	r.Content = content
	return r, nil
}

func (s *stubReadingRepo) SaveReadingAnalysis(_ context.Context, id string, a domain.ReadingAnalysis, at time.Time) (domain.Reading, error) {
	r := s.byID[id]
	s.analysis = &a
	r.AIRelevance = a.Relevance
	r.AIChapters = a.Chapters
	r.AITags = a.Tags
	r.AIAngle = a.Angle
	r.ProcessedAt = &at
	return r, nil
}

type stubSourceRepo struct {
	domain.SourceRepo
	sources []domain.Source
	asked   []string
}

func (s *stubSourceRepo) ListSourcesByCategories(_ context.Context, categories []string) ([]domain.Source, error) {
	s.asked = categories
	return s.sources, nil
}

type stubCompleter struct {
	req  domain.CompletionRequest
	resp domain.CompletionResponse
	err  error
}

func (s *stubCompleter) Complete(_ context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	s.req = req
	return s.resp, s.err
}

type stubFetcher struct {
	text string
	err  error
	url  string
}

func (s *stubFetcher) Fetch(_ context.Context, rawURL string) (string, error) {
	s.url = rawURL
	return s.text, s.err
}

func textResponse(text string) domain.CompletionResponse {
	return domain.CompletionResponse{Blocks: []domain.ContentBlock{{Type: "text", Text: text}}, InputTokens: 10, OutputTokens: 5}
}

func TestCaptureValidation(t *testing.T) {
	svc := NewService(newStubReadingRepo(), &stubSourceRepo{}, nil, nil, zerolog.Nop())
	cases := []CaptureInput{
		{Title: "t"},
		{URL: "https://example.com"},
		{URL: "   ", Title: "  "},
		{URL: "not a url", Title: "t"},
	}
	for _, in := range cases {
		_, _, err := svc.Capture(context.Background(), in)
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("ожидалась ошибка валидации для %+v, получили %v", in, err)
		}
	}
}

func TestCaptureCreatesInboxReading(t *testing.T) {
	repo := newStubReadingRepo()
	svc := NewService(repo, &stubSourceRepo{}, nil, nil, zerolog.Nop())

	r, created, err := svc.Capture(context.Background(), CaptureInput{
		URL:         "https://example.com/a",
		Title:       " Article ",
		Description: "meta description",
	})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if !created {
		t.Fatalf("ожидалось создание новой записи")
	}
	if r.Status != domain.ReadingStatusInbox {
		t.Fatalf("ожидался статус inbox, получили %s", r.Status)
	}
	if r.Title != "Article" {
		t.Fatalf("заголовок не обрезан: %q", r.Title)
	}
	if r.Excerpt != "meta description" {
		t.Fatalf("ожидалось описание вместо пустой выдержки, получили %q", r.Excerpt)
	}
}

func TestCaptureReturnsExistingByURL(t *testing.T) {
	existing := domain.Reading{ID: "r-1", URL: "https://example.com/a", Title: "Old"}
	repo := newStubReadingRepo(existing)
	svc := NewService(repo, &stubSourceRepo{}, nil, nil, zerolog.Nop())

	r, created, err := svc.Capture(context.Background(), CaptureInput{URL: existing.URL, Title: "New"})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if created || r.ID != "r-1" || r.Title != "Old" {
		t.Fatalf("ожидалась существующая запись без изменений, получили %+v created=%v", r, created)
	}
	if len(repo.created) != 0 {
		t.Fatalf("дубликат не должен сохраняться")
	}
}

func TestCaptureFoldsRaceConflict(t *testing.T) {
	winner := domain.Reading{ID: "r-winner", URL: "https://example.com/a"}
	repo := newStubReadingRepo()
	repo.createErr = &domain.ConflictError{Message: "Reading already exists", Existing: winner}
	svc := NewService(repo, &stubSourceRepo{}, nil, nil, zerolog.Nop())

	r, created, err := svc.Capture(context.Background(), CaptureInput{URL: winner.URL, Title: "t"})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if created || r.ID != "r-winner" {
		t.Fatalf("ожидалась запись победителя гонки, получили %+v", r)
	}
}

func TestListDefaults(t *testing.T) {
	svc := NewService(newStubReadingRepo(), &stubSourceRepo{}, nil, nil, zerolog.Nop())

	_, _, filter, err := svc.List(context.Background(), domain.ReadingFilter{Limit: 1000, Offset: -5})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if filter.Limit != maxListLimit || filter.Offset != 0 {
		t.Fatalf("фильтр не нормализован: %+v", filter)
	}
	_, _, filter, _ = svc.List(context.Background(), domain.ReadingFilter{})
	if filter.Limit != defaultListLimit {
		t.Fatalf("ожидался лимит по умолчанию %d, получили %d", defaultListLimit, filter.Limit)
	}
	if _, _, _, err := svc.List(context.Background(), domain.ReadingFilter{Status: "unread"}); err == nil {
		t.Fatalf("ожидалась ошибка для неизвестного статуса")
	}
}

func TestUpdateAcceptStampsTime(t *testing.T) {
	repo := newStubReadingRepo(domain.Reading{ID: "r-1", Status: domain.ReadingStatusInbox})
	svc := NewService(repo, &stubSourceRepo{}, nil, nil, zerolog.Nop())
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	status := "accepted"
	tags := []string{" Platforms ", "platforms", "", "AI"}
	r, err := svc.Update(context.Background(), "r-1", UpdateInput{Status: &status, UserTags: &tags})
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if r.AcceptedAt == nil || !r.AcceptedAt.Equal(fixed) {
		t.Fatalf("ожидалась отметка принятия %v, получили %v", fixed, r.AcceptedAt)
	}
	if strings.Join(r.UserTags, ",") != "Platforms,AI" {
		t.Fatalf("теги не нормализованы: %v", r.UserTags)
	}

	archived := "archived"
	if _, err := svc.Update(context.Background(), "r-1", UpdateInput{Status: &archived}); err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if repo.patch.AcceptedAt != nil {
		t.Fatalf("архивирование не должно ставить отметку принятия")
	}

	bad := "deleted"
	if _, err := svc.Update(context.Background(), "r-1", UpdateInput{Status: &bad}); err == nil {
		t.Fatalf("ожидалась ошибка для неизвестного статуса")
	}
}

func TestAnalyzeRequiresCompleter(t *testing.T) {
	svc := NewService(newStubReadingRepo(domain.Reading{ID: "r-1"}), &stubSourceRepo{}, nil, nil, zerolog.Nop())
	if _, err := svc.Analyze(context.Background(), "r-1"); !errors.Is(err, domain.ErrCompletionNotConfigured) {
		t.Fatalf("ожидалась ErrCompletionNotConfigured, получили %v", err)
	}
}

func TestAnalyzeSavesModelFields(t *testing.T) {
	repo := newStubReadingRepo(domain.Reading{ID: "r-1", URL: "https://example.com", Title: "Title", Excerpt: "excerpt", UserNote: "mine"})
	sources := &stubSourceRepo{sources: []domain.Source{
		{Name: "Master Narrative", Category: "narrative", Latest: &domain.SourceSnapshot{Content: "THESIS"}},
		{Name: "Pattern A", Category: "pattern", Latest: &domain.SourceSnapshot{Content: "PATTERN"}},
	}}
	completer := &stubCompleter{resp: textResponse("```json\n{\"relevance\":\"Strong link\",\"chapters\":[\"Chapter 1: Intro\"],\"tags\":[\"platforms\",\"Platforms\"],\"angle\":\"Use it\"}\n```")}
	svc := NewService(repo, sources, completer, nil, zerolog.Nop())

	r, err := svc.Analyze(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if r.AIRelevance != "Strong link" || len(r.AITags) != 1 || r.AIAngle == nil || *r.AIAngle != "Use it" {
		t.Fatalf("поля анализа не сохранены: %+v", r)
	}
	if r.UserNote != "mine" {
		t.Fatalf("пользовательские поля не должны меняться")
	}
	if r.ProcessedAt == nil {
		t.Fatalf("ожидалась отметка обработки")
	}
	if !completer.req.JSON || completer.req.MaxTokens != analysisMaxTokens || completer.req.Temperature != analysisTemperature {
		t.Fatalf("неожиданные параметры запроса: %+v", completer.req)
	}
	for _, want := range []string{"THESIS", "PATTERN", "No book TOC loaded", "Content: excerpt"} {
		if !strings.Contains(completer.req.User, want) {
			t.Fatalf("промпт не содержит %q", want)
		}
	}
	if strings.Join(sources.asked, ",") != "narrative,book,pattern" {
		t.Fatalf("неожиданные категории источников: %v", sources.asked)
	}
}

func TestAnalyzeRejectsProse(t *testing.T) {
	repo := newStubReadingRepo(domain.Reading{ID: "r-1", Title: "t"})
	completer := &stubCompleter{resp: textResponse("Sure! Here is the analysis you asked for.")}
	svc := NewService(repo, &stubSourceRepo{}, completer, nil, zerolog.Nop())

	if _, err := svc.Analyze(context.Background(), "r-1"); !errors.Is(err, domain.ErrAnalysisNotJSON) {
		t.Fatalf("ожидалась ErrAnalysisNotJSON, получили %v", err)
	}
	if repo.analysis != nil {
		t.Fatalf("при ошибке разбора ничего не должно сохраняться")
	}
}

func TestParseAnalysis(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		wantErr bool
		check   func(domain.ReadingAnalysis) bool
	}{
		{
			name:  "plain object",
			input: `{"relevance":"ok","chapters":[],"tags":["a"],"angle":"x"}`,
			check: func(a domain.ReadingAnalysis) bool { return a.Relevance == "ok" && a.Angle != nil },
		},
		{
			name:  "fenced",
			input: "```json\n{\"relevance\":\"ok\"}\n```",
			check: func(a domain.ReadingAnalysis) bool { return a.Relevance == "ok" },
		},
		{
			name:  "not relevant with null angle",
			input: `{"relevance":"NOT_RELEVANT: off topic","chapters":[],"tags":[],"angle":null}`,
			check: func(a domain.ReadingAnalysis) bool { return IsNotRelevant(a) && a.Angle == nil && len(a.Tags) == 0 },
		},
		{
			name:  "blank angle becomes null",
			input: `{"relevance":"ok","angle":"  "}`,
			check: func(a domain.ReadingAnalysis) bool { return a.Angle == nil },
		},
		{name: "prose", input: "The article is relevant because...", wantErr: true},
		{name: "prose around object", input: `Here you go: {"relevance":"ok"}`, wantErr: true},
		{name: "trailing data", input: `{"relevance":"ok"} thanks`, wantErr: true},
		{name: "two objects", input: `{"relevance":"a"}{"relevance":"b"}`, wantErr: true},
		{name: "array", input: `[{"relevance":"ok"}]`, wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, err := ParseAnalysis(tc.input)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrAnalysisNotJSON) {
					t.Fatalf("ожидалась ErrAnalysisNotJSON, получили %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if !tc.check(a) {
				t.Fatalf("неожиданный результат: %+v", a)
			}
		})
	}
}

func TestFetchContent(t *testing.T) {
	repo := newStubReadingRepo(domain.Reading{ID: "r-1", URL: "https://example.com/a"})
	fetcher := &stubFetcher{text: "full text"}
	svc := NewService(repo, &stubSourceRepo{}, nil, fetcher, zerolog.Nop())

	r, err := svc.FetchContent(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}
	if fetcher.url != "https://example.com/a" || r.Content != "full text" {
		t.Fatalf("текст не сохранён: %+v", r)
	}

	fetcher.err = errors.New("boom")
	if _, err := svc.FetchContent(context.Background(), "r-1"); err == nil {
		t.Fatalf("ожидалась ошибка загрузки")
	}
	if _, err := svc.FetchContent(context.Background(), "missing"); !errors.Is(err, domain.ErrReadingNotFound) {
		t.Fatalf("ожидалась ErrReadingNotFound, получили %v", err)
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" a ", "A", "b", "", "  "})
	if strings.Join(got, ",") != "a,b" {
		t.Fatalf("неожиданный результат: %v", got)
	}
	if got := NormalizeTags(nil); got == nil || len(got) != 0 {
		t.Fatalf("ожидался пустой непустой срез, получили %#v", got)
	}
}
