package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/anthropic"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/usecase/readings"
)

type stubMessages struct {
	got  anthropic.MessagesRequest
	resp anthropic.MessagesResponse
	err  error
}

func (s *stubMessages) CreateMessage(_ context.Context, req anthropic.MessagesRequest) (anthropic.MessagesResponse, error) {
	s.got = req
	return s.resp, s.err
}

func TestAnthropicComplete(t *testing.T) {
	stub := &stubMessages{resp: anthropic.MessagesResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "body"}},
		Usage:   anthropic.Usage{InputTokens: 3, OutputTokens: 4},
	}}
	c := NewAnthropic(stub, "")
	resp, err := c.Complete(context.Background(), domain.CompletionRequest{System: "s", User: "u", MaxTokens: 2000, Temperature: 0.7})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stub.got.Model != "claude-sonnet-4-20250514" {
		t.Fatalf("ожидали модель по умолчанию, получили %s", stub.got.Model)
	}
	if stub.got.System != "s" || stub.got.Messages[0].Content != "u" || stub.got.MaxTokens != 2000 {
		t.Fatalf("неверный запрос: %+v", stub.got)
	}
	text, ok := resp.FirstText()
	if !ok || text != "body" {
		t.Fatalf("ожидали текстовый блок, получили %+v", resp)
	}
	if resp.InputTokens+resp.OutputTokens != 7 {
		t.Fatalf("неверные токены: %+v", resp)
	}
}

func TestAnthropicCompleteError(t *testing.T) {
	c := NewAnthropic(&stubMessages{err: errors.New("boom")}, "m")
	if _, err := c.Complete(context.Background(), domain.CompletionRequest{}); err == nil {
		t.Fatalf("ожидали ошибку")
	}
}

func TestAnthropicCompleteJSONPrefill(t *testing.T) {
	stub := &stubMessages{resp: anthropic.MessagesResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: `"relevance":"HIGH","chapters":[],"tags":["go"],"angle":null}`}},
	}}
	c := NewAnthropic(stub, "m")
	resp, err := c.Complete(context.Background(), domain.CompletionRequest{User: "u", MaxTokens: 500, JSON: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.got.Messages) != 2 {
		t.Fatalf("ожидали два сообщения, получили %+v", stub.got.Messages)
	}
	last := stub.got.Messages[1]
	if last.Role != anthropic.RoleAssistant || last.Content != "{" {
		t.Fatalf("ожидали префилл ассистента, получили %+v", last)
	}
	text, _ := resp.FirstText()
	if text != `{"relevance":"HIGH","chapters":[],"tags":["go"],"angle":null}` {
		t.Fatalf("префилл не восстановлен: %s", text)
	}
	a, err := readings.ParseAnalysis(text)
	if err != nil {
		t.Fatalf("ответ должен разбираться: %v", err)
	}
	if a.Relevance != "HIGH" || len(a.Tags) != 1 {
		t.Fatalf("неверный разбор: %+v", a)
	}
}

func TestAnthropicCompleteWithoutJSONSendsOnlyUser(t *testing.T) {
	stub := &stubMessages{resp: anthropic.MessagesResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "plain"}},
	}}
	resp, err := NewAnthropic(stub, "m").Complete(context.Background(), domain.CompletionRequest{User: "u"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.got.Messages) != 1 || stub.got.Messages[0].Role != anthropic.RoleUser {
		t.Fatalf("лишние сообщения: %+v", stub.got.Messages)
	}
	if text, _ := resp.FirstText(); text != "plain" {
		t.Fatalf("текст не должен меняться: %s", text)
	}
}
