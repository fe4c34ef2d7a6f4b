package completion

import (
	"context"
	"fmt"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/anthropic"
)

type messagesClient interface {
	CreateMessage(ctx context.Context, req anthropic.MessagesRequest) (anthropic.MessagesResponse, error)
}

// Anthropic реализует domain.Completer через Messages API.
type Anthropic struct {
	client messagesClient
	model  string
}

// NewAnthropic создаёт провайдер генерации.
func NewAnthropic(client messagesClient, model string) *Anthropic {
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Anthropic{client: client, model: model}
}

// jsonPrefill начинает ответ ассистента, чтобы модель продолжила JSON-объект без вступления.
const jsonPrefill = "{"

// Complete отправляет один запрос и возвращает блоки ответа. При req.JSON ответ
// начинается с префилла, и он же возвращается в начале первого текстового блока.
func (a *Anthropic) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	messages := []anthropic.Message{{Role: anthropic.RoleUser, Content: req.User}}
	if req.JSON {
		messages = append(messages, anthropic.Message{Role: anthropic.RoleAssistant, Content: jsonPrefill})
	}
	resp, err := a.client.CreateMessage(ctx, anthropic.MessagesRequest{
		Model:       a.model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		System:      req.System,
		Messages:    messages,
	})
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("anthropic completion: %w", err)
	}
	blocks := make([]domain.ContentBlock, 0, len(resp.Content))
	prefilled := !req.JSON
	for _, b := range resp.Content {
		text := b.Text
		if !prefilled && b.Type == "text" {
			text = jsonPrefill + text
			prefilled = true
		}
		blocks = append(blocks, domain.ContentBlock{Type: b.Type, Text: text})
	}
	model := resp.Model
	if model == "" {
		model = a.model
	}
	return domain.CompletionResponse{
		Model:        model,
		Blocks:       blocks,
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}, nil
}
