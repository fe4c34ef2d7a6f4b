package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/simone-hue/boundaryless-content-dashboard/internal/domain"
	"github.com/simone-hue/boundaryless-content-dashboard/internal/infra/metrics"
)

// OpenAI реализует domain.Completer через официальный SDK openai-go.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI создаёт альтернативного провайдера генерации.
func NewOpenAI(apiKey, baseURL, model string, timeout time.Duration) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key missing")
	}
	if model == "" {
		model = "gpt-4.1-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	return &OpenAI{client: openai.NewClient(opts...), model: model}, nil
}

// Complete переводит запрос в Chat Completions. Ответ возвращается одним текстовым блоком.
func (o *OpenAI) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
			openai.UserMessage(req.User),
		},
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	metrics.ObserveNetworkRequest("openai", "chat_completions", o.model, start, err)
	if err != nil {
		return domain.CompletionResponse{}, fmt.Errorf("openai completion: %w", err)
	}
	input, output := int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)
	metrics.ObserveLLMGeneration(o.model, time.Since(start), input, output)

	out := domain.CompletionResponse{Model: resp.Model, InputTokens: input, OutputTokens: output}
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		out.Blocks = []domain.ContentBlock{{Type: "text", Text: resp.Choices[0].Message.Content}}
	}
	return out, nil
}
