package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
)

type OpenAIAdapter struct {
	baseURL string
}

type OpenAIAdapterOption func(*OpenAIAdapter)

// WithOpenAIBaseURL points the adapter at a non-default endpoint. Used by
// tests and by OpenAI-compatible gateways.
func WithOpenAIBaseURL(baseURL string) OpenAIAdapterOption {
	return func(a *OpenAIAdapter) {
		a.baseURL = baseURL
	}
}

func NewOpenAIAdapter(opts ...OpenAIAdapterOption) *OpenAIAdapter {
	a := &OpenAIAdapter{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *OpenAIAdapter) Provider() provider.Provider {
	return provider.OpenAI
}

func (a *OpenAIAdapter) Send(ctx context.Context, req *Request) (*Response, error) {
	clientOpts := []option.RequestOption{option.WithAPIKey(req.APIKey)}
	if a.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(a.baseURL))
	}
	client := openai.NewClient(clientOpts...)

	messages := OpenAIMessages(req.History)
	if req.Image != nil {
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.Image.MediaType, req.Image.Base64)
		messages = append(messages, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
			openai.TextContentPart(req.Prompt),
			openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
		}))
	} else {
		messages = append(messages, openai.UserMessage(req.Prompt))
	}

	response, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       req.Model,
		Messages:    messages,
		Temperature: openai.Float(float64(req.Temperature)),
		MaxTokens:   openai.Int(int64(req.MaxTokens)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}
	return &Response{Text: response.Choices[0].Message.Content}, nil
}
