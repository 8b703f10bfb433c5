package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
)

const (
	anthropicDefaultBaseURL = "https://api.anthropic.com"
	anthropicAPIVersion     = "2023-06-01"
)

type AnthropicMessage struct {
	Role    string                  `json:"role"`
	Content []AnthropicContentBlock `json:"content"`
}

type AnthropicContentBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *AnthropicImageSource `json:"source,omitempty"`
}

type AnthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float32            `json:"temperature"`
	Messages    []AnthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []AnthropicContentBlock `json:"content"`
	Error   *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// AnthropicAdapter talks to the Anthropic messages API directly over HTTP.
type AnthropicAdapter struct {
	baseURL string
	client  *http.Client
}

type AnthropicAdapterOption func(*AnthropicAdapter)

func WithAnthropicBaseURL(baseURL string) AnthropicAdapterOption {
	return func(a *AnthropicAdapter) {
		if baseURL != "" {
			a.baseURL = baseURL
		}
	}
}

func WithAnthropicHTTPClient(client *http.Client) AnthropicAdapterOption {
	return func(a *AnthropicAdapter) {
		if client != nil {
			a.client = client
		}
	}
}

func NewAnthropicAdapter(opts ...AnthropicAdapterOption) *AnthropicAdapter {
	a := &AnthropicAdapter{
		baseURL: anthropicDefaultBaseURL,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *AnthropicAdapter) Provider() provider.Provider {
	return provider.Anthropic
}

func (a *AnthropicAdapter) Send(ctx context.Context, req *Request) (*Response, error) {
	messages := AnthropicMessages(req.History)

	current := AnthropicMessage{
		Role:    RoleUser,
		Content: []AnthropicContentBlock{{Type: "text", Text: req.Prompt}},
	}
	if req.Image != nil {
		current.Content = append(current.Content, AnthropicContentBlock{
			Type: "image",
			Source: &AnthropicImageSource{
				Type:      "base64",
				MediaType: req.Image.MediaType,
				Data:      req.Image.Base64,
			},
		})
	}
	messages = append(messages, current)

	body, err := json.Marshal(anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Messages:    messages,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

	httpResp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: %w", err)
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: reading response: %w", err)
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("anthropic: unexpected response (status %d): %w", httpResp.StatusCode, err)
	}

	if httpResp.StatusCode != http.StatusOK {
		if parsed.Error != nil {
			return nil, fmt.Errorf("anthropic: %s: %s", parsed.Error.Type, parsed.Error.Message)
		}
		return nil, fmt.Errorf("anthropic: unexpected status %d", httpResp.StatusCode)
	}

	for _, block := range parsed.Content {
		if block.Type == "text" {
			return &Response{Text: block.Text}, nil
		}
	}
	return nil, ErrEmptyCompletion
}
