package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
)

func TestAnthropicAdapter_Send(t *testing.T) {
	var captured anthropicRequest
	var headers http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/messages", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []AnthropicContentBlock{{Type: "text", Text: "Hello from Claude"}},
		})
	}))
	defer srv.Close()

	adapter := NewAnthropicAdapter(WithAnthropicBaseURL(srv.URL))
	assert.Equal(t, provider.Anthropic, adapter.Provider())

	resp, err := adapter.Send(context.Background(), &Request{
		Model:  "claude-3-opus-20240229",
		Prompt: "Hi",
		History: []Turn{
			{Role: RoleUser, Content: "earlier question"},
			{Role: RoleAssistant, Content: "earlier answer"},
		},
		Temperature: 0.5,
		MaxTokens:   512,
		APIKey:      "test-key",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello from Claude", resp.Text)

	assert.Equal(t, "test-key", headers.Get("x-api-key"))
	assert.Equal(t, anthropicAPIVersion, headers.Get("anthropic-version"))

	assert.Equal(t, "claude-3-opus-20240229", captured.Model)
	assert.Equal(t, 512, captured.MaxTokens)
	require.Len(t, captured.Messages, 3)
	assert.Equal(t, RoleUser, captured.Messages[2].Role)
	assert.Equal(t, "Hi", captured.Messages[2].Content[0].Text)
}

func TestAnthropicAdapter_SendImage(t *testing.T) {
	var captured anthropicRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []AnthropicContentBlock{{Type: "text", Text: "A diagram"}},
		})
	}))
	defer srv.Close()

	adapter := NewAnthropicAdapter(WithAnthropicBaseURL(srv.URL))
	_, err := adapter.Send(context.Background(), &Request{
		Model:  "claude-3-opus-20240229",
		Prompt: "What is this?",
		Image:  &ImageData{MediaType: "image/png", Base64: "aGVsbG8="},
		APIKey: "test-key",
	})
	require.NoError(t, err)

	require.Len(t, captured.Messages, 1)
	blocks := captured.Messages[0].Content
	require.Len(t, blocks, 2)
	assert.Equal(t, "text", blocks[0].Type)
	assert.Equal(t, "image", blocks[1].Type)
	require.NotNil(t, blocks[1].Source)
	assert.Equal(t, "base64", blocks[1].Source.Type)
	assert.Equal(t, "image/png", blocks[1].Source.MediaType)
	assert.Equal(t, "aGVsbG8=", blocks[1].Source.Data)
}

func TestAnthropicAdapter_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{
				"type":    "rate_limit_error",
				"message": "too many requests",
			},
		})
	}))
	defer srv.Close()

	adapter := NewAnthropicAdapter(WithAnthropicBaseURL(srv.URL))
	_, err := adapter.Send(context.Background(), &Request{
		Model:  "claude-3-opus-20240229",
		Prompt: "Hi",
		APIKey: "test-key",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate_limit_error")
	assert.Contains(t, err.Error(), "too many requests")
}

func TestAnthropicAdapter_EmptyCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(anthropicResponse{})
	}))
	defer srv.Close()

	adapter := NewAnthropicAdapter(WithAnthropicBaseURL(srv.URL))
	_, err := adapter.Send(context.Background(), &Request{
		Model:  "claude-3-opus-20240229",
		Prompt: "Hi",
		APIKey: "test-key",
	})
	require.ErrorIs(t, err, ErrEmptyCompletion)
}
