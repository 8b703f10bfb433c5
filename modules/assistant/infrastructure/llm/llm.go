package llm

import (
	"context"

	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
	"github.com/chatforge/chatforge/pkg/serrors"
)

var (
	// ErrDispatchExhausted wraps the last vendor error after the retry
	// budget is spent.
	ErrDispatchExhausted = serrors.NewError(
		"LLM_DISPATCH_EXHAUSTED",
		"all dispatch attempts failed",
		"",
	)
	// ErrMissingAPIKey is an operator-fixable configuration error and is
	// never retried.
	ErrMissingAPIKey = serrors.NewError(
		"LLM_MISSING_API_KEY",
		"no API key configured for provider",
		"set the provider key in LLM settings or via OPENAI_API_KEY / ANTHROPIC_API_KEY",
	)
	ErrEmptyCompletion = serrors.NewError(
		"LLM_EMPTY_COMPLETION",
		"vendor returned an empty completion",
		"",
	)
)

// Turn is one provider-agnostic history entry.
type Turn struct {
	Role    string
	Content string
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ImageData is a provider-ready inline image.
type ImageData struct {
	MediaType string
	Base64    string
}

// Request is the normalized vendor request. Model carries the vendor's exact
// API model string; History holds prior turns only, the current turn lives in
// Prompt (plus Image when the turn is multimodal).
type Request struct {
	Model       string
	Prompt      string
	History     []Turn
	Image       *ImageData
	Temperature float32
	MaxTokens   int
	APIKey      string
}

// Response is the normalized vendor response: the first choice or content
// block as plain text.
type Response struct {
	Text string
}

// Adapter is a vendor-specific client behind a common contract. Adding a
// vendor means adding an adapter, not threading a new branch through call
// sites.
type Adapter interface {
	Provider() provider.Provider
	Send(ctx context.Context, req *Request) (*Response, error)
}
