package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
)

// NoVisionReply is returned without a vendor call when the selected model
// cannot accept image input.
const NoVisionReply = "I can't view images with the currently selected model. " +
	"Please switch to a vision-capable model or describe the image in text."

const defaultImagePrompt = "Please describe this image."

// Document is extracted attachment text ready to be folded into the prompt.
type Document struct {
	Name      string
	MediaType string
	Text      string
}

// DispatchInput is everything a single exchange needs. APIKeys are the
// tenant-configured keys; when a provider has no entry the dispatcher falls
// back to the process-level key.
type DispatchInput struct {
	Provider    provider.Provider
	Model       string
	Prompt      string
	History     []Turn
	Image       *ImageData
	Document    *Document
	Temperature float32
	MaxTokens   int
	APIKeys     map[provider.Provider]string
}

// DispatcherOptions carry the retry and timeout budget. Zero values fall back
// to the documented defaults.
type DispatcherOptions struct {
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RequestTimeout time.Duration
	FallbackKeys   map[provider.Provider]string
}

// Dispatcher routes a normalized exchange to the right vendor adapter,
// gating on model capabilities and retrying transient failures.
type Dispatcher struct {
	adapters     map[provider.Provider]Adapter
	registry     *Registry
	maxAttempts  int
	baseDelay    time.Duration
	timeout      time.Duration
	fallbackKeys map[provider.Provider]string
	sleep        sleepFunc
}

func NewDispatcher(registry *Registry, opts DispatcherOptions, adapters ...Adapter) *Dispatcher {
	d := &Dispatcher{
		adapters:     make(map[provider.Provider]Adapter, len(adapters)),
		registry:     registry,
		maxAttempts:  opts.MaxAttempts,
		baseDelay:    opts.RetryBaseDelay,
		timeout:      opts.RequestTimeout,
		fallbackKeys: opts.FallbackKeys,
	}
	if d.maxAttempts <= 0 {
		d.maxAttempts = 3
	}
	if d.baseDelay <= 0 {
		d.baseDelay = time.Second
	}
	if d.timeout <= 0 {
		d.timeout = time.Minute
	}
	for _, a := range adapters {
		d.adapters[a.Provider()] = a
	}
	return d
}

// Dispatch performs one exchange. The reply text is returned on success; a
// capability-gated exchange gets a canned reply and no vendor call.
func (d *Dispatcher) Dispatch(ctx context.Context, input DispatchInput) (string, error) {
	adapter, ok := d.adapters[input.Provider]
	if !ok {
		return "", errors.Errorf("no adapter registered for provider %q", input.Provider)
	}

	prompt := input.Prompt
	image := input.Image

	if image != nil {
		if !d.registry.SupportsCapability(input.Model, CapabilityImage) {
			return NoVisionReply, nil
		}
		if strings.TrimSpace(prompt) == "" {
			prompt = defaultImagePrompt
		}
	}

	if input.Document != nil {
		prompt = foldDocument(prompt, input.Document)
	}

	apiKey := d.resolveKey(input.Provider, input.APIKeys)
	if apiKey == "" {
		return "", ErrMissingAPIKey
	}

	req := &Request{
		Model:       d.registry.ResolveProviderAPIID(input.Model),
		Prompt:      prompt,
		History:     input.History,
		Image:       image,
		Temperature: input.Temperature,
		MaxTokens:   input.MaxTokens,
		APIKey:      apiKey,
	}

	resp, err := withRetry(ctx, d.maxAttempts, d.baseDelay, d.sleep, func(ctx context.Context) (*Response, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		return adapter.Send(attemptCtx, req)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDispatchExhausted, err)
	}
	return resp.Text, nil
}

func (d *Dispatcher) resolveKey(p provider.Provider, keys map[provider.Provider]string) string {
	if key, ok := keys[p]; ok && key != "" {
		return key
	}
	return d.fallbackKeys[p]
}

func foldDocument(prompt string, doc *Document) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Attached document %q (%s):\n", doc.Name, doc.MediaType)
	b.WriteString(doc.Text)
	return b.String()
}
