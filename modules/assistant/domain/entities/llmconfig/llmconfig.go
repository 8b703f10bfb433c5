package llmconfig

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
)

var (
	ErrConfigNotFound     = errors.New("llm config not found")
	ErrInvalidTemperature = errors.New("temperature must be within [0, 1]")
	ErrInvalidMaxTokens   = fmt.Errorf("max tokens must be within [1, %d]", MaxTokensLimit)
)

const (
	MaxTokensLimit     = 8192
	DefaultTemperature = float32(0.7)
	DefaultMaxTokens   = 1024
)

type Repository interface {
	Get(ctx context.Context) (Config, error)
	Save(ctx context.Context, config Config) (Config, error)
}

// Config is the tenant-wide LLM dispatch configuration: default provider and
// model, sampling settings, and per-provider API keys.
type Config interface {
	ID() uuid.UUID
	TenantID() uuid.UUID
	Provider() provider.Provider
	Model() string
	Temperature() float32
	MaxTokens() int
	APIKey(p provider.Provider) string
	APIKeys() map[provider.Provider]string
	CreatedAt() time.Time
	UpdatedAt() time.Time
}

type config struct {
	id          uuid.UUID
	tenantID    uuid.UUID
	provider    provider.Provider
	model       string
	temperature float32
	maxTokens   int
	apiKeys     map[provider.Provider]string
	createdAt   time.Time
	updatedAt   time.Time
}

func New(tenantID uuid.UUID, p provider.Provider, model string, opts ...Option) (Config, error) {
	if _, err := provider.Parse(p.String()); err != nil {
		return nil, err
	}
	c := &config{
		id:          uuid.New(),
		tenantID:    tenantID,
		provider:    p,
		model:       model,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		apiKeys:     make(map[provider.Provider]string),
		createdAt:   time.Now(),
		updatedAt:   time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.temperature < 0 || c.temperature > 1 {
		return nil, ErrInvalidTemperature
	}
	if c.maxTokens < 1 || c.maxTokens > MaxTokensLimit {
		return nil, ErrInvalidMaxTokens
	}
	return c, nil
}

type Option func(*config)

func WithID(id uuid.UUID) Option {
	return func(c *config) {
		if id != uuid.Nil {
			c.id = id
		}
	}
}

func WithTemperature(temperature float32) Option {
	return func(c *config) {
		c.temperature = temperature
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(c *config) {
		c.maxTokens = maxTokens
	}
}

func WithAPIKey(p provider.Provider, key string) Option {
	return func(c *config) {
		if key != "" {
			c.apiKeys[p] = key
		}
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(c *config) {
		if !createdAt.IsZero() {
			c.createdAt = createdAt
		}
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(c *config) {
		if !updatedAt.IsZero() {
			c.updatedAt = updatedAt
		}
	}
}

func (c *config) ID() uuid.UUID               { return c.id }
func (c *config) TenantID() uuid.UUID         { return c.tenantID }
func (c *config) Provider() provider.Provider { return c.provider }
func (c *config) Model() string               { return c.model }
func (c *config) Temperature() float32        { return c.temperature }
func (c *config) MaxTokens() int              { return c.maxTokens }

func (c *config) APIKey(p provider.Provider) string {
	return c.apiKeys[p]
}

func (c *config) APIKeys() map[provider.Provider]string {
	keys := make(map[provider.Provider]string, len(c.apiKeys))
	for k, v := range c.apiKeys {
		keys[k] = v
	}
	return keys
}

func (c *config) CreatedAt() time.Time { return c.createdAt }
func (c *config) UpdatedAt() time.Time { return c.updatedAt }
