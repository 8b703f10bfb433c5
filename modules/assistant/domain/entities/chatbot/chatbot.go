package chatbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
)

var (
	ErrChatbotNotFound       = errors.New("chatbot not found")
	ErrEmptyName             = errors.New("empty chatbot name")
	ErrInvalidHistoryLimit   = fmt.Errorf("history limit must be within [0, %d]", MaxHistoryLimit)
	ErrModelProviderMismatch = errors.New("model is not served by the selected provider")
)

const (
	MaxHistoryLimit     = 50
	DefaultHistoryLimit = 10
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (Chatbot, error)
	GetAll(ctx context.Context) ([]Chatbot, error)
	Create(ctx context.Context, bot Chatbot) (Chatbot, error)
	Update(ctx context.Context, bot Chatbot) (Chatbot, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Chatbot is a named provider+model configuration owned by a tenant, against
// which conversations occur.
type Chatbot interface {
	ID() uuid.UUID
	TenantID() uuid.UUID
	Name() string
	Provider() provider.Provider
	Model() string
	Description() string
	CreatedBy() uuid.UUID
	HistoryEnabled() bool
	HistoryLimit() int
	CreatedAt() time.Time
	UpdatedAt() time.Time

	Rename(name string) Chatbot
	SetDescription(description string) Chatbot
	SetModel(p provider.Provider, model string) Chatbot
	SetHistory(enabled bool, limit int) (Chatbot, error)
}

type bot struct {
	id             uuid.UUID
	tenantID       uuid.UUID
	name           string
	provider       provider.Provider
	model          string
	description    string
	createdBy      uuid.UUID
	historyEnabled bool
	historyLimit   int
	createdAt      time.Time
	updatedAt      time.Time
}

func New(tenantID uuid.UUID, name string, p provider.Provider, model string, opts ...Option) (Chatbot, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, err := provider.Parse(p.String()); err != nil {
		return nil, err
	}
	b := &bot{
		id:             uuid.New(),
		tenantID:       tenantID,
		name:           name,
		provider:       p,
		model:          model,
		historyEnabled: true,
		historyLimit:   DefaultHistoryLimit,
		createdAt:      time.Now(),
		updatedAt:      time.Now(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.historyLimit < 0 || b.historyLimit > MaxHistoryLimit {
		return nil, ErrInvalidHistoryLimit
	}
	return b, nil
}

type Option func(*bot)

func WithID(id uuid.UUID) Option {
	return func(b *bot) {
		if id != uuid.Nil {
			b.id = id
		}
	}
}

func WithDescription(description string) Option {
	return func(b *bot) {
		b.description = description
	}
}

func WithCreatedBy(userID uuid.UUID) Option {
	return func(b *bot) {
		b.createdBy = userID
	}
}

func WithHistory(enabled bool, limit int) Option {
	return func(b *bot) {
		b.historyEnabled = enabled
		b.historyLimit = limit
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(b *bot) {
		if !createdAt.IsZero() {
			b.createdAt = createdAt
		}
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(b *bot) {
		if !updatedAt.IsZero() {
			b.updatedAt = updatedAt
		}
	}
}

func (b *bot) ID() uuid.UUID               { return b.id }
func (b *bot) TenantID() uuid.UUID         { return b.tenantID }
func (b *bot) Name() string                { return b.name }
func (b *bot) Provider() provider.Provider { return b.provider }
func (b *bot) Model() string               { return b.model }
func (b *bot) Description() string         { return b.description }
func (b *bot) CreatedBy() uuid.UUID        { return b.createdBy }
func (b *bot) HistoryEnabled() bool        { return b.historyEnabled }
func (b *bot) HistoryLimit() int           { return b.historyLimit }
func (b *bot) CreatedAt() time.Time        { return b.createdAt }
func (b *bot) UpdatedAt() time.Time        { return b.updatedAt }

func (b *bot) Rename(name string) Chatbot {
	if name != "" {
		b.name = name
		b.updatedAt = time.Now()
	}
	return b
}

func (b *bot) SetDescription(description string) Chatbot {
	b.description = description
	b.updatedAt = time.Now()
	return b
}

func (b *bot) SetModel(p provider.Provider, model string) Chatbot {
	b.provider = p
	b.model = model
	b.updatedAt = time.Now()
	return b
}

func (b *bot) SetHistory(enabled bool, limit int) (Chatbot, error) {
	if limit < 0 || limit > MaxHistoryLimit {
		return nil, ErrInvalidHistoryLimit
	}
	b.historyEnabled = enabled
	b.historyLimit = limit
	b.updatedAt = time.Now()
	return b, nil
}
