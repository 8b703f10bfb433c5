package chatthread

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrThreadNotFound  = errors.New("chat thread not found")
	ErrEmptyMessage    = errors.New("empty message")
	ErrMessageTooLong  = errors.New("message too long")
	ErrNoMessages      = errors.New("no messages")
	ErrChatbotMismatch = errors.New("thread does not belong to chatbot")
)

const (
	MaxMessageLength = 4096
	MaxMessages      = 200

	DefaultThreadName = "General"
)

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (ChatThread, error)
	Save(ctx context.Context, thread ChatThread) (ChatThread, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]ChatThread, error)
	ListByChatbot(ctx context.Context, chatbotID uuid.UUID) ([]ChatThread, error)
}

// ChatThread is a named conversation session between one user and one
// chatbot. Messages are embedded and ordered by timestamp ascending;
// AppendMessage advances updatedAt and lastMessageAt.
type ChatThread interface {
	ID() uuid.UUID
	TenantID() uuid.UUID
	ChatbotID() uuid.UUID
	UserID() uuid.UUID
	Name() string
	IsActive() bool
	CreatedAt() time.Time
	UpdatedAt() time.Time
	LastMessageAt() time.Time
	Messages() []Message
	AppendMessage(msg Message) ChatThread
	Rename(name string) ChatThread
	SetActive(active bool) ChatThread
}

type chatThread struct {
	id            uuid.UUID
	tenantID      uuid.UUID
	chatbotID     uuid.UUID
	userID        uuid.UUID
	name          string
	isActive      bool
	createdAt     time.Time
	updatedAt     time.Time
	lastMessageAt time.Time
	messages      []Message
}

func New(tenantID, chatbotID, userID uuid.UUID, name string, opts ...Option) ChatThread {
	if name == "" {
		name = DefaultThreadName
	}
	thread := &chatThread{
		id:        uuid.New(),
		tenantID:  tenantID,
		chatbotID: chatbotID,
		userID:    userID,
		name:      name,
		isActive:  true,
		createdAt: time.Now(),
		updatedAt: time.Now(),
		messages:  nil,
	}

	for _, opt := range opts {
		opt(thread)
	}

	return thread
}

type Option func(*chatThread)

func WithID(id uuid.UUID) Option {
	return func(t *chatThread) {
		if id != uuid.Nil {
			t.id = id
		}
	}
}

func WithActive(active bool) Option {
	return func(t *chatThread) {
		t.isActive = active
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(t *chatThread) {
		if !createdAt.IsZero() {
			t.createdAt = createdAt
		}
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(t *chatThread) {
		if !updatedAt.IsZero() {
			t.updatedAt = updatedAt
		}
	}
}

func WithLastMessageAt(lastMessageAt time.Time) Option {
	return func(t *chatThread) {
		if !lastMessageAt.IsZero() {
			t.lastMessageAt = lastMessageAt
		}
	}
}

func WithMessages(messages []Message) Option {
	return func(t *chatThread) {
		t.messages = messages
	}
}

func (t *chatThread) ID() uuid.UUID            { return t.id }
func (t *chatThread) TenantID() uuid.UUID      { return t.tenantID }
func (t *chatThread) ChatbotID() uuid.UUID     { return t.chatbotID }
func (t *chatThread) UserID() uuid.UUID        { return t.userID }
func (t *chatThread) Name() string             { return t.name }
func (t *chatThread) IsActive() bool           { return t.isActive }
func (t *chatThread) CreatedAt() time.Time     { return t.createdAt }
func (t *chatThread) UpdatedAt() time.Time     { return t.updatedAt }
func (t *chatThread) LastMessageAt() time.Time { return t.lastMessageAt }

func (t *chatThread) Messages() []Message {
	return t.messages
}

func (t *chatThread) AppendMessage(msg Message) ChatThread {
	if msg == nil {
		return t
	}
	t.messages = append(t.messages, msg)
	if len(t.messages) > MaxMessages {
		t.messages = t.messages[len(t.messages)-MaxMessages:]
	}
	t.updatedAt = msg.Timestamp()
	t.lastMessageAt = msg.Timestamp()
	return t
}

func (t *chatThread) Rename(name string) ChatThread {
	if name != "" {
		t.name = name
		t.updatedAt = time.Now()
	}
	return t
}

func (t *chatThread) SetActive(active bool) ChatThread {
	t.isActive = active
	t.updatedAt = time.Now()
	return t
}
