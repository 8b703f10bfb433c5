package chatthread

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidRole = errors.New("invalid role")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single immutable turn in a thread. Image carries the URL or
// path of an attachment accompanying the turn, if any.
type Message interface {
	ID() uuid.UUID
	Role() Role
	Content() string
	Image() string
	Timestamp() time.Time
}

type message struct {
	id        uuid.UUID
	role      Role
	content   string
	image     string
	timestamp time.Time
}

func NewMessage(role Role, content string, timestamp time.Time, opts ...MessageOption) (Message, error) {
	switch role {
	case RoleUser, RoleAssistant, RoleSystem:
	default:
		return nil, ErrInvalidRole
	}
	if len(content) > MaxMessageLength {
		return nil, ErrMessageTooLong
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	m := &message{
		id:        uuid.New(),
		role:      role,
		content:   content,
		timestamp: timestamp,
	}
	for _, opt := range opts {
		opt(m)
	}
	// An empty turn is only valid when an attachment accompanies it.
	if m.content == "" && m.image == "" {
		return nil, ErrEmptyMessage
	}
	return m, nil
}

func MustNewMessage(role Role, content string, timestamp time.Time, opts ...MessageOption) Message {
	msg, err := NewMessage(role, content, timestamp, opts...)
	if err != nil {
		panic(err)
	}
	return msg
}

type MessageOption func(*message)

func WithMessageID(id uuid.UUID) MessageOption {
	return func(m *message) {
		if id != uuid.Nil {
			m.id = id
		}
	}
}

func WithImage(image string) MessageOption {
	return func(m *message) {
		m.image = image
	}
}

func (m *message) ID() uuid.UUID        { return m.id }
func (m *message) Role() Role           { return m.role }
func (m *message) Content() string      { return m.content }
func (m *message) Image() string        { return m.image }
func (m *message) Timestamp() time.Time { return m.timestamp }
