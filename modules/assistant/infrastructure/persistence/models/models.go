package models

import (
	"time"
)

type Chatbot struct {
	ID             string
	TenantID       string
	Name           string
	Provider       string
	Model          string
	Description    string
	CreatedBy      *string
	HistoryEnabled bool
	HistoryLimit   int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type LLMConfig struct {
	ID          string
	TenantID    string
	Provider    string
	Model       string
	Temperature float32
	MaxTokens   int
	APIKeys     map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ChatThread struct {
	ID            string              `json:"id"`
	TenantID      string              `json:"tenant_id"`
	ChatbotID     string              `json:"chatbot_id"`
	UserID        string              `json:"user_id"`
	Name          string              `json:"name"`
	IsActive      bool                `json:"is_active"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	LastMessageAt time.Time           `json:"last_message_at"`
	Messages      []ChatThreadMessage `json:"messages"`
}

type ChatThreadMessage struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Image     string    `json:"image,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
