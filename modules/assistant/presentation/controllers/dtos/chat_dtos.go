package dtos

import (
	"sort"
	"time"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatbot"
	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatthread"
	"github.com/chatforge/chatforge/modules/assistant/domain/entities/llmconfig"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/llm"
)

const (
	ErrorCodeInvalidRequest  = "INVALID_REQUEST"
	ErrorCodeChatbotNotFound = "CHATBOT_NOT_FOUND"
	ErrorCodeThreadNotFound  = "THREAD_NOT_FOUND"
	ErrorCodeThreadMismatch  = "THREAD_MISMATCH"
	ErrorCodeEmptyMessage    = "EMPTY_MESSAGE"
	ErrorCodeInternalServer  = "INTERNAL_SERVER_ERROR"
)

type CreateChatbotRequest struct {
	Name           string `json:"name" validate:"required,max=255"`
	Provider       string `json:"provider" validate:"required,oneof=openai anthropic"`
	Model          string `json:"model" validate:"required"`
	Description    string `json:"description" validate:"max=2000"`
	HistoryEnabled *bool  `json:"history_enabled"`
	HistoryLimit   *int   `json:"history_limit" validate:"omitempty,min=0,max=50"`
}

type UpdateChatbotRequest struct {
	Name           string  `json:"name" validate:"omitempty,max=255"`
	Provider       string  `json:"provider" validate:"omitempty,oneof=openai anthropic"`
	Model          string  `json:"model"`
	Description    *string `json:"description" validate:"omitempty,max=2000"`
	HistoryEnabled *bool   `json:"history_enabled"`
	HistoryLimit   *int    `json:"history_limit" validate:"omitempty,min=0,max=50"`
}

type ChatbotResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	Description    string `json:"description,omitempty"`
	HistoryEnabled bool   `json:"history_enabled"`
	HistoryLimit   int    `json:"history_limit"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func NewChatbotResponse(bot chatbot.Chatbot) ChatbotResponse {
	return ChatbotResponse{
		ID:             bot.ID().String(),
		Name:           bot.Name(),
		Provider:       bot.Provider().String(),
		Model:          bot.Model(),
		Description:    bot.Description(),
		HistoryEnabled: bot.HistoryEnabled(),
		HistoryLimit:   bot.HistoryLimit(),
		CreatedAt:      bot.CreatedAt().Format(time.RFC3339),
		UpdatedAt:      bot.UpdatedAt().Format(time.RFC3339),
	}
}

type MessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Image     string `json:"image,omitempty"`
	Timestamp string `json:"timestamp"`
}

func NewMessageResponse(msg chatthread.Message) MessageResponse {
	return MessageResponse{
		ID:        msg.ID().String(),
		Role:      string(msg.Role()),
		Content:   msg.Content(),
		Image:     msg.Image(),
		Timestamp: msg.Timestamp().Format(time.RFC3339),
	}
}

type ThreadResponse struct {
	ID            string `json:"id"`
	ChatbotID     string `json:"chatbot_id"`
	Name          string `json:"name"`
	IsActive      bool   `json:"is_active"`
	MessageCount  int    `json:"message_count"`
	CreatedAt     string `json:"created_at"`
	LastMessageAt string `json:"last_message_at,omitempty"`
}

func NewThreadResponse(thread chatthread.ChatThread) ThreadResponse {
	resp := ThreadResponse{
		ID:           thread.ID().String(),
		ChatbotID:    thread.ChatbotID().String(),
		Name:         thread.Name(),
		IsActive:     thread.IsActive(),
		MessageCount: len(thread.Messages()),
		CreatedAt:    thread.CreatedAt().Format(time.RFC3339),
	}
	if !thread.LastMessageAt().IsZero() {
		resp.LastMessageAt = thread.LastMessageAt().Format(time.RFC3339)
	}
	return resp
}

type ConversationResponse struct {
	Thread   ThreadResponse    `json:"thread"`
	Messages []MessageResponse `json:"messages"`
}

func NewConversationResponse(thread chatthread.ChatThread) ConversationResponse {
	messages := make([]MessageResponse, 0, len(thread.Messages()))
	for _, msg := range thread.Messages() {
		messages = append(messages, NewMessageResponse(msg))
	}
	return ConversationResponse{
		Thread:   NewThreadResponse(thread),
		Messages: messages,
	}
}

type SendMessageResponse struct {
	ThreadID  string          `json:"thread_id"`
	Message   MessageResponse `json:"message"`
	Reply     MessageResponse `json:"reply"`
	Succeeded bool            `json:"succeeded"`
}

type SendThreadMessageRequest struct {
	Message string `json:"message"`
}

type CreateThreadRequest struct {
	Name string `json:"name" validate:"max=255"`
}

type UpdateThreadRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	IsActive *bool   `json:"is_active"`
}

type MessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type ModelResponse struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"display_name"`
	Provider     string   `json:"provider"`
	Capabilities []string `json:"capabilities"`
}

func NewModelResponse(m llm.ModelDescriptor) ModelResponse {
	capabilities := make([]string, 0, len(m.Capabilities))
	for _, c := range m.Capabilities {
		capabilities = append(capabilities, string(c))
	}
	return ModelResponse{
		ID:           m.ID,
		DisplayName:  m.DisplayName,
		Provider:     m.Provider.String(),
		Capabilities: capabilities,
	}
}

type UpdateSettingsRequest struct {
	Provider        string   `json:"provider" validate:"required,oneof=openai anthropic"`
	Model           string   `json:"model" validate:"required"`
	Temperature     *float32 `json:"temperature" validate:"omitempty,min=0,max=1"`
	MaxTokens       *int     `json:"maxTokens" validate:"omitempty,min=1,max=8192"`
	OpenAIAPIKey    string   `json:"openaiApiKey"`
	AnthropicAPIKey string   `json:"anthropicApiKey"`
}

// SettingsResponse never echoes API keys; it only reports which providers
// have one configured.
type SettingsResponse struct {
	Provider            string   `json:"provider"`
	Model               string   `json:"model"`
	Temperature         float32  `json:"temperature"`
	MaxTokens           int      `json:"max_tokens"`
	ConfiguredProviders []string `json:"configured_providers"`
	UpdatedAt           string   `json:"updated_at"`
}

func NewSettingsResponse(config llmconfig.Config) SettingsResponse {
	configured := make([]string, 0, len(config.APIKeys()))
	for p := range config.APIKeys() {
		configured = append(configured, p.String())
	}
	sort.Strings(configured)
	return SettingsResponse{
		Provider:            config.Provider().String(),
		Model:               config.Model(),
		Temperature:         config.Temperature(),
		MaxTokens:           config.MaxTokens(),
		ConfiguredProviders: configured,
		UpdatedAt:           config.UpdatedAt().Format(time.RFC3339),
	}
}
