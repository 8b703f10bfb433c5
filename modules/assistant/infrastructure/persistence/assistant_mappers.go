package persistence

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatbot"
	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatthread"
	"github.com/chatforge/chatforge/modules/assistant/domain/entities/llmconfig"
	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/persistence/models"
)

func parseUUID(value, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil, errors.Wrap(err, fmt.Sprintf("failed to parse %s UUID from string: %s", field, value))
	}
	return id, nil
}

func ToDBChatbot(bot chatbot.Chatbot) models.Chatbot {
	var createdBy *string
	if bot.CreatedBy() != uuid.Nil {
		s := bot.CreatedBy().String()
		createdBy = &s
	}
	return models.Chatbot{
		ID:             bot.ID().String(),
		TenantID:       bot.TenantID().String(),
		Name:           bot.Name(),
		Provider:       bot.Provider().String(),
		Model:          bot.Model(),
		Description:    bot.Description(),
		CreatedBy:      createdBy,
		HistoryEnabled: bot.HistoryEnabled(),
		HistoryLimit:   bot.HistoryLimit(),
		CreatedAt:      bot.CreatedAt(),
		UpdatedAt:      bot.UpdatedAt(),
	}
}

func ToDomainChatbot(model models.Chatbot) (chatbot.Chatbot, error) {
	id, err := parseUUID(model.ID, "chatbot")
	if err != nil {
		return nil, err
	}
	tenantID, err := parseUUID(model.TenantID, "tenant")
	if err != nil {
		return nil, err
	}
	p, err := provider.Parse(model.Provider)
	if err != nil {
		return nil, err
	}

	options := []chatbot.Option{
		chatbot.WithID(id),
		chatbot.WithDescription(model.Description),
		chatbot.WithHistory(model.HistoryEnabled, model.HistoryLimit),
		chatbot.WithCreatedAt(model.CreatedAt),
		chatbot.WithUpdatedAt(model.UpdatedAt),
	}
	if model.CreatedBy != nil {
		createdBy, err := parseUUID(*model.CreatedBy, "created_by")
		if err != nil {
			return nil, err
		}
		options = append(options, chatbot.WithCreatedBy(createdBy))
	}

	return chatbot.New(tenantID, model.Name, p, model.Model, options...)
}

func ToDBChatThread(thread chatthread.ChatThread) models.ChatThread {
	messages := make([]models.ChatThreadMessage, 0, len(thread.Messages()))
	for _, msg := range thread.Messages() {
		messages = append(messages, models.ChatThreadMessage{
			ID:        msg.ID().String(),
			Role:      string(msg.Role()),
			Content:   msg.Content(),
			Image:     msg.Image(),
			Timestamp: msg.Timestamp(),
		})
	}

	return models.ChatThread{
		ID:            thread.ID().String(),
		TenantID:      thread.TenantID().String(),
		ChatbotID:     thread.ChatbotID().String(),
		UserID:        thread.UserID().String(),
		Name:          thread.Name(),
		IsActive:      thread.IsActive(),
		CreatedAt:     thread.CreatedAt(),
		UpdatedAt:     thread.UpdatedAt(),
		LastMessageAt: thread.LastMessageAt(),
		Messages:      messages,
	}
}

func ToDomainChatThread(model models.ChatThread) (chatthread.ChatThread, error) {
	id, err := parseUUID(model.ID, "thread")
	if err != nil {
		return nil, err
	}
	tenantID, err := parseUUID(model.TenantID, "tenant")
	if err != nil {
		return nil, err
	}
	chatbotID, err := parseUUID(model.ChatbotID, "chatbot")
	if err != nil {
		return nil, err
	}
	userID, err := parseUUID(model.UserID, "user")
	if err != nil {
		return nil, err
	}

	messages := make([]chatthread.Message, 0, len(model.Messages))
	for _, msg := range model.Messages {
		opts := []chatthread.MessageOption{}
		if msgID, err := uuid.Parse(msg.ID); err == nil {
			opts = append(opts, chatthread.WithMessageID(msgID))
		}
		if msg.Image != "" {
			opts = append(opts, chatthread.WithImage(msg.Image))
		}
		m, err := chatthread.NewMessage(chatthread.Role(msg.Role), msg.Content, msg.Timestamp, opts...)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}

	return chatthread.New(
		tenantID,
		chatbotID,
		userID,
		model.Name,
		chatthread.WithID(id),
		chatthread.WithActive(model.IsActive),
		chatthread.WithCreatedAt(model.CreatedAt),
		chatthread.WithUpdatedAt(model.UpdatedAt),
		chatthread.WithLastMessageAt(model.LastMessageAt),
		chatthread.WithMessages(messages),
	), nil
}

func ToDBConfig(config llmconfig.Config) models.LLMConfig {
	keys := make(map[string]string)
	for p, key := range config.APIKeys() {
		keys[p.String()] = key
	}
	return models.LLMConfig{
		ID:          config.ID().String(),
		TenantID:    config.TenantID().String(),
		Provider:    config.Provider().String(),
		Model:       config.Model(),
		Temperature: config.Temperature(),
		MaxTokens:   config.MaxTokens(),
		APIKeys:     keys,
		CreatedAt:   config.CreatedAt(),
		UpdatedAt:   config.UpdatedAt(),
	}
}

func ToDomainConfig(model models.LLMConfig) (llmconfig.Config, error) {
	id, err := parseUUID(model.ID, "config")
	if err != nil {
		return nil, err
	}
	tenantID, err := parseUUID(model.TenantID, "tenant")
	if err != nil {
		return nil, err
	}
	p, err := provider.Parse(model.Provider)
	if err != nil {
		return nil, err
	}

	options := []llmconfig.Option{
		llmconfig.WithID(id),
		llmconfig.WithTemperature(model.Temperature),
		llmconfig.WithMaxTokens(model.MaxTokens),
		llmconfig.WithCreatedAt(model.CreatedAt),
		llmconfig.WithUpdatedAt(model.UpdatedAt),
	}
	for name, key := range model.APIKeys {
		keyProvider, err := provider.Parse(name)
		if err != nil {
			return nil, err
		}
		options = append(options, llmconfig.WithAPIKey(keyProvider, key))
	}

	return llmconfig.New(tenantID, p, model.Model, options...)
}
