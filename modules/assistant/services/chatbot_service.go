package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatbot"
	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/llm"
	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/eventbus"
)

type CreateChatbotDTO struct {
	Name           string
	Provider       provider.Provider
	Model          string
	Description    string
	CreatedBy      uuid.UUID
	HistoryEnabled bool
	HistoryLimit   int
}

type UpdateChatbotDTO struct {
	Name           string
	Provider       provider.Provider
	Model          string
	Description    *string
	HistoryEnabled *bool
	HistoryLimit   *int
}

type ChatbotCreatedEvent struct {
	Chatbot chatbot.Chatbot
}

type ChatbotDeletedEvent struct {
	ChatbotID uuid.UUID
}

type ChatbotService struct {
	repo      chatbot.Repository
	registry  *llm.Registry
	publisher eventbus.EventBus
}

func NewChatbotService(repo chatbot.Repository, registry *llm.Registry, publisher eventbus.EventBus) *ChatbotService {
	return &ChatbotService{repo: repo, registry: registry, publisher: publisher}
}

func (s *ChatbotService) GetByID(ctx context.Context, id uuid.UUID) (chatbot.Chatbot, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ChatbotService) GetAll(ctx context.Context) ([]chatbot.Chatbot, error) {
	return s.repo.GetAll(ctx)
}

func (s *ChatbotService) Create(ctx context.Context, dto CreateChatbotDTO) (chatbot.Chatbot, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	if !s.registry.BelongsTo(dto.Model, dto.Provider) {
		return nil, chatbot.ErrModelProviderMismatch
	}

	bot, err := chatbot.New(tenantID, dto.Name, dto.Provider, dto.Model,
		chatbot.WithDescription(dto.Description),
		chatbot.WithCreatedBy(dto.CreatedBy),
		chatbot.WithHistory(dto.HistoryEnabled, dto.HistoryLimit),
	)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, bot)
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(ChatbotCreatedEvent{Chatbot: created})
	return created, nil
}

func (s *ChatbotService) Update(ctx context.Context, id uuid.UUID, dto UpdateChatbotDTO) (chatbot.Chatbot, error) {
	bot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if dto.Name != "" {
		bot = bot.Rename(dto.Name)
	}
	if dto.Model != "" {
		p := bot.Provider()
		if dto.Provider != "" {
			parsed, err := provider.Parse(dto.Provider.String())
			if err != nil {
				return nil, err
			}
			p = parsed
		}
		if !s.registry.BelongsTo(dto.Model, p) {
			return nil, chatbot.ErrModelProviderMismatch
		}
		bot = bot.SetModel(p, dto.Model)
	}
	if dto.Description != nil {
		bot = bot.SetDescription(*dto.Description)
	}
	if dto.HistoryEnabled != nil || dto.HistoryLimit != nil {
		enabled := bot.HistoryEnabled()
		limit := bot.HistoryLimit()
		if dto.HistoryEnabled != nil {
			enabled = *dto.HistoryEnabled
		}
		if dto.HistoryLimit != nil {
			limit = *dto.HistoryLimit
		}
		bot, err = bot.SetHistory(enabled, limit)
		if err != nil {
			return nil, err
		}
	}

	return s.repo.Update(ctx, bot)
}

func (s *ChatbotService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.publisher.Publish(ChatbotDeletedEvent{ChatbotID: id})
	return nil
}
