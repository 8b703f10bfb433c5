package persistence

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatbot"
	"github.com/chatforge/chatforge/pkg/composables"
)

type chatbotKey struct {
	tenantID  uuid.UUID
	chatbotID uuid.UUID
}

type InmemChatbotRepository struct {
	storage *SafeMap[chatbotKey, chatbot.Chatbot]
}

func NewInmemChatbotRepository() *InmemChatbotRepository {
	return &InmemChatbotRepository{
		storage: NewSafeMap[chatbotKey, chatbot.Chatbot](),
	}
}

func (r *InmemChatbotRepository) GetByID(ctx context.Context, id uuid.UUID) (chatbot.Chatbot, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	bot, found := r.storage.Get(chatbotKey{tenantID: tenantID, chatbotID: id})
	if !found {
		return nil, chatbot.ErrChatbotNotFound
	}
	return bot, nil
}

func (r *InmemChatbotRepository) GetAll(ctx context.Context) ([]chatbot.Chatbot, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	all := r.storage.Values()
	bots := make([]chatbot.Chatbot, 0, len(all))
	for _, bot := range all {
		if bot.TenantID() == tenantID {
			bots = append(bots, bot)
		}
	}
	sort.Slice(bots, func(i, j int) bool {
		return bots[i].CreatedAt().Before(bots[j].CreatedAt())
	})
	return bots, nil
}

func (r *InmemChatbotRepository) Create(ctx context.Context, bot chatbot.Chatbot) (chatbot.Chatbot, error) {
	return r.save(ctx, bot)
}

func (r *InmemChatbotRepository) Update(ctx context.Context, bot chatbot.Chatbot) (chatbot.Chatbot, error) {
	if _, err := r.GetByID(ctx, bot.ID()); err != nil {
		return nil, err
	}
	return r.save(ctx, bot)
}

func (r *InmemChatbotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	r.storage.Delete(chatbotKey{tenantID: tenantID, chatbotID: id})
	return nil
}

func (r *InmemChatbotRepository) save(ctx context.Context, bot chatbot.Chatbot) (chatbot.Chatbot, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if bot.TenantID() != tenantID {
		return nil, errors.New("chatbot tenant mismatch")
	}
	r.storage.Set(chatbotKey{tenantID: tenantID, chatbotID: bot.ID()}, bot)
	return bot, nil
}
