package services_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatbot"
	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/llm"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/persistence"
	"github.com/chatforge/chatforge/modules/assistant/services"
	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/eventbus"
)

func setupChatbotTest(t *testing.T) (context.Context, *services.ChatbotService) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	ctx := composables.WithTenantID(context.Background(), uuid.New())
	sut := services.NewChatbotService(persistence.NewInmemChatbotRepository(), llm.DefaultRegistry(), eventbus.NewEventPublisher(logger))
	return ctx, sut
}

func TestChatbotService_Create(t *testing.T) {
	t.Parallel()
	ctx, sut := setupChatbotTest(t)

	bot, err := sut.Create(ctx, services.CreateChatbotDTO{
		Name:           "Support Bot",
		Provider:       provider.OpenAI,
		Model:          "gpt-4o",
		Description:    "Answers support questions",
		HistoryEnabled: true,
		HistoryLimit:   20,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, bot.ID())
	assert.Equal(t, "Support Bot", bot.Name())
	assert.Equal(t, 20, bot.HistoryLimit())

	all, err := sut.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestChatbotService_Create_EmptyName(t *testing.T) {
	t.Parallel()
	ctx, sut := setupChatbotTest(t)

	_, err := sut.Create(ctx, services.CreateChatbotDTO{
		Provider: provider.OpenAI,
		Model:    "gpt-4o",
	})
	require.ErrorIs(t, err, chatbot.ErrEmptyName)
}

func TestChatbotService_Create_InvalidHistoryLimit(t *testing.T) {
	t.Parallel()
	ctx, sut := setupChatbotTest(t)

	_, err := sut.Create(ctx, services.CreateChatbotDTO{
		Name:           "Support Bot",
		Provider:       provider.OpenAI,
		Model:          "gpt-4o",
		HistoryEnabled: true,
		HistoryLimit:   999,
	})
	require.ErrorIs(t, err, chatbot.ErrInvalidHistoryLimit)
}

func TestChatbotService_Create_ModelProviderMismatch(t *testing.T) {
	t.Parallel()
	ctx, sut := setupChatbotTest(t)

	_, err := sut.Create(ctx, services.CreateChatbotDTO{
		Name:     "Support Bot",
		Provider: provider.OpenAI,
		Model:    "claude-3-opus",
	})
	require.ErrorIs(t, err, chatbot.ErrModelProviderMismatch)
}

func TestChatbotService_Create_ZeroHistoryLimit(t *testing.T) {
	t.Parallel()
	ctx, sut := setupChatbotTest(t)

	bot, err := sut.Create(ctx, services.CreateChatbotDTO{
		Name:           "Support Bot",
		Provider:       provider.OpenAI,
		Model:          "gpt-4o",
		HistoryEnabled: true,
		HistoryLimit:   0,
	})
	require.NoError(t, err)
	assert.True(t, bot.HistoryEnabled())
	assert.Equal(t, 0, bot.HistoryLimit())
}

func TestChatbotService_Update(t *testing.T) {
	t.Parallel()
	ctx, sut := setupChatbotTest(t)

	bot, err := sut.Create(ctx, services.CreateChatbotDTO{
		Name:           "Support Bot",
		Provider:       provider.OpenAI,
		Model:          "gpt-4o",
		HistoryEnabled: true,
		HistoryLimit:   10,
	})
	require.NoError(t, err)

	disabled := false
	updated, err := sut.Update(ctx, bot.ID(), services.UpdateChatbotDTO{
		Name:           "Sales Bot",
		Provider:       provider.Anthropic,
		Model:          "claude-3-5-sonnet",
		HistoryEnabled: &disabled,
	})
	require.NoError(t, err)
	assert.Equal(t, "Sales Bot", updated.Name())
	assert.Equal(t, provider.Anthropic, updated.Provider())
	assert.Equal(t, "claude-3-5-sonnet", updated.Model())
	assert.False(t, updated.HistoryEnabled())
}

func TestChatbotService_Update_ModelProviderMismatch(t *testing.T) {
	t.Parallel()
	ctx, sut := setupChatbotTest(t)

	bot, err := sut.Create(ctx, services.CreateChatbotDTO{
		Name:           "Support Bot",
		Provider:       provider.OpenAI,
		Model:          "gpt-4o",
		HistoryEnabled: true,
		HistoryLimit:   10,
	})
	require.NoError(t, err)

	_, err = sut.Update(ctx, bot.ID(), services.UpdateChatbotDTO{Model: "claude-3-opus"})
	require.ErrorIs(t, err, chatbot.ErrModelProviderMismatch)
}

func TestChatbotService_Update_NotFound(t *testing.T) {
	t.Parallel()
	ctx, sut := setupChatbotTest(t)

	_, err := sut.Update(ctx, uuid.New(), services.UpdateChatbotDTO{Name: "x"})
	require.ErrorIs(t, err, chatbot.ErrChatbotNotFound)
}

func TestChatbotService_Delete(t *testing.T) {
	t.Parallel()
	ctx, sut := setupChatbotTest(t)

	bot, err := sut.Create(ctx, services.CreateChatbotDTO{
		Name:           "Support Bot",
		Provider:       provider.OpenAI,
		Model:          "gpt-4o",
		HistoryEnabled: true,
	})
	require.NoError(t, err)

	require.NoError(t, sut.Delete(ctx, bot.ID()))
	_, err = sut.GetByID(ctx, bot.ID())
	require.ErrorIs(t, err, chatbot.ErrChatbotNotFound)
}
