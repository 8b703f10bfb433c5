package handlers_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/modules/assistant/handlers"
	"github.com/chatforge/chatforge/modules/assistant/services"
	"github.com/chatforge/chatforge/pkg/application"
	"github.com/chatforge/chatforge/pkg/eventbus"
)

func TestChatEventHandlers_LogMessageProcessed(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	bus := eventbus.NewEventPublisher(logger)
	app := application.New(&application.ApplicationOptions{
		EventBus: bus,
		Logger:   logger,
	})

	handlers.RegisterChatEventHandlers(app)
	assert.Equal(t, 4, bus.SubscribersCount())

	event := services.MessageProcessedEvent{
		TenantID:  uuid.New(),
		ChatbotID: uuid.New(),
		ThreadID:  uuid.New(),
		Succeeded: true,
	}
	bus.Publish(event)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
	assert.Equal(t, "chat message processed", entry.Message)
	assert.Equal(t, event.ThreadID, entry.Data["thread_id"])
	assert.Equal(t, true, entry.Data["succeeded"])
}

func TestChatEventHandlers_LogSettingsUpdated(t *testing.T) {
	t.Parallel()

	logger, hook := test.NewNullLogger()
	bus := eventbus.NewEventPublisher(logger)
	app := application.New(&application.ApplicationOptions{
		EventBus: bus,
		Logger:   logger,
	})

	handlers.RegisterChatEventHandlers(app)
	bus.Publish(services.SettingsUpdatedEvent{TenantID: uuid.New()})

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "llm settings updated", entry.Message)
}
