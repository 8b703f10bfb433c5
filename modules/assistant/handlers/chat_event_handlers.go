package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/chatforge/chatforge/modules/assistant/services"
	"github.com/chatforge/chatforge/pkg/application"
)

// ChatEventsHandler observes the module's domain events and records them in
// the application log.
type ChatEventsHandler struct {
	logger *logrus.Logger
}

func RegisterChatEventHandlers(app application.Application) {
	handler := &ChatEventsHandler{logger: app.Logger()}
	app.EventPublisher().Subscribe(handler.onMessageProcessed)
	app.EventPublisher().Subscribe(handler.onChatbotCreated)
	app.EventPublisher().Subscribe(handler.onChatbotDeleted)
	app.EventPublisher().Subscribe(handler.onSettingsUpdated)
}

func (h *ChatEventsHandler) onMessageProcessed(event services.MessageProcessedEvent) {
	h.logger.WithFields(logrus.Fields{
		"tenant_id":  event.TenantID,
		"chatbot_id": event.ChatbotID,
		"thread_id":  event.ThreadID,
		"succeeded":  event.Succeeded,
	}).Info("chat message processed")
}

func (h *ChatEventsHandler) onChatbotCreated(event services.ChatbotCreatedEvent) {
	h.logger.WithFields(logrus.Fields{
		"tenant_id":  event.Chatbot.TenantID(),
		"chatbot_id": event.Chatbot.ID(),
	}).Info("chatbot created")
}

func (h *ChatEventsHandler) onChatbotDeleted(event services.ChatbotDeletedEvent) {
	h.logger.WithField("chatbot_id", event.ChatbotID).Info("chatbot deleted")
}

func (h *ChatEventsHandler) onSettingsUpdated(event services.SettingsUpdatedEvent) {
	h.logger.WithField("tenant_id", event.TenantID).Info("llm settings updated")
}
