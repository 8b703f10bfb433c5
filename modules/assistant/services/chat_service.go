package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatbot"
	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatthread"
	"github.com/chatforge/chatforge/modules/assistant/domain/entities/llmconfig"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/attachments"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/llm"
	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/eventbus"
)

// FailureReply is persisted as the assistant turn whenever dispatch fails, so
// the conversation record stays complete even across outages.
const FailureReply = "I'm sorry, I wasn't able to process your message just now. Please try again in a moment."

// Dispatcher sends one exchange to an LLM vendor and returns the reply text.
type Dispatcher interface {
	Dispatch(ctx context.Context, input llm.DispatchInput) (string, error)
}

// SettingsSource yields the tenant's dispatch settings. Both the raw
// repository and the cached SettingsService satisfy it.
type SettingsSource interface {
	Get(ctx context.Context) (llmconfig.Config, error)
}

type CreateThreadDTO struct {
	ChatbotID uuid.UUID
	UserID    uuid.UUID
	Name      string
}

type ProcessMessageDTO struct {
	ChatbotID  uuid.UUID
	ThreadID   uuid.UUID
	UserID     uuid.UUID
	Content    string
	Attachment *attachments.Attachment
}

// ProcessMessageResult carries the updated thread plus the two turns this
// exchange produced.
type ProcessMessageResult struct {
	Thread           chatthread.ChatThread
	UserMessage      chatthread.Message
	AssistantMessage chatthread.Message
	Succeeded        bool
}

type MessageProcessedEvent struct {
	TenantID  uuid.UUID
	ChatbotID uuid.UUID
	ThreadID  uuid.UUID
	Succeeded bool
}

type ChatServiceConfig struct {
	ChatbotRepo chatbot.Repository
	ThreadRepo  chatthread.Repository
	Settings    SettingsSource
	Dispatcher  Dispatcher
	Attachments *attachments.Processor
	Publisher   eventbus.EventBus
}

type ChatService struct {
	chatbotRepo chatbot.Repository
	threadRepo  chatthread.Repository
	settings    SettingsSource
	dispatcher  Dispatcher
	attachments *attachments.Processor
	publisher   eventbus.EventBus
}

func NewChatService(config ChatServiceConfig) *ChatService {
	return &ChatService{
		chatbotRepo: config.ChatbotRepo,
		threadRepo:  config.ThreadRepo,
		settings:    config.Settings,
		dispatcher:  config.Dispatcher,
		attachments: config.Attachments,
		publisher:   config.Publisher,
	}
}

func (s *ChatService) GetThreadByID(ctx context.Context, threadID uuid.UUID) (chatthread.ChatThread, error) {
	return s.threadRepo.GetByID(ctx, threadID)
}

func (s *ChatService) ListThreads(ctx context.Context) ([]chatthread.ChatThread, error) {
	return s.threadRepo.List(ctx)
}

func (s *ChatService) ListThreadsByChatbot(ctx context.Context, chatbotID uuid.UUID) ([]chatthread.ChatThread, error) {
	if _, err := s.chatbotRepo.GetByID(ctx, chatbotID); err != nil {
		return nil, err
	}
	return s.threadRepo.ListByChatbot(ctx, chatbotID)
}

func (s *ChatService) CreateThread(ctx context.Context, dto CreateThreadDTO) (chatthread.ChatThread, error) {
	if _, err := s.chatbotRepo.GetByID(ctx, dto.ChatbotID); err != nil {
		return nil, err
	}
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	thread := chatthread.New(tenantID, dto.ChatbotID, dto.UserID, dto.Name)
	return s.threadRepo.Save(ctx, thread)
}

func (s *ChatService) RenameThread(ctx context.Context, threadID uuid.UUID, name string) (chatthread.ChatThread, error) {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return s.threadRepo.Save(ctx, thread.Rename(name))
}

func (s *ChatService) SetThreadActive(ctx context.Context, threadID uuid.UUID, active bool) (chatthread.ChatThread, error) {
	thread, err := s.threadRepo.GetByID(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return s.threadRepo.Save(ctx, thread.SetActive(active))
}

func (s *ChatService) DeleteThread(ctx context.Context, threadID uuid.UUID) error {
	if _, err := s.threadRepo.GetByID(ctx, threadID); err != nil {
		return err
	}
	return s.threadRepo.Delete(ctx, threadID)
}

// Conversation returns the user's current thread with the chatbot, creating
// one when none exists. The most recently active thread wins.
func (s *ChatService) Conversation(ctx context.Context, chatbotID, userID uuid.UUID) (chatthread.ChatThread, error) {
	if _, err := s.chatbotRepo.GetByID(ctx, chatbotID); err != nil {
		return nil, err
	}

	threads, err := s.threadRepo.ListByChatbot(ctx, chatbotID)
	if err != nil {
		return nil, err
	}
	var current chatthread.ChatThread
	for _, thread := range threads {
		if thread.UserID() != userID || !thread.IsActive() {
			continue
		}
		if current == nil || thread.UpdatedAt().After(current.UpdatedAt()) {
			current = thread
		}
	}
	if current != nil {
		return current, nil
	}

	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return s.threadRepo.Save(ctx, chatthread.New(tenantID, chatbotID, userID, ""))
}

// ProcessMessage runs one full exchange: the user turn is persisted before
// any vendor work so it survives dispatch failures, and a failed dispatch
// still produces a visible assistant turn.
func (s *ChatService) ProcessMessage(ctx context.Context, dto ProcessMessageDTO) (*ProcessMessageResult, error) {
	logger := composables.UseLogger(ctx)

	bot, err := s.chatbotRepo.GetByID(ctx, dto.ChatbotID)
	if err != nil {
		return nil, err
	}

	thread, err := s.resolveThread(ctx, bot, dto)
	if err != nil {
		return nil, err
	}

	userMsg, err := s.buildUserMessage(dto)
	if err != nil {
		return nil, err
	}
	thread = thread.AppendMessage(userMsg)
	if thread, err = s.threadRepo.Save(ctx, thread); err != nil {
		return nil, err
	}

	history := s.historyFor(bot, thread, userMsg)

	reply, succeeded := s.dispatch(ctx, logger, bot, dto, history)

	assistantMsg, err := chatthread.NewMessage(chatthread.RoleAssistant, reply, time.Now())
	if err != nil {
		return nil, err
	}
	thread = thread.AppendMessage(assistantMsg)
	if thread, err = s.threadRepo.Save(ctx, thread); err != nil {
		return nil, err
	}

	s.publisher.Publish(MessageProcessedEvent{
		TenantID:  thread.TenantID(),
		ChatbotID: bot.ID(),
		ThreadID:  thread.ID(),
		Succeeded: succeeded,
	})

	return &ProcessMessageResult{
		Thread:           thread,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
		Succeeded:        succeeded,
	}, nil
}

func (s *ChatService) resolveThread(ctx context.Context, bot chatbot.Chatbot, dto ProcessMessageDTO) (chatthread.ChatThread, error) {
	if dto.ThreadID == uuid.Nil {
		return s.Conversation(ctx, bot.ID(), dto.UserID)
	}
	thread, err := s.threadRepo.GetByID(ctx, dto.ThreadID)
	if err != nil {
		return nil, err
	}
	if thread.ChatbotID() != bot.ID() {
		return nil, chatthread.ErrChatbotMismatch
	}
	return thread, nil
}

func (s *ChatService) buildUserMessage(dto ProcessMessageDTO) (chatthread.Message, error) {
	opts := []chatthread.MessageOption{}
	if dto.Attachment != nil {
		opts = append(opts, chatthread.WithImage(dto.Attachment.URL))
	}
	return chatthread.NewMessage(chatthread.RoleUser, dto.Content, time.Now(), opts...)
}

// historyFor returns the most recent turns up to the chatbot's limit,
// excluding the turn being processed.
func (s *ChatService) historyFor(bot chatbot.Chatbot, thread chatthread.ChatThread, current chatthread.Message) []llm.Turn {
	if !bot.HistoryEnabled() || bot.HistoryLimit() == 0 {
		return nil
	}

	messages := thread.Messages()
	if n := len(messages); n > 0 && messages[n-1].ID() == current.ID() {
		messages = messages[:n-1]
	}
	if len(messages) > bot.HistoryLimit() {
		messages = messages[len(messages)-bot.HistoryLimit():]
	}

	turns := make([]llm.Turn, 0, len(messages))
	for _, msg := range messages {
		turns = append(turns, llm.Turn{
			Role:    string(msg.Role()),
			Content: msg.Content(),
		})
	}
	return turns
}

func (s *ChatService) dispatch(
	ctx context.Context,
	logger *logrus.Entry,
	bot chatbot.Chatbot,
	dto ProcessMessageDTO,
	history []llm.Turn,
) (string, bool) {
	input := llm.DispatchInput{
		Provider:    bot.Provider(),
		Model:       bot.Model(),
		Prompt:      dto.Content,
		History:     history,
		Temperature: llmconfig.DefaultTemperature,
		MaxTokens:   llmconfig.DefaultMaxTokens,
	}

	config, err := s.settings.Get(ctx)
	if err == nil {
		input.Temperature = config.Temperature()
		input.MaxTokens = config.MaxTokens()
		input.APIKeys = config.APIKeys()
	} else if !errors.Is(err, llmconfig.ErrConfigNotFound) {
		logger.WithError(err).Warn("failed to load LLM settings, dispatching with defaults")
	}

	if err := s.attachInput(&input, dto.Attachment); err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"chatbot_id": bot.ID(),
			"attachment": dto.Attachment.Name,
		}).Error("failed to process attachment")
		return FailureReply, false
	}

	reply, err := s.dispatcher.Dispatch(ctx, input)
	if err != nil {
		logger.WithError(err).WithFields(logrus.Fields{
			"chatbot_id": bot.ID(),
			"provider":   bot.Provider(),
			"model":      bot.Model(),
		}).Error("dispatch failed")
		return FailureReply, false
	}
	return reply, true
}

func (s *ChatService) attachInput(input *llm.DispatchInput, att *attachments.Attachment) error {
	if att == nil {
		return nil
	}
	switch att.Kind {
	case attachments.KindImage:
		image, err := s.attachments.ToBase64Image(att)
		if err != nil {
			return err
		}
		input.Image = image
	default:
		doc, err := s.attachments.ExtractText(att)
		if err != nil {
			return err
		}
		input.Document = doc
	}
	return nil
}
