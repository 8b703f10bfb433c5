package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatbot"
	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatthread"
	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/attachments"
	"github.com/chatforge/chatforge/modules/assistant/presentation/controllers/dtos"
	"github.com/chatforge/chatforge/modules/assistant/services"
	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/httpapi"
)

const userIDHeader = "X-User-ID"

var validate = validator.New()

type ChatAPIControllerConfig struct {
	BasePath       string
	ChatService    *services.ChatService
	ChatbotService *services.ChatbotService
	Attachments    *attachments.Processor
	MaxUploadSize  int64
}

// ChatAPIController exposes chatbot CRUD and the message exchange endpoints.
type ChatAPIController struct {
	basePath       string
	chatService    *services.ChatService
	chatbotService *services.ChatbotService
	attachments    *attachments.Processor
	maxUploadSize  int64
}

func NewChatAPIController(cfg ChatAPIControllerConfig) *ChatAPIController {
	return &ChatAPIController{
		basePath:       cfg.BasePath,
		chatService:    cfg.ChatService,
		chatbotService: cfg.ChatbotService,
		attachments:    cfg.Attachments,
		maxUploadSize:  cfg.MaxUploadSize,
	}
}

func (c *ChatAPIController) Key() string {
	return "ChatAPIController"
}

func (c *ChatAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()

	router.HandleFunc("/chatbots", c.createChatbot).Methods(http.MethodPost)
	router.HandleFunc("/chatbots", c.listChatbots).Methods(http.MethodGet)
	router.HandleFunc("/chatbots/{chatbot_id}", c.getChatbot).Methods(http.MethodGet)
	router.HandleFunc("/chatbots/{chatbot_id}", c.updateChatbot).Methods(http.MethodPut)
	router.HandleFunc("/chatbots/{chatbot_id}", c.deleteChatbot).Methods(http.MethodDelete)

	router.HandleFunc("/chatbots/{chatbot_id}/message", c.sendMessage).Methods(http.MethodPost)
	router.HandleFunc("/chatbots/{chatbot_id}/conversation", c.getConversation).Methods(http.MethodGet)
	router.HandleFunc("/chatbots/{chatbot_id}/threads", c.createThread).Methods(http.MethodPost)
	router.HandleFunc("/chatbots/{chatbot_id}/threads", c.listChatbotThreads).Methods(http.MethodGet)

	router.HandleFunc("/threads", c.listThreads).Methods(http.MethodGet)
	router.HandleFunc("/threads/{thread_id}", c.getThread).Methods(http.MethodGet)
	router.HandleFunc("/threads/{thread_id}", c.updateThread).Methods(http.MethodPut, http.MethodPatch)
	router.HandleFunc("/threads/{thread_id}", c.deleteThread).Methods(http.MethodDelete)
	router.HandleFunc("/threads/{thread_id}/messages", c.listThreadMessages).Methods(http.MethodGet)
	router.HandleFunc("/threads/{thread_id}/message", c.sendThreadMessage).Methods(http.MethodPost)
}

func (c *ChatAPIController) createChatbot(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	var req dtos.CreateChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid request body", nil)
		return
	}
	if err := validate.Struct(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, err.Error(), nil)
		return
	}

	dto := services.CreateChatbotDTO{
		Name:           req.Name,
		Provider:       provider.Provider(req.Provider),
		Model:          req.Model,
		Description:    req.Description,
		HistoryEnabled: true,
		HistoryLimit:   chatbot.DefaultHistoryLimit,
	}
	if req.HistoryEnabled != nil {
		dto.HistoryEnabled = *req.HistoryEnabled
	}
	if req.HistoryLimit != nil {
		dto.HistoryLimit = *req.HistoryLimit
	}

	bot, err := c.chatbotService.Create(r.Context(), dto)
	if err != nil {
		logger.WithError(err).Error("failed to create chatbot")
		c.writeChatbotError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, dtos.NewChatbotResponse(bot))
}

func (c *ChatAPIController) listChatbots(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	bots, err := c.chatbotService.GetAll(r.Context())
	if err != nil {
		logger.WithError(err).Error("failed to list chatbots")
		_ = httpapi.WriteError(w, http.StatusInternalServerError, dtos.ErrorCodeInternalServer, "failed to list chatbots", nil)
		return
	}
	out := make([]dtos.ChatbotResponse, 0, len(bots))
	for _, bot := range bots {
		out = append(out, dtos.NewChatbotResponse(bot))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *ChatAPIController) getChatbot(w http.ResponseWriter, r *http.Request) {
	chatbotID, err := parsePathID(r, "chatbot_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid chatbot id", nil)
		return
	}
	bot, err := c.chatbotService.GetByID(r.Context(), chatbotID)
	if err != nil {
		c.writeChatbotError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewChatbotResponse(bot))
}

func (c *ChatAPIController) updateChatbot(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	chatbotID, err := parsePathID(r, "chatbot_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid chatbot id", nil)
		return
	}

	var req dtos.UpdateChatbotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid request body", nil)
		return
	}
	if err := validate.Struct(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, err.Error(), nil)
		return
	}

	bot, err := c.chatbotService.Update(r.Context(), chatbotID, services.UpdateChatbotDTO{
		Name:           req.Name,
		Provider:       provider.Provider(req.Provider),
		Model:          req.Model,
		Description:    req.Description,
		HistoryEnabled: req.HistoryEnabled,
		HistoryLimit:   req.HistoryLimit,
	})
	if err != nil {
		logger.WithError(err).Error("failed to update chatbot")
		c.writeChatbotError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewChatbotResponse(bot))
}

func (c *ChatAPIController) deleteChatbot(w http.ResponseWriter, r *http.Request) {
	chatbotID, err := parsePathID(r, "chatbot_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid chatbot id", nil)
		return
	}
	if err := c.chatbotService.Delete(r.Context(), chatbotID); err != nil {
		c.writeChatbotError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

// sendMessage accepts multipart form data: a "message" field, an optional
// "thread_id" field and an optional file under "attachment", "image" or
// "document".
func (c *ChatAPIController) sendMessage(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	chatbotID, err := parsePathID(r, "chatbot_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid chatbot id", nil)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "missing or invalid "+userIDHeader+" header", nil)
		return
	}

	if err := r.ParseMultipartForm(c.maxUploadSize); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid multipart form", nil)
		return
	}

	content := strings.TrimSpace(r.FormValue("message"))

	var threadID uuid.UUID
	if raw := r.FormValue("thread_id"); raw != "" {
		threadID, err = uuid.Parse(raw)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid thread id", nil)
			return
		}
	}

	var attachment *attachments.Attachment
	if file, header, err := formFile(r, "attachment", "image", "document"); err == nil {
		defer func() {
			_ = file.Close()
		}()
		attachment, err = c.attachments.Save(header.Filename, file)
		if err != nil {
			logger.WithError(err).Error("failed to store attachment")
			_ = httpapi.WriteError(w, http.StatusInternalServerError, dtos.ErrorCodeInternalServer, "failed to store attachment", nil)
			return
		}
	}

	if content == "" && attachment == nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeEmptyMessage, "message content or attachment is required", nil)
		return
	}
	if len(content) > chatthread.MaxMessageLength {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "message too long", nil)
		return
	}

	result, err := c.chatService.ProcessMessage(r.Context(), services.ProcessMessageDTO{
		ChatbotID:  chatbotID,
		ThreadID:   threadID,
		UserID:     userID,
		Content:    content,
		Attachment: attachment,
	})
	if err != nil {
		logger.WithError(err).Error("failed to process message")
		c.writeMessageError(w, err)
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.SendMessageResponse{
		ThreadID:  result.Thread.ID().String(),
		Message:   dtos.NewMessageResponse(result.UserMessage),
		Reply:     dtos.NewMessageResponse(result.AssistantMessage),
		Succeeded: result.Succeeded,
	})
}

// sendThreadMessage posts a text-only message to an existing thread. File
// attachments go through the chatbot message endpoint.
func (c *ChatAPIController) sendThreadMessage(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	threadID, err := parsePathID(r, "thread_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid thread id", nil)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "missing or invalid "+userIDHeader+" header", nil)
		return
	}

	var req dtos.SendThreadMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid request body", nil)
		return
	}
	content := strings.TrimSpace(req.Message)
	if content == "" {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeEmptyMessage, "message content is required", nil)
		return
	}
	if len(content) > chatthread.MaxMessageLength {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "message too long", nil)
		return
	}

	thread, err := c.chatService.GetThreadByID(r.Context(), threadID)
	if err != nil {
		c.writeMessageError(w, err)
		return
	}

	result, err := c.chatService.ProcessMessage(r.Context(), services.ProcessMessageDTO{
		ChatbotID: thread.ChatbotID(),
		ThreadID:  threadID,
		UserID:    userID,
		Content:   content,
	})
	if err != nil {
		logger.WithError(err).Error("failed to process message")
		c.writeMessageError(w, err)
		return
	}

	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.SendMessageResponse{
		ThreadID:  result.Thread.ID().String(),
		Message:   dtos.NewMessageResponse(result.UserMessage),
		Reply:     dtos.NewMessageResponse(result.AssistantMessage),
		Succeeded: result.Succeeded,
	})
}

func (c *ChatAPIController) getConversation(w http.ResponseWriter, r *http.Request) {
	chatbotID, err := parsePathID(r, "chatbot_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid chatbot id", nil)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "missing or invalid "+userIDHeader+" header", nil)
		return
	}

	thread, err := c.chatService.Conversation(r.Context(), chatbotID, userID)
	if err != nil {
		c.writeMessageError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewConversationResponse(thread))
}

func (c *ChatAPIController) listChatbotThreads(w http.ResponseWriter, r *http.Request) {
	chatbotID, err := parsePathID(r, "chatbot_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid chatbot id", nil)
		return
	}
	threads, err := c.chatService.ListThreadsByChatbot(r.Context(), chatbotID)
	if err != nil {
		c.writeMessageError(w, err)
		return
	}
	c.writeThreadList(w, threads)
}

func (c *ChatAPIController) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := c.chatService.ListThreads(r.Context())
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusInternalServerError, dtos.ErrorCodeInternalServer, "failed to list threads", nil)
		return
	}
	c.writeThreadList(w, threads)
}

func (c *ChatAPIController) getThread(w http.ResponseWriter, r *http.Request) {
	threadID, err := parsePathID(r, "thread_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid thread id", nil)
		return
	}
	thread, err := c.chatService.GetThreadByID(r.Context(), threadID)
	if err != nil {
		c.writeMessageError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewConversationResponse(thread))
}

func (c *ChatAPIController) createThread(w http.ResponseWriter, r *http.Request) {
	chatbotID, err := parsePathID(r, "chatbot_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid chatbot id", nil)
		return
	}
	userID, err := parseUserID(r)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "missing or invalid "+userIDHeader+" header", nil)
		return
	}

	var req dtos.CreateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid request body", nil)
		return
	}
	if err := validate.Struct(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, err.Error(), nil)
		return
	}

	thread, err := c.chatService.CreateThread(r.Context(), services.CreateThreadDTO{
		ChatbotID: chatbotID,
		UserID:    userID,
		Name:      req.Name,
	})
	if err != nil {
		c.writeMessageError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusCreated, dtos.NewThreadResponse(thread))
}

func (c *ChatAPIController) updateThread(w http.ResponseWriter, r *http.Request) {
	threadID, err := parsePathID(r, "thread_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid thread id", nil)
		return
	}

	var req dtos.UpdateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid request body", nil)
		return
	}
	if err := validate.Struct(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, err.Error(), nil)
		return
	}

	thread, err := c.chatService.GetThreadByID(r.Context(), threadID)
	if err != nil {
		c.writeMessageError(w, err)
		return
	}
	if req.Name != nil {
		thread, err = c.chatService.RenameThread(r.Context(), threadID, *req.Name)
	}
	if err == nil && req.IsActive != nil {
		thread, err = c.chatService.SetThreadActive(r.Context(), threadID, *req.IsActive)
	}
	if err != nil {
		c.writeMessageError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewThreadResponse(thread))
}

func (c *ChatAPIController) listThreadMessages(w http.ResponseWriter, r *http.Request) {
	threadID, err := parsePathID(r, "thread_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid thread id", nil)
		return
	}
	thread, err := c.chatService.GetThreadByID(r.Context(), threadID)
	if err != nil {
		c.writeMessageError(w, err)
		return
	}
	messages := thread.Messages()
	out := make([]dtos.MessageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, dtos.NewMessageResponse(msg))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.MessagesResponse{Messages: out})
}

func (c *ChatAPIController) deleteThread(w http.ResponseWriter, r *http.Request) {
	threadID, err := parsePathID(r, "thread_id")
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid thread id", nil)
		return
	}
	if err := c.chatService.DeleteThread(r.Context(), threadID); err != nil {
		c.writeMessageError(w, err)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusNoContent, nil)
}

func (c *ChatAPIController) writeThreadList(w http.ResponseWriter, threads []chatthread.ChatThread) {
	out := make([]dtos.ThreadResponse, 0, len(threads))
	for _, thread := range threads {
		out = append(out, dtos.NewThreadResponse(thread))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *ChatAPIController) writeChatbotError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatbot.ErrChatbotNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, dtos.ErrorCodeChatbotNotFound, "chatbot not found", nil)
	case errors.Is(err, chatbot.ErrEmptyName),
		errors.Is(err, chatbot.ErrInvalidHistoryLimit),
		errors.Is(err, chatbot.ErrModelProviderMismatch),
		errors.Is(err, provider.ErrUnknownProvider):
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, err.Error(), nil)
	default:
		_ = httpapi.WriteError(w, http.StatusInternalServerError, dtos.ErrorCodeInternalServer, "internal server error", nil)
	}
}

func (c *ChatAPIController) writeMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatbot.ErrChatbotNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, dtos.ErrorCodeChatbotNotFound, "chatbot not found", nil)
	case errors.Is(err, chatthread.ErrThreadNotFound):
		_ = httpapi.WriteError(w, http.StatusNotFound, dtos.ErrorCodeThreadNotFound, "thread not found", nil)
	case errors.Is(err, chatthread.ErrChatbotMismatch):
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeThreadMismatch, "thread does not belong to chatbot", nil)
	case errors.Is(err, chatthread.ErrEmptyMessage), errors.Is(err, chatthread.ErrMessageTooLong):
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, err.Error(), nil)
	default:
		_ = httpapi.WriteError(w, http.StatusInternalServerError, dtos.ErrorCodeInternalServer, "internal server error", nil)
	}
}

func parsePathID(r *http.Request, name string) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)[name])
}

func formFile(r *http.Request, names ...string) (multipart.File, *multipart.FileHeader, error) {
	var (
		file   multipart.File
		header *multipart.FileHeader
		err    error = http.ErrMissingFile
	)
	for _, name := range names {
		file, header, err = r.FormFile(name)
		if err == nil {
			return file, header, nil
		}
	}
	return nil, nil, err
}

func parseUserID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get(userIDHeader))
}
