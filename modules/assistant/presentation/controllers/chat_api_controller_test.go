package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/modules/assistant/infrastructure/attachments"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/llm"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/persistence"
	"github.com/chatforge/chatforge/modules/assistant/presentation/controllers"
	"github.com/chatforge/chatforge/modules/assistant/presentation/controllers/dtos"
	"github.com/chatforge/chatforge/modules/assistant/services"
	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/eventbus"
)

type scriptedDispatcher struct {
	reply string
	err   error
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, input llm.DispatchInput) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	return d.reply, nil
}

type apiFixtures struct {
	router          *mux.Router
	tenantID        uuid.UUID
	userID          uuid.UUID
	chatbotService  *services.ChatbotService
	settingsService *services.SettingsService
}

func setupAPITest(t *testing.T) *apiFixtures {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tenantID := uuid.New()
	bus := eventbus.NewEventPublisher(logger)
	processor := attachments.NewProcessor(t.TempDir(), 5000)

	chatbotRepo := persistence.NewInmemChatbotRepository()
	chatbotService := services.NewChatbotService(chatbotRepo, llm.DefaultRegistry(), bus)
	settingsService := services.NewSettingsService(persistence.NewInmemLLMConfigRepository(), bus, time.Minute)
	chatService := services.NewChatService(services.ChatServiceConfig{
		ChatbotRepo: chatbotRepo,
		ThreadRepo:  persistence.NewInmemThreadRepository(),
		Settings:    settingsService,
		Dispatcher:  &scriptedDispatcher{reply: "Scripted reply"},
		Attachments: processor,
		Publisher:   bus,
	})

	router := mux.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := composables.WithTenantID(r.Context(), tenantID)
			ctx = composables.WithLogger(ctx, logrus.NewEntry(logger))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	f := &apiFixtures{
		router:          router,
		tenantID:        tenantID,
		userID:          uuid.New(),
		chatbotService:  chatbotService,
		settingsService: settingsService,
	}

	controllers.NewChatAPIController(controllers.ChatAPIControllerConfig{
		BasePath:       "/api/v1",
		ChatService:    chatService,
		ChatbotService: chatbotService,
		Attachments:    processor,
		MaxUploadSize:  10 << 20,
	}).Register(router)
	controllers.NewLLMAPIController(controllers.LLMAPIControllerConfig{
		BasePath:        "/api/v1/llm",
		Registry:        llm.DefaultRegistry(),
		SettingsService: settingsService,
	}).Register(router)

	return f
}

func (f *apiFixtures) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *apiFixtures) createChatbot(t *testing.T) dtos.ChatbotResponse {
	t.Helper()
	body := `{"name":"Support Bot","provider":"openai","model":"gpt-4o"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chatbots", strings.NewReader(body))
	rec := f.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp dtos.ChatbotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestChatAPI_CreateChatbot(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)

	bot := f.createChatbot(t)
	assert.Equal(t, "Support Bot", bot.Name)
	assert.Equal(t, "openai", bot.Provider)
	assert.True(t, bot.HistoryEnabled)
}

func TestChatAPI_CreateChatbot_UnknownProvider(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)

	body := `{"name":"Bot","provider":"mistral","model":"x"}`
	rec := f.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/chatbots", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatAPI_GetChatbot_NotFound(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/chatbots/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), dtos.ErrorCodeChatbotNotFound)
}

func multipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestChatAPI_SendMessage(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	body, contentType := multipartBody(t, map[string]string{"message": "Hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chatbots/"+bot.ID+"/message", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", f.userID.String())

	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dtos.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Succeeded)
	assert.Equal(t, "Hello", resp.Message.Content)
	assert.Equal(t, "Scripted reply", resp.Reply.Content)
	assert.NotEmpty(t, resp.ThreadID)
}

func TestChatAPI_SendMessage_EmptyBody(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	body, contentType := multipartBody(t, map[string]string{"message": "   "})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chatbots/"+bot.ID+"/message", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-User-ID", f.userID.String())

	rec := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), dtos.ErrorCodeEmptyMessage)
}

func TestChatAPI_SendMessage_MissingUserHeader(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	body, contentType := multipartBody(t, map[string]string{"message": "Hello"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chatbots/"+bot.ID+"/message", body)
	req.Header.Set("Content-Type", contentType)

	rec := f.do(t, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatAPI_SendMessage_ReusesThread(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	send := func(message string) dtos.SendMessageResponse {
		body, contentType := multipartBody(t, map[string]string{"message": message})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/chatbots/"+bot.ID+"/message", body)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("X-User-ID", f.userID.String())
		rec := f.do(t, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var resp dtos.SendMessageResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp
	}

	first := send("first")
	second := send("second")
	assert.Equal(t, first.ThreadID, second.ThreadID)

	rec := f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/threads/"+first.ThreadID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var conversation dtos.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conversation))
	assert.Len(t, conversation.Messages, 4)
}

func TestChatAPI_Conversation(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chatbots/"+bot.ID+"/conversation", nil)
	req.Header.Set("X-User-ID", f.userID.String())

	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dtos.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, bot.ID, resp.Thread.ChatbotID)
	assert.Empty(t, resp.Messages)
}

func TestChatAPI_RenameThread(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/chatbots/"+bot.ID+"/conversation", nil)
	req.Header.Set("X-User-ID", f.userID.String())
	rec := f.do(t, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var conversation dtos.ConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conversation))

	rename := httptest.NewRequest(http.MethodPut, "/api/v1/threads/"+conversation.Thread.ID, strings.NewReader(`{"name":"Billing"}`))
	rec = f.do(t, rename)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var thread dtos.ThreadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))
	assert.Equal(t, "Billing", thread.Name)
}

func TestChatAPI_DeleteThread_NotFound(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)

	rec := f.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/threads/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), dtos.ErrorCodeThreadNotFound)
}

func TestChatAPI_CreateThread(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chatbots/"+bot.ID+"/threads", strings.NewReader(`{"name":"Refunds"}`))
	req.Header.Set("X-User-ID", f.userID.String())
	rec := f.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var thread dtos.ThreadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))
	assert.Equal(t, "Refunds", thread.Name)
	assert.Equal(t, bot.ID, thread.ChatbotID)
	assert.True(t, thread.IsActive)
}

func TestChatAPI_ThreadMessages(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	body, contentType := multipartBody(t, map[string]string{"message": "Hello"})
	send := httptest.NewRequest(http.MethodPost, "/api/v1/chatbots/"+bot.ID+"/message", body)
	send.Header.Set("Content-Type", contentType)
	send.Header.Set("X-User-ID", f.userID.String())
	rec := f.do(t, send)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var sent dtos.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sent))

	rec = f.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/threads/"+sent.ThreadID+"/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dtos.MessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, "Hello", resp.Messages[0].Content)
	assert.Equal(t, "assistant", resp.Messages[1].Role)
	assert.Equal(t, "Scripted reply", resp.Messages[1].Content)
}

func TestChatAPI_DeactivateThread(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	create := httptest.NewRequest(http.MethodPost, "/api/v1/chatbots/"+bot.ID+"/threads", strings.NewReader(`{}`))
	create.Header.Set("X-User-ID", f.userID.String())
	rec := f.do(t, create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var thread dtos.ThreadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))

	patch := httptest.NewRequest(http.MethodPatch, "/api/v1/threads/"+thread.ID, strings.NewReader(`{"is_active":false}`))
	rec = f.do(t, patch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated dtos.ThreadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.IsActive)
}

func TestChatAPI_SendThreadMessage(t *testing.T) {
	t.Parallel()
	f := setupAPITest(t)
	bot := f.createChatbot(t)

	create := httptest.NewRequest(http.MethodPost, "/api/v1/chatbots/"+bot.ID+"/threads", strings.NewReader(`{}`))
	create.Header.Set("X-User-ID", f.userID.String())
	rec := f.do(t, create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var thread dtos.ThreadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &thread))

	send := httptest.NewRequest(http.MethodPost, "/api/v1/threads/"+thread.ID+"/message", strings.NewReader(`{"message":"Hello again"}`))
	send.Header.Set("X-User-ID", f.userID.String())
	rec = f.do(t, send)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp dtos.SendMessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, thread.ID, resp.ThreadID)
	assert.Equal(t, "Hello again", resp.Message.Content)
	assert.Equal(t, "Scripted reply", resp.Reply.Content)
	assert.True(t, resp.Succeeded)
}
