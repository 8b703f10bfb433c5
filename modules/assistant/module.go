package assistant

import (
	"embed"

	"github.com/redis/go-redis/v9"

	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
	"github.com/chatforge/chatforge/modules/assistant/handlers"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/attachments"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/llm"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/persistence"
	"github.com/chatforge/chatforge/modules/assistant/presentation/controllers"
	"github.com/chatforge/chatforge/modules/assistant/services"
	"github.com/chatforge/chatforge/pkg/application"
	"github.com/chatforge/chatforge/pkg/configuration"
)

//go:embed infrastructure/persistence/schema/assistant-schema.sql
var MigrationFiles embed.FS

func NewModule() application.Module {
	return &Module{}
}

type Module struct {
}

func (m *Module) Register(app application.Application) error {
	conf := configuration.Use()

	chatbotRepo := persistence.NewChatbotRepository()
	configRepo := persistence.NewLLMConfigRepository()
	threadRepo := persistence.NewThreadRepository(
		redis.NewClient(&redis.Options{Addr: conf.RedisURL}),
	)

	registry := llm.DefaultRegistry()
	dispatcher := llm.NewDispatcher(
		registry,
		llm.DispatcherOptions{
			MaxAttempts:    conf.LLM.MaxAttempts,
			RetryBaseDelay: conf.LLM.RetryBaseDelay,
			RequestTimeout: conf.LLM.RequestTimeout,
			FallbackKeys: map[provider.Provider]string{
				provider.OpenAI:    conf.LLM.OpenAIKey,
				provider.Anthropic: conf.LLM.AnthropicKey,
			},
		},
		llm.NewOpenAIAdapter(),
		llm.NewAnthropicAdapter(llm.WithAnthropicBaseURL(conf.LLM.AnthropicBaseURL)),
	)
	processor := attachments.NewProcessor(conf.UploadsPath, conf.LLM.DocumentTextLimit)

	settingsService := services.NewSettingsService(configRepo, app.EventPublisher(), conf.LLM.SettingsCacheTTL)
	chatbotService := services.NewChatbotService(chatbotRepo, registry, app.EventPublisher())
	chatService := services.NewChatService(services.ChatServiceConfig{
		ChatbotRepo: chatbotRepo,
		ThreadRepo:  threadRepo,
		Settings:    settingsService,
		Dispatcher:  dispatcher,
		Attachments: processor,
		Publisher:   app.EventPublisher(),
	})
	app.RegisterServices(
		settingsService,
		chatbotService,
		chatService,
	)
	app.RegisterControllers(
		controllers.NewChatAPIController(controllers.ChatAPIControllerConfig{
			BasePath:       "/api/v1",
			ChatService:    chatService,
			ChatbotService: chatbotService,
			Attachments:    processor,
			MaxUploadSize:  conf.MaxUploadSize,
		}),
		controllers.NewLLMAPIController(controllers.LLMAPIControllerConfig{
			BasePath:        "/api/v1/llm",
			Registry:        registry,
			SettingsService: settingsService,
		}),
	)
	handlers.RegisterChatEventHandlers(app)
	app.Migrations().RegisterSchema(&MigrationFiles)
	return nil
}

func (m *Module) Name() string {
	return "assistant"
}
