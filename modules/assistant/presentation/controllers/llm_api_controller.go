package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/llmconfig"
	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/llm"
	"github.com/chatforge/chatforge/modules/assistant/presentation/controllers/dtos"
	"github.com/chatforge/chatforge/modules/assistant/services"
	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/httpapi"
)

type LLMAPIControllerConfig struct {
	BasePath        string
	Registry        *llm.Registry
	SettingsService *services.SettingsService
}

// LLMAPIController exposes the model catalog and per-tenant LLM settings.
type LLMAPIController struct {
	basePath string
	registry *llm.Registry
	settings *services.SettingsService
}

func NewLLMAPIController(cfg LLMAPIControllerConfig) *LLMAPIController {
	return &LLMAPIController{
		basePath: cfg.BasePath,
		registry: cfg.Registry,
		settings: cfg.SettingsService,
	}
}

func (c *LLMAPIController) Key() string {
	return "LLMAPIController"
}

func (c *LLMAPIController) Register(r *mux.Router) {
	router := r.PathPrefix(c.basePath).Subrouter()

	router.HandleFunc("/models", c.listModels).Methods(http.MethodGet)
	router.HandleFunc("/settings", c.getSettings).Methods(http.MethodGet)
	router.HandleFunc("/settings", c.updateSettings).Methods(http.MethodPut)
}

// listModels supports ?provider= and ?capabilities= (comma separated) filters.
func (c *LLMAPIController) listModels(w http.ResponseWriter, r *http.Request) {
	filter := llm.ListFilter{}
	if raw := r.URL.Query().Get("provider"); raw != "" {
		p, err := provider.Parse(raw)
		if err != nil {
			_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "unknown provider", nil)
			return
		}
		filter.Provider = p
	}
	raw := r.URL.Query().Get("capabilities")
	if raw == "" {
		raw = r.URL.Query().Get("capability")
	}
	if raw != "" {
		for _, part := range strings.Split(raw, ",") {
			switch capability := llm.Capability(strings.TrimSpace(part)); capability {
			case llm.CapabilityText, llm.CapabilityImage, llm.CapabilityAudio:
				filter.Capabilities = append(filter.Capabilities, capability)
			default:
				_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "unknown capability", nil)
				return
			}
		}
	}

	models := c.registry.List(filter)
	out := make([]dtos.ModelResponse, 0, len(models))
	for _, m := range models {
		out = append(out, dtos.NewModelResponse(m))
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, out)
}

func (c *LLMAPIController) getSettings(w http.ResponseWriter, r *http.Request) {
	config, err := c.settings.Get(r.Context())
	if err != nil {
		if errors.Is(err, llmconfig.ErrConfigNotFound) {
			_ = httpapi.WriteError(w, http.StatusNotFound, "SETTINGS_NOT_FOUND", "LLM settings are not configured", nil)
			return
		}
		_ = httpapi.WriteError(w, http.StatusInternalServerError, dtos.ErrorCodeInternalServer, "failed to load settings", nil)
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewSettingsResponse(config))
}

func (c *LLMAPIController) updateSettings(w http.ResponseWriter, r *http.Request) {
	logger := composables.UseLogger(r.Context())

	var req dtos.UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "invalid request body", nil)
		return
	}
	if err := validate.Struct(&req); err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, err.Error(), nil)
		return
	}

	p, err := provider.Parse(req.Provider)
	if err != nil {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "unknown provider", nil)
		return
	}
	if !c.registry.BelongsTo(req.Model, p) {
		_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, "model is not served by the selected provider", nil)
		return
	}

	apiKeys := make(map[provider.Provider]string, 2)
	if req.OpenAIAPIKey != "" {
		apiKeys[provider.OpenAI] = req.OpenAIAPIKey
	}
	if req.AnthropicAPIKey != "" {
		apiKeys[provider.Anthropic] = req.AnthropicAPIKey
	}

	config, err := c.settings.Update(r.Context(), services.UpdateSettingsDTO{
		Provider:    p,
		Model:       req.Model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		APIKeys:     apiKeys,
	})
	if err != nil {
		switch {
		case errors.Is(err, llmconfig.ErrInvalidTemperature), errors.Is(err, llmconfig.ErrInvalidMaxTokens):
			_ = httpapi.WriteError(w, http.StatusBadRequest, dtos.ErrorCodeInvalidRequest, err.Error(), nil)
		default:
			logger.WithError(err).Error("failed to update LLM settings")
			_ = httpapi.WriteError(w, http.StatusInternalServerError, dtos.ErrorCodeInternalServer, "failed to update settings", nil)
		}
		return
	}
	_ = httpapi.WriteJSON(w, http.StatusOK, dtos.NewSettingsResponse(config))
}
