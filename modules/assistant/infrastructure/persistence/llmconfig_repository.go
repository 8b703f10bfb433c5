package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/llmconfig"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/persistence/models"
	"github.com/chatforge/chatforge/pkg/composables"
)

// LLMConfigRepository stores one settings row per tenant. API keys live in a
// jsonb column keyed by provider name.
type LLMConfigRepository struct{}

func NewLLMConfigRepository() llmconfig.Repository {
	return &LLMConfigRepository{}
}

func (r *LLMConfigRepository) Get(ctx context.Context) (llmconfig.Config, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT id, tenant_id, provider, model, temperature, max_tokens, api_keys, created_at, updated_at
		FROM llm_configs
		WHERE tenant_id = $1
	`
	var model models.LLMConfig
	var apiKeys []byte
	if err := tx.QueryRow(ctx, query, tenantID.String()).Scan(
		&model.ID,
		&model.TenantID,
		&model.Provider,
		&model.Model,
		&model.Temperature,
		&model.MaxTokens,
		&apiKeys,
		&model.CreatedAt,
		&model.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, llmconfig.ErrConfigNotFound
		}
		return nil, err
	}
	if len(apiKeys) > 0 {
		if err := json.Unmarshal(apiKeys, &model.APIKeys); err != nil {
			return nil, err
		}
	}

	return ToDomainConfig(model)
}

func (r *LLMConfigRepository) Save(ctx context.Context, config llmconfig.Config) (llmconfig.Config, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	model := ToDBConfig(config)
	apiKeys, err := json.Marshal(model.APIKeys)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO llm_configs (id, tenant_id, provider, model, temperature, max_tokens, api_keys, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (tenant_id) DO UPDATE
		SET provider = EXCLUDED.provider,
		    model = EXCLUDED.model,
		    temperature = EXCLUDED.temperature,
		    max_tokens = EXCLUDED.max_tokens,
		    api_keys = EXCLUDED.api_keys,
		    updated_at = EXCLUDED.updated_at
	`
	if _, err := tx.Exec(
		ctx,
		query,
		model.ID,
		model.TenantID,
		model.Provider,
		model.Model,
		model.Temperature,
		model.MaxTokens,
		apiKeys,
		model.CreatedAt,
		model.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return r.Get(ctx)
}
