package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/llmconfig"
	"github.com/chatforge/chatforge/pkg/composables"
)

type InmemLLMConfigRepository struct {
	storage *SafeMap[uuid.UUID, llmconfig.Config]
}

func NewInmemLLMConfigRepository() *InmemLLMConfigRepository {
	return &InmemLLMConfigRepository{
		storage: NewSafeMap[uuid.UUID, llmconfig.Config](),
	}
}

func (r *InmemLLMConfigRepository) Get(ctx context.Context) (llmconfig.Config, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	config, found := r.storage.Get(tenantID)
	if !found {
		return nil, llmconfig.ErrConfigNotFound
	}
	return config, nil
}

func (r *InmemLLMConfigRepository) Save(ctx context.Context, config llmconfig.Config) (llmconfig.Config, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if config.TenantID() != tenantID {
		return nil, errors.New("config tenant mismatch")
	}
	r.storage.Set(tenantID, config)
	return config, nil
}
