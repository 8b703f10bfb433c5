package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/llmconfig"
	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/eventbus"
)

type UpdateSettingsDTO struct {
	Provider    provider.Provider
	Model       string
	Temperature *float32
	MaxTokens   *int
	APIKeys     map[provider.Provider]string
}

type SettingsUpdatedEvent struct {
	TenantID uuid.UUID
}

type settingsCacheEntry struct {
	config   llmconfig.Config
	cachedAt time.Time
}

// SettingsService fronts the per-tenant LLM configuration with a short TTL
// cache, since every exchange reads it. Updates invalidate the tenant's
// entry immediately.
type SettingsService struct {
	repo      llmconfig.Repository
	publisher eventbus.EventBus
	ttl       time.Duration
	clock     func() time.Time

	mu    sync.RWMutex
	cache map[uuid.UUID]settingsCacheEntry
}

func NewSettingsService(repo llmconfig.Repository, publisher eventbus.EventBus, ttl time.Duration) *SettingsService {
	return &SettingsService{
		repo:      repo,
		publisher: publisher,
		ttl:       ttl,
		clock:     time.Now,
		cache:     make(map[uuid.UUID]settingsCacheEntry),
	}
}

func (s *SettingsService) Get(ctx context.Context) (llmconfig.Config, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	if config, ok := s.cached(tenantID); ok {
		return config, nil
	}

	config, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	s.store(tenantID, config)
	return config, nil
}

func (s *SettingsService) Update(ctx context.Context, dto UpdateSettingsDTO) (llmconfig.Config, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}

	current, err := s.repo.Get(ctx)
	if err != nil && !isNotFound(err) {
		return nil, err
	}

	opts := []llmconfig.Option{}
	if current != nil {
		opts = append(opts,
			llmconfig.WithID(current.ID()),
			llmconfig.WithCreatedAt(current.CreatedAt()),
			llmconfig.WithTemperature(current.Temperature()),
			llmconfig.WithMaxTokens(current.MaxTokens()),
		)
		// Keys absent from the update keep their stored value.
		for p, key := range current.APIKeys() {
			opts = append(opts, llmconfig.WithAPIKey(p, key))
		}
	}
	if dto.Temperature != nil {
		opts = append(opts, llmconfig.WithTemperature(*dto.Temperature))
	}
	if dto.MaxTokens != nil {
		opts = append(opts, llmconfig.WithMaxTokens(*dto.MaxTokens))
	}
	for p, key := range dto.APIKeys {
		opts = append(opts, llmconfig.WithAPIKey(p, key))
	}

	config, err := llmconfig.New(tenantID, dto.Provider, dto.Model, opts...)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, config)
	if err != nil {
		return nil, err
	}
	s.invalidate(tenantID)
	s.publisher.Publish(SettingsUpdatedEvent{TenantID: tenantID})
	return saved, nil
}

func (s *SettingsService) cached(tenantID uuid.UUID) (llmconfig.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.cache[tenantID]
	if !ok || s.clock().Sub(entry.cachedAt) >= s.ttl {
		return nil, false
	}
	return entry.config, true
}

func (s *SettingsService) store(tenantID uuid.UUID, config llmconfig.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[tenantID] = settingsCacheEntry{config: config, cachedAt: s.clock()}
}

func (s *SettingsService) invalidate(tenantID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, tenantID)
}

func isNotFound(err error) bool {
	return errors.Is(err, llmconfig.ErrConfigNotFound)
}
