package services

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/llmconfig"
	"github.com/chatforge/chatforge/modules/assistant/domain/value_objects/provider"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/persistence"
	"github.com/chatforge/chatforge/pkg/composables"
	"github.com/chatforge/chatforge/pkg/eventbus"
)

type countingConfigRepo struct {
	llmconfig.Repository
	gets atomic.Int64
}

func (r *countingConfigRepo) Get(ctx context.Context) (llmconfig.Config, error) {
	r.gets.Add(1)
	return r.Repository.Get(ctx)
}

func setupSettingsTest(t *testing.T) (context.Context, uuid.UUID, *SettingsService, *countingConfigRepo, *time.Time) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	tenantID := uuid.New()
	ctx := composables.WithTenantID(context.Background(), tenantID)

	repo := &countingConfigRepo{Repository: persistence.NewInmemLLMConfigRepository()}
	sut := NewSettingsService(repo, eventbus.NewEventPublisher(logger), time.Minute)

	now := time.Now()
	sut.clock = func() time.Time { return now }

	return ctx, tenantID, sut, repo, &now
}

func seedConfig(t *testing.T, ctx context.Context, tenantID uuid.UUID, repo llmconfig.Repository) llmconfig.Config {
	t.Helper()
	config, err := llmconfig.New(
		tenantID,
		provider.OpenAI,
		"gpt-4o",
		llmconfig.WithAPIKey(provider.OpenAI, "sk-stored"),
	)
	require.NoError(t, err)
	saved, err := repo.Save(ctx, config)
	require.NoError(t, err)
	return saved
}

func TestSettingsService_Get_CachesWithinTTL(t *testing.T) {
	t.Parallel()
	ctx, tenantID, sut, repo, _ := setupSettingsTest(t)
	seedConfig(t, ctx, tenantID, repo.Repository)

	first, err := sut.Get(ctx)
	require.NoError(t, err)

	second, err := sut.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, int64(1), repo.gets.Load())
}

func TestSettingsService_Get_ExpiresAfterTTL(t *testing.T) {
	t.Parallel()
	ctx, tenantID, sut, repo, now := setupSettingsTest(t)
	seedConfig(t, ctx, tenantID, repo.Repository)

	_, err := sut.Get(ctx)
	require.NoError(t, err)

	*now = now.Add(2 * time.Minute)

	_, err = sut.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), repo.gets.Load())
}

func TestSettingsService_Get_NotFound(t *testing.T) {
	t.Parallel()
	ctx, _, sut, _, _ := setupSettingsTest(t)

	_, err := sut.Get(ctx)
	require.ErrorIs(t, err, llmconfig.ErrConfigNotFound)
}

func TestSettingsService_Update_InvalidatesCache(t *testing.T) {
	t.Parallel()
	ctx, tenantID, sut, repo, _ := setupSettingsTest(t)
	seedConfig(t, ctx, tenantID, repo.Repository)

	_, err := sut.Get(ctx)
	require.NoError(t, err)

	maxTokens := 4096
	_, err = sut.Update(ctx, UpdateSettingsDTO{
		Provider:  provider.Anthropic,
		Model:     "claude-3-5-sonnet",
		MaxTokens: &maxTokens,
	})
	require.NoError(t, err)

	updated, err := sut.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, provider.Anthropic, updated.Provider())
	assert.Equal(t, "claude-3-5-sonnet", updated.Model())
	assert.Equal(t, 4096, updated.MaxTokens())
}

func TestSettingsService_Update_KeepsStoredKeys(t *testing.T) {
	t.Parallel()
	ctx, tenantID, sut, repo, _ := setupSettingsTest(t)
	seedConfig(t, ctx, tenantID, repo.Repository)

	_, err := sut.Update(ctx, UpdateSettingsDTO{
		Provider: provider.OpenAI,
		Model:    "gpt-4o-mini",
		APIKeys:  map[provider.Provider]string{provider.Anthropic: "sk-ant"},
	})
	require.NoError(t, err)

	updated, err := sut.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sk-stored", updated.APIKey(provider.OpenAI))
	assert.Equal(t, "sk-ant", updated.APIKey(provider.Anthropic))
}

func TestSettingsService_Update_CreatesWhenMissing(t *testing.T) {
	t.Parallel()
	ctx, _, sut, _, _ := setupSettingsTest(t)

	config, err := sut.Update(ctx, UpdateSettingsDTO{
		Provider: provider.OpenAI,
		Model:    "gpt-4o",
	})
	require.NoError(t, err)
	assert.Equal(t, llmconfig.DefaultTemperature, config.Temperature())
	assert.Equal(t, llmconfig.DefaultMaxTokens, config.MaxTokens())
}

func TestSettingsService_Update_RejectsInvalidTemperature(t *testing.T) {
	t.Parallel()
	ctx, _, sut, _, _ := setupSettingsTest(t)

	temperature := float32(1.5)
	_, err := sut.Update(ctx, UpdateSettingsDTO{
		Provider:    provider.OpenAI,
		Model:       "gpt-4o",
		Temperature: &temperature,
	})
	require.ErrorIs(t, err, llmconfig.ErrInvalidTemperature)
}
