package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/chatforge/chatforge/modules/assistant/domain/entities/chatbot"
	"github.com/chatforge/chatforge/modules/assistant/infrastructure/persistence/models"
	"github.com/chatforge/chatforge/pkg/composables"
)

const (
	chatbotFindQuery = `
		SELECT id, tenant_id, name, provider, model, description, created_by,
		       history_enabled, history_limit, created_at, updated_at
		FROM chatbots`
)

type ChatbotRepository struct{}

func NewChatbotRepository() chatbot.Repository {
	return &ChatbotRepository{}
}

func (r *ChatbotRepository) GetByID(ctx context.Context, id uuid.UUID) (chatbot.Chatbot, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	bots, err := r.queryChatbots(ctx, chatbotFindQuery+" WHERE id = $1 AND tenant_id = $2", id.String(), tenantID.String())
	if err != nil {
		return nil, err
	}
	if len(bots) == 0 {
		return nil, chatbot.ErrChatbotNotFound
	}
	return bots[0], nil
}

func (r *ChatbotRepository) GetAll(ctx context.Context) ([]chatbot.Chatbot, error) {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return nil, err
	}
	return r.queryChatbots(ctx, chatbotFindQuery+" WHERE tenant_id = $1 ORDER BY created_at", tenantID.String())
}

func (r *ChatbotRepository) Create(ctx context.Context, bot chatbot.Chatbot) (chatbot.Chatbot, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	model := ToDBChatbot(bot)
	query := `
		INSERT INTO chatbots (id, tenant_id, name, provider, model, description, created_by,
		                      history_enabled, history_limit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := tx.Exec(
		ctx,
		query,
		model.ID,
		model.TenantID,
		model.Name,
		model.Provider,
		model.Model,
		model.Description,
		model.CreatedBy,
		model.HistoryEnabled,
		model.HistoryLimit,
		model.CreatedAt,
		model.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, bot.ID())
}

func (r *ChatbotRepository) Update(ctx context.Context, bot chatbot.Chatbot) (chatbot.Chatbot, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	model := ToDBChatbot(bot)
	query := `
		UPDATE chatbots
		SET name = $1, provider = $2, model = $3, description = $4,
		    history_enabled = $5, history_limit = $6, updated_at = $7
		WHERE id = $8 AND tenant_id = $9
	`
	tag, err := tx.Exec(
		ctx,
		query,
		model.Name,
		model.Provider,
		model.Model,
		model.Description,
		model.HistoryEnabled,
		model.HistoryLimit,
		model.UpdatedAt,
		model.ID,
		model.TenantID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, chatbot.ErrChatbotNotFound
	}
	return r.GetByID(ctx, bot.ID())
}

func (r *ChatbotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := composables.UseTenantID(ctx)
	if err != nil {
		return err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM chatbots WHERE id = $1 AND tenant_id = $2`, id.String(), tenantID.String())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return chatbot.ErrChatbotNotFound
	}
	return nil
}

func (r *ChatbotRepository) queryChatbots(ctx context.Context, query string, args ...interface{}) ([]chatbot.Chatbot, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, chatbot.ErrChatbotNotFound
		}
		return nil, err
	}
	defer rows.Close()

	bots := make([]chatbot.Chatbot, 0)
	for rows.Next() {
		var model models.Chatbot
		if err := rows.Scan(
			&model.ID,
			&model.TenantID,
			&model.Name,
			&model.Provider,
			&model.Model,
			&model.Description,
			&model.CreatedBy,
			&model.HistoryEnabled,
			&model.HistoryLimit,
			&model.CreatedAt,
			&model.UpdatedAt,
		); err != nil {
			return nil, err
		}
		bot, err := ToDomainChatbot(model)
		if err != nil {
			return nil, err
		}
		bots = append(bots, bot)
	}
	return bots, rows.Err()
}
