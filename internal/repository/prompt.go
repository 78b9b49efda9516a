package repository

import (
	"context"
	"time"

	"promptmatch-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PromptRepository handles database operations for daily prompts and their responses
type PromptRepository struct {
	db *pgxpool.Pool
}

// NewPromptRepository creates a new prompt repository
func NewPromptRepository(db *pgxpool.Pool) *PromptRepository {
	return &PromptRepository{db: db}
}

// Upsert stores the question of a day, replacing an existing one
func (r *PromptRepository) Upsert(ctx context.Context, prompt *models.Prompt) error {
	query := `
		INSERT INTO prompts (id, day, question, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (day) DO UPDATE SET question = EXCLUDED.question
		RETURNING id, created_at
	`
	err := conn(ctx, r.db).QueryRow(ctx, query, prompt.ID, prompt.Day, prompt.Question, prompt.CreatedAt).Scan(
		&prompt.ID, &prompt.CreatedAt,
	)
	return wrapErr("upsert prompt", err)
}

// GetByDay retrieves the prompt of a "YYYY-MM-DD" day
func (r *PromptRepository) GetByDay(ctx context.Context, day string) (*models.Prompt, error) {
	query := `SELECT id, day, question, created_at FROM prompts WHERE day = $1`
	var prompt models.Prompt
	err := conn(ctx, r.db).QueryRow(ctx, query, day).Scan(
		&prompt.ID, &prompt.Day, &prompt.Question, &prompt.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr("get prompt", err)
	}
	return &prompt, nil
}

// UpsertResponse stores the answer of a user to a prompt. Answering again replaces the
// content and keeps the original creation time.
func (r *PromptRepository) UpsertResponse(ctx context.Context, resp *models.PromptResponse) error {
	query := `
		INSERT INTO prompt_responses (id, user_id, prompt_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, prompt_id) DO UPDATE
		SET content = EXCLUDED.content, updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	err := conn(ctx, r.db).QueryRow(ctx, query,
		resp.ID, resp.UserID, resp.PromptID, resp.Content, resp.CreatedAt, resp.UpdatedAt,
	).Scan(&resp.ID, &resp.CreatedAt, &resp.UpdatedAt)
	return wrapErr("upsert prompt response", err)
}

// GetResponse retrieves the answer of a user to a prompt
func (r *PromptRepository) GetResponse(ctx context.Context, userID, promptID string) (*models.PromptResponse, error) {
	query := `
		SELECT id, user_id, prompt_id, content, created_at, updated_at
		FROM prompt_responses
		WHERE user_id = $1 AND prompt_id = $2
	`
	var resp models.PromptResponse
	err := conn(ctx, r.db).QueryRow(ctx, query, userID, promptID).Scan(
		&resp.ID, &resp.UserID, &resp.PromptID, &resp.Content, &resp.CreatedAt, &resp.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr("get prompt response", err)
	}
	return &resp, nil
}

// ListRecentResponses returns, per user, up to perUser responses created at or after since,
// newest first, each paired with its question.
func (r *PromptRepository) ListRecentResponses(ctx context.Context, userIDs []string, since time.Time, perUser int) (map[string][]models.ResponseView, error) {
	result := make(map[string][]models.ResponseView, len(userIDs))
	if len(userIDs) == 0 || perUser <= 0 {
		return result, nil
	}

	query := `
		SELECT user_id, question, content, created_at
		FROM (
			SELECT r.user_id, p.question, r.content, r.created_at,
				ROW_NUMBER() OVER (PARTITION BY r.user_id ORDER BY r.created_at DESC, r.id DESC) AS rn
			FROM prompt_responses r
			JOIN prompts p ON p.id = r.prompt_id
			WHERE r.user_id = ANY($1) AND r.created_at >= $2
		) ranked
		WHERE rn <= $3
		ORDER BY user_id, created_at DESC
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, userIDs, since, perUser)
	if err != nil {
		return nil, wrapErr("list recent responses", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		var view models.ResponseView
		if err := rows.Scan(&userID, &view.Question, &view.Content, &view.CreatedAt); err != nil {
			return nil, wrapErr("scan response", err)
		}
		result[userID] = append(result[userID], view)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate responses", err)
	}
	return result, nil
}
