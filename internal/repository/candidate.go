package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CandidateRepository answers feed eligibility queries
type CandidateRepository struct {
	db *pgxpool.Pool
}

// NewCandidateRepository creates a new candidate repository
func NewCandidateRepository(db *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// ListEligible returns ids of users other than userID that userID never swiped and that
// answered a prompt at or after since, in account creation order.
func (r *CandidateRepository) ListEligible(ctx context.Context, userID string, since time.Time, limit int) ([]string, error) {
	query := `
		SELECT u.id
		FROM users u
		WHERE u.id <> $1
			AND NOT EXISTS (
				SELECT 1 FROM swipes s
				WHERE s.swiper_id = $1 AND s.swiped_id = u.id
			)
			AND EXISTS (
				SELECT 1 FROM prompt_responses r
				WHERE r.user_id = u.id AND r.created_at >= $2
			)
		ORDER BY u.created_at ASC, u.id ASC
		LIMIT $3
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, userID, since, limit)
	if err != nil {
		return nil, wrapErr("list eligible candidates", err)
	}
	defer rows.Close()

	ids := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, wrapErr("scan candidate", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate candidates", err)
	}
	return ids, nil
}
