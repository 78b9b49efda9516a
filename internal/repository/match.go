package repository

import (
	"context"
	"errors"

	"promptmatch-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MatchRepository handles database operations for matches
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// CreateIfAbsent inserts the match unless its canonical pair already has one.
// It returns the stored match and whether this call created it.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, bool, error) {
	userA, userB := models.CanonicalPair(match.UserAID, match.UserBID)
	q := conn(ctx, r.db)

	query := `
		INSERT INTO matches (id, user_a_id, user_b_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_a_id, user_b_id) DO NOTHING
		RETURNING id, user_a_id, user_b_id, created_at
	`
	var created models.Match
	err := q.QueryRow(ctx, query, match.ID, userA, userB, match.CreatedAt).Scan(
		&created.ID, &created.UserAID, &created.UserBID, &created.CreatedAt,
	)
	if err == nil {
		return &created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, wrapErr("create match", err)
	}

	existing, err := r.getByPair(ctx, q, userA, userB)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *MatchRepository) getByPair(ctx context.Context, q querier, userA, userB string) (*models.Match, error) {
	query := `
		SELECT id, user_a_id, user_b_id, created_at
		FROM matches
		WHERE user_a_id = $1 AND user_b_id = $2
	`
	var match models.Match
	err := q.QueryRow(ctx, query, userA, userB).Scan(
		&match.ID, &match.UserAID, &match.UserBID, &match.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr("get match by pair", err)
	}
	return &match, nil
}

// GetByID retrieves a match by ID
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `
		SELECT id, user_a_id, user_b_id, created_at
		FROM matches
		WHERE id = $1
	`
	var match models.Match
	err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&match.ID, &match.UserAID, &match.UserBID, &match.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr("get match", err)
	}
	return &match, nil
}

// ListByUser retrieves the matches of a user, newest first
func (r *MatchRepository) ListByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	query := `
		SELECT id, user_a_id, user_b_id, created_at
		FROM matches
		WHERE user_a_id = $1 OR user_b_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		return nil, wrapErr("list matches", err)
	}
	defer rows.Close()

	matches := []*models.Match{}
	for rows.Next() {
		var match models.Match
		if err := rows.Scan(&match.ID, &match.UserAID, &match.UserBID, &match.CreatedAt); err != nil {
			return nil, wrapErr("scan match", err)
		}
		matches = append(matches, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate matches", err)
	}
	return matches, nil
}
