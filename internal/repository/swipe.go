package repository

import (
	"context"

	"promptmatch-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SwipeRepository handles database operations for swipes
type SwipeRepository struct {
	db *pgxpool.Pool
}

// NewSwipeRepository creates a new swipe repository
func NewSwipeRepository(db *pgxpool.Pool) *SwipeRepository {
	return &SwipeRepository{db: db}
}

// LockPair takes a transaction-scoped advisory lock on the unordered pair {a, b}.
// Two swipes completing the same pair from opposite sides queue behind each other,
// so the second one always sees the first one's like.
func (r *SwipeRepository) LockPair(ctx context.Context, a, b string) error {
	userA, userB := models.CanonicalPair(a, b)
	_, err := conn(ctx, r.db).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, userA+":"+userB)
	return wrapErr("lock swipe pair", err)
}

// Create records a swipe. A second swipe for the same (swiper, swiped) fails with ErrConflict.
func (r *SwipeRepository) Create(ctx context.Context, swipe *models.Swipe) error {
	query := `
		INSERT INTO swipes (id, swiper_id, swiped_id, direction, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := conn(ctx, r.db).Exec(ctx, query,
		swipe.ID, swipe.SwiperID, swipe.SwipedID, swipe.Direction, swipe.CreatedAt,
	)
	return wrapErr("create swipe", err)
}

// HasLike checks whether swiperID liked swipedID
func (r *SwipeRepository) HasLike(ctx context.Context, swiperID, swipedID string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM swipes
			WHERE swiper_id = $1 AND swiped_id = $2 AND direction = 'like'
		)
	`
	var exists bool
	if err := conn(ctx, r.db).QueryRow(ctx, query, swiperID, swipedID).Scan(&exists); err != nil {
		return false, wrapErr("check like", err)
	}
	return exists, nil
}
