package repository

import (
	"context"
	"time"

	"promptmatch-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// InviteRepository handles database operations for invites
type InviteRepository struct {
	db *pgxpool.Pool
}

// NewInviteRepository creates a new invite repository
func NewInviteRepository(db *pgxpool.Pool) *InviteRepository {
	return &InviteRepository{db: db}
}

// Create creates a new invite. A code collision fails with ErrConflict.
func (r *InviteRepository) Create(ctx context.Context, invite *models.Invite) error {
	query := `
		INSERT INTO invites (code, created_by, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := conn(ctx, r.db).Exec(ctx, query, invite.Code, invite.CreatedBy, invite.CreatedAt)
	return wrapErr("create invite", err)
}

// Consume marks an unused invite as used by userID. Unknown, used, or self-created
// codes fail with ErrNotFound.
func (r *InviteRepository) Consume(ctx context.Context, code, userID string, at time.Time) (*models.Invite, error) {
	query := `
		UPDATE invites
		SET used_by = $2, used_at = $3
		WHERE code = $1
			AND used_by IS NULL
			AND (created_by IS NULL OR created_by <> $2)
		RETURNING code, created_by, used_by, used_at, created_at
	`
	var invite models.Invite
	err := conn(ctx, r.db).QueryRow(ctx, query, code, userID, at).Scan(
		&invite.Code, &invite.CreatedBy, &invite.UsedBy, &invite.UsedAt, &invite.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr("consume invite", err)
	}
	return &invite, nil
}

// ListByCreator retrieves the invites created by a user, newest first
func (r *InviteRepository) ListByCreator(ctx context.Context, creatorID string) ([]*models.Invite, error) {
	query := `
		SELECT code, created_by, used_by, used_at, created_at
		FROM invites
		WHERE created_by = $1
		ORDER BY created_at DESC, code ASC
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, creatorID)
	if err != nil {
		return nil, wrapErr("list invites", err)
	}
	defer rows.Close()

	invites := []*models.Invite{}
	for rows.Next() {
		var invite models.Invite
		if err := rows.Scan(
			&invite.Code, &invite.CreatedBy, &invite.UsedBy, &invite.UsedAt, &invite.CreatedAt,
		); err != nil {
			return nil, wrapErr("scan invite", err)
		}
		invites = append(invites, &invite)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate invites", err)
	}
	return invites, nil
}
