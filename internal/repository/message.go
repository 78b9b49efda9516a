package repository

import (
	"context"

	"promptmatch-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepository handles database operations for chat messages
type MessageRepository struct {
	db *pgxpool.Pool
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

// Append stores a message and fills in its ID and Position.
// The position counter lives on the match row, so concurrent appends to one match serialize on it.
func (r *MessageRepository) Append(ctx context.Context, msg *models.Message) error {
	query := `
		WITH seq AS (
			UPDATE matches
			SET last_message_position = last_message_position + 1
			WHERE id = $1
			RETURNING last_message_position
		)
		INSERT INTO messages (match_id, sender_id, content, position, created_at)
		SELECT $1, $2, $3, seq.last_message_position, $4
		FROM seq
		RETURNING id, position
	`
	err := conn(ctx, r.db).QueryRow(ctx, query, msg.MatchID, msg.SenderID, msg.Content, msg.CreatedAt).Scan(
		&msg.ID, &msg.Position,
	)
	return wrapErr("append message", err)
}

// ListByMatch retrieves messages of a match with Position greater than after, oldest first
func (r *MessageRepository) ListByMatch(ctx context.Context, matchID string, after int64) ([]*models.Message, error) {
	query := `
		SELECT id, match_id, sender_id, content, position, created_at
		FROM messages
		WHERE match_id = $1 AND position > $2
		ORDER BY position ASC
	`
	rows, err := conn(ctx, r.db).Query(ctx, query, matchID, after)
	if err != nil {
		return nil, wrapErr("list messages", err)
	}
	defer rows.Close()

	messages := []*models.Message{}
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(
			&msg.ID, &msg.MatchID, &msg.SenderID, &msg.Content, &msg.Position, &msg.CreatedAt,
		); err != nil {
			return nil, wrapErr("scan message", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate messages", err)
	}
	return messages, nil
}

// LastPosition returns the position of the newest message of a match, 0 when empty
func (r *MessageRepository) LastPosition(ctx context.Context, matchID string) (int64, error) {
	query := `SELECT last_message_position FROM matches WHERE id = $1`
	var position int64
	if err := conn(ctx, r.db).QueryRow(ctx, query, matchID).Scan(&position); err != nil {
		return 0, wrapErr("get last message position", err)
	}
	return position, nil
}
