package repository

import (
	"context"

	"promptmatch-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, name, school, photo_ref, push_token, created_at, updated_at`

// UserRepository handles database operations for users
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, school, photo_ref, push_token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := conn(ctx, r.db).Exec(ctx, query,
		user.ID, user.Name, user.School, user.PhotoRef, user.PushToken, user.CreatedAt, user.UpdatedAt,
	)
	return wrapErr("create user", err)
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user models.User
	err := conn(ctx, r.db).QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Name, &user.School, &user.PhotoRef, &user.PushToken, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, wrapErr("get user", err)
	}
	return &user, nil
}

// GetByIDs retrieves the users that exist among ids, in no particular order
func (r *UserRepository) GetByIDs(ctx context.Context, ids []string) ([]*models.User, error) {
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1)`
	rows, err := conn(ctx, r.db).Query(ctx, query, ids)
	if err != nil {
		return nil, wrapErr("get users", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0, len(ids))
	for rows.Next() {
		var user models.User
		if err := rows.Scan(
			&user.ID, &user.Name, &user.School, &user.PhotoRef, &user.PushToken, &user.CreatedAt, &user.UpdatedAt,
		); err != nil {
			return nil, wrapErr("scan user", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("iterate users", err)
	}
	return users, nil
}

// Update overwrites the mutable profile fields of a user
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET name = $2, school = $3, photo_ref = $4, push_token = $5, updated_at = $6
		WHERE id = $1
	`
	result, err := conn(ctx, r.db).Exec(ctx, query,
		user.ID, user.Name, user.School, user.PhotoRef, user.PushToken, user.UpdatedAt,
	)
	if err != nil {
		return wrapErr("update user", err)
	}
	if result.RowsAffected() == 0 {
		return wrapErr("update user", ErrNotFound)
	}
	return nil
}
