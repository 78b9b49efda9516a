package services

import (
	"context"
	"time"

	"promptmatch-backend/internal/models"
)

// UserStore persists accounts
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// PromptStore persists daily prompts and the answers to them
type PromptStore interface {
	Upsert(ctx context.Context, prompt *models.Prompt) error
	GetByDay(ctx context.Context, day string) (*models.Prompt, error)
	UpsertResponse(ctx context.Context, resp *models.PromptResponse) error
	GetResponse(ctx context.Context, userID, promptID string) (*models.PromptResponse, error)
	ListRecentResponses(ctx context.Context, userIDs []string, since time.Time, perUser int) (map[string][]models.ResponseView, error)
}

// CandidateStore answers feed eligibility queries
type CandidateStore interface {
	ListEligible(ctx context.Context, userID string, since time.Time, limit int) ([]string, error)
}

// SwipeStore persists swipes
type SwipeStore interface {
	LockPair(ctx context.Context, a, b string) error
	Create(ctx context.Context, swipe *models.Swipe) error
	HasLike(ctx context.Context, swiperID, swipedID string) (bool, error)
}

// MatchStore persists matches
type MatchStore interface {
	CreateIfAbsent(ctx context.Context, match *models.Match) (*models.Match, bool, error)
	GetByID(ctx context.Context, id string) (*models.Match, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Match, error)
}

// MessageStore persists chat messages
type MessageStore interface {
	Append(ctx context.Context, msg *models.Message) error
	ListByMatch(ctx context.Context, matchID string, after int64) ([]*models.Message, error)
	LastPosition(ctx context.Context, matchID string) (int64, error)
}

// InviteStore persists invite codes
type InviteStore interface {
	Create(ctx context.Context, invite *models.Invite) error
	Consume(ctx context.Context, code, userID string, at time.Time) (*models.Invite, error)
	ListByCreator(ctx context.Context, creatorID string) ([]*models.Invite, error)
}

// Transactor runs fn atomically. Stores called with the ctx passed to fn join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Stores bundles every store a deployment provides
type Stores struct {
	Tx         Transactor
	Users      UserStore
	Prompts    PromptStore
	Candidates CandidateStore
	Swipes     SwipeStore
	Matches    MatchStore
	Messages   MessageStore
	Invites    InviteStore
}
