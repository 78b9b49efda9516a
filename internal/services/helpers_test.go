package services

import (
	"context"
	"testing"
	"time"

	"promptmatch-backend/internal/models"
	"promptmatch-backend/internal/repository/memory"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

type fixture struct {
	store  *memory.Store
	stores Stores
	users  int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	return &fixture{
		store: store,
		stores: Stores{
			Tx:         store,
			Users:      store.Users(),
			Prompts:    store.Prompts(),
			Candidates: store.Candidates(),
			Swipes:     store.Swipes(),
			Matches:    store.Matches(),
			Messages:   store.Messages(),
			Invites:    store.Invites(),
		},
	}
}

// addUser creates accounts in call order, one minute apart
func (f *fixture) addUser(t *testing.T, id string) *models.User {
	t.Helper()
	f.users++
	user := &models.User{
		ID:        id,
		Name:      "Name " + id,
		School:    "State University",
		CreatedAt: testNow.AddDate(0, -1, 0).Add(time.Duration(f.users) * time.Minute),
	}
	user.UpdatedAt = user.CreatedAt
	require.NoError(t, f.stores.Users.Create(context.Background(), user))
	return user
}

// respond stores an answer of userID to the prompt of day, created at at
func (f *fixture) respond(t *testing.T, userID, day, content string, at time.Time) {
	t.Helper()
	ctx := context.Background()
	prompt := &models.Prompt{ID: "prompt-" + day, Day: day, Question: "Question of " + day, CreatedAt: at}
	require.NoError(t, f.stores.Prompts.Upsert(ctx, prompt))
	require.NoError(t, f.stores.Prompts.UpsertResponse(ctx, &models.PromptResponse{
		ID:        uuid.New().String(),
		UserID:    userID,
		PromptID:  prompt.ID,
		Content:   content,
		CreatedAt: at,
		UpdatedAt: at,
	}))
}

func (f *fixture) addMatch(t *testing.T, id, a, b string, at time.Time) *models.Match {
	t.Helper()
	match, created, err := f.stores.Matches.CreateIfAbsent(context.Background(), &models.Match{
		ID: id, UserAID: a, UserBID: b, CreatedAt: at,
	})
	require.NoError(t, err)
	require.True(t, created)
	return match
}

type fakePhotos struct{}

func (fakePhotos) ResolveURL(_ context.Context, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	return "https://photos.test/" + ref, nil
}
