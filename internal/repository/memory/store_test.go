package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"promptmatch-backend/internal/models"
	"promptmatch-backend/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func seedUsers(t *testing.T, s *Store, ids ...string) {
	t.Helper()
	for i, id := range ids {
		require.NoError(t, s.Users().Create(context.Background(), &models.User{
			ID: id, Name: id, School: "State", CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
}

func TestUserCreateConflict(t *testing.T) {
	s := New()
	seedUsers(t, s, "alice")

	err := s.Users().Create(context.Background(), &models.User{ID: "alice"})
	assert.ErrorIs(t, err, repository.ErrConflict)

	_, err = s.Users().GetByID(context.Background(), "bob")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestListEligibleFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUsers(t, s, "alice", "bob", "carol", "dave")

	prompt := &models.Prompt{ID: "p1", Day: "2026-10-18", Question: "Q?"}
	require.NoError(t, s.Prompts().Upsert(ctx, prompt))
	old := &models.Prompt{ID: "p0", Day: "2026-10-01", Question: "Old?"}
	require.NoError(t, s.Prompts().Upsert(ctx, old))

	for _, id := range []string{"alice", "bob", "carol"} {
		require.NoError(t, s.Prompts().UpsertResponse(ctx, &models.PromptResponse{
			ID: "r-" + id, UserID: id, PromptID: "p1", Content: "hi", CreatedAt: base, UpdatedAt: base,
		}))
	}
	// dave answered only long ago
	require.NoError(t, s.Prompts().UpsertResponse(ctx, &models.PromptResponse{
		ID: "r-dave", UserID: "dave", PromptID: "p0", Content: "old", CreatedAt: base.AddDate(0, 0, -17), UpdatedAt: base,
	}))
	require.NoError(t, s.Swipes().Create(ctx, &models.Swipe{ID: "s1", SwiperID: "alice", SwipedID: "bob", Direction: models.DirectionPass}))

	ids, err := s.Candidates().ListEligible(ctx, "alice", base.AddDate(0, 0, -7), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, ids)

	ids, err = s.Candidates().ListEligible(ctx, "dave", base.AddDate(0, 0, -7), 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, ids)
}

func TestUpsertResponseKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUsers(t, s, "alice")
	require.NoError(t, s.Prompts().Upsert(ctx, &models.Prompt{ID: "p1", Day: "2026-10-18", Question: "Q?"}))

	first := &models.PromptResponse{ID: "r1", UserID: "alice", PromptID: "p1", Content: "one", CreatedAt: base, UpdatedAt: base}
	require.NoError(t, s.Prompts().UpsertResponse(ctx, first))

	later := base.Add(time.Hour)
	second := &models.PromptResponse{ID: "r2", UserID: "alice", PromptID: "p1", Content: "two", CreatedAt: later, UpdatedAt: later}
	require.NoError(t, s.Prompts().UpsertResponse(ctx, second))

	assert.Equal(t, "r1", second.ID)
	assert.Equal(t, base, second.CreatedAt)

	got, err := s.Prompts().GetResponse(ctx, "alice", "p1")
	require.NoError(t, err)
	assert.Equal(t, "two", got.Content)
}

func TestMessagePositionsAreContiguousUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUsers(t, s, "alice", "bob")
	_, _, err := s.Matches().CreateIfAbsent(ctx, &models.Match{ID: "m1", UserAID: "bob", UserBID: "alice", CreatedAt: base})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Messages().Append(ctx, &models.Message{MatchID: "m1", SenderID: "alice", Content: "x", CreatedAt: base}))
		}()
	}
	wg.Wait()

	msgs, err := s.Messages().ListByMatch(ctx, "m1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 50)
	for i, msg := range msgs {
		assert.Equal(t, int64(i+1), msg.Position)
	}

	last, err := s.Messages().LastPosition(ctx, "m0")
	require.NoError(t, err)
	assert.Equal(t, int64(50), last)

	tail, err := s.Messages().ListByMatch(ctx, "m1", 48)
	require.NoError(t, err)
	assert.Len(t, tail, 2)
}

func TestMatchIsStoredCanonically(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, ok, err := s.Matches().CreateIfAbsent(ctx, &models.Match{ID: "m1", UserAID: "zed", UserBID: "amy", CreatedAt: base})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "amy", created.UserAID)
	assert.Equal(t, "zed", created.UserBID)

	again, ok, err := s.Matches().CreateIfAbsent(ctx, &models.Match{ID: "m2", UserAID: "amy", UserBID: "zed", CreatedAt: base})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "m1", again.ID)
}

func TestInviteConsumedOnce(t *testing.T) {
	ctx := context.Background()
	s := New()
	creator := "alice"
	require.NoError(t, s.Invites().Create(ctx, &models.Invite{Code: "ABCD1234", CreatedBy: &creator, CreatedAt: base}))

	_, err := s.Invites().Consume(ctx, "ABCD1234", "alice", base)
	assert.ErrorIs(t, err, repository.ErrNotFound, "creator cannot redeem own invite")

	invite, err := s.Invites().Consume(ctx, "ABCD1234", "bob", base)
	require.NoError(t, err)
	require.NotNil(t, invite.UsedBy)
	assert.Equal(t, "bob", *invite.UsedBy)

	_, err = s.Invites().Consume(ctx, "ABCD1234", "carol", base)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCancelledContextIsUnavailable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().Users().GetByID(ctx, "alice")
	assert.ErrorIs(t, err, repository.ErrUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithinTxUndoesWritesOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedUsers(t, s, "alice", "bob", "erin")
	require.NoError(t, s.Invites().Create(ctx, &models.Invite{Code: "ABCD1234", CreatedAt: base}))
	_, _, err := s.Matches().CreateIfAbsent(ctx, &models.Match{ID: "m0", UserAID: "bob", UserBID: "erin"})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Swipes().Create(ctx, &models.Swipe{ID: "s1", SwiperID: "alice", SwipedID: "bob", Direction: models.DirectionLike}))
		_, created, err := s.Matches().CreateIfAbsent(ctx, &models.Match{ID: "m1", UserAID: "alice", UserBID: "bob"})
		require.NoError(t, err)
		require.True(t, created)
		_, err = s.Invites().Consume(ctx, "ABCD1234", "carol", base)
		require.NoError(t, err)
		require.NoError(t, s.Users().Create(ctx, &models.User{ID: "carol"}))

		// written outside the transaction, so it survives the rollback
		require.NoError(t, s.Messages().Append(context.Background(), &models.Message{MatchID: "m0", SenderID: "bob", Content: "hi"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	liked, err := s.Swipes().HasLike(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, liked)

	_, err = s.Matches().GetByID(ctx, "m1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	matches, err := s.Matches().ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = s.Users().GetByID(ctx, "carol")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.Invites().Consume(ctx, "ABCD1234", "dave", base)
	assert.NoError(t, err, "the invite is unused again")

	last, err := s.Messages().LastPosition(ctx, "m0")
	require.NoError(t, err)
	assert.Equal(t, int64(1), last)

	// the same writes commit when the transaction succeeds
	err = s.WithinTx(ctx, func(ctx context.Context) error {
		return s.Swipes().Create(ctx, &models.Swipe{ID: "s2", SwiperID: "alice", SwipedID: "bob", Direction: models.DirectionLike})
	})
	require.NoError(t, err)
	liked, err = s.Swipes().HasLike(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.True(t, liked)
}
