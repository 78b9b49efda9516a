package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"promptmatch-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFeedService(f *fixture, opts FeedOptions) *FeedService {
	svc := NewFeedService(f.stores.Candidates, f.stores.Users, f.stores.Prompts, fakePhotos{}, opts)
	svc.now = fixedClock
	return svc
}

func TestComputeEligibleFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, id := range []string{"alice", "bob", "carol", "dave", "erin"} {
		f.addUser(t, id)
	}
	f.respond(t, "bob", "2026-10-17", "recent", testNow.AddDate(0, 0, -1))
	f.respond(t, "carol", "2026-10-08", "stale", testNow.AddDate(0, 0, -10))
	f.respond(t, "dave", "2026-10-16", "recent", testNow.AddDate(0, 0, -2))
	require.NoError(t, f.stores.Swipes.Create(ctx, &models.Swipe{ID: "s1", SwiperID: "alice", SwipedID: "dave", Direction: models.DirectionPass}))

	svc := newFeedService(f, FeedOptions{})

	ids, err := svc.ComputeEligible(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ids, "self, swiped, stale and silent users are excluded")

	ids, err = svc.ComputeEligible(ctx, "erin")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "dave"}, ids, "requester does not need a recent response")
}

func TestComputeEligibleEmptyAndLimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "alice")

	svc := newFeedService(f, FeedOptions{CandidateLimit: 2})
	ids, err := svc.ComputeEligible(ctx, "alice")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)

	for _, id := range []string{"bob", "carol", "dave"} {
		f.addUser(t, id)
		f.respond(t, id, "2026-10-18", "hi", testNow.Add(-time.Hour))
	}
	ids, err = svc.ComputeEligible(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, ids)
}

func TestBuildFeedAssemblesCards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	f.addUser(t, "carol")
	ref := "users/bob/photo.jpg"
	bob.PhotoRef = &ref
	require.NoError(t, f.stores.Users.Update(ctx, bob))

	f.respond(t, "bob", "2026-09-01", "too old", testNow.AddDate(0, 0, -30))
	for i := 0; i < 9; i++ {
		day := testNow.AddDate(0, 0, -i).Format(dayLayout)
		f.respond(t, "bob", day, fmt.Sprintf("answer %d", i), testNow.Add(-time.Duration(i)*time.Hour))
	}
	f.respond(t, "carol", "2026-09-02", "too old", testNow.AddDate(0, 0, -30))

	svc := newFeedService(f, FeedOptions{})
	feed, err := svc.BuildFeed(ctx, []string{"carol", "bob", "ghost"})
	require.NoError(t, err)

	require.Len(t, feed, 1, "candidates without a recent response and unknown ids are dropped")
	card := feed[0]
	assert.Equal(t, "bob", card.ID)
	assert.Equal(t, "Name bob", card.Name)
	assert.Equal(t, "State University", card.School)
	assert.Equal(t, "https://photos.test/users/bob/photo.jpg", card.PhotoURL)
	require.Len(t, card.Responses, 7)
	for i, resp := range card.Responses {
		assert.Equal(t, fmt.Sprintf("answer %d", i), resp.Content, "newest first")
		assert.NotEmpty(t, resp.Question)
	}
}

func TestBuildFeedPreservesOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, id := range []string{"bob", "carol", "dave"} {
		f.addUser(t, id)
		f.respond(t, id, "2026-10-18", "hi", testNow.Add(-time.Hour))
	}

	feed, err := newFeedService(f, FeedOptions{}).BuildFeed(ctx, []string{"dave", "bob", "carol"})
	require.NoError(t, err)

	ids := make([]string, 0, len(feed))
	for _, card := range feed {
		ids = append(ids, card.ID)
	}
	assert.Equal(t, []string{"dave", "bob", "carol"}, ids)

	empty, err := newFeedService(f, FeedOptions{}).BuildFeed(ctx, nil)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestFeedExcludesSwipedCandidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, id := range []string{"alice", "bob", "carol"} {
		f.addUser(t, id)
		f.respond(t, id, "2026-10-18", "hi from "+id, testNow.Add(-time.Hour))
	}
	feedSvc := newFeedService(f, FeedOptions{})
	swipeSvc := NewSwipeService(f.stores.Tx, f.stores.Swipes, f.stores.Users, f.stores.Matches, nil)

	feed, err := feedSvc.Feed(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, feed, 2)

	_, err = swipeSvc.RecordSwipe(ctx, "alice", "bob", models.DirectionLike)
	require.NoError(t, err)

	feed, err = feedSvc.Feed(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "carol", feed[0].ID)
	assert.Equal(t, "hi from carol", feed[0].Responses[0].Content)
}
