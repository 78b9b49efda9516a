package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListMatchesNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "alice")
	bob := f.addUser(t, "bob")
	f.addUser(t, "carol")
	ref := "users/bob/b.jpg"
	bob.PhotoRef = &ref
	require.NoError(t, f.stores.Users.Update(ctx, bob))

	f.addMatch(t, "m-old", "alice", "bob", testNow.Add(-time.Hour))
	f.addMatch(t, "m-new", "carol", "alice", testNow)

	svc := NewMatchService(f.stores.Matches, f.stores.Users, fakePhotos{})
	views, err := svc.ListMatches(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, "m-new", views[0].ID)
	assert.Equal(t, "carol", views[0].OtherUser.ID)
	assert.Equal(t, testNow, views[0].MatchedAt)
	assert.Equal(t, "m-old", views[1].ID)
	assert.Equal(t, "bob", views[1].OtherUser.ID)
	assert.Equal(t, "https://photos.test/users/bob/b.jpg", views[1].OtherUser.PhotoURL)

	none, err := svc.ListMatches(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetMatchAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "alice")
	f.addUser(t, "bob")
	f.addUser(t, "carol")
	f.addMatch(t, "m1", "alice", "bob", testNow)

	svc := NewMatchService(f.stores.Matches, f.stores.Users, fakePhotos{})

	view, err := svc.GetMatch(ctx, "m1", "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", view.OtherUser.ID)

	_, err = svc.GetMatch(ctx, "m1", "carol")
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.GetMatch(ctx, "missing", "alice")
	assert.ErrorIs(t, err, ErrNotFound)
}
