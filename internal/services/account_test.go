package services

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"promptmatch-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var inviteCodePattern = regexp.MustCompile(`^[A-Z0-9]{8}$`)

func newAccountService(f *fixture) *AccountService {
	svc := NewAccountService(f.stores.Tx, f.stores.Users, f.stores.Invites, f.stores.Prompts, fakePhotos{})
	svc.now = fixedClock
	return svc
}

func ptr(s string) *string { return &s }

func TestCreateInvite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "alice")
	svc := newAccountService(f)

	invite, err := svc.CreateInvite(ctx, "alice")
	require.NoError(t, err)
	assert.Regexp(t, inviteCodePattern, invite.Code)
	require.NotNil(t, invite.CreatedBy)
	assert.Equal(t, "alice", *invite.CreatedBy)

	seeded, err := svc.CreateInvite(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, seeded.CreatedBy)

	_, err = svc.CreateInvite(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)

	invites, err := svc.ListInvites(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, invites, 1)
	assert.Equal(t, invite.Code, invites[0].Code)
}

func TestCreateAccountRedeemsInviteOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "alice")
	svc := newAccountService(f)
	invite, err := svc.CreateInvite(ctx, "alice")
	require.NoError(t, err)

	user, err := svc.CreateAccount(ctx, "bob", strings.ToLower(invite.Code), " Bob ", " State ")
	require.NoError(t, err)
	assert.Equal(t, "Bob", user.Name)
	assert.Equal(t, "State", user.School)
	assert.Equal(t, testNow, user.CreatedAt)

	invites, err := svc.ListInvites(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, invites[0].UsedBy)
	assert.Equal(t, "bob", *invites[0].UsedBy)

	_, err = svc.CreateAccount(ctx, "carol", invite.Code, "Carol", "State")
	assert.ErrorIs(t, err, ErrInvalidInvite)
}

func TestCreateAccountRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "alice")
	svc := newAccountService(f)

	invite, err := svc.CreateInvite(ctx, "alice")
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, "alice", invite.Code, "Alice", "State")
	assert.ErrorIs(t, err, ErrAccountExists)

	_, err = svc.CreateAccount(ctx, "bob", "NOPE1234", "Bob", "State")
	assert.ErrorIs(t, err, ErrInvalidInvite)
	_, err = svc.CreateAccount(ctx, "bob", "short", "Bob", "State")
	assert.ErrorIs(t, err, ErrInvalidInvite)
	_, err = svc.CreateAccount(ctx, "bob", invite.Code, "", "State")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.CreateAccount(ctx, "bob", invite.Code, "Bob", strings.Repeat("s", 101))
	assert.ErrorIs(t, err, ErrValidation)

	// Operator invites created for a future user cannot be redeemed by that user.
	require.NoError(t, f.stores.Invites.Create(ctx, &models.Invite{Code: "SELF0001", CreatedBy: ptr("dave"), CreatedAt: testNow}))
	_, err = svc.CreateAccount(ctx, "dave", "SELF0001", "Dave", "State")
	assert.ErrorIs(t, err, ErrInvalidInvite)

	// None of the failures consumed the invite.
	_, err = svc.CreateAccount(ctx, "bob", invite.Code, "Bob", "State")
	assert.NoError(t, err)
}

func TestProfileUpdates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.addUser(t, "alice")
	f.respond(t, "alice", "2026-10-18", "coffee", testNow)
	svc := newAccountService(f)

	profile, err := svc.UpdateProfile(ctx, "alice", ProfilePatch{
		Name:      ptr("Alice B"),
		PhotoRef:  ptr("users/alice/p.jpg"),
		PushToken: ptr("device-token"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice B", profile.Name)
	assert.Equal(t, "State University", profile.School)
	assert.Equal(t, "https://photos.test/users/alice/p.jpg", profile.PhotoURL)
	require.Len(t, profile.Responses, 1)
	assert.Equal(t, "coffee", profile.Responses[0].Content)

	stored, err := f.stores.Users.GetByID(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, stored.PushToken)
	assert.Equal(t, "device-token", *stored.PushToken)

	for _, ref := range []string{"users/bob/p.jpg", "users/alice/../bob/p.jpg", "users/alice/", "elsewhere.jpg"} {
		_, err := svc.UpdateProfile(ctx, "alice", ProfilePatch{PhotoRef: ptr(ref)})
		assert.ErrorIs(t, err, ErrValidation, ref)
	}
	_, err = svc.UpdateProfile(ctx, "alice", ProfilePatch{Name: ptr("  ")})
	assert.ErrorIs(t, err, ErrValidation)

	profile, err = svc.UpdateProfile(ctx, "alice", ProfilePatch{PhotoRef: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, profile.PhotoRef)
	assert.Empty(t, profile.PhotoURL)

	_, err = svc.GetProfile(ctx, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
