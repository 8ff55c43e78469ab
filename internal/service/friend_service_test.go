package service

import (
	"context"
	"net/http"
	"testing"

	"lcnetwork/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) friendRows(t *testing.T, a, b uint) []models.Friendship {
	t.Helper()
	var rows []models.Friendship
	err := e.db.Where("(user_id = ? AND friend_id = ?) OR (user_id = ? AND friend_id = ?)", a, b, b, a).
		Order("user_id").Find(&rows).Error
	require.NoError(t, err)
	return rows
}

func TestFriendService_RequestAcceptUnfriend(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	require.NoError(t, env.friends.SendRequest(ctx, alice.ID, bob.ID))
	rows := env.friendRows(t, alice.ID, bob.ID)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, models.FriendshipStatusPending, r.Status)
		assert.Equal(t, alice.ID, r.RequesterID)
	}

	incoming, err := env.friends.Incoming(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].User.Username)

	notes := env.notificationsFor(t, bob.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyFriendRequest, notes[0].Type)

	require.NoError(t, env.friends.Accept(ctx, bob.ID, alice.ID))
	for _, r := range env.friendRows(t, alice.ID, bob.ID) {
		assert.Equal(t, models.FriendshipStatusAccepted, r.Status)
	}

	friends, err := env.friends.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, bob.ID, friends[0].ID)

	accepted := env.notificationsFor(t, alice.ID)
	require.Len(t, accepted, 1)
	assert.Equal(t, models.NotifyFriendAccept, accepted[0].Type)

	require.NoError(t, env.friends.Unfriend(ctx, bob.ID, alice.ID))
	assert.Empty(t, env.friendRows(t, alice.ID, bob.ID))
}

func TestFriendService_SendRequestErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	err := env.friends.SendRequest(ctx, alice.ID, alice.ID)
	require.Error(t, err)
	assert.Equal(t, "Cannot send friend request to yourself", err.Error())

	err = env.friends.SendRequest(ctx, alice.ID, 9999)
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	require.NoError(t, env.friends.SendRequest(ctx, alice.ID, bob.ID))
	err = env.friends.SendRequest(ctx, alice.ID, bob.ID)
	require.Error(t, err)
	assert.Equal(t, "Friend request already sent", err.Error())

	// The reverse direction sees the same pending pair.
	err = env.friends.SendRequest(ctx, bob.ID, alice.ID)
	require.Error(t, err)
	assert.Equal(t, "Friend request already sent", err.Error())

	require.NoError(t, env.friends.Accept(ctx, bob.ID, alice.ID))
	err = env.friends.SendRequest(ctx, alice.ID, bob.ID)
	require.Error(t, err)
	assert.Equal(t, "Already friends", err.Error())
}

func TestFriendService_RequesterCannotAccept(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	require.NoError(t, env.friends.SendRequest(ctx, alice.ID, bob.ID))
	err := env.friends.Accept(ctx, alice.ID, bob.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	for _, r := range env.friendRows(t, alice.ID, bob.ID) {
		assert.Equal(t, models.FriendshipStatusPending, r.Status)
	}
}

func TestFriendService_RejectAllowsNewRequest(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	require.NoError(t, env.friends.SendRequest(ctx, alice.ID, bob.ID))
	require.NoError(t, env.friends.Reject(ctx, bob.ID, alice.ID))
	assert.Empty(t, env.friendRows(t, alice.ID, bob.ID))

	require.NoError(t, env.friends.SendRequest(ctx, bob.ID, alice.ID))
	rows := env.friendRows(t, alice.ID, bob.ID)
	require.Len(t, rows, 2)
	assert.Equal(t, bob.ID, rows[0].RequesterID)
}

func TestBlockService_BlockReplacesFriendship(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	require.NoError(t, env.friends.SendRequest(ctx, alice.ID, bob.ID))
	require.NoError(t, env.friends.Accept(ctx, bob.ID, alice.ID))

	require.NoError(t, env.blocks.Block(ctx, alice.ID, bob.ID))
	rows := env.friendRows(t, alice.ID, bob.ID)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, models.FriendshipStatusBlocked, r.Status)
	}

	err := env.friends.SendRequest(ctx, bob.ID, alice.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(err))

	// Unfriend leaves blocked pairs alone.
	require.NoError(t, env.friends.Unfriend(ctx, bob.ID, alice.ID))
	assert.Len(t, env.friendRows(t, alice.ID, bob.ID), 2)

	blocked, err := env.blocks.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, blocked, 1)
	assert.Equal(t, bob.ID, blocked[0].ID)

	require.NoError(t, env.blocks.Unblock(ctx, alice.ID, bob.ID))
	assert.Empty(t, env.friendRows(t, alice.ID, bob.ID))
	require.NoError(t, env.friends.SendRequest(ctx, bob.ID, alice.ID))
}

func TestBlockService_MutualBlockKeepsPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	require.NoError(t, env.blocks.Block(ctx, alice.ID, bob.ID))
	require.NoError(t, env.blocks.Block(ctx, bob.ID, alice.ID))
	require.NoError(t, env.blocks.Unblock(ctx, alice.ID, bob.ID))

	assert.Len(t, env.friendRows(t, alice.ID, bob.ID), 2)
	err := env.friends.SendRequest(ctx, alice.ID, bob.ID)
	assert.Equal(t, http.StatusForbidden, statusOf(err))
}

func TestBlockService_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	assert.Equal(t, http.StatusBadRequest, statusOf(env.blocks.Block(ctx, alice.ID, alice.ID)))
	assert.Equal(t, http.StatusNotFound, statusOf(env.blocks.Block(ctx, alice.ID, 4242)))
	assert.Equal(t, http.StatusNotFound, statusOf(env.blocks.Unblock(ctx, alice.ID, bob.ID)))
}
