package service

import (
	"context"
	"net/http"
	"testing"

	"lcnetwork/internal/cache"
	"lcnetwork/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	prev := cache.GetClient()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(prev)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
}

func TestNotificationService_UnreadCountCachedAndInvalidated(t *testing.T) {
	mr := withMiniredis(t)
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	env.notifications.Send(ctx, Notice{UserID: u.ID, Type: models.NotifyLike, Title: "a", Message: "a"})
	n, err := env.notifications.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.True(t, mr.Exists(cache.UnreadCountKey(u.ID)))

	env.notifications.Send(ctx, Notice{UserID: u.ID, Type: models.NotifyComment, Title: "b", Message: "b"})
	assert.False(t, mr.Exists(cache.UnreadCountKey(u.ID)))

	n, err = env.notifications.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	marked, err := env.notifications.MarkAllRead(ctx, u.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, marked)
	assert.False(t, mr.Exists(cache.UnreadCountKey(u.ID)))

	n, err = env.notifications.UnreadCount(ctx, u.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestNotificationService_ListAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	for _, title := range []string{"first", "second", "third"} {
		env.notifications.Send(ctx, Notice{UserID: alice.ID, Type: models.NotifyLike, Title: title, Message: title})
	}

	list, err := env.notifications.List(ctx, alice.ID, false, defaultPage())
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	assert.Equal(t, "third", list.Items[0].Title)
	assert.EqualValues(t, 3, list.UnreadCount)

	target := list.Items[0].ID
	assert.Equal(t, http.StatusNotFound, statusOf(env.notifications.MarkRead(ctx, target, bob.ID)))
	require.NoError(t, env.notifications.MarkRead(ctx, target, alice.ID))

	unread, err := env.notifications.List(ctx, alice.ID, true, defaultPage())
	require.NoError(t, err)
	assert.Len(t, unread.Items, 2)
	assert.EqualValues(t, 2, unread.UnreadCount)
	assert.EqualValues(t, 2, unread.Total)
}

func TestNotificationService_SendSkipsMissingRecipient(t *testing.T) {
	env := newTestEnv(t)
	env.notifications.Send(context.Background(), Notice{Type: models.NotifyLike, Title: "x"})

	var count int64
	require.NoError(t, env.db.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)

	var nilService *NotificationService
	nilService.Send(context.Background(), Notice{UserID: 1})
}
