package server

import (
	"fmt"
	"net/http"
	"testing"

	"lcnetwork/internal/models"
	"lcnetwork/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func friendIDs(t *testing.T, body map[string]any) []uint {
	t.Helper()
	list, _ := body["friends"].([]any)
	ids := make([]uint, 0, len(list))
	for _, f := range list {
		ids = append(ids, uint(f.(map[string]any)["id"].(float64)))
	}
	return ids
}

func TestFriendFlow_RequestAcceptUnfriend(t *testing.T) {
	ts := newTestServer(t)
	a := ts.user(t, "alice")
	b := ts.user(t, "bob")
	aTok, bTok := ts.token(t, a), ts.token(t, b)

	status, body := ts.do(t, http.MethodPost, fmt.Sprintf("/api/friends/request/%d", b.ID), aTok, nil)
	require.Equal(t, http.StatusCreated, status, body)

	status, body = ts.do(t, http.MethodPost, fmt.Sprintf("/api/friends/request/%d", b.ID), aTok, nil)
	assert.Equal(t, http.StatusBadRequest, status, "duplicate request")
	assert.Equal(t, "Friend request already sent", body["error"])

	status, body = ts.do(t, http.MethodGet, "/api/friends/requests", bTok, nil)
	require.Equal(t, http.StatusOK, status)
	requests, _ := body["requests"].([]any)
	require.Len(t, requests, 1)

	status, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/api/friends/request/%d/accept", b.ID), aTok, nil)
	assert.Equal(t, http.StatusNotFound, status, "the sender cannot accept their own request")

	status, body = ts.do(t, http.MethodPost, fmt.Sprintf("/api/friends/request/%d/accept", a.ID), bTok, nil)
	require.Equal(t, http.StatusOK, status, body)

	_, body = ts.do(t, http.MethodGet, "/api/friends", aTok, nil)
	assert.Equal(t, []uint{b.ID}, friendIDs(t, body))
	_, body = ts.do(t, http.MethodGet, "/api/friends", bTok, nil)
	assert.Equal(t, []uint{a.ID}, friendIDs(t, body))

	_, body = ts.do(t, http.MethodGet, "/api/notifications", aTok, nil)
	list := items(body)
	require.Len(t, list, 1)
	assert.Equal(t, "friend_accept", list[0].(map[string]any)["type"])

	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/friends/%d", b.ID), aTok, nil)
	require.Equal(t, http.StatusOK, status)
	_, body = ts.do(t, http.MethodGet, "/api/friends", bTok, nil)
	assert.Empty(t, friendIDs(t, body))

	var rows int64
	require.NoError(t, ts.db.Model(&models.Friendship{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestFriendRequest_ToSelfAndBlocked(t *testing.T) {
	ts := newTestServer(t)
	a := ts.user(t, "alice")
	b := ts.user(t, "bob")
	aTok, bTok := ts.token(t, a), ts.token(t, b)

	status, _ := ts.do(t, http.MethodPost, fmt.Sprintf("/api/friends/request/%d", a.ID), aTok, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/api/users/%d/block", a.ID), bTok, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/api/friends/request/%d", b.ID), aTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	_, body := ts.do(t, http.MethodGet, "/api/users/blocks", bTok, nil)
	blocked, _ := body["blocked_users"].([]any)
	require.Len(t, blocked, 1)
	assert.Equal(t, "alice", blocked[0].(map[string]any)["username"])

	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/users/%d/block", a.ID), bTok, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/api/friends/request/%d", b.ID), aTok, nil)
	assert.Equal(t, http.StatusCreated, status)
}

func TestComments_OwnerDeletesCommentOnTheirPost(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.user(t, "owner")
	guest := ts.user(t, "guest")
	other := ts.user(t, "other")
	post := testutil.CreatePost(t, ts.db, owner.ID, "discuss", models.PostStatusPublished)

	status, body := ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), ts.token(t, guest),
		map[string]string{"content": "first!"})
	require.Equal(t, http.StatusCreated, status, body)
	commentID := uint(body["id"].(float64))

	status, body = ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), ts.token(t, other),
		map[string]any{"content": "reply", "parent_comment_id": commentID})
	require.Equal(t, http.StatusCreated, status, body)

	var stored models.Post
	require.NoError(t, ts.db.First(&stored, post.ID).Error)
	assert.Equal(t, 2, stored.CommentCount)

	_, body = ts.do(t, http.MethodGet, fmt.Sprintf("/api/posts/comments/%d/replies", commentID), ts.token(t, owner), nil)
	replies, _ := body["replies"].([]any)
	assert.Len(t, replies, 1)

	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/comments/%d", commentID), ts.token(t, other), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/comments/%d", commentID), ts.token(t, owner), nil)
	require.Equal(t, http.StatusOK, status)

	require.NoError(t, ts.db.First(&stored, post.ID).Error)
	assert.Equal(t, 0, stored.CommentCount)

	_, body = ts.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", post.ID), ts.token(t, owner), nil)
	assert.Empty(t, items(body))
}

func TestComments_EditOnlyByAuthor(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.user(t, "owner")
	guest := ts.user(t, "guest")
	post := testutil.CreatePost(t, ts.db, owner.ID, "discuss", models.PostStatusPublished)

	_, body := ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), ts.token(t, guest),
		map[string]string{"content": "tpyo"})
	path := fmt.Sprintf("/api/posts/comments/%d", uint(body["id"].(float64)))

	status, _ := ts.do(t, http.MethodPut, path, ts.token(t, owner), map[string]string{"content": "changed"})
	assert.Equal(t, http.StatusForbidden, status)

	status, body = ts.do(t, http.MethodPut, path, ts.token(t, guest), map[string]string{"content": "typo"})
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "typo", body["content"])
}

func TestNotifications_ReadStateAndFilter(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.user(t, "owner")
	fan := ts.user(t, "fan")
	ownerTok := ts.token(t, owner)
	post := testutil.CreatePost(t, ts.db, owner.ID, "popular", models.PostStatusPublished)

	ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", post.ID), ts.token(t, fan), nil)
	ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), ts.token(t, fan),
		map[string]string{"content": "nice"})

	_, body := ts.do(t, http.MethodGet, "/api/notifications/unread-count", ownerTok, nil)
	assert.Equal(t, float64(2), body["unread_count"])

	status, body := ts.do(t, http.MethodGet, "/api/notifications?filter=starred", ownerTok, nil)
	assert.Equal(t, http.StatusBadRequest, status, body)

	_, body = ts.do(t, http.MethodGet, "/api/notifications?filter=unread", ownerTok, nil)
	list := items(body)
	require.Len(t, list, 2)
	first := uint(list[0].(map[string]any)["id"].(float64))

	status, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", first), ts.token(t, fan), nil)
	assert.Equal(t, http.StatusNotFound, status, "another user's notification")

	status, _ = ts.do(t, http.MethodPost, fmt.Sprintf("/api/notifications/%d/read", first), ownerTok, nil)
	require.Equal(t, http.StatusOK, status)

	_, body = ts.do(t, http.MethodGet, "/api/notifications?filter=unread", ownerTok, nil)
	assert.Len(t, items(body), 1)
	assert.Equal(t, float64(1), body["unread_count"])

	_, body = ts.do(t, http.MethodPost, "/api/notifications/mark-all-read", ownerTok, nil)
	assert.Equal(t, float64(1), body["updated"])
	_, body = ts.do(t, http.MethodPost, "/api/notifications/mark-all-read", ownerTok, nil)
	assert.Equal(t, float64(0), body["updated"])

	_, body = ts.do(t, http.MethodGet, "/api/notifications", ownerTok, nil)
	assert.Len(t, items(body), 2)
	assert.Equal(t, float64(0), body["unread_count"])
}
