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

func TestPostLifecycle_CreateReviewPublishEdit(t *testing.T) {
	ts := newTestServer(t)
	author := ts.user(t, "author")
	m1 := ts.user(t, "mod1", testutil.WithRoles(models.RoleModerator))
	m2 := ts.user(t, "mod2", testutil.WithRoles(models.RoleModerator))
	authorTok, m1Tok, m2Tok := ts.token(t, author), ts.token(t, m1), ts.token(t, m2)

	status, body := ts.do(t, http.MethodPost, "/api/posts", authorTok, map[string]any{
		"caption": "hello world",
		"media": []map[string]any{
			{"type": "image", "url": "/uploads/posts/images/a.jpg"},
			{"type": "video", "url": "/uploads/posts/videos/b.mp4"},
		},
	})
	require.Equal(t, http.StatusCreated, status, body)
	post := body["post"].(map[string]any)
	postID := uint(post["id"].(float64))
	assert.Equal(t, "pending", post["status"])
	assert.Equal(t, "mixed", post["content_type"])

	status, body = ts.do(t, http.MethodGet, "/api/posts", authorTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, items(body), "pending posts stay out of the feed")

	status, body = ts.do(t, http.MethodGet, "/api/posts/my-posts", authorTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(body), 1)

	status, _ = ts.do(t, http.MethodGet, "/api/moderation/queue", authorTok, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = ts.do(t, http.MethodGet, "/api/moderation/queue", m1Tok, nil)
	require.Equal(t, http.StatusOK, status)
	queue := items(body)
	require.Len(t, queue, 1)
	item := queue[0].(map[string]any)
	queueID := uint(item["id"].(float64))
	assert.Equal(t, "hello world", item["post"].(map[string]any)["caption"])

	lockPath := fmt.Sprintf("/api/moderation/queue/%d/lock", queueID)
	status, _ = ts.do(t, http.MethodPost, lockPath, m1Tok, nil)
	require.Equal(t, http.StatusOK, status)
	status, body = ts.do(t, http.MethodPost, lockPath, m2Tok, nil)
	assert.Equal(t, http.StatusConflict, status, body)

	var locked models.ModerationQueueItem
	require.NoError(t, ts.db.First(&locked, queueID).Error)
	require.NotNil(t, locked.AssignedTo)
	assert.Equal(t, m1.ID, *locked.AssignedTo)

	status, body = ts.do(t, http.MethodPost, fmt.Sprintf("/api/moderation/review/%d", postID), m1Tok,
		map[string]string{"decision": "approve"})
	require.Equal(t, http.StatusOK, status, body)

	require.NoError(t, ts.db.First(&locked, queueID).Error)
	assert.Equal(t, models.QueueStatusCompleted, locked.Status)

	status, body = ts.do(t, http.MethodGet, "/api/posts", authorTok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, items(body), 1)

	status, body = ts.do(t, http.MethodPut, fmt.Sprintf("/api/posts/%d", postID), authorTok,
		map[string]string{"caption": "hello again"})
	require.Equal(t, http.StatusOK, status, body)
	edited := body["post"].(map[string]any)
	assert.Equal(t, "pending", edited["status"])
	assert.Equal(t, "not_checked", edited["moderation_status"])

	status, body = ts.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", postID), m1Tok, nil)
	assert.Equal(t, http.StatusNotFound, status, body)
}

func TestPostHandlers_Ownership(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.user(t, "owner")
	stranger := ts.user(t, "stranger")
	post := testutil.CreatePost(t, ts.db, owner.ID, "mine", models.PostStatusPublished)
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	status, _ := ts.do(t, http.MethodPut, path, ts.token(t, stranger), map[string]string{"caption": "hijack"})
	assert.Equal(t, http.StatusForbidden, status)
	status, _ = ts.do(t, http.MethodDelete, path, ts.token(t, stranger), nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = ts.do(t, http.MethodDelete, path, ts.token(t, owner), nil)
	require.Equal(t, http.StatusOK, status)

	var stored models.Post
	require.NoError(t, ts.db.First(&stored, post.ID).Error)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, models.PostStatusDeleted, stored.Status)
	assert.NotNil(t, stored.PermanentDeleteAt)
}

func TestPostHandlers_InvalidID(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, ts.user(t, "eve"))

	status, body := ts.do(t, http.MethodGet, "/api/posts/abc", tok, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid ID", body["error"])

	status, body = ts.do(t, http.MethodPost, "/api/moderation/review/0", ts.token(t, ts.user(t, "mod", testutil.WithRoles(models.RoleModerator))), map[string]string{"decision": "approve"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid post ID", body["error"])
}

func TestPostHandlers_LikeToggleRestoresCount(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.user(t, "owner")
	fan := ts.user(t, "fan")
	post := testutil.CreatePost(t, ts.db, owner.ID, "likeable", models.PostStatusPublished)
	path := fmt.Sprintf("/api/posts/%d/like", post.ID)

	status, body := ts.do(t, http.MethodPost, path, ts.token(t, fan), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["liked"])
	assert.Equal(t, float64(1), body["like_count"])

	status, body = ts.do(t, http.MethodPost, path, ts.token(t, fan), nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["liked"])
	assert.Equal(t, float64(0), body["like_count"])
}

func TestPostHandlers_Share(t *testing.T) {
	ts := newTestServer(t)
	owner := ts.user(t, "owner")
	fan := ts.user(t, "fan")
	post := testutil.CreatePost(t, ts.db, owner.ID, "shareable", models.PostStatusPublished)

	status, body := ts.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/share", post.ID), ts.token(t, fan), nil)
	require.Equal(t, http.StatusCreated, status, body)

	var stored models.Post
	require.NoError(t, ts.db.First(&stored, post.ID).Error)
	assert.Equal(t, 1, stored.ShareCount)
}

func TestUploadPostMedia(t *testing.T) {
	ts := newTestServer(t)
	tok := ts.token(t, ts.user(t, "uploader"))

	status, body := ts.upload(t, "/api/posts/upload-media", tok, "photo.png", testutil.PNG(t, 40, 20), nil)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "image", body["type"])
	assert.Contains(t, body["url"], "/uploads/posts/images/")
	assert.Contains(t, body["webp_url"], ".webp")

	status, body = ts.upload(t, "/api/posts/upload-media", tok, "notes.txt", []byte("hello"), nil)
	assert.Equal(t, http.StatusBadRequest, status, body)
}
