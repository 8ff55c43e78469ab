package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"lcnetwork/internal/models"
	"lcnetwork/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostService_CreateQueuesForReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	post, err := env.posts.Create(ctx, CreatePostInput{
		UserID:  u.ID,
		Caption: "  sunset at the pier ",
		Media: []MediaInput{
			{MediaType: models.MediaTypeImage, MediaURL: "/uploads/posts/images/a.jpg"},
			{MediaType: models.MediaTypeImage, MediaURL: "/uploads/posts/images/b.jpg"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "sunset at the pier", post.Caption)
	assert.Equal(t, models.PostStatusPending, post.Status)
	assert.Equal(t, models.ModerationNotChecked, post.ModerationStatus)
	assert.Equal(t, models.VisibilityPublic, post.Visibility)
	assert.Equal(t, models.ContentTypeMixed, post.ContentType)
	require.Len(t, post.Media, 2)
	assert.Equal(t, 0, post.Media[0].DisplayOrder)
	assert.Equal(t, 1, post.Media[1].DisplayOrder)

	items := env.queueFor(t, models.QueueTargetPost, post.ID)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueSourceManualReview, items[0].Source)
	assert.Equal(t, models.PriorityDefault, items[0].Priority)
	assert.Equal(t, models.QueueStatusPending, items[0].Status)
}

func TestPostService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	tests := []struct {
		name string
		in   CreatePostInput
	}{
		{"empty", CreatePostInput{UserID: u.ID}},
		{"bad visibility", CreatePostInput{UserID: u.ID, Caption: "hi", Visibility: "everyone"}},
		{"bad media type", CreatePostInput{UserID: u.ID, Media: []MediaInput{{MediaType: "gif", MediaURL: "/x"}}}},
		{"missing url", CreatePostInput{UserID: u.ID, Media: []MediaInput{{MediaType: models.MediaTypeImage}}}},
		{"too many media", CreatePostInput{UserID: u.ID, Media: make([]MediaInput, maxMediaPerPost+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.posts.Create(ctx, tt.in)
			assert.Equal(t, http.StatusBadRequest, statusOf(err))
		})
	}
}

func TestPostService_CreateScreensKeywords(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	require.NoError(t, env.db.Create(&models.BannedKeyword{
		Keyword: "scam", KeywordNormalized: "scam", Severity: models.KeywordFlag, IsActive: true,
	}).Error)
	require.NoError(t, env.db.Create(&models.BannedKeyword{
		Keyword: `free\s+money`, KeywordNormalized: `free\s+money`, Severity: models.KeywordBlock, IsRegex: true, IsActive: true,
	}).Error)

	post, err := env.posts.Create(ctx, CreatePostInput{UserID: u.ID, Caption: "Not a SCAM, just FREE   money"})
	require.NoError(t, err)

	items := env.queueFor(t, models.QueueTargetPost, post.ID)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueSourceAIFlagged, items[0].Source)
	assert.Equal(t, models.PriorityBlock, items[0].Priority)
	assert.ElementsMatch(t, []string{"keyword:scam", `keyword:free\s+money`}, []string(items[0].AIDetectedIssues))
}

func TestPostService_BannedUserCannotPost(t *testing.T) {
	env := newTestEnv(t)
	until := time.Now().Add(time.Hour)
	u := env.user(t, "mallory", testutil.Banned("spam", &until))

	_, err := env.posts.Create(context.Background(), CreatePostInput{UserID: u.ID, Caption: "hello"})
	assert.Equal(t, http.StatusForbidden, statusOf(err))
}

func TestPostService_WarnedUserCanPost(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "wendy", func(u *models.User) {
		u.AccountStatus = models.AccountStatusWarning
		u.WarningCount = 1
	})

	_, err := env.posts.Create(context.Background(), CreatePostInput{UserID: u.ID, Caption: "hello"})
	assert.NoError(t, err)
}

func TestPostService_UpdateResetsModeration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	p := env.post(t, u.ID, models.PostStatusPublished)
	require.NoError(t, env.db.Model(p).Updates(map[string]any{
		"moderation_status": models.ModerationModeratorApproved,
		"like_count":        4,
	}).Error)

	caption := "edited caption"
	updated, err := env.posts.Update(ctx, UpdatePostInput{UserID: u.ID, PostID: p.ID, Caption: &caption})
	require.NoError(t, err)
	assert.Equal(t, caption, updated.Caption)
	assert.Equal(t, models.PostStatusPending, updated.Status)
	assert.Equal(t, models.ModerationNotChecked, updated.ModerationStatus)
	assert.Nil(t, updated.PublishedAt)
	assert.Equal(t, 4, updated.LikeCount)

	// A second edit reuses the open queue item.
	_, err = env.posts.Update(ctx, UpdatePostInput{UserID: u.ID, PostID: p.ID, Caption: &caption})
	require.NoError(t, err)
	assert.Len(t, env.queueFor(t, models.QueueTargetPost, p.ID), 1)
}

func TestPostService_UpdateCannotLeavePostEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	textOnly := env.post(t, u.ID, models.PostStatusPublished)
	withPhoto := env.post(t, u.ID, models.PostStatusPublished)
	require.NoError(t, env.db.Create(&models.PostMedia{
		PostID: withPhoto.ID, MediaType: models.MediaTypeImage, MediaURL: "/uploads/posts/a.jpg",
	}).Error)

	blank := "   "
	noMedia := []MediaInput{}

	_, err := env.posts.Update(ctx, UpdatePostInput{UserID: u.ID, PostID: textOnly.ID, Caption: &blank})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = env.posts.Update(ctx, UpdatePostInput{UserID: u.ID, PostID: withPhoto.ID, Caption: &blank, Media: &noMedia})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	assert.Equal(t, "hello world", env.reloadPost(t, textOnly.ID).Caption)
	assert.Equal(t, models.PostStatusPublished, env.reloadPost(t, withPhoto.ID).Status)

	updated, err := env.posts.Update(ctx, UpdatePostInput{UserID: u.ID, PostID: withPhoto.ID, Caption: &blank})
	require.NoError(t, err)
	assert.Empty(t, updated.Caption)
	assert.Len(t, updated.Media, 1)
}

func TestPostService_UpdateRequiresOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "alice")
	other := env.user(t, "bob")
	p := env.post(t, owner.ID, models.PostStatusPublished)

	caption := "mine now"
	_, err := env.posts.Update(ctx, UpdatePostInput{UserID: other.ID, PostID: p.ID, Caption: &caption})
	require.Error(t, err)
	assert.Equal(t, "You can only modify your own posts", err.Error())

	assert.Equal(t, http.StatusForbidden, statusOf(env.posts.Delete(ctx, p.ID, other.ID, RequestMeta{})))
}

func TestPostService_DeleteHidesPost(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	p := env.post(t, u.ID, models.PostStatusPublished)

	require.NoError(t, env.posts.Delete(ctx, p.ID, u.ID, RequestMeta{}))

	stored := env.reloadPost(t, p.ID)
	assert.True(t, stored.IsDeleted)
	assert.Equal(t, models.PostStatusDeleted, stored.Status)
	require.NotNil(t, stored.PermanentDeleteAt)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *stored.PermanentDeleteAt, time.Minute)

	_, err := env.posts.Get(ctx, p.ID, u.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(err))
	assert.Equal(t, http.StatusNotFound, statusOf(env.posts.Delete(ctx, p.ID, u.ID, RequestMeta{})))
}

func TestPostService_GetHidesUnpublishedFromOthers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "alice")
	other := env.user(t, "bob")
	p := env.post(t, owner.ID, models.PostStatusPending)

	_, err := env.posts.Get(ctx, p.ID, other.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	got, err := env.posts.Get(ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestPostService_FeedListsPublishedOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	published := env.post(t, u.ID, models.PostStatusPublished)
	env.post(t, u.ID, models.PostStatusPending)
	env.post(t, u.ID, models.PostStatusRejected)

	feed, err := env.posts.Feed(ctx, u.ID, defaultPage())
	require.NoError(t, err)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, published.ID, feed.Items[0].ID)
	assert.EqualValues(t, 1, feed.Total)

	mine, err := env.posts.Mine(ctx, u.ID, defaultPage())
	require.NoError(t, err)
	assert.Len(t, mine.Items, 3)
}

func TestPostService_ToggleLike(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "alice")
	fan := env.user(t, "bob")
	p := env.post(t, owner.ID, models.PostStatusPublished)

	res, err := env.posts.ToggleLike(ctx, p.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, res.Liked)
	assert.Equal(t, 1, res.LikeCount)

	notes := env.notificationsFor(t, owner.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyLike, notes[0].Type)

	res, err = env.posts.ToggleLike(ctx, p.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, res.Liked)
	assert.Equal(t, 0, res.LikeCount)
	assert.Equal(t, 0, env.reloadPost(t, p.ID).LikeCount)

	// Liking your own post does not notify.
	_, err = env.posts.ToggleLike(ctx, p.ID, owner.ID)
	require.NoError(t, err)
	assert.Len(t, env.notificationsFor(t, owner.ID), 1)
}

func TestPostService_ToggleLikeRequiresPublished(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "alice")
	p := env.post(t, u.ID, models.PostStatusPending)

	_, err := env.posts.ToggleLike(context.Background(), p.ID, u.ID)
	assert.Equal(t, http.StatusNotFound, statusOf(err))
}

func TestPostService_Share(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "alice")
	fan := env.user(t, "bob")
	p := env.post(t, owner.ID, models.PostStatusPublished)

	share, err := env.posts.Share(ctx, p.ID, fan.ID, " look ")
	require.NoError(t, err)
	assert.Equal(t, "look", share.SharedCaption)
	assert.Equal(t, 1, env.reloadPost(t, p.ID).ShareCount)

	notes := env.notificationsFor(t, owner.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyShare, notes[0].Type)
}

func TestPostService_ScreeningFailureDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	env.posts.screener = NewKeywordScreener(&keywordRepoStub{
		listActiveFn: func(context.Context) ([]models.BannedKeyword, error) {
			return nil, errors.New("db down")
		},
	})
	u := env.user(t, "alice")

	post, err := env.posts.Create(context.Background(), CreatePostInput{UserID: u.ID, Caption: "hello"})
	require.NoError(t, err)
	items := env.queueFor(t, models.QueueTargetPost, post.ID)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueSourceManualReview, items[0].Source)
}
