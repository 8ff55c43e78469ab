package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"lcnetwork/internal/models"
	"lcnetwork/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppealService_PostAppealApproved(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	mod := env.user(t, "mod", testutil.WithRoles(models.RoleModerator))
	p := env.post(t, u.ID, models.PostStatusRejected)

	appeal, err := env.appeals.Create(ctx, CreateAppealInput{
		UserID:       u.ID,
		AppealType:   models.AppealPostRejection,
		TargetID:     &p.ID,
		Reason:       "It was satire",
		EvidenceURLs: []string{"https://example.com/context"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AppealStatusPending, appeal.Status)
	assert.Equal(t, models.PostStatusUnderReview, env.reloadPost(t, p.ID).Status)

	items := env.queueFor(t, models.QueueTargetAppeal, appeal.ID)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueSourceAppeal, items[0].Source)
	assert.Equal(t, models.PriorityReview, items[0].Priority)

	pending, err := env.appeals.ForReview(ctx, "", defaultPage())
	require.NoError(t, err)
	require.Len(t, pending.Items, 1)

	decided, err := env.appeals.Review(ctx, ReviewAppealInput{AppealID: appeal.ID, ModeratorID: mod.ID, Decision: "approve", Note: "fair point"})
	require.NoError(t, err)
	assert.Equal(t, models.AppealStatusApproved, decided.Status)
	require.NotNil(t, decided.ReviewedBy)
	assert.Equal(t, mod.ID, *decided.ReviewedBy)

	stored := env.reloadPost(t, p.ID)
	assert.Equal(t, models.PostStatusPublished, stored.Status)
	assert.Equal(t, models.ModerationModeratorApproved, stored.ModerationStatus)
	assert.NotNil(t, stored.PublishedAt)
	assert.Equal(t, models.QueueStatusCompleted, env.queueFor(t, models.QueueTargetAppeal, appeal.ID)[0].Status)

	notes := env.notificationsFor(t, u.ID)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotifyAppealResult, notes[0].Type)
	assert.Equal(t, "Your appeal was approved: fair point", notes[0].Message)

	_, err = env.appeals.Review(ctx, ReviewAppealInput{AppealID: appeal.ID, ModeratorID: mod.ID, Decision: "reject"})
	assert.Equal(t, http.StatusConflict, statusOf(err))
}

func TestAppealService_RejectedAppealRestoresRejection(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")
	mod := env.user(t, "mod", testutil.WithRoles(models.RoleModerator))
	p := env.post(t, u.ID, models.PostStatusRejected)

	appeal, err := env.appeals.Create(ctx, CreateAppealInput{UserID: u.ID, AppealType: models.AppealPostRejection, TargetID: &p.ID, Reason: "please"})
	require.NoError(t, err)

	// The post is under review while the appeal is open.
	_, err = env.appeals.Create(ctx, CreateAppealInput{UserID: u.ID, AppealType: models.AppealPostRejection, TargetID: &p.ID, Reason: "again"})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = env.appeals.Review(ctx, ReviewAppealInput{AppealID: appeal.ID, ModeratorID: mod.ID, Decision: "reject"})
	require.NoError(t, err)
	assert.Equal(t, models.PostStatusRejected, env.reloadPost(t, p.ID).Status)

	_, err = env.appeals.Create(ctx, CreateAppealInput{UserID: u.ID, AppealType: models.AppealPostRejection, TargetID: &p.ID, Reason: "again"})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	mine, err := env.appeals.Mine(ctx, u.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestAppealService_PostAppealChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "alice")
	other := env.user(t, "bob")
	rejected := env.post(t, owner.ID, models.PostStatusRejected)
	published := env.post(t, owner.ID, models.PostStatusPublished)

	tests := []struct {
		name string
		in   CreateAppealInput
		want int
	}{
		{"bad type", CreateAppealInput{UserID: owner.ID, AppealType: "other", Reason: "x"}, http.StatusBadRequest},
		{"no reason", CreateAppealInput{UserID: owner.ID, AppealType: models.AppealPostRejection, TargetID: &rejected.ID}, http.StatusBadRequest},
		{"no target", CreateAppealInput{UserID: owner.ID, AppealType: models.AppealPostRejection, Reason: "x"}, http.StatusBadRequest},
		{"too much evidence", CreateAppealInput{UserID: owner.ID, AppealType: models.AppealPostRejection, TargetID: &rejected.ID, Reason: "x", EvidenceURLs: make([]string, 6)}, http.StatusBadRequest},
		{"not owner", CreateAppealInput{UserID: other.ID, AppealType: models.AppealPostRejection, TargetID: &rejected.ID, Reason: "x"}, http.StatusForbidden},
		{"not rejected", CreateAppealInput{UserID: owner.ID, AppealType: models.AppealPostRejection, TargetID: &published.ID, Reason: "x"}, http.StatusBadRequest},
		{"no warnings", CreateAppealInput{UserID: owner.ID, AppealType: models.AppealAccountWarning, Reason: "x"}, http.StatusBadRequest},
		{"not banned", CreateAppealInput{UserID: owner.ID, AppealType: models.AppealAccountBan, Reason: "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.appeals.Create(ctx, tt.in)
			assert.Equal(t, tt.want, statusOf(err))
		})
	}
}

func TestAppealService_DeadlinePassed(t *testing.T) {
	env := newTestEnv(t)
	u := env.user(t, "alice")
	p := env.post(t, u.ID, models.PostStatusRejected)
	env.appeals.now = func() time.Time { return time.Now().Add(8 * 24 * time.Hour) }

	_, err := env.appeals.Create(context.Background(), CreateAppealInput{UserID: u.ID, AppealType: models.AppealPostRejection, TargetID: &p.ID, Reason: "late"})
	require.Error(t, err)
	assert.Equal(t, "The appeal window for this post has closed", err.Error())
}

func TestAppealService_BanAppealApprovedLiftsBan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	until := time.Now().Add(72 * time.Hour)
	u := env.user(t, "alice", testutil.Banned("spam", &until))
	mod := env.user(t, "mod", testutil.WithRoles(models.RoleModerator))

	appeal, err := env.appeals.Create(ctx, CreateAppealInput{UserID: u.ID, AppealType: models.AppealAccountBan, Reason: "hacked"})
	require.NoError(t, err)
	assert.Nil(t, appeal.TargetID)

	_, err = env.appeals.Review(ctx, ReviewAppealInput{AppealID: appeal.ID, ModeratorID: mod.ID, Decision: "approve"})
	require.NoError(t, err)

	fresh := env.reloadUser(t, u.ID)
	assert.Equal(t, models.AccountStatusActive, fresh.AccountStatus)
	assert.Nil(t, fresh.BanUntil)
	assert.Empty(t, fresh.BanReason)
}

func TestAppealService_WarningAppealApprovedRemovesWarning(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice", func(u *models.User) {
		u.AccountStatus = models.AccountStatusWarning
		u.WarningCount = 2
	})
	mod := env.user(t, "mod", testutil.WithRoles(models.RoleModerator))

	appeal, err := env.appeals.Create(ctx, CreateAppealInput{UserID: u.ID, AppealType: models.AppealAccountWarning, Reason: "misunderstanding"})
	require.NoError(t, err)

	_, err = env.appeals.Review(ctx, ReviewAppealInput{AppealID: appeal.ID, ModeratorID: mod.ID, Decision: "maybe"})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	_, err = env.appeals.Review(ctx, ReviewAppealInput{AppealID: appeal.ID, ModeratorID: mod.ID, Decision: "approve"})
	require.NoError(t, err)

	fresh := env.reloadUser(t, u.ID)
	assert.Equal(t, 1, fresh.WarningCount)
	assert.Equal(t, models.AccountStatusActive, fresh.AccountStatus)
}
