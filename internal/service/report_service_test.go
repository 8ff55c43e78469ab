package service

import (
	"context"
	"net/http"
	"testing"

	"lcnetwork/internal/featureflags"
	"lcnetwork/internal/models"
	"lcnetwork/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportService_PostReportQueuesReview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "alice")
	reporter := env.user(t, "bob")
	p := env.post(t, owner.ID, models.PostStatusPublished)

	report, err := env.reports.Create(ctx, CreateReportInput{
		ReporterID: reporter.ID, TargetType: models.ReportTargetPost, TargetID: p.ID, Reason: "spam",
	})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusPending, report.Status)
	assert.Equal(t, 1, env.reloadPost(t, p.ID).ReportCount)

	items := env.queueFor(t, models.QueueTargetPost, p.ID)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueSourceUserReport, items[0].Source)
	assert.Equal(t, models.PriorityUserReport, items[0].Priority)

	_, err = env.reports.Create(ctx, CreateReportInput{
		ReporterID: reporter.ID, TargetType: models.ReportTargetPost, TargetID: p.ID, Reason: "scam",
	})
	require.Error(t, err)
	assert.Equal(t, "You have already reported this", err.Error())
}

func TestReportService_ReportRaisesExistingItem(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.user(t, "alice")
	reporter := env.user(t, "bob")

	p, err := env.posts.Create(ctx, CreatePostInput{UserID: owner.ID, Caption: "hello"})
	require.NoError(t, err)

	_, err = env.reports.Create(ctx, CreateReportInput{
		ReporterID: reporter.ID, TargetType: models.ReportTargetPost, TargetID: p.ID, Reason: "violence",
	})
	require.NoError(t, err)

	items := env.queueFor(t, models.QueueTargetPost, p.ID)
	require.Len(t, items, 1)
	assert.Equal(t, models.QueueSourceManualReview, items[0].Source)
	assert.Equal(t, models.PriorityUserReport, items[0].Priority)
}

func TestReportService_QueueingFlagOff(t *testing.T) {
	env := newTestEnv(t)
	env.reports.flags = featureflags.NewManager("report_queueing=off")
	owner := env.user(t, "alice")
	reporter := env.user(t, "bob")
	p := env.post(t, owner.ID, models.PostStatusPublished)

	_, err := env.reports.Create(context.Background(), CreateReportInput{
		ReporterID: reporter.ID, TargetType: models.ReportTargetPost, TargetID: p.ID, Reason: "spam",
	})
	require.NoError(t, err)
	assert.Empty(t, env.queueFor(t, models.QueueTargetPost, p.ID))
	assert.Equal(t, 1, env.reloadPost(t, p.ID).ReportCount)
}

func TestReportService_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.user(t, "alice")

	tests := []struct {
		name string
		in   CreateReportInput
		want int
	}{
		{"bad target", CreateReportInput{ReporterID: u.ID, TargetType: "group", TargetID: 1, Reason: "spam"}, http.StatusBadRequest},
		{"bad reason", CreateReportInput{ReporterID: u.ID, TargetType: models.ReportTargetUser, TargetID: 1, Reason: "boring"}, http.StatusBadRequest},
		{"self", CreateReportInput{ReporterID: u.ID, TargetType: models.ReportTargetUser, TargetID: u.ID, Reason: "spam"}, http.StatusBadRequest},
		{"missing user", CreateReportInput{ReporterID: u.ID, TargetType: models.ReportTargetUser, TargetID: 4242, Reason: "spam"}, http.StatusNotFound},
		{"missing comment", CreateReportInput{ReporterID: u.ID, TargetType: models.ReportTargetComment, TargetID: 4242, Reason: "spam"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reports.Create(ctx, tt.in)
			assert.Equal(t, tt.want, statusOf(err))
		})
	}
}

func TestReportService_Resolve(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	reporter := env.user(t, "alice")
	target := env.user(t, "bob")
	mod := env.user(t, "mod", testutil.WithRoles(models.RoleModerator))

	report, err := env.reports.Create(ctx, CreateReportInput{
		ReporterID: reporter.ID, TargetType: models.ReportTargetUser, TargetID: target.ID, Reason: "scam",
	})
	require.NoError(t, err)

	_, err = env.reports.Resolve(ctx, ResolveReportInput{ReportID: report.ID, ModeratorID: mod.ID, Status: models.ReportStatusPending})
	assert.Equal(t, http.StatusBadRequest, statusOf(err))

	resolved, err := env.reports.Resolve(ctx, ResolveReportInput{ReportID: report.ID, ModeratorID: mod.ID, Status: models.ReportStatusDismissed, Note: "no evidence"})
	require.NoError(t, err)
	assert.Equal(t, models.ReportStatusDismissed, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)

	_, err = env.reports.Resolve(ctx, ResolveReportInput{ReportID: report.ID, ModeratorID: mod.ID, Status: models.ReportStatusResolved})
	assert.Equal(t, http.StatusConflict, statusOf(err))

	pending, err := env.reports.List(ctx, models.ReportStatusPending, defaultPage())
	require.NoError(t, err)
	assert.Empty(t, pending.Items)

	dismissed, err := env.reports.List(ctx, models.ReportStatusDismissed, defaultPage())
	require.NoError(t, err)
	assert.Len(t, dismissed.Items, 1)

	// A closed report no longer blocks a fresh one.
	_, err = env.reports.Create(ctx, CreateReportInput{
		ReporterID: reporter.ID, TargetType: models.ReportTargetUser, TargetID: target.ID, Reason: "scam",
	})
	assert.NoError(t, err)
}
