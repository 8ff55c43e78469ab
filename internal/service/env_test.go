package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"lcnetwork/internal/config"
	"lcnetwork/internal/featureflags"
	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"
	"lcnetwork/internal/testutil"

	"gorm.io/gorm"
)

// testEnv wires every service against one in-memory database.
type testEnv struct {
	db    *gorm.DB
	repos repository.Repos
	cfg   *config.Config
	flags *featureflags.Manager
	mail  *recordingMailer

	activity      *ActivityService
	notifications *NotificationService
	auth          *AuthService
	users         *UserService
	posts         *PostService
	comments      *CommentService
	friends       *FriendService
	blocks        *BlockService
	moderation    *ModerationService
	appeals       *AppealService
	violations    *ViolationService
	reports       *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.OpenSQLite(t)
	repos := repository.NewRepos(db)
	uow := repository.NewUnitOfWork(db)
	cfg := &config.Config{
		JWTSecret:           "test-secret",
		MaxAppealsPerTarget: 1,
		UploadDir:           t.TempDir(),
	}
	flags := featureflags.NewManager("keyword_screening=on,otp_email=on,report_queueing=on")
	mail := &recordingMailer{}

	env := &testEnv{db: db, repos: repos, cfg: cfg, flags: flags, mail: mail}
	env.activity = NewActivityService(repos.Activity)
	env.notifications = NewNotificationService(repos.Notifications)
	env.auth = NewAuthService(uow, repos.Users, env.activity, mail, flags, cfg, nil)
	env.users = NewUserService(repos.Users, repos.Roles, env.activity)
	env.posts = NewPostService(uow, repos.Posts, repos.Users, NewKeywordScreener(repos.Keywords), flags, env.notifications, env.activity, cfg)
	env.comments = NewCommentService(uow, repos.Comments, repos.Posts, repos.Users, env.notifications)
	env.friends = NewFriendService(uow, repos.Friends, repos.Users, env.notifications)
	env.blocks = NewBlockService(uow, repos.Blocks, repos.Users)
	env.moderation = NewModerationService(uow, repos.Queue, repos.Posts, repos.Keywords, env.notifications)
	env.appeals = NewAppealService(uow, repos.Appeals, env.notifications, cfg)
	env.violations = NewViolationService(uow, repos.Violations, env.notifications)
	env.reports = NewReportService(uow, repos.Reports, flags)
	return env
}

func (e *testEnv) user(t *testing.T, name string, opts ...testutil.UserOption) *models.User {
	t.Helper()
	return testutil.CreateUser(t, e.db, name, opts...)
}

func (e *testEnv) post(t *testing.T, ownerID uint, status models.PostStatus) *models.Post {
	t.Helper()
	return testutil.CreatePost(t, e.db, ownerID, "hello world", status)
}

func (e *testEnv) reloadPost(t *testing.T, id uint) *models.Post {
	t.Helper()
	var p models.Post
	if err := e.db.First(&p, id).Error; err != nil {
		t.Fatalf("reload post %d: %v", id, err)
	}
	return &p
}

func (e *testEnv) reloadUser(t *testing.T, id uint) *models.User {
	t.Helper()
	var u models.User
	if err := e.db.First(&u, id).Error; err != nil {
		t.Fatalf("reload user %d: %v", id, err)
	}
	return &u
}

func (e *testEnv) notificationsFor(t *testing.T, userID uint) []models.Notification {
	t.Helper()
	var out []models.Notification
	if err := e.db.Where("user_id = ?", userID).Order("id").Find(&out).Error; err != nil {
		t.Fatalf("list notifications: %v", err)
	}
	return out
}

func (e *testEnv) queueFor(t *testing.T, target models.QueueTargetType, id uint) []models.ModerationQueueItem {
	t.Helper()
	var out []models.ModerationQueueItem
	if err := e.db.Where("target_type = ? AND target_id = ?", target, id).Order("id").Find(&out).Error; err != nil {
		t.Fatalf("list queue: %v", err)
	}
	return out
}

// clock returns a settable now function.
func clock(start time.Time) (func() time.Time, func(time.Duration)) {
	var mu sync.Mutex
	now := start
	return func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}, func(d time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			now = now.Add(d)
		}
}

type sentOTP struct {
	to, code string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentOTP
	err  error
}

func (m *recordingMailer) SendOTP(_ context.Context, to, _, code string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentOTP{to: to, code: code})
	return m.err
}

func (m *recordingMailer) last() sentOTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentOTP{}
	}
	return m.sent[len(m.sent)-1]
}

// keywordRepoStub serves a fixed keyword list.
type keywordRepoStub struct {
	listActiveFn func(context.Context) ([]models.BannedKeyword, error)
}

func (s *keywordRepoStub) ListActive(ctx context.Context) ([]models.BannedKeyword, error) {
	return s.listActiveFn(ctx)
}
func (s *keywordRepoStub) List(ctx context.Context) ([]models.BannedKeyword, error) {
	return s.listActiveFn(ctx)
}
func (s *keywordRepoStub) Create(context.Context, *models.BannedKeyword) error { return nil }
func (s *keywordRepoStub) Deactivate(context.Context, uint) error             { return nil }

func statusOf(err error) int {
	return models.StatusFor(err)
}

func defaultPage() repository.Page {
	return repository.NewPage(1, 20, 20)
}
