package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repos bundles every repository bound to one connection or transaction.
type Repos struct {
	Users         UserRepository
	Roles         RoleRepository
	Activity      ActivityRepository
	Posts         PostRepository
	Comments      CommentRepository
	Likes         LikeRepository
	Shares        ShareRepository
	Friends       FriendRepository
	Blocks        BlockRepository
	Queue         QueueRepository
	Appeals       AppealRepository
	Violations    ViolationRepository
	Notifications NotificationRepository
	Keywords      KeywordRepository
	Reports       ReportRepository
}

// NewRepos binds all repositories to db. Cache invalidations run as soon as
// each write succeeds.
func NewRepos(db *gorm.DB) Repos {
	return newRepos(db, nil)
}

func newRepos(db *gorm.DB, hooks *commitHooks) Repos {
	return Repos{
		Users:         &userRepository{db: db, hooks: hooks},
		Roles:         NewRoleRepository(db),
		Activity:      NewActivityRepository(db),
		Posts:         &postRepository{db: db, hooks: hooks},
		Comments:      NewCommentRepository(db),
		Likes:         NewLikeRepository(db),
		Shares:        NewShareRepository(db),
		Friends:       NewFriendRepository(db),
		Blocks:        NewBlockRepository(db),
		Queue:         NewQueueRepository(db),
		Appeals:       NewAppealRepository(db),
		Violations:    NewViolationRepository(db),
		Notifications: NewNotificationRepository(db),
		Keywords:      NewKeywordRepository(db),
		Reports:       NewReportRepository(db),
	}
}

// UnitOfWork runs a group of repository calls atomically.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(r Repos) error) error
}

type gormUnitOfWork struct {
	db *gorm.DB
}

// NewUnitOfWork returns a UnitOfWork backed by gorm transactions.
func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &gormUnitOfWork{db: db}
}

// Within commits when fn returns nil and rolls back otherwise. Cache
// invalidations queued by the repositories run only after the commit, so a
// concurrent reader cannot re-cache the pre-commit row.
func (u *gormUnitOfWork) Within(ctx context.Context, fn func(r Repos) error) error {
	hooks := &commitHooks{}
	err := u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newRepos(tx, hooks))
	})
	if err != nil {
		return err
	}
	hooks.run()
	return nil
}

// commitHooks holds work deferred until the surrounding transaction
// commits. A nil *commitHooks runs work immediately.
type commitHooks struct {
	fns []func()
}

func (h *commitHooks) after(fn func()) {
	if h == nil {
		fn()
		return
	}
	h.fns = append(h.fns, fn)
}

func (h *commitHooks) run() {
	for _, fn := range h.fns {
		fn()
	}
	h.fns = nil
}
