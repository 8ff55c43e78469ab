package testutil

import (
	"fmt"
	"testing"
	"time"

	"lcnetwork/internal/database"
	"lcnetwork/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestPassword is the plaintext password of every user made by CreateUser.
const TestPassword = "Sup3r$ecret"

// OpenSQLite returns a migrated in-memory database private to t. The pool is
// pinned to one connection so every query sees the same memory database.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	return db
}

// UserOption customizes a fixture user before it is stored.
type UserOption func(*models.User)

// Unverified leaves the account waiting for its OTP.
func Unverified(code string, issuedAt time.Time) UserOption {
	return func(u *models.User) {
		u.IsEmailVerified = false
		u.OTPVerified = false
		u.OTPCode = code
		u.OTPCreatedAt = &issuedAt
	}
}

// WithRoles grants extra roles on creation.
func WithRoles(roles ...models.Role) UserOption {
	return func(u *models.User) {
		for _, r := range roles {
			u.Roles = append(u.Roles, models.UserRole{Role: r})
		}
	}
}

// Banned bans the account until the given time; nil means permanently.
func Banned(reason string, until *time.Time) UserOption {
	return func(u *models.User) {
		u.AccountStatus = models.AccountStatusBanned
		u.BanReason = reason
		u.BanUntil = until
	}
}

// CreateUser stores a verified, active user with TestPassword.
func CreateUser(t testing.TB, db *gorm.DB, username string, opts ...UserOption) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	h := string(hash)
	u := &models.User{
		Email:           fmt.Sprintf("%s@example.com", username),
		Username:        username,
		FullName:        username,
		PasswordHash:    &h,
		AccountStatus:   models.AccountStatusActive,
		IsEmailVerified: true,
		OTPVerified:     true,
		Roles:           []models.UserRole{{Role: models.RoleUser}},
	}
	for _, opt := range opts {
		opt(u)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

// CreatePost stores a post owned by userID in the given status.
func CreatePost(t testing.TB, db *gorm.DB, userID uint, caption string, status models.PostStatus) *models.Post {
	t.Helper()
	p := &models.Post{
		UserID:           userID,
		Caption:          caption,
		ContentType:      models.ContentTypeText,
		Status:           status,
		ModerationStatus: models.ModerationNotChecked,
		Visibility:       models.VisibilityPublic,
	}
	if status == models.PostStatusPublished {
		now := time.Now()
		p.PublishedAt = &now
	}
	if err := db.Omit("Author").Create(p).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}
	return p
}
