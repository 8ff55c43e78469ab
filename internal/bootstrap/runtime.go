package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"lcnetwork/internal/cache"
	"lcnetwork/internal/config"
	"lcnetwork/internal/database"
	"lcnetwork/internal/models"
	"lcnetwork/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedPreset names a seed preset applied to an empty database.
	SeedPreset string
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	if err := ensureDevRootAdmin(cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedPreset != "" {
		if err := seedIfEmpty(db, opts.SeedPreset); err != nil {
			return nil, nil, fmt.Errorf("failed to seed %s preset: %w", opts.SeedPreset, err)
		}
	}

	return db, r, nil
}

func seedIfEmpty(db *gorm.DB, presetName string) error {
	preset, ok := seed.BuiltInPresets[presetName]
	if !ok {
		return fmt.Errorf("unknown preset %q", presetName)
	}
	var posts int64
	if err := db.Model(&models.Post{}).Count(&posts).Error; err != nil {
		return err
	}
	if posts > 0 {
		slog.Info("skipping seed, database already has posts", slog.Int64("posts", posts))
		return nil
	}
	s, err := seed.NewSeeder(db, seed.Options{SkipBcrypt: true})
	if err != nil {
		return err
	}
	_, err = s.Run(preset)
	return err
}

// ensureDevRootAdmin makes sure a verified admin account exists in
// development. Credentials are only rewritten when DevRootForceCredentials
// is set.
func ensureDevRootAdmin(cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "lcnetwork_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@lcnetwork.local"
	}
	password := cfg.DevRootPassword
	if password == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}
	hash := string(hashedPassword)

	var rootID uint
	if err := db.Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("email = ?", email).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username:        username,
				Email:           email,
				PasswordHash:    &hash,
				FullName:        "Root Admin",
				AccountStatus:   models.AccountStatusActive,
				IsEmailVerified: true,
				OTPVerified:     true,
			}
			if err := tx.Omit("Roles").Create(&root).Error; err != nil {
				return err
			}
		case findErr != nil:
			return findErr
		case cfg.DevRootForceCredentials:
			if err := tx.Model(&models.User{}).Where("id = ?", root.ID).Updates(map[string]any{
				"username":      username,
				"password_hash": hash,
			}).Error; err != nil {
				return err
			}
		}
		rootID = root.ID

		grants := []models.UserRole{
			{UserID: root.ID, Role: models.RoleUser},
			{UserID: root.ID, Role: models.RoleAdmin},
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&grants).Error
	}); err != nil {
		return err
	}

	slog.Info("development root admin bootstrap ensured",
		slog.Uint64("user_id", uint64(rootID)),
		slog.String("email", email),
	)
	return nil
}
