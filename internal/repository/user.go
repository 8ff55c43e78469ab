package repository

import (
	"context"
	"errors"
	"time"

	"lcnetwork/internal/cache"
	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetPublicProfile(ctx context.Context, id uint) (*models.PublicProfile, error)
	Create(ctx context.Context, user *models.User) error
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	IncrementWarnings(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	ListByRole(ctx context.Context, roles ...models.Role) ([]models.User, error)
}

type userRepository struct {
	db    *gorm.DB
	hooks *commitHooks
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// findOne returns nil, nil when no row matches.
func (r *userRepository) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Roles").Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetPublicProfile(ctx context.Context, id uint) (*models.PublicProfile, error) {
	var profile models.PublicProfile
	err := cache.Aside(ctx, cache.ProfileKey(id), &profile, cache.ProfileTTL, func() error {
		var user models.User
		if err := readDB(r.db).WithContext(ctx).
			Select("id", "username", "full_name", "avatar_url").
			Where("is_email_verified = ?", true).
			First(&user, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		profile = user.Public()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Email or username already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *userRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	r.hooks.after(func() { cache.InvalidateProfile(ctx, id) })
	return nil
}

func (r *userRepository) IncrementWarnings(ctx context.Context, id uint) error {
	return r.UpdateFields(ctx, id, map[string]any{
		"warning_count":  adjustCounter("warning_count", 1),
		"account_status": models.AccountStatusWarning,
	})
}

func (r *userRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Select("Roles").Delete(&models.User{ID: id}).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.hooks.after(func() { cache.InvalidateProfile(ctx, id) })
	return nil
}

func (r *userRepository) ListByRole(ctx context.Context, roles ...models.Role) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).
		Preload("Roles").
		Where("id IN (?)", r.db.Model(&models.UserRole{}).Select("user_id").Where("role IN ?", roles)).
		Order("id").
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
