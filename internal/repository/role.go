package repository

import (
	"context"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RoleRepository manages permission grants.
type RoleRepository interface {
	Grant(ctx context.Context, userID uint, role models.Role, grantedBy *uint) error
	Revoke(ctx context.Context, userID uint, role models.Role) (bool, error)
	HasAny(ctx context.Context, userID uint, roles ...models.Role) (bool, error)
	ListByUser(ctx context.Context, userID uint) ([]models.UserRole, error)
}

type roleRepository struct {
	db *gorm.DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

// Grant is idempotent: an existing grant is left untouched.
func (r *roleRepository) Grant(ctx context.Context, userID uint, role models.Role, grantedBy *uint) error {
	grant := models.UserRole{UserID: userID, Role: role, GrantedBy: grantedBy}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&grant).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *roleRepository) Revoke(ctx context.Context, userID uint, role models.Role) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND role = ?", userID, role).
		Delete(&models.UserRole{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *roleRepository) HasAny(ctx context.Context, userID uint, roles ...models.Role) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.UserRole{}).
		Where("user_id = ? AND role IN ?", userID, roles).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *roleRepository) ListByUser(ctx context.Context, userID uint) ([]models.UserRole, error) {
	var grants []models.UserRole
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("role").Find(&grants).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return grants, nil
}
