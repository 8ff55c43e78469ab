package repository

import (
	"context"
	"errors"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// LikeRepository stores likes keyed by (user, target type, target id).
type LikeRepository interface {
	Find(ctx context.Context, userID uint, target models.LikeTarget, targetID uint) (*models.Like, error)
	Create(ctx context.Context, like *models.Like) error
	Delete(ctx context.Context, id uint) error
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Find returns nil, nil when the user has not liked the target.
func (r *likeRepository) Find(ctx context.Context, userID uint, target models.LikeTarget, targetID uint) (*models.Like, error) {
	var like models.Like
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target, targetID).
		First(&like).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &like, nil
}

func (r *likeRepository) Create(ctx context.Context, like *models.Like) error {
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Already liked")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *likeRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.WithContext(ctx).Delete(&models.Like{}, id).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// likedTargets reports which of ids the user has liked.
func likedTargets(ctx context.Context, db *gorm.DB, userID uint, target models.LikeTarget, ids []uint) (map[uint]bool, error) {
	var likedIDs []uint
	if err := db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, target, ids).
		Pluck("target_id", &likedIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	out := make(map[uint]bool, len(likedIDs))
	for _, id := range likedIDs {
		out[id] = true
	}
	return out, nil
}
