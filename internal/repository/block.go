package repository

import (
	"context"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlockRepository stores directional user blocks.
type BlockRepository interface {
	Create(ctx context.Context, blockerID, blockedID uint) error
	Delete(ctx context.Context, blockerID, blockedID uint) (bool, error)
	Exists(ctx context.Context, blockerID, blockedID uint) (bool, error)
	ExistsEitherWay(ctx context.Context, a, b uint) (bool, error)
	ListByBlocker(ctx context.Context, blockerID uint) ([]models.UserBlock, error)
}

type blockRepository struct {
	db *gorm.DB
}

// NewBlockRepository creates a new block repository
func NewBlockRepository(db *gorm.DB) BlockRepository {
	return &blockRepository{db: db}
}

func (r *blockRepository) Create(ctx context.Context, blockerID, blockedID uint) error {
	block := models.UserBlock{BlockerID: blockerID, BlockedID: blockedID}
	if err := r.db.WithContext(ctx).
		Omit("Blocked").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&block).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *blockRepository) Delete(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.UserBlock{})
	if res.Error != nil {
		return false, models.NewInternalError(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *blockRepository) Exists(ctx context.Context, blockerID, blockedID uint) (bool, error) {
	return r.count(ctx, "blocker_id = ? AND blocked_id = ?", blockerID, blockedID)
}

func (r *blockRepository) ExistsEitherWay(ctx context.Context, a, b uint) (bool, error) {
	return r.count(ctx, "(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a)
}

func (r *blockRepository) count(ctx context.Context, query string, args ...any) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.UserBlock{}).Where(query, args...).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

func (r *blockRepository) ListByBlocker(ctx context.Context, blockerID uint) ([]models.UserBlock, error) {
	var blocks []models.UserBlock
	if err := readDB(r.db).WithContext(ctx).
		Preload("Blocked", publicAuthor).
		Where("blocker_id = ?", blockerID).
		Order("created_at DESC").
		Find(&blocks).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return blocks, nil
}
