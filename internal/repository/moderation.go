package repository

import (
	"context"
	"errors"
	"time"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// QueueRepository manages moderation queue items.
type QueueRepository interface {
	Enqueue(ctx context.Context, item *models.ModerationQueueItem) error
	GetByID(ctx context.Context, id uint) (*models.ModerationQueueItem, error)
	FindOpen(ctx context.Context, target models.QueueTargetType, targetID uint) (*models.ModerationQueueItem, error)
	ListPending(ctx context.Context, page Page) ([]models.ModerationQueueItem, int64, error)
	Lock(ctx context.Context, id, moderatorID uint, now time.Time) error
	CompleteOpen(ctx context.Context, target models.QueueTargetType, targetID, moderatorID uint, now time.Time) ([]models.ModerationQueueItem, error)
	RaisePriority(ctx context.Context, id uint, priority int) error
}

type queueRepository struct {
	db *gorm.DB
}

// NewQueueRepository creates a new moderation queue repository
func NewQueueRepository(db *gorm.DB) QueueRepository {
	return &queueRepository{db: db}
}

func (r *queueRepository) Enqueue(ctx context.Context, item *models.ModerationQueueItem) error {
	if item.Status == "" {
		item.Status = models.QueueStatusPending
	}
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Target already has an open queue item")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *queueRepository) GetByID(ctx context.Context, id uint) (*models.ModerationQueueItem, error) {
	var item models.ModerationQueueItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Queue item", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &item, nil
}

// FindOpen returns the pending or locked item for a target, or nil, nil.
func (r *queueRepository) FindOpen(ctx context.Context, target models.QueueTargetType, targetID uint) (*models.ModerationQueueItem, error) {
	var item models.ModerationQueueItem
	if err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ? AND status IN ?", target, targetID, openStatuses).
		Order("id").
		First(&item).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &item, nil
}

// ListPending orders by priority, highest first, then age.
func (r *queueRepository) ListPending(ctx context.Context, page Page) ([]models.ModerationQueueItem, int64, error) {
	var (
		items []models.ModerationQueueItem
		total int64
	)
	q := readDB(r.db).WithContext(ctx).Model(&models.ModerationQueueItem{}).
		Where("status = ?", models.QueueStatusPending).
		Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := page.apply(q.Order("priority DESC, created_at ASC, id ASC")).Find(&items).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return items, total, nil
}

// Lock assigns a pending item to moderatorID with a single conditional
// update, so two moderators racing for the same item cannot both win.
func (r *queueRepository) Lock(ctx context.Context, id, moderatorID uint, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.ModerationQueueItem{}).
		Where("id = ? AND status = ?", id, models.QueueStatusPending).
		Updates(map[string]any{
			"status":      models.QueueStatusLocked,
			"assigned_to": moderatorID,
			"locked_at":   now,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	item, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	switch item.Status {
	case models.QueueStatusLocked:
		return models.NewConflictError("Item already locked by another moderator")
	case models.QueueStatusCompleted:
		return models.NewValidationError("Item already completed")
	default:
		return models.NewConflictError("Item could not be locked")
	}
}

// CompleteOpen marks every open item for the target completed by
// moderatorID and returns the items as they were before completion.
func (r *queueRepository) CompleteOpen(ctx context.Context, target models.QueueTargetType, targetID, moderatorID uint, now time.Time) ([]models.ModerationQueueItem, error) {
	db := r.db.WithContext(ctx)
	var open []models.ModerationQueueItem
	if err := db.
		Where("target_type = ? AND target_id = ? AND status IN ?", target, targetID, openStatuses).
		Find(&open).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if len(open) == 0 {
		return nil, nil
	}
	ids := make([]uint, len(open))
	for i := range open {
		ids[i] = open[i].ID
	}
	if err := db.Model(&models.ModerationQueueItem{}).
		Where("id IN ? AND status IN ?", ids, openStatuses).
		Updates(map[string]any{
			"status":       models.QueueStatusCompleted,
			"completed_by": moderatorID,
			"completed_at": now,
		}).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return open, nil
}

// RaisePriority never lowers an item's priority.
func (r *queueRepository) RaisePriority(ctx context.Context, id uint, priority int) error {
	if err := r.db.WithContext(ctx).Model(&models.ModerationQueueItem{}).
		Where("id = ? AND priority < ?", id, priority).
		Update("priority", priority).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

var openStatuses = []models.QueueStatus{models.QueueStatusPending, models.QueueStatusLocked}
