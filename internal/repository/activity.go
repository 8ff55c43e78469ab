package repository

import (
	"context"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// ActivityRepository stores the per-account audit trail.
type ActivityRepository interface {
	Create(ctx context.Context, entry *models.UserActivityLog) error
	ListByUser(ctx context.Context, userID uint, page Page) ([]models.UserActivityLog, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity log repository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, entry *models.UserActivityLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *activityRepository) ListByUser(ctx context.Context, userID uint, page Page) ([]models.UserActivityLog, int64, error) {
	var (
		entries []models.UserActivityLog
		total   int64
	)
	q := readDB(r.db).WithContext(ctx).Model(&models.UserActivityLog{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := page.apply(q.Order("created_at DESC, id DESC")).Find(&entries).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return entries, total, nil
}
