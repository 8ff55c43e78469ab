package repository

import (
	"context"
	"errors"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// AppealRepository stores appeals against moderation outcomes.
type AppealRepository interface {
	Create(ctx context.Context, appeal *models.Appeal) error
	GetByID(ctx context.Context, id uint) (*models.Appeal, error)
	CountForTarget(ctx context.Context, userID uint, appealType models.AppealType, targetID *uint) (int64, error)
	ListByStatus(ctx context.Context, status models.AppealStatus, page Page) ([]models.Appeal, int64, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Appeal, error)
	Decide(ctx context.Context, appeal *models.Appeal) error
}

type appealRepository struct {
	db *gorm.DB
}

// NewAppealRepository creates a new appeal repository
func NewAppealRepository(db *gorm.DB) AppealRepository {
	return &appealRepository{db: db}
}

func (r *appealRepository) Create(ctx context.Context, appeal *models.Appeal) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(appeal).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *appealRepository) GetByID(ctx context.Context, id uint) (*models.Appeal, error) {
	var appeal models.Appeal
	if err := r.db.WithContext(ctx).First(&appeal, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Appeal", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &appeal, nil
}

func (r *appealRepository) CountForTarget(ctx context.Context, userID uint, appealType models.AppealType, targetID *uint) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Appeal{}).Where("user_id = ? AND appeal_type = ?", userID, appealType)
	if targetID == nil {
		q = q.Where("target_id IS NULL")
	} else {
		q = q.Where("target_id = ?", *targetID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *appealRepository) ListByStatus(ctx context.Context, status models.AppealStatus, page Page) ([]models.Appeal, int64, error) {
	var (
		appeals []models.Appeal
		total   int64
	)
	q := readDB(r.db).WithContext(ctx).Model(&models.Appeal{}).Where("status = ?", status).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := page.apply(q.Preload("User", publicAuthor).Order("created_at ASC, id ASC")).Find(&appeals).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	return appeals, total, nil
}

func (r *appealRepository) ListByUser(ctx context.Context, userID uint) ([]models.Appeal, error) {
	var appeals []models.Appeal
	if err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&appeals).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return appeals, nil
}

// Decide writes the outcome only while the appeal is still open. A
// concurrent decision makes it return a conflict.
func (r *appealRepository) Decide(ctx context.Context, appeal *models.Appeal) error {
	res := r.db.WithContext(ctx).Model(&models.Appeal{}).
		Where("id = ? AND status IN ?", appeal.ID, []models.AppealStatus{models.AppealStatusPending, models.AppealStatusUnderReview}).
		Updates(map[string]any{
			"status":             appeal.Status,
			"reviewed_by":        appeal.ReviewedBy,
			"moderator_decision": appeal.ModeratorDecision,
			"reviewed_at":        appeal.ReviewedAt,
		})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewConflictError("Appeal already decided")
	}
	return nil
}
