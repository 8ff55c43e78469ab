package repository

import (
	"context"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// ViolationRepository is append-only: there is no update or delete.
type ViolationRepository interface {
	Create(ctx context.Context, v *models.ViolationHistory) error
	ListByUser(ctx context.Context, userID uint) ([]models.ViolationHistory, error)
}

type violationRepository struct {
	db *gorm.DB
}

// NewViolationRepository creates a new violation history repository
func NewViolationRepository(db *gorm.DB) ViolationRepository {
	return &violationRepository{db: db}
}

func (r *violationRepository) Create(ctx context.Context, v *models.ViolationHistory) error {
	if err := r.db.WithContext(ctx).Create(v).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *violationRepository) ListByUser(ctx context.Context, userID uint) ([]models.ViolationHistory, error) {
	var out []models.ViolationHistory
	if err := readDB(r.db).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}
