package repository

import (
	"context"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// ShareRepository stores re-posts.
type ShareRepository interface {
	Create(ctx context.Context, share *models.Share) error
}

type shareRepository struct {
	db *gorm.DB
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *gorm.DB) ShareRepository {
	return &shareRepository{db: db}
}

func (r *shareRepository) Create(ctx context.Context, share *models.Share) error {
	if err := r.db.WithContext(ctx).Omit("User", "Post").Create(share).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}
