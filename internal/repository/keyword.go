package repository

import (
	"context"
	"time"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// KeywordRepository manages the banned keyword list.
type KeywordRepository interface {
	ListActive(ctx context.Context) ([]models.BannedKeyword, error)
	List(ctx context.Context) ([]models.BannedKeyword, error)
	Create(ctx context.Context, kw *models.BannedKeyword) error
	Deactivate(ctx context.Context, id uint) error
}

type keywordRepository struct {
	db *gorm.DB
}

// NewKeywordRepository creates a new keyword repository
func NewKeywordRepository(db *gorm.DB) KeywordRepository {
	return &keywordRepository{db: db}
}

func (r *keywordRepository) ListActive(ctx context.Context) ([]models.BannedKeyword, error) {
	var out []models.BannedKeyword
	if err := readDB(r.db).WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *keywordRepository) List(ctx context.Context) ([]models.BannedKeyword, error) {
	var out []models.BannedKeyword
	if err := r.db.WithContext(ctx).Order("keyword_normalized").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *keywordRepository) Create(ctx context.Context, kw *models.BannedKeyword) error {
	if err := r.db.WithContext(ctx).Create(kw).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("Keyword already exists")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Deactivate keeps the row so the normalized keyword stays reserved.
func (r *keywordRepository) Deactivate(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Model(&models.BannedKeyword{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now()})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Keyword", id)
	}
	return nil
}
