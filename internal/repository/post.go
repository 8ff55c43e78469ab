package repository

import (
	"context"
	"errors"
	"time"

	"lcnetwork/internal/cache"
	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetWithDetails(ctx context.Context, id uint, viewerID uint) (*models.Post, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Post, error)
	ListPublished(ctx context.Context, page Page, viewerID uint) ([]models.Post, int64, error)
	ListByUser(ctx context.Context, userID uint, page Page) ([]models.Post, int64, error)
	UpdateFields(ctx context.Context, id uint, fields map[string]any) error
	ReplaceMedia(ctx context.Context, postID uint, media []models.PostMedia) error
	SoftDelete(ctx context.Context, id uint, now time.Time, retention time.Duration) error
	AdjustCounter(ctx context.Context, id uint, column string, delta int) error
}

// postRepository implements PostRepository
type postRepository struct {
	db    *gorm.DB
	hooks *commitHooks
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Omit("Author").Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// GetByID loads the bare row. Deleted posts are returned so callers can
// distinguish them.
func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Post", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &post, nil
}

// GetWithDetails loads a non-deleted post with its author, ordered media and
// the viewer's like flag. The viewer-independent part is cached.
func (r *postRepository) GetWithDetails(ctx context.Context, id uint, viewerID uint) (*models.Post, error) {
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		if err := withPostDetails(readDB(r.db).WithContext(ctx)).
			Where("is_deleted = ?", false).
			First(&post, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Post", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	posts := []models.Post{post}
	if err := r.markLiked(ctx, posts, viewerID); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.Post, error) {
	out := make(map[uint]*models.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var posts []models.Post
	if err := withPostDetails(readDB(r.db).WithContext(ctx)).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for i := range posts {
		out[posts[i].ID] = &posts[i]
	}
	return out, nil
}

func (r *postRepository) ListPublished(ctx context.Context, page Page, viewerID uint) ([]models.Post, int64, error) {
	var (
		posts []models.Post
		total int64
	)
	q := readDB(r.db).WithContext(ctx).Model(&models.Post{}).
		Where("status = ? AND is_deleted = ?", models.PostStatusPublished, false).
		Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := page.apply(withPostDetails(q).Order("created_at DESC, id DESC")).Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := r.markLiked(ctx, posts, viewerID); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// ListByUser returns every non-deleted post of userID regardless of status.
func (r *postRepository) ListByUser(ctx context.Context, userID uint, page Page) ([]models.Post, int64, error) {
	var (
		posts []models.Post
		total int64
	)
	q := readDB(r.db).WithContext(ctx).Model(&models.Post{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := page.apply(withPostDetails(q).Order("created_at DESC, id DESC")).Find(&posts).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := r.markLiked(ctx, posts, userID); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (r *postRepository) UpdateFields(ctx context.Context, id uint, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *postRepository) ReplaceMedia(ctx context.Context, postID uint, media []models.PostMedia) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("post_id = ?", postID).Delete(&models.PostMedia{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	if len(media) == 0 {
		r.invalidate(ctx, postID)
		return nil
	}
	for i := range media {
		media[i].ID = 0
		media[i].PostID = postID
		media[i].DisplayOrder = i
	}
	if err := db.Create(&media).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, postID)
	return nil
}

// SoftDelete hides the post and schedules permanent removal after retention.
func (r *postRepository) SoftDelete(ctx context.Context, id uint, now time.Time, retention time.Duration) error {
	return r.UpdateFields(ctx, id, map[string]any{
		"is_deleted":          true,
		"status":              models.PostStatusDeleted,
		"deleted_at":          now,
		"permanent_delete_at": now.Add(retention),
	})
}

func (r *postRepository) AdjustCounter(ctx context.Context, id uint, column string, delta int) error {
	if delta == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn(column, adjustCounter(column, delta)).Error; err != nil {
		return models.NewInternalError(err)
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *postRepository) invalidate(ctx context.Context, id uint) {
	r.hooks.after(func() { cache.InvalidatePost(ctx, id) })
}

func (r *postRepository) markLiked(ctx context.Context, posts []models.Post, viewerID uint) error {
	if viewerID == 0 || len(posts) == 0 {
		return nil
	}
	ids := make([]uint, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}
	liked, err := likedTargets(ctx, readDB(r.db), viewerID, models.LikeTargetPost, ids)
	if err != nil {
		return err
	}
	for i := range posts {
		posts[i].Liked = liked[posts[i].ID]
	}
	return nil
}

func withPostDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author", publicAuthor).
		Preload("Media", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		})
}
