package repository

import (
	"context"
	"errors"

	"lcnetwork/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint, page Page, viewerID uint) ([]models.Comment, int64, error)
	ListReplies(ctx context.Context, parentID uint, viewerID uint) ([]models.Comment, error)
	Update(ctx context.Context, comment *models.Comment) error
	DeleteWithReplies(ctx context.Context, id uint) (int64, error)
	AdjustLikes(ctx context.Context, id uint, delta int) error
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Post", "Parent").Create(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("Author", publicAuthor).First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &comment, nil
}

// ListByPost returns top-level comments, newest first, with reply counts.
func (r *commentRepository) ListByPost(ctx context.Context, postID uint, page Page, viewerID uint) ([]models.Comment, int64, error) {
	var (
		comments []models.Comment
		total    int64
	)
	q := readDB(r.db).WithContext(ctx).Model(&models.Comment{}).
		Where("post_id = ? AND parent_comment_id IS NULL AND is_blocked = ?", postID, false).
		Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := page.apply(q.Preload("Author", publicAuthor).Order("created_at DESC, id DESC")).Find(&comments).Error; err != nil {
		return nil, 0, models.NewInternalError(err)
	}
	if err := r.decorate(ctx, comments, viewerID); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// ListReplies returns direct replies, oldest first.
func (r *commentRepository) ListReplies(ctx context.Context, parentID uint, viewerID uint) ([]models.Comment, error) {
	var replies []models.Comment
	if err := readDB(r.db).WithContext(ctx).
		Preload("Author", publicAuthor).
		Where("parent_comment_id = ? AND is_blocked = ?", parentID, false).
		Order("created_at ASC, id ASC").
		Find(&replies).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := r.decorate(ctx, replies, viewerID); err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *commentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Omit("Author", "Post", "Parent").Save(comment).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// DeleteWithReplies removes a comment and its direct replies and reports how
// many rows went.
func (r *commentRepository) DeleteWithReplies(ctx context.Context, id uint) (int64, error) {
	db := r.db.WithContext(ctx)
	replies := db.Where("parent_comment_id = ?", id).Delete(&models.Comment{})
	if replies.Error != nil {
		return 0, models.NewInternalError(replies.Error)
	}
	root := db.Delete(&models.Comment{}, id)
	if root.Error != nil {
		return 0, models.NewInternalError(root.Error)
	}
	if root.RowsAffected == 0 {
		return 0, models.NewNotFoundError("Comment", id)
	}
	return replies.RowsAffected + root.RowsAffected, nil
}

func (r *commentRepository) AdjustLikes(ctx context.Context, id uint, delta int) error {
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", id).
		UpdateColumn("like_count", adjustCounter("like_count", delta)).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *commentRepository) decorate(ctx context.Context, comments []models.Comment, viewerID uint) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]uint, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
	}

	var counts []struct {
		ParentCommentID uint
		Total           int64
	}
	if err := readDB(r.db).WithContext(ctx).Model(&models.Comment{}).
		Select("parent_comment_id, COUNT(*) AS total").
		Where("parent_comment_id IN ?", ids).
		Group("parent_comment_id").
		Scan(&counts).Error; err != nil {
		return models.NewInternalError(err)
	}
	byParent := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byParent[c.ParentCommentID] = c.Total
	}

	var liked map[uint]bool
	if viewerID != 0 {
		var err error
		if liked, err = likedTargets(ctx, readDB(r.db), viewerID, models.LikeTargetComment, ids); err != nil {
			return err
		}
	}
	for i := range comments {
		comments[i].ReplyCount = byParent[comments[i].ID]
		comments[i].Liked = liked[comments[i].ID]
	}
	return nil
}

func publicAuthor(db *gorm.DB) *gorm.DB {
	return db.Select("id", "username", "full_name", "avatar_url")
}
