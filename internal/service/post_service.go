package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"lcnetwork/internal/config"
	"lcnetwork/internal/featureflags"
	"lcnetwork/internal/models"
	"lcnetwork/internal/observability"
	"lcnetwork/internal/repository"
)

const (
	maxCaptionLen   = 5000
	maxMediaPerPost = 10
)

type MediaInput struct {
	MediaType    models.MediaType `json:"type"`
	MediaURL     string           `json:"url"`
	ThumbnailURL string           `json:"thumbnail_url"`
	Width        *int             `json:"width"`
	Height       *int             `json:"height"`
	Duration     *int             `json:"duration"`
	FileSize     *int64           `json:"file_size"`
}

type CreatePostInput struct {
	UserID     uint
	Caption    string
	Visibility models.Visibility
	Media      []MediaInput
	Meta       RequestMeta
}

// UpdatePostInput carries the editable fields. Nil fields are left as is;
// a nil Media keeps the attachments, an empty one removes them.
type UpdatePostInput struct {
	UserID     uint
	PostID     uint
	Caption    *string
	Visibility *models.Visibility
	Media      *[]MediaInput
	Meta       RequestMeta
}

type ToggleResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

type PostService struct {
	uow       repository.UnitOfWork
	posts     repository.PostRepository
	users     repository.UserRepository
	screener  *KeywordScreener
	flags     *featureflags.Manager
	notifier  *NotificationService
	activity  *ActivityService
	retention time.Duration
	now       func() time.Time
}

func NewPostService(
	uow repository.UnitOfWork,
	posts repository.PostRepository,
	users repository.UserRepository,
	screener *KeywordScreener,
	flags *featureflags.Manager,
	notifier *NotificationService,
	activity *ActivityService,
	cfg *config.Config,
) *PostService {
	return &PostService{
		uow:       uow,
		posts:     posts,
		users:     users,
		screener:  screener,
		flags:     flags,
		notifier:  notifier,
		activity:  activity,
		retention: cfg.SoftDeleteRetention(),
		now:       time.Now,
	}
}

func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := s.requireActive(ctx, in.UserID); err != nil {
		return nil, err
	}
	in.Caption = strings.TrimSpace(in.Caption)
	if in.Visibility == "" {
		in.Visibility = models.VisibilityPublic
	}
	if err := validatePostFields(in.Caption, in.Visibility, in.Media); err != nil {
		return nil, err
	}
	if in.Caption == "" && len(in.Media) == 0 {
		return nil, models.NewValidationError("Post must have a caption or media")
	}

	screen, err := s.screen(ctx, in.UserID, in.Caption)
	if err != nil {
		return nil, err
	}

	media := buildMedia(in.Media)
	post := &models.Post{
		UserID:           in.UserID,
		Caption:          in.Caption,
		Visibility:       in.Visibility,
		ContentType:      models.DeriveContentType(media),
		Status:           models.PostStatusPending,
		ModerationStatus: models.ModerationNotChecked,
	}

	var item *models.ModerationQueueItem
	err = s.uow.Within(ctx, func(r repository.Repos) error {
		if err := r.Posts.Create(ctx, post); err != nil {
			return err
		}
		if err := r.Posts.ReplaceMedia(ctx, post.ID, media); err != nil {
			return err
		}
		item, err = enqueuePostReview(ctx, r, post.ID, screen)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.QueueEnqueued.WithLabelValues(string(item.Source)).Inc()

	s.activity.Record(ctx, in.UserID, models.ActivityPostCreate, in.Meta, map[string]any{"post_id": post.ID})
	return s.posts.GetWithDetails(ctx, post.ID, in.UserID)
}

// Feed lists published posts, newest first.
func (s *PostService) Feed(ctx context.Context, viewerID uint, page repository.Page) (models.Paginated[models.Post], error) {
	posts, total, err := s.posts.ListPublished(ctx, page, viewerID)
	if err != nil {
		return models.Paginated[models.Post]{}, err
	}
	return models.NewPaginated(posts, total, page.Number, page.Size), nil
}

// Mine lists the caller's posts in every state except deleted.
func (s *PostService) Mine(ctx context.Context, userID uint, page repository.Page) (models.Paginated[models.Post], error) {
	posts, total, err := s.posts.ListByUser(ctx, userID, page)
	if err != nil {
		return models.Paginated[models.Post]{}, err
	}
	return models.NewPaginated(posts, total, page.Number, page.Size), nil
}

// Get returns a post that is published, or any non-deleted post to its owner.
func (s *PostService) Get(ctx context.Context, postID, viewerID uint) (*models.Post, error) {
	post, err := s.posts.GetWithDetails(ctx, postID, viewerID)
	if err != nil {
		return nil, err
	}
	if !post.Visible() && post.UserID != viewerID {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

// Update edits a post in place. Every edit sends the post back to pending
// with moderation not checked, whatever changed.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.ownedPost(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	if in.Caption != nil {
		post.Caption = strings.TrimSpace(*in.Caption)
	}
	if in.Visibility != nil {
		post.Visibility = *in.Visibility
	}
	var media []models.PostMedia
	if in.Media != nil {
		media = buildMedia(*in.Media)
		post.ContentType = models.DeriveContentType(media)
		if err := validatePostFields(post.Caption, post.Visibility, *in.Media); err != nil {
			return nil, err
		}
	} else if err := validatePostFields(post.Caption, post.Visibility, nil); err != nil {
		return nil, err
	}
	if post.Caption == "" {
		hasMedia, err := s.keepsMedia(ctx, post.ID, in.Media)
		if err != nil {
			return nil, err
		}
		if !hasMedia {
			return nil, models.NewValidationError("Post must have a caption or media")
		}
	}

	screen, err := s.screen(ctx, in.UserID, post.Caption)
	if err != nil {
		return nil, err
	}

	post.Status = models.PostStatusPending
	post.ModerationStatus = models.ModerationNotChecked
	post.PublishedAt = nil

	var item *models.ModerationQueueItem
	err = s.uow.Within(ctx, func(r repository.Repos) error {
		if err := r.Posts.UpdateFields(ctx, post.ID, map[string]any{
			"caption":           post.Caption,
			"visibility":        post.Visibility,
			"content_type":      post.ContentType,
			"status":            post.Status,
			"moderation_status": post.ModerationStatus,
			"published_at":      nil,
		}); err != nil {
			return err
		}
		if in.Media != nil {
			if err := r.Posts.ReplaceMedia(ctx, post.ID, media); err != nil {
				return err
			}
		}
		item, err = enqueuePostReview(ctx, r, post.ID, screen)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.QueueEnqueued.WithLabelValues(string(item.Source)).Inc()

	s.activity.Record(ctx, in.UserID, models.ActivityPostUpdate, in.Meta, map[string]any{"post_id": post.ID})
	return s.posts.GetWithDetails(ctx, post.ID, in.UserID)
}

// Delete soft-deletes an owned post and starts its retention clock.
func (s *PostService) Delete(ctx context.Context, postID, userID uint, meta RequestMeta) error {
	if _, err := s.ownedPost(ctx, postID, userID); err != nil {
		return err
	}
	if err := s.posts.SoftDelete(ctx, postID, s.now(), s.retention); err != nil {
		return err
	}
	s.activity.Record(ctx, userID, models.ActivityPostDelete, meta, map[string]any{"post_id": postID})
	return nil
}

// ToggleLike likes a visible post, or removes the caller's like.
func (s *PostService) ToggleLike(ctx context.Context, postID, userID uint) (*ToggleResult, error) {
	var (
		res   ToggleResult
		owner uint
	)
	err := s.uow.Within(ctx, func(r repository.Repos) error {
		post, err := r.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if !post.Visible() {
			return models.NewNotFoundError("Post", postID)
		}
		owner = post.UserID

		liked, err := toggleLike(ctx, r, userID, models.LikeTargetPost, postID)
		if err != nil {
			return err
		}
		delta := -1
		if liked {
			delta = 1
		}
		if err := r.Posts.AdjustCounter(ctx, postID, "like_count", delta); err != nil {
			return err
		}
		fresh, err := r.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		res = ToggleResult{Liked: liked, LikeCount: fresh.LikeCount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Liked && owner != userID {
		s.notifier.Send(ctx, Notice{
			UserID:      owner,
			Type:        models.NotifyLike,
			Title:       "New like",
			Message:     "Someone liked your post",
			RelatedID:   &postID,
			RelatedType: "post",
		})
	}
	return &res, nil
}

// Share re-posts a published post with an optional caption.
func (s *PostService) Share(ctx context.Context, postID, userID uint, caption string) (*models.Share, error) {
	share := &models.Share{UserID: userID, PostID: postID, SharedCaption: strings.TrimSpace(caption)}
	if len(share.SharedCaption) > maxCaptionLen {
		return nil, models.NewValidationError("Caption too long")
	}

	var owner uint
	err := s.uow.Within(ctx, func(r repository.Repos) error {
		post, err := r.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if !post.Visible() {
			return models.NewNotFoundError("Post", postID)
		}
		owner = post.UserID
		if err := r.Shares.Create(ctx, share); err != nil {
			return err
		}
		return r.Posts.AdjustCounter(ctx, postID, "share_count", 1)
	})
	if err != nil {
		return nil, err
	}

	if owner != userID {
		s.notifier.Send(ctx, Notice{
			UserID:      owner,
			Type:        models.NotifyShare,
			Title:       "Post shared",
			Message:     "Someone shared your post",
			RelatedID:   &postID,
			RelatedType: "post",
		})
	}
	return share, nil
}

func (s *PostService) ownedPost(ctx context.Context, postID, userID uint) (*models.Post, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, models.NewNotFoundError("Post", postID)
	}
	if post.UserID != userID {
		return nil, models.NewForbiddenError("You can only modify your own posts")
	}
	return post, nil
}

// keepsMedia reports whether the post has attachments after an edit that
// either replaces them (edit non-nil) or leaves them alone.
func (s *PostService) keepsMedia(ctx context.Context, postID uint, edit *[]MediaInput) (bool, error) {
	if edit != nil {
		return len(*edit) > 0, nil
	}
	current, err := s.posts.GetWithDetails(ctx, postID, 0)
	if err != nil {
		return false, err
	}
	return len(current.Media) > 0, nil
}

// requireActive clears a lapsed ban and rejects restricted accounts.
func (s *PostService) requireActive(ctx context.Context, userID uint) error {
	return requireActiveAccount(ctx, s.users, userID, s.now())
}

func (s *PostService) screen(ctx context.Context, userID uint, caption string) (ScreenResult, error) {
	if s.screener == nil || !s.flags.Enabled(featureflags.KeywordScreening, userID) {
		return ScreenResult{}, nil
	}
	res, err := s.screener.Screen(ctx, caption)
	if err != nil {
		// Screening only sets priority; a failure should not block posting.
		slog.WarnContext(ctx, "keyword screening failed", slog.String("error", err.Error()))
		return ScreenResult{}, nil
	}
	return res, nil
}

func validatePostFields(caption string, visibility models.Visibility, media []MediaInput) error {
	if len(caption) > maxCaptionLen {
		return models.NewValidationError("Caption too long (max 5000 characters)")
	}
	if !visibility.Valid() {
		return models.NewValidationError("Invalid visibility")
	}
	if len(media) > maxMediaPerPost {
		return models.NewValidationError("Too many media items (max 10)")
	}
	for _, m := range media {
		if !m.MediaType.Valid() {
			return models.NewValidationError("Invalid media type")
		}
		if strings.TrimSpace(m.MediaURL) == "" {
			return models.NewValidationError("Media url is required")
		}
	}
	return nil
}

func buildMedia(in []MediaInput) []models.PostMedia {
	media := make([]models.PostMedia, 0, len(in))
	for i, m := range in {
		media = append(media, models.PostMedia{
			MediaType:    m.MediaType,
			MediaURL:     strings.TrimSpace(m.MediaURL),
			ThumbnailURL: m.ThumbnailURL,
			Width:        m.Width,
			Height:       m.Height,
			Duration:     m.Duration,
			FileSize:     m.FileSize,
			DisplayOrder: i,
		})
	}
	return media
}

// toggleLike deletes the caller's like if present and creates it otherwise.
// It reports whether the target is liked afterwards.
func toggleLike(ctx context.Context, r repository.Repos, userID uint, target models.LikeTarget, targetID uint) (bool, error) {
	existing, err := r.Likes.Find(ctx, userID, target, targetID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, r.Likes.Delete(ctx, existing.ID)
	}
	return true, r.Likes.Create(ctx, &models.Like{UserID: userID, TargetType: target, TargetID: targetID})
}

// requireActiveAccount reactivates an account whose ban has lapsed and
// refuses banned accounts.
func requireActiveAccount(ctx context.Context, users repository.UserRepository, userID uint, now time.Time) error {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.BanExpired(now) {
		if err := users.UpdateFields(ctx, userID, map[string]any{
			"account_status": models.AccountStatusActive,
			"ban_until":      nil,
			"ban_reason":     "",
		}); err != nil {
			return err
		}
		return nil
	}
	if !user.CanPublish() {
		return models.NewForbiddenError("Account is restricted")
	}
	return nil
}
