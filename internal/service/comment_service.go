package service

import (
	"context"
	"strings"
	"time"

	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"
)

const maxCommentLen = 10000

type CreateCommentInput struct {
	UserID          uint
	PostID          uint
	Content         string
	ParentCommentID *uint
	MediaURL        string
	MediaType       models.MediaType
}

type UpdateCommentInput struct {
	UserID    uint
	CommentID uint
	Content   string
}

type CommentService struct {
	uow      repository.UnitOfWork
	comments repository.CommentRepository
	posts    repository.PostRepository
	users    repository.UserRepository
	notifier *NotificationService
	now      func() time.Time
}

func NewCommentService(
	uow repository.UnitOfWork,
	comments repository.CommentRepository,
	posts repository.PostRepository,
	users repository.UserRepository,
	notifier *NotificationService,
) *CommentService {
	return &CommentService{
		uow:      uow,
		comments: comments,
		posts:    posts,
		users:    users,
		notifier: notifier,
		now:      time.Now,
	}
}

// Create adds a comment to a published post. Replying to a reply attaches
// the new comment to the thread's top-level comment.
func (s *CommentService) Create(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" && in.MediaURL == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}
	if in.MediaURL != "" && !in.MediaType.Valid() {
		return nil, models.NewValidationError("Invalid media type")
	}
	if err := requireActiveAccount(ctx, s.users, in.UserID, s.now()); err != nil {
		return nil, err
	}

	comment := &models.Comment{
		PostID:    in.PostID,
		UserID:    in.UserID,
		Content:   in.Content,
		MediaURL:  in.MediaURL,
		MediaType: in.MediaType,
	}

	var (
		postOwner   uint
		parentOwner uint
	)
	err := s.uow.Within(ctx, func(r repository.Repos) error {
		post, err := r.Posts.GetByID(ctx, in.PostID)
		if err != nil {
			return err
		}
		if !post.Visible() {
			return models.NewNotFoundError("Post", in.PostID)
		}
		postOwner = post.UserID

		if in.ParentCommentID != nil {
			parent, err := r.Comments.GetByID(ctx, *in.ParentCommentID)
			if err != nil {
				return err
			}
			if parent.PostID != in.PostID {
				return models.NewValidationError("Parent comment belongs to another post")
			}
			rootID := parent.ID
			if parent.IsReply() {
				rootID = *parent.ParentCommentID
			}
			comment.ParentCommentID = &rootID
			parentOwner = parent.UserID
		}

		if err := r.Comments.Create(ctx, comment); err != nil {
			return err
		}
		return r.Posts.AdjustCounter(ctx, in.PostID, "comment_count", 1)
	})
	if err != nil {
		return nil, err
	}

	postID := in.PostID
	if postOwner != in.UserID {
		s.notifier.Send(ctx, Notice{
			UserID:      postOwner,
			Type:        models.NotifyComment,
			Title:       "New comment",
			Message:     "Someone commented on your post",
			RelatedID:   &postID,
			RelatedType: "post",
		})
	}
	if parentOwner != 0 && parentOwner != in.UserID && parentOwner != postOwner {
		s.notifier.Send(ctx, Notice{
			UserID:      parentOwner,
			Type:        models.NotifyComment,
			Title:       "New reply",
			Message:     "Someone replied to your comment",
			RelatedID:   comment.ParentCommentID,
			RelatedType: "comment",
		})
	}

	return s.comments.GetByID(ctx, comment.ID)
}

// List returns top-level comments of a post, newest first.
func (s *CommentService) List(ctx context.Context, postID, viewerID uint, page repository.Page) (models.Paginated[models.Comment], error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return models.Paginated[models.Comment]{}, err
	}
	if post.IsDeleted {
		return models.Paginated[models.Comment]{}, models.NewNotFoundError("Post", postID)
	}
	comments, total, err := s.comments.ListByPost(ctx, postID, page, viewerID)
	if err != nil {
		return models.Paginated[models.Comment]{}, err
	}
	return models.NewPaginated(comments, total, page.Number, page.Size), nil
}

// Replies returns every reply of a top-level comment, oldest first.
func (s *CommentService) Replies(ctx context.Context, commentID, viewerID uint) ([]models.Comment, error) {
	if _, err := s.comments.GetByID(ctx, commentID); err != nil {
		return nil, err
	}
	return s.comments.ListReplies(ctx, commentID, viewerID)
}

func (s *CommentService) Update(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	in.Content = strings.TrimSpace(in.Content)
	if in.Content == "" {
		return nil, models.NewValidationError("Content is required")
	}
	if len(in.Content) > maxCommentLen {
		return nil, models.NewValidationError("Comment too long (max 10000 characters)")
	}

	comment, err := s.comments.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own comments")
	}
	comment.Content = in.Content
	if err := s.comments.Update(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// Delete removes a comment and its replies. The comment author and the post
// owner may delete; the post's comment_count drops by the rows removed.
func (s *CommentService) Delete(ctx context.Context, commentID, userID uint) error {
	return s.uow.Within(ctx, func(r repository.Repos) error {
		comment, err := r.Comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		post, err := r.Posts.GetByID(ctx, comment.PostID)
		if err != nil {
			return err
		}
		if comment.UserID != userID && post.UserID != userID {
			return models.NewForbiddenError("You can only delete your own comments or comments on your posts")
		}

		removed, err := r.Comments.DeleteWithReplies(ctx, commentID)
		if err != nil {
			return err
		}
		return r.Posts.AdjustCounter(ctx, post.ID, "comment_count", -int(removed))
	})
}

func (s *CommentService) ToggleLike(ctx context.Context, commentID, userID uint) (*ToggleResult, error) {
	var (
		res   ToggleResult
		owner uint
	)
	err := s.uow.Within(ctx, func(r repository.Repos) error {
		comment, err := r.Comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if comment.IsBlocked {
			return models.NewNotFoundError("Comment", commentID)
		}
		owner = comment.UserID

		liked, err := toggleLike(ctx, r, userID, models.LikeTargetComment, commentID)
		if err != nil {
			return err
		}
		delta := -1
		if liked {
			delta = 1
		}
		if err := r.Comments.AdjustLikes(ctx, commentID, delta); err != nil {
			return err
		}
		fresh, err := r.Comments.GetByID(ctx, commentID)
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
			Message:     "Someone liked your comment",
			RelatedID:   &commentID,
			RelatedType: "comment",
		})
	}
	return &res, nil
}
