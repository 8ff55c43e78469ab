package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"lcnetwork/internal/models"
	"lcnetwork/internal/observability"
	"lcnetwork/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

var keywordCategories = map[string]bool{
	"profanity": true, "hate_speech": true, "violence": true, "sexual": true,
	"spam": true, "scam": true, "other": true,
}

type ReviewInput struct {
	PostID      uint
	ModeratorID uint
	Decision    models.Decision
	Reason      string
}

type AddKeywordInput struct {
	Keyword  string
	Severity models.KeywordSeverity
	Category string
	IsRegex  bool
	AddedBy  uint
}

type ModerationService struct {
	uow      repository.UnitOfWork
	queue    repository.QueueRepository
	posts    repository.PostRepository
	keywords repository.KeywordRepository
	notifier *NotificationService
	now      func() time.Time
}

func NewModerationService(
	uow repository.UnitOfWork,
	queue repository.QueueRepository,
	posts repository.PostRepository,
	keywords repository.KeywordRepository,
	notifier *NotificationService,
) *ModerationService {
	return &ModerationService{
		uow:      uow,
		queue:    queue,
		posts:    posts,
		keywords: keywords,
		notifier: notifier,
		now:      time.Now,
	}
}

// Queue lists pending items, highest priority first and oldest first
// within a priority, with post targets attached.
func (s *ModerationService) Queue(ctx context.Context, page repository.Page) (models.Paginated[models.ModerationQueueItem], error) {
	items, total, err := s.queue.ListPending(ctx, page)
	if err != nil {
		return models.Paginated[models.ModerationQueueItem]{}, err
	}

	var postIDs []uint
	for _, it := range items {
		if it.TargetType == models.QueueTargetPost {
			postIDs = append(postIDs, it.TargetID)
		}
	}
	if len(postIDs) > 0 {
		posts, err := s.posts.GetByIDs(ctx, postIDs)
		if err != nil {
			return models.Paginated[models.ModerationQueueItem]{}, err
		}
		for i := range items {
			if items[i].TargetType == models.QueueTargetPost {
				items[i].Post = posts[items[i].TargetID]
			}
		}
	}
	return models.NewPaginated(items, total, page.Number, page.Size), nil
}

// Lock assigns a pending item to the moderator. Only one concurrent caller
// can win; the others see a conflict.
func (s *ModerationService) Lock(ctx context.Context, itemID, moderatorID uint) error {
	err := s.queue.Lock(ctx, itemID, moderatorID, s.now())
	observability.QueueLockAttempts.WithLabelValues(lockResult(err)).Inc()
	return err
}

func lockResult(err error) string {
	if err == nil {
		return "acquired"
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case models.CodeConflict:
			return "conflict"
		case models.CodeValidation:
			return "completed"
		case models.CodeNotFound:
			return "not_found"
		}
	}
	return "error"
}

// Review records a moderator verdict on a post and completes any open
// queue item for it, whoever locked it.
func (s *ModerationService) Review(ctx context.Context, in ReviewInput) (post *models.Post, err error) {
	ctx, finish := observability.StartOperation(ctx, "moderation.review",
		attribute.Int64("post.id", int64(in.PostID)),
		attribute.String("moderation.decision", string(in.Decision)),
	)
	defer func() { finish(err) }()

	if !in.Decision.Valid() {
		return nil, models.NewValidationError("Invalid decision")
	}

	now := s.now()
	decision := in.Decision
	fields := map[string]any{
		"moderator_id":       in.ModeratorID,
		"moderator_decision": decision,
		"moderator_reason":   strings.TrimSpace(in.Reason),
		"moderated_at":       now,
	}
	switch decision {
	case models.DecisionApprove:
		fields["status"] = models.PostStatusPublished
		fields["moderation_status"] = models.ModerationModeratorApproved
		fields["published_at"] = now
	case models.DecisionReject:
		fields["status"] = models.PostStatusRejected
		fields["moderation_status"] = models.ModerationModeratorRejected
	case models.DecisionFlag:
		fields["status"] = models.PostStatusFlagged
	}

	var closed []models.ModerationQueueItem
	err = s.uow.Within(ctx, func(r repository.Repos) error {
		current, err := r.Posts.GetByID(ctx, in.PostID)
		if err != nil {
			return err
		}
		if current.IsDeleted {
			return models.NewNotFoundError("Post", in.PostID)
		}
		if err := r.Posts.UpdateFields(ctx, in.PostID, fields); err != nil {
			return err
		}
		closed, err = r.Queue.CompleteOpen(ctx, models.QueueTargetPost, in.PostID, in.ModeratorID, now)
		if err != nil {
			return err
		}
		post, err = r.Posts.GetByID(ctx, in.PostID)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, item := range closed {
		if item.AssignedTo != nil && *item.AssignedTo != in.ModeratorID {
			slog.WarnContext(ctx, "queue item completed by a moderator other than its assignee",
				slog.Uint64("queue_id", uint64(item.ID)),
				slog.Uint64("assigned_to", uint64(*item.AssignedTo)),
				slog.Uint64("completed_by", uint64(in.ModeratorID)),
			)
		}
	}
	observability.ModerationDecisions.WithLabelValues(string(decision)).Inc()

	s.notifyAuthor(ctx, post, decision)
	return post, nil
}

func (s *ModerationService) notifyAuthor(ctx context.Context, post *models.Post, decision models.Decision) {
	n := Notice{UserID: post.UserID, RelatedID: &post.ID, RelatedType: "post"}
	switch decision {
	case models.DecisionApprove:
		n.Type = models.NotifyPostApproved
		n.Title = "Post approved"
		n.Message = "Your post has been approved and is now visible"
	case models.DecisionReject:
		n.Type = models.NotifyPostRejected
		n.Title = "Post rejected"
		n.Message = "Your post was rejected by a moderator"
		if post.ModeratorReason != "" {
			n.Message += ": " + post.ModeratorReason
		}
	default:
		return
	}
	s.notifier.Send(ctx, n)
}

func (s *ModerationService) Keywords(ctx context.Context) ([]models.BannedKeyword, error) {
	return s.keywords.List(ctx)
}

func (s *ModerationService) AddKeyword(ctx context.Context, in AddKeywordInput) (*models.BannedKeyword, error) {
	in.Keyword = strings.TrimSpace(in.Keyword)
	if in.Keyword == "" {
		return nil, models.NewValidationError("Keyword is required")
	}
	if in.Severity == "" {
		in.Severity = models.KeywordFlag
	}
	if !in.Severity.Valid() {
		return nil, models.NewValidationError("Invalid severity")
	}
	if in.Category == "" {
		in.Category = "other"
	}
	if !keywordCategories[in.Category] {
		return nil, models.NewValidationError("Invalid category")
	}
	if in.IsRegex {
		if _, err := regexp.Compile(in.Keyword); err != nil {
			return nil, models.NewValidationError("Invalid regular expression")
		}
	}

	kw := &models.BannedKeyword{
		Keyword:           in.Keyword,
		KeywordNormalized: strings.ToLower(in.Keyword),
		Severity:          in.Severity,
		Category:          in.Category,
		IsRegex:           in.IsRegex,
		IsActive:          true,
		AddedBy:           &in.AddedBy,
	}
	if err := s.keywords.Create(ctx, kw); err != nil {
		return nil, err
	}
	return kw, nil
}

// DeactivateKeyword stops screening with a keyword but keeps the row.
func (s *ModerationService) DeactivateKeyword(ctx context.Context, id uint) error {
	return s.keywords.Deactivate(ctx, id)
}
