package service

import (
	"context"
	"strings"
	"time"

	"lcnetwork/internal/config"
	"lcnetwork/internal/models"
	"lcnetwork/internal/observability"
	"lcnetwork/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	maxAppealReasonLen = 5000
	maxEvidenceURLs    = 5
)

type CreateAppealInput struct {
	UserID       uint
	AppealType   models.AppealType
	TargetID     *uint
	Reason       string
	EvidenceURLs []string
}

type ReviewAppealInput struct {
	AppealID    uint
	ModeratorID uint
	Decision    string
	Note        string
}

type AppealService struct {
	uow        repository.UnitOfWork
	appeals    repository.AppealRepository
	notifier   *NotificationService
	deadline   time.Duration
	maxPerItem int
	now        func() time.Time
}

func NewAppealService(
	uow repository.UnitOfWork,
	appeals repository.AppealRepository,
	notifier *NotificationService,
	cfg *config.Config,
) *AppealService {
	return &AppealService{
		uow:        uow,
		appeals:    appeals,
		notifier:   notifier,
		deadline:   cfg.AppealDeadline(),
		maxPerItem: cfg.MaxAppealsPerTarget,
		now:        time.Now,
	}
}

// Create files an appeal against one of the caller's own moderation
// outcomes and queues it for review.
func (s *AppealService) Create(ctx context.Context, in CreateAppealInput) (*models.Appeal, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if !in.AppealType.Valid() {
		return nil, models.NewValidationError("Invalid appeal type")
	}
	if in.Reason == "" {
		return nil, models.NewValidationError("Reason is required")
	}
	if len(in.Reason) > maxAppealReasonLen {
		return nil, models.NewValidationError("Reason too long (max 5000 characters)")
	}
	if len(in.EvidenceURLs) > maxEvidenceURLs {
		return nil, models.NewValidationError("Too many evidence links (max 5)")
	}
	if in.AppealType == models.AppealPostRejection {
		if in.TargetID == nil {
			return nil, models.NewValidationError("target_id is required for post appeals")
		}
	} else {
		in.TargetID = nil
	}

	appeal := &models.Appeal{
		UserID:       in.UserID,
		AppealType:   in.AppealType,
		TargetID:     in.TargetID,
		Reason:       in.Reason,
		EvidenceURLs: in.EvidenceURLs,
		Status:       models.AppealStatusPending,
	}

	err := s.uow.Within(ctx, func(r repository.Repos) error {
		if err := s.checkAppealable(ctx, r, in); err != nil {
			return err
		}
		n, err := r.Appeals.CountForTarget(ctx, in.UserID, in.AppealType, in.TargetID)
		if err != nil {
			return err
		}
		if s.maxPerItem > 0 && n >= int64(s.maxPerItem) {
			return models.NewConflictError("Appeal limit reached for this decision")
		}
		if err := r.Appeals.Create(ctx, appeal); err != nil {
			return err
		}
		if in.AppealType == models.AppealPostRejection {
			if err := r.Posts.UpdateFields(ctx, *in.TargetID, map[string]any{"status": models.PostStatusUnderReview}); err != nil {
				return err
			}
		}
		return r.Queue.Enqueue(ctx, &models.ModerationQueueItem{
			TargetType: models.QueueTargetAppeal,
			TargetID:   appeal.ID,
			Source:     models.QueueSourceAppeal,
			Priority:   models.PriorityReview,
		})
	})
	if err != nil {
		return nil, err
	}
	observability.QueueEnqueued.WithLabelValues(string(models.QueueSourceAppeal)).Inc()
	return appeal, nil
}

func (s *AppealService) checkAppealable(ctx context.Context, r repository.Repos, in CreateAppealInput) error {
	switch in.AppealType {
	case models.AppealPostRejection:
		post, err := r.Posts.GetByID(ctx, *in.TargetID)
		if err != nil {
			return err
		}
		if post.UserID != in.UserID {
			return models.NewForbiddenError("You can only appeal decisions on your own posts")
		}
		if post.IsDeleted || post.Status != models.PostStatusRejected {
			return models.NewValidationError("Only rejected posts can be appealed")
		}
		decidedAt := post.UpdatedAt
		if post.ModeratedAt != nil {
			decidedAt = *post.ModeratedAt
		}
		if s.now().Sub(decidedAt) > s.deadline {
			return models.NewValidationError("The appeal window for this post has closed")
		}
	case models.AppealAccountWarning:
		user, err := r.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		if user.WarningCount == 0 && user.AccountStatus != models.AccountStatusWarning {
			return models.NewValidationError("Your account has no warnings to appeal")
		}
	case models.AppealAccountBan:
		user, err := r.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		if !user.IsBanned(s.now()) {
			return models.NewValidationError("Your account is not banned")
		}
	}
	return nil
}

// Review decides an open appeal exactly once. Approving a post appeal
// republishes the post directly, without another moderation pass.
func (s *AppealService) Review(ctx context.Context, in ReviewAppealInput) (appeal *models.Appeal, err error) {
	ctx, finish := observability.StartOperation(ctx, "moderation.appeal_review",
		attribute.Int64("appeal.id", int64(in.AppealID)),
		attribute.String("appeal.decision", in.Decision),
	)
	defer func() { finish(err) }()

	var status models.AppealStatus
	switch in.Decision {
	case "approve":
		status = models.AppealStatusApproved
	case "reject":
		status = models.AppealStatusRejected
	default:
		return nil, models.NewValidationError("Invalid decision")
	}

	now := s.now()
	err = s.uow.Within(ctx, func(r repository.Repos) error {
		var err error
		appeal, err = r.Appeals.GetByID(ctx, in.AppealID)
		if err != nil {
			return err
		}
		if !appeal.Status.Open() {
			return models.NewConflictError("Appeal already decided")
		}
		appeal.Status = status
		appeal.ReviewedBy = &in.ModeratorID
		appeal.ModeratorDecision = strings.TrimSpace(in.Note)
		appeal.ReviewedAt = &now
		if err := r.Appeals.Decide(ctx, appeal); err != nil {
			return err
		}
		if err := s.applyOutcome(ctx, r, appeal, in.ModeratorID, now); err != nil {
			return err
		}
		_, err = r.Queue.CompleteOpen(ctx, models.QueueTargetAppeal, appeal.ID, in.ModeratorID, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	observability.AppealDecisions.WithLabelValues(string(status)).Inc()

	msg := "Your appeal was rejected"
	if status == models.AppealStatusApproved {
		msg = "Your appeal was approved"
	}
	if appeal.ModeratorDecision != "" {
		msg += ": " + appeal.ModeratorDecision
	}
	s.notifier.Send(ctx, Notice{
		UserID:      appeal.UserID,
		Type:        models.NotifyAppealResult,
		Title:       "Appeal reviewed",
		Message:     msg,
		RelatedID:   &appeal.ID,
		RelatedType: "appeal",
	})
	return appeal, nil
}

func (s *AppealService) applyOutcome(ctx context.Context, r repository.Repos, appeal *models.Appeal, moderatorID uint, now time.Time) error {
	approved := appeal.Status == models.AppealStatusApproved
	switch appeal.AppealType {
	case models.AppealPostRejection:
		if appeal.TargetID == nil {
			return nil
		}
		postID := *appeal.TargetID
		post, err := r.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.IsDeleted {
			return nil
		}
		if !approved {
			if post.Status == models.PostStatusUnderReview {
				return r.Posts.UpdateFields(ctx, postID, map[string]any{"status": models.PostStatusRejected})
			}
			return nil
		}
		if err := r.Posts.UpdateFields(ctx, postID, map[string]any{
			"status":            models.PostStatusPublished,
			"moderation_status": models.ModerationModeratorApproved,
			"published_at":      now,
		}); err != nil {
			return err
		}
		_, err = r.Queue.CompleteOpen(ctx, models.QueueTargetPost, postID, moderatorID, now)
		return err
	case models.AppealAccountWarning:
		if !approved {
			return nil
		}
		user, err := r.Users.GetByID(ctx, appeal.UserID)
		if err != nil {
			return err
		}
		fields := map[string]any{}
		if user.WarningCount > 0 {
			fields["warning_count"] = user.WarningCount - 1
		}
		if user.AccountStatus == models.AccountStatusWarning {
			fields["account_status"] = models.AccountStatusActive
		}
		if len(fields) == 0 {
			return nil
		}
		return r.Users.UpdateFields(ctx, user.ID, fields)
	case models.AppealAccountBan:
		if !approved {
			return nil
		}
		return r.Users.UpdateFields(ctx, appeal.UserID, map[string]any{
			"account_status": models.AccountStatusActive,
			"ban_until":      nil,
			"ban_reason":     "",
		})
	}
	return nil
}

// ForReview lists appeals in a status for moderators, oldest first.
func (s *AppealService) ForReview(ctx context.Context, status models.AppealStatus, page repository.Page) (models.Paginated[models.Appeal], error) {
	if status == "" {
		status = models.AppealStatusPending
	}
	appeals, total, err := s.appeals.ListByStatus(ctx, status, page)
	if err != nil {
		return models.Paginated[models.Appeal]{}, err
	}
	return models.NewPaginated(appeals, total, page.Number, page.Size), nil
}

func (s *AppealService) Mine(ctx context.Context, userID uint) ([]models.Appeal, error) {
	return s.appeals.ListByUser(ctx, userID)
}
