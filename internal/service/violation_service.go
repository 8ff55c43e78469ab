package service

import (
	"context"
	"strings"
	"time"

	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"
)

type RecordViolationInput struct {
	UserID        uint
	ModeratorID   uint
	ViolationType models.ViolationType
	Severity      models.Severity
	Action        models.ViolationAction
	PostID        *uint
	CommentID     *uint
	Description   string
}

type ViolationService struct {
	uow        repository.UnitOfWork
	violations repository.ViolationRepository
	notifier   *NotificationService
	now        func() time.Time
}

func NewViolationService(uow repository.UnitOfWork, violations repository.ViolationRepository, notifier *NotificationService) *ViolationService {
	return &ViolationService{uow: uow, violations: violations, notifier: notifier, now: time.Now}
}

// Record appends a violation and applies its sanction to the account in
// the same transaction.
func (s *ViolationService) Record(ctx context.Context, in RecordViolationInput) (*models.ViolationHistory, error) {
	switch {
	case !in.ViolationType.Valid():
		return nil, models.NewValidationError("Invalid violation type")
	case !in.Severity.Valid():
		return nil, models.NewValidationError("Invalid severity")
	case !in.Action.Valid():
		return nil, models.NewValidationError("Invalid action")
	case in.Action == models.ActionContentRemoval && in.PostID == nil:
		return nil, models.NewValidationError("post_id is required for content removal")
	}

	now := s.now()
	v := &models.ViolationHistory{
		UserID:        in.UserID,
		ViolationType: in.ViolationType,
		Severity:      in.Severity,
		PostID:        in.PostID,
		CommentID:     in.CommentID,
		Description:   strings.TrimSpace(in.Description),
		ActionTaken:   in.Action,
		ActionBy:      &in.ModeratorID,
	}
	if d := in.Action.Duration(); d > 0 {
		expires := now.Add(d)
		v.ExpiresAt = &expires
	}

	err := s.uow.Within(ctx, func(r repository.Repos) error {
		user, err := r.Users.GetByID(ctx, in.UserID)
		if err != nil {
			return err
		}
		if in.PostID != nil {
			post, err := r.Posts.GetByID(ctx, *in.PostID)
			if err != nil {
				return err
			}
			if post.UserID != in.UserID {
				return models.NewValidationError("Post does not belong to this user")
			}
		}
		if err := r.Violations.Create(ctx, v); err != nil {
			return err
		}
		return s.sanction(ctx, r, user, v, now)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Send(ctx, Notice{
		UserID:      in.UserID,
		Type:        models.NotifyViolationWarning,
		Title:       "Community guidelines violation",
		Message:     violationMessage(v),
		RelatedID:   &v.ID,
		RelatedType: "violation",
	})
	return v, nil
}

func (s *ViolationService) sanction(ctx context.Context, r repository.Repos, user *models.User, v *models.ViolationHistory, now time.Time) error {
	reason := v.Description
	if reason == "" {
		reason = string(v.ViolationType)
	}

	switch v.ActionTaken {
	case models.ActionWarning:
		if user.IsBanned(now) {
			return r.Users.UpdateFields(ctx, user.ID, map[string]any{"warning_count": user.WarningCount + 1})
		}
		return r.Users.IncrementWarnings(ctx, user.ID)
	case models.ActionMute1d, models.ActionMute3d, models.ActionMute7d, models.ActionTemporaryBan:
		// A longer ban already in force is kept.
		if user.IsBanned(now) && (user.BanUntil == nil || user.BanUntil.After(*v.ExpiresAt)) {
			return nil
		}
		return r.Users.UpdateFields(ctx, user.ID, map[string]any{
			"account_status": models.AccountStatusBanned,
			"ban_until":      *v.ExpiresAt,
			"ban_reason":     reason,
		})
	case models.ActionPermanentBan:
		return r.Users.UpdateFields(ctx, user.ID, map[string]any{
			"account_status": models.AccountStatusBanned,
			"ban_until":      nil,
			"ban_reason":     reason,
		})
	case models.ActionContentRemoval:
		if err := r.Posts.UpdateFields(ctx, *v.PostID, map[string]any{
			"status":             models.PostStatusRejected,
			"moderation_status":  models.ModerationModeratorRejected,
			"moderator_id":       v.ActionBy,
			"moderator_decision": models.DecisionReject,
			"moderator_reason":   reason,
			"moderated_at":       now,
		}); err != nil {
			return err
		}
		_, err := r.Queue.CompleteOpen(ctx, models.QueueTargetPost, *v.PostID, *v.ActionBy, now)
		return err
	}
	return nil
}

func violationMessage(v *models.ViolationHistory) string {
	switch v.ActionTaken {
	case models.ActionWarning:
		return "You received a warning for " + string(v.ViolationType)
	case models.ActionPermanentBan:
		return "Your account has been permanently banned for " + string(v.ViolationType)
	case models.ActionContentRemoval:
		return "Your content was removed for " + string(v.ViolationType)
	default:
		return "Your account is restricted until " + v.ExpiresAt.UTC().Format(time.RFC1123) + " for " + string(v.ViolationType)
	}
}

func (s *ViolationService) ForUser(ctx context.Context, userID uint) ([]models.ViolationHistory, error) {
	return s.violations.ListByUser(ctx, userID)
}
