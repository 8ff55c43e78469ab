package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"lcnetwork/internal/models"
	"lcnetwork/internal/repository"

	"gorm.io/datatypes"
)

// RequestMeta carries client details recorded in the activity log.
type RequestMeta struct {
	IP        string
	UserAgent string
}

// ActivityService writes and lists account audit entries.
type ActivityService struct {
	repo repository.ActivityRepository
}

func NewActivityService(repo repository.ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

// Record never fails the caller; write errors are logged and dropped.
func (s *ActivityService) Record(ctx context.Context, userID uint, activity models.ActivityType, meta RequestMeta, extra map[string]any) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &models.UserActivityLog{
		UserID:       userID,
		ActivityType: activity,
		IPAddress:    meta.IP,
		UserAgent:    meta.UserAgent,
	}
	if len(extra) > 0 {
		if raw, err := json.Marshal(extra); err == nil {
			entry.Metadata = datatypes.JSON(raw)
		}
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		slog.WarnContext(ctx, "failed to record activity",
			slog.Uint64("user_id", uint64(userID)),
			slog.String("activity", string(activity)),
			slog.String("error", err.Error()),
		)
	}
}

func (s *ActivityService) List(ctx context.Context, userID uint, page repository.Page) (models.Paginated[models.UserActivityLog], error) {
	entries, total, err := s.repo.ListByUser(ctx, userID, page)
	if err != nil {
		return models.Paginated[models.UserActivityLog]{}, err
	}
	return models.NewPaginated(entries, total, page.Number, page.Size), nil
}
