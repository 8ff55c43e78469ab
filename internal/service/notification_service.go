package service

import (
	"context"
	"log/slog"

	"lcnetwork/internal/cache"
	"lcnetwork/internal/models"
	"lcnetwork/internal/observability"
	"lcnetwork/internal/repository"
)

// NotificationList is a page of notifications plus the caller's unread total.
type NotificationList struct {
	models.Paginated[models.Notification]
	UnreadCount int64 `json:"unread_count"`
}

type NotificationService struct {
	repo repository.NotificationRepository
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo}
}

// Notice describes one notification to deliver.
type Notice struct {
	UserID      uint
	Type        models.NotificationType
	Title       string
	Message     string
	RelatedID   *uint
	RelatedType string
}

// Send stores a notification. Failures are logged and never surfaced, so
// callers invoke it after their own commit.
func (s *NotificationService) Send(ctx context.Context, n Notice) {
	if s == nil || n.UserID == 0 {
		return
	}
	row := &models.Notification{
		UserID:      n.UserID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		RelatedID:   n.RelatedID,
		RelatedType: n.RelatedType,
	}
	if err := s.repo.Create(ctx, row); err != nil {
		slog.WarnContext(ctx, "failed to create notification",
			slog.Uint64("recipient_id", uint64(n.UserID)),
			slog.String("type", string(n.Type)),
			slog.String("error", err.Error()),
		)
		return
	}
	observability.NotificationsCreated.WithLabelValues(string(n.Type)).Inc()
	cache.InvalidateUnreadCount(ctx, n.UserID)
}

func (s *NotificationService) List(ctx context.Context, userID uint, unreadOnly bool, page repository.Page) (*NotificationList, error) {
	items, total, err := s.repo.ListByUser(ctx, userID, unreadOnly, page)
	if err != nil {
		return nil, err
	}
	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &NotificationList{
		Paginated:   models.NewPaginated(items, total, page.Number, page.Size),
		UnreadCount: unread,
	}, nil
}

// UnreadCount is served from Redis when available.
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := cache.Aside(ctx, cache.UnreadCountKey(userID), &count, cache.UnreadCountTTL, func() error {
		n, err := s.repo.CountUnread(ctx, userID)
		if err != nil {
			return err
		}
		count = n
		return nil
	})
	return count, err
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID uint) error {
	ok, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewNotFoundError("Notification", id)
	}
	cache.InvalidateUnreadCount(ctx, userID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	cache.InvalidateUnreadCount(ctx, userID)
	return n, nil
}
