package server

import (
	"lcnetwork/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetNotifications handles GET /api/notifications?filter=all|unread
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Security BearerAuth
// @Param filter query string false "all or unread"
// @Success 200 {object} service.NotificationList
// @Router /notifications [get]
func (s *Server) GetNotifications(c *fiber.Ctx) error {
	filter := c.Query("filter", "all")
	if filter != "all" && filter != "unread" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("filter must be all or unread"))
	}

	list, err := s.notifications.List(c.UserContext(), currentUserID(c), filter == "unread", s.page(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(list)
}

// GetUnreadCount handles GET /api/notifications/unread-count
func (s *Server) GetUnreadCount(c *fiber.Ctx) error {
	count, err := s.notifications.UnreadCount(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": count})
}

// MarkNotificationRead handles POST /api/notifications/:id/read
func (s *Server) MarkNotificationRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.notifications.MarkRead(c.UserContext(), id, currentUserID(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Notification marked as read"})
}

// MarkAllNotificationsRead handles POST /api/notifications/mark-all-read
func (s *Server) MarkAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.notifications.MarkAllRead(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "All notifications marked as read", "updated": n})
}
