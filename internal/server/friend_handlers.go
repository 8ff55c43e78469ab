package server

import (
	"lcnetwork/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SendFriendRequest handles POST /api/friends/request/:id
// @Summary Send friend request
// @Tags friends
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 201 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /friends/request/{id} [post]
func (s *Server) SendFriendRequest(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.friends.SendRequest(c.UserContext(), currentUserID(c), targetID); err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "Friend request sent"})
}

// AcceptFriendRequest handles POST /api/friends/request/:id/accept
// where id is the requester.
// @Summary Accept friend request
// @Tags friends
// @Produce json
// @Security BearerAuth
// @Param id path int true "Requester user ID"
// @Success 200 {object} object{message=string}
// @Failure 404 {object} models.ErrorResponse
// @Router /friends/request/{id}/accept [post]
func (s *Server) AcceptFriendRequest(c *fiber.Ctx) error {
	requesterID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.friends.Accept(c.UserContext(), currentUserID(c), requesterID); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Friend request accepted"})
}

// RejectFriendRequest handles POST /api/friends/request/:id/reject
func (s *Server) RejectFriendRequest(c *fiber.Ctx) error {
	requesterID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.friends.Reject(c.UserContext(), currentUserID(c), requesterID); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Friend request rejected"})
}

// GetFriends handles GET /api/friends
func (s *Server) GetFriends(c *fiber.Ctx) error {
	friends, err := s.friends.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"friends": friends})
}

// GetFriendRequests handles GET /api/friends/requests
func (s *Server) GetFriendRequests(c *fiber.Ctx) error {
	requests, err := s.friends.Incoming(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"requests": requests})
}

// RemoveFriend handles DELETE /api/friends/:id
func (s *Server) RemoveFriend(c *fiber.Ctx) error {
	friendID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.friends.Unfriend(c.UserContext(), currentUserID(c), friendID); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Friend removed"})
}
