package server

import (
	"lcnetwork/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := currentUserID(c)

	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}

// GrantRole handles POST /api/admin/users/:id/roles
// @Summary Grant a role
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Param request body object{role=string} true "user, moderator or admin"
// @Success 200 {object} object{roles=[]models.UserRole}
// @Router /admin/users/{id}/roles [post]
func (s *Server) GrantRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Role models.Role `json:"role"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	grantedBy := currentUserID(c)
	roles, err := s.users.GrantRole(c.UserContext(), id, req.Role, &grantedBy)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"roles": roles})
}

// RevokeRole handles DELETE /api/admin/users/:id/roles/:role
func (s *Server) RevokeRole(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	roles, err := s.users.RevokeRole(c.UserContext(), id, models.Role(c.Params("role")))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"roles": roles})
}
