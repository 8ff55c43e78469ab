package server

import (
	"lcnetwork/internal/models"
	"lcnetwork/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetProfile handles GET /api/users/profile
// @Summary Get own profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.User
// @Router /users/profile [get]
func (s *Server) GetProfile(c *fiber.Ctx) error {
	user, err := s.users.Profile(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile handles PUT /api/users/profile
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{full_name=string,phone_number=string,username=string} true "Fields to change"
// @Success 200 {object} models.User
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/profile [put]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		FullName    *string `json:"full_name"`
		PhoneNumber *string `json:"phone_number"`
		Username    *string `json:"username"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	user, err := s.users.UpdateProfile(c.UserContext(), service.UpdateProfileInput{
		UserID:      currentUserID(c),
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Username:    req.Username,
		Meta:        requestMeta(c),
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user)
}

// UploadAvatar handles POST /api/users/profile/avatar
// @Summary Upload avatar
// @Tags users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Avatar image"
// @Success 200 {object} models.User
// @Router /users/profile/avatar [post]
func (s *Server) UploadAvatar(c *fiber.Ctx) error {
	name, content, err := s.formFile(c, "file")
	if err != nil {
		return nil
	}

	stored, err := s.media.Upload(c.UserContext(), service.UploadInput{
		Folder:    service.FolderAvatars,
		MediaType: models.MediaTypeImage,
		Filename:  name,
		Content:   content,
	})
	if err != nil {
		return models.Respond(c, err)
	}

	user, err := s.users.SetAvatar(c.UserContext(), currentUserID(c), stored.URL, requestMeta(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(user)
}

// GetPublicProfile handles GET /api/users/profile/:id
// @Summary Get a member's public profile
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.PublicProfile
// @Failure 404 {object} models.ErrorResponse
// @Router /users/profile/{id} [get]
func (s *Server) GetPublicProfile(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	profile, err := s.users.PublicProfile(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(profile)
}

// GetActivityLogs handles GET /api/users/activity-logs
func (s *Server) GetActivityLogs(c *fiber.Ctx) error {
	logs, err := s.activity.List(c.UserContext(), currentUserID(c), s.page(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(logs)
}

// ChangePassword handles POST /api/users/change-password
// @Summary Change password
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{current_password=string,new_password=string} true "Passwords"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /users/change-password [post]
func (s *Server) ChangePassword(c *fiber.Ctx) error {
	var req struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if err := s.auth.ChangePassword(c.UserContext(), currentUserID(c), req.CurrentPassword, req.NewPassword, requestMeta(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

// GetBlockedUsers handles GET /api/users/blocks
func (s *Server) GetBlockedUsers(c *fiber.Ctx) error {
	blocked, err := s.blocks.List(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"blocked_users": blocked})
}

// BlockUser handles POST /api/users/:id/block
func (s *Server) BlockUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.blocks.Block(c.UserContext(), currentUserID(c), id); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "User blocked"})
}

// UnblockUser handles DELETE /api/users/:id/block
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.blocks.Unblock(c.UserContext(), currentUserID(c), id); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "User unblocked"})
}

// GetMyViolations handles GET /api/users/violations
func (s *Server) GetMyViolations(c *fiber.Ctx) error {
	violations, err := s.violations.ForUser(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"violations": violations})
}
