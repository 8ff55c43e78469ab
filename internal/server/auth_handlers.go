package server

import (
	"errors"

	"lcnetwork/internal/middleware"
	"lcnetwork/internal/models"
	"lcnetwork/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Register handles POST /api/auth/register
// @Summary Register
// @Description Create an unverified account and send a one-time code to its email
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,username=string,password=string,full_name=string,phone_number=string} true "Registration"
// @Success 201 {object} object{message=string,user_id=int,email=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req struct {
		Email       string `json:"email"`
		Username    string `json:"username"`
		Password    string `json:"password"`
		FullName    string `json:"full_name"`
		PhoneNumber string `json:"phone_number"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	res, err := s.auth.Register(c.UserContext(), service.RegisterInput{
		Email:       req.Email,
		Username:    req.Username,
		Password:    req.Password,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Meta:        requestMeta(c),
	})
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Registration successful. Please check your email for the verification code.",
		"user_id": res.UserID,
		"email":   res.Email,
	})
}

// VerifyOTP handles POST /api/auth/verify-otp
// @Summary Verify OTP
// @Description Confirm the emailed code. Expired codes cancel the registration.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{user_id=int,otp_code=string} true "Verification"
// @Success 200 {object} service.AuthTokens
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /auth/verify-otp [post]
func (s *Server) VerifyOTP(c *fiber.Ctx) error {
	var req struct {
		UserID  uint   `json:"user_id"`
		OTPCode string `json:"otp_code"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	tokens, err := s.auth.VerifyOTP(c.UserContext(), req.UserID, req.OTPCode, requestMeta(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(tokens)
}

// ResendOTP handles POST /api/auth/resend-otp
// @Summary Resend OTP
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{user_id=int} true "Account"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/resend-otp [post]
func (s *Server) ResendOTP(c *fiber.Ctx) error {
	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	if err := s.auth.ResendOTP(c.UserContext(), req.UserID); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "A new verification code has been sent"})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate and return an access and refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} service.AuthTokens
// @Failure 401 {object} models.ErrorResponse
// @Failure 403 {object} object{error=string,ban_reason=string,ban_until=string}
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	tokens, err := s.auth.Login(c.UserContext(), req.Email, req.Password, requestMeta(c))
	if err != nil {
		var banned *service.AccountBannedError
		if errors.As(err, &banned) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":      banned.Error(),
				"code":       models.CodeForbidden,
				"ban_reason": banned.Reason,
				"ban_until":  banned.Until,
			})
		}
		return models.Respond(c, err)
	}
	return c.JSON(tokens)
}

// Refresh handles POST /api/auth/refresh
// @Summary Refresh access token
// @Description Exchange the refresh token in the Authorization header for a new access token
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.AuthTokens
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/refresh [post]
func (s *Server) Refresh(c *fiber.Ctx) error {
	claims, _ := c.Locals("token").(*middleware.TokenClaims)
	if claims == nil {
		return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError("Authorization required"))
	}
	tokens, err := s.auth.Refresh(c.UserContext(), claims)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(tokens)
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the presented access token and, when supplied, the session's refresh token
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{refresh_token=string} false "Refresh token to revoke"
// @Success 200 {object} object{message=string}
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	claims, _ := c.Locals("token").(*middleware.TokenClaims)
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return nil
		}
	}
	if err := s.auth.Logout(c.UserContext(), claims, req.RefreshToken, requestMeta(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Successfully logged out"})
}
