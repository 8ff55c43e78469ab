package server

import (
	"lcnetwork/internal/models"
	"lcnetwork/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetModerationQueue handles GET /api/moderation/queue
// @Summary Moderation queue
// @Description Pending items by priority, then age, with post content attached
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Paginated[models.ModerationQueueItem]
// @Failure 403 {object} models.ErrorResponse
// @Router /moderation/queue [get]
func (s *Server) GetModerationQueue(c *fiber.Ctx) error {
	items, err := s.moderation.Queue(c.UserContext(), s.page(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(items)
}

// LockQueueItem handles POST /api/moderation/queue/:id/lock
// @Summary Lock a queue item
// @Description Assigns a pending item to the caller; a second locker gets 409
// @Tags moderation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Queue item ID"
// @Success 200 {object} object{message=string}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /moderation/queue/{id}/lock [post]
func (s *Server) LockQueueItem(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.moderation.Lock(c.UserContext(), id, currentUserID(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Queue item locked", "queue_id": id})
}

// ReviewPost handles POST /api/moderation/review/:post_id
// @Summary Review a post
// @Tags moderation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param post_id path int true "Post ID"
// @Param request body object{decision=string,reason=string} true "approve, reject or flag"
// @Success 200 {object} models.Post
// @Router /moderation/review/{post_id} [post]
func (s *Server) ReviewPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "post_id")
	if err != nil {
		return nil
	}
	var req struct {
		Decision models.Decision `json:"decision"`
		Reason   string          `json:"reason"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	post, err := s.moderation.Review(c.UserContext(), service.ReviewInput{
		PostID:      postID,
		ModeratorID: currentUserID(c),
		Decision:    req.Decision,
		Reason:      req.Reason,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post reviewed", "post": post})
}

// GetAppeals handles GET /api/moderation/appeals?status=
func (s *Server) GetAppeals(c *fiber.Ctx) error {
	appeals, err := s.appeals.ForReview(c.UserContext(), models.AppealStatus(c.Query("status")), s.page(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(appeals)
}

// ReviewAppeal handles POST /api/moderation/appeal/:id/review
// @Summary Review an appeal
// @Description Approving a post appeal republishes the post
// @Tags moderation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Appeal ID"
// @Param request body object{decision=string,note=string} true "approve or reject"
// @Success 200 {object} models.Appeal
// @Failure 409 {object} models.ErrorResponse
// @Router /moderation/appeal/{id}/review [post]
func (s *Server) ReviewAppeal(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Decision string `json:"decision"`
		Note     string `json:"note"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	appeal, err := s.appeals.Review(c.UserContext(), service.ReviewAppealInput{
		AppealID:    id,
		ModeratorID: currentUserID(c),
		Decision:    req.Decision,
		Note:        req.Note,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(appeal)
}

// GetReports handles GET /api/moderation/reports?status=
func (s *Server) GetReports(c *fiber.Ctx) error {
	reports, err := s.reports.List(c.UserContext(), models.ReportStatus(c.Query("status")), s.page(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(reports)
}

// ResolveReport handles POST /api/moderation/reports/:id/resolve
func (s *Server) ResolveReport(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Status models.ReportStatus `json:"status"`
		Note   string              `json:"note"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	report, err := s.reports.Resolve(c.UserContext(), service.ResolveReportInput{
		ReportID:    id,
		ModeratorID: currentUserID(c),
		Status:      req.Status,
		Note:        req.Note,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(report)
}

// RecordViolation handles POST /api/moderation/violations
// @Summary Record a violation
// @Description Appends to the user's history and applies the action to the account
// @Tags moderation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 201 {object} models.ViolationHistory
// @Router /moderation/violations [post]
func (s *Server) RecordViolation(c *fiber.Ctx) error {
	var req struct {
		UserID        uint                   `json:"user_id"`
		ViolationType models.ViolationType   `json:"violation_type"`
		Severity      models.Severity        `json:"severity"`
		Action        models.ViolationAction `json:"action_taken"`
		PostID        *uint                  `json:"post_id"`
		CommentID     *uint                  `json:"comment_id"`
		Description   string                 `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	v, err := s.violations.Record(c.UserContext(), service.RecordViolationInput{
		UserID:        req.UserID,
		ModeratorID:   currentUserID(c),
		ViolationType: req.ViolationType,
		Severity:      req.Severity,
		Action:        req.Action,
		PostID:        req.PostID,
		CommentID:     req.CommentID,
		Description:   req.Description,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(v)
}

// GetUserViolations handles GET /api/moderation/users/:id/violations
func (s *Server) GetUserViolations(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	violations, err := s.violations.ForUser(c.UserContext(), id)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"violations": violations})
}

// GetKeywords handles GET /api/moderation/keywords
func (s *Server) GetKeywords(c *fiber.Ctx) error {
	keywords, err := s.moderation.Keywords(c.UserContext())
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"keywords": keywords})
}

// AddKeyword handles POST /api/moderation/keywords
func (s *Server) AddKeyword(c *fiber.Ctx) error {
	var req struct {
		Keyword  string                 `json:"keyword"`
		Severity models.KeywordSeverity `json:"severity"`
		Category string                 `json:"category"`
		IsRegex  bool                   `json:"is_regex"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	kw, err := s.moderation.AddKeyword(c.UserContext(), service.AddKeywordInput{
		Keyword:  req.Keyword,
		Severity: req.Severity,
		Category: req.Category,
		IsRegex:  req.IsRegex,
		AddedBy:  currentUserID(c),
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(kw)
}

// DeleteKeyword handles DELETE /api/moderation/keywords/:id. The keyword
// is deactivated, not removed.
func (s *Server) DeleteKeyword(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.moderation.DeactivateKeyword(c.UserContext(), id); err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"message": "Keyword deactivated"})
}
