package server

import (
	"lcnetwork/internal/models"
	"lcnetwork/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateReport handles POST /api/reports
// @Summary Report content
// @Tags reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{target_type=string,target_id=int,reason=string,description=string} true "Report"
// @Success 201 {object} models.Report
// @Failure 409 {object} models.ErrorResponse
// @Router /reports [post]
func (s *Server) CreateReport(c *fiber.Ctx) error {
	var req struct {
		TargetType  models.ReportTarget `json:"target_type"`
		TargetID    uint                `json:"target_id"`
		Reason      string              `json:"reason"`
		Description string              `json:"description"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	report, err := s.reports.Create(c.UserContext(), service.CreateReportInput{
		ReporterID:  currentUserID(c),
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Reason:      req.Reason,
		Description: req.Description,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// CreateAppeal handles POST /api/appeals
// @Summary Appeal a moderation outcome
// @Tags appeals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{appeal_type=string,target_id=int,reason=string,evidence_urls=[]string} true "Appeal"
// @Success 201 {object} models.Appeal
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /appeals [post]
func (s *Server) CreateAppeal(c *fiber.Ctx) error {
	var req struct {
		AppealType   models.AppealType `json:"appeal_type"`
		TargetID     *uint             `json:"target_id"`
		Reason       string            `json:"reason"`
		EvidenceURLs []string          `json:"evidence_urls"`
	}
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	appeal, err := s.appeals.Create(c.UserContext(), service.CreateAppealInput{
		UserID:       currentUserID(c),
		AppealType:   req.AppealType,
		TargetID:     req.TargetID,
		Reason:       req.Reason,
		EvidenceURLs: req.EvidenceURLs,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(appeal)
}

// GetMyAppeals handles GET /api/appeals/me
func (s *Server) GetMyAppeals(c *fiber.Ctx) error {
	appeals, err := s.appeals.Mine(c.UserContext(), currentUserID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(fiber.Map{"appeals": appeals})
}
