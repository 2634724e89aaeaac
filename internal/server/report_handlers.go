package server

import (
	"warden/internal/models"

	"github.com/gofiber/fiber/v2"
)

// CreateReportRequest is the body of POST /api/reports.
type CreateReportRequest struct {
	ContentType string `json:"content_type"`
	ContentID   uint   `json:"content_id"`
	Reason      string `json:"reason"`
}

var reportableTypes = map[string]bool{
	models.ReportTargetPost:    true,
	models.ReportTargetComment: true,
	models.ReportTargetUser:    true,
}

// CreateReport files a report against a content item or account. Duplicate
// reports by the same reporter against the same item are collapsed.
func (s *Server) CreateReport(c *fiber.Ctx) error {
	reporterID := c.Locals("actorID").(uint)

	var req CreateReportRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if !reportableTypes[req.ContentType] {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("content_type must be post, comment or user"))
	}
	if req.ContentID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("content_id is required"))
	}
	if req.Reason == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("reason is required"))
	}

	var existing int64
	err := s.db.WithContext(c.Context()).Model(&models.Report{}).
		Where("content_type = ? AND content_id = ? AND reporter_id = ? AND status = ?",
			req.ContentType, req.ContentID, reporterID, models.ReportPending).
		Count(&existing).Error
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	if existing > 0 {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "You have already reported this item",
		})
	}

	report := models.Report{
		ContentType: req.ContentType,
		ContentID:   req.ContentID,
		ReporterID:  reporterID,
		Reason:      req.Reason,
		Status:      models.ReportPending,
	}
	if err := s.db.WithContext(c.Context()).Create(&report).Error; err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(report)
}

// GetMyReports lists the caller's own reports, newest first.
func (s *Server) GetMyReports(c *fiber.Ctx) error {
	reporterID := c.Locals("actorID").(uint)
	page := parsePagination(c, 20)

	var reports []models.Report
	err := s.db.WithContext(c.Context()).
		Where("reporter_id = ?", reporterID).
		Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&reports).Error
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"reports": reports})
}
