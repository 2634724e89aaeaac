package server

import (
	"warden/internal/models"
	"warden/internal/moderation"

	"github.com/gofiber/fiber/v2"
)

// ModerationActionRequest is the body of POST /api/admin/moderation/actions.
type ModerationActionRequest struct {
	Action     string            `json:"action"`
	TargetType string            `json:"target_type"`
	TargetID   uint              `json:"target_id"`
	Reason     string            `json:"reason,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// PerformModerationAction is the single write surface of the moderation
// engine. The actor comes from StaffRequired's fresh lookup.
func (s *Server) PerformModerationAction(c *fiber.Ctx) error {
	actor := c.Locals("actor").(moderation.Actor)

	var req ModerationActionRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.Action == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("action is required"))
	}

	result, err := s.engine.PerformAction(c.UserContext(), &moderation.Command{
		Actor:      actor,
		Action:     moderation.Action(req.Action),
		TargetType: moderation.TargetType(req.TargetType),
		TargetID:   req.TargetID,
		Reason:     req.Reason,
		Extra:      req.Extra,
	})
	if err != nil {
		return models.RespondWithError(c, models.StatusForError(err), err)
	}
	return c.JSON(result)
}

// GetModerationLog lists audit entries, newest first. Optional filters:
// moderator_id, action, target_type.
func (s *Server) GetModerationLog(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	query := s.db.WithContext(c.Context()).Model(&models.ModerationLogEntry{})
	if moderatorID := c.QueryInt("moderator_id", 0); moderatorID > 0 {
		query = query.Where("moderator_id = ?", moderatorID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if targetType := c.Query("target_type"); targetType != "" {
		query = query.Where("target_type = ?", targetType)
	}

	var entries []models.ModerationLogEntry
	err := query.Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&entries).Error
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"entries": entries})
}

// GetDecisions lists moderation decisions for a target, newest first.
func (s *Server) GetDecisions(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	query := s.db.WithContext(c.Context()).Model(&models.ModerationDecision{})
	if targetType := c.Query("target_type"); targetType != "" {
		query = query.Where("target_type = ?", targetType)
	}
	if targetID := c.QueryInt("target_id", 0); targetID > 0 {
		query = query.Where("target_id = ?", targetID)
	}
	if code := c.Query("decision_code"); code != "" {
		query = query.Where("decision_code = ?", code)
	}

	var decisions []models.ModerationDecision
	err := query.Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&decisions).Error
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"decisions": decisions})
}

// GetReports lists reports for the staff queue, oldest pending first.
func (s *Server) GetReports(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	status := c.Query("status", string(models.ReportPending))
	query := s.db.WithContext(c.Context()).Model(&models.Report{})
	if status != "all" {
		query = query.Where("status = ?", status)
	}
	if contentType := c.Query("content_type"); contentType != "" {
		query = query.Where("content_type = ?", contentType)
	}

	var reports []models.Report
	err := query.Order("created_at ASC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&reports).Error
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"reports": reports})
}

// GetUserDetail returns one account together with its decision history, the
// view a moderator opens before acting.
func (s *Server) GetUserDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var user models.User
	if err := s.db.WithContext(c.Context()).First(&user, id).Error; err != nil {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("user", id))
	}

	var decisions []models.ModerationDecision
	err = s.db.WithContext(c.Context()).
		Where("target_type = ? AND target_id = ?", moderation.TargetUser, id).
		Order("created_at DESC").
		Find(&decisions).Error
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{"user": user, "decisions": decisions})
}

// GetUsers lists accounts for the staff queue with optional status/role
// filters.
func (s *Server) GetUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)

	query := s.db.WithContext(c.Context()).Model(&models.User{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}

	var users []models.User
	err := query.Order("created_at DESC").
		Limit(page.Limit).Offset(page.Offset).
		Find(&users).Error
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}
	return c.JSON(fiber.Map{"users": users})
}
