package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warden/internal/models"

	"gorm.io/gorm"
)

// Notification types raised by report handlers.
const (
	NotifyReportResolved  = "report_resolved"
	NotifyReportDismissed = "report_dismissed"
)

func (e *Engine) applyResolveReport(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	return e.closeReport(tx, cmd, models.ReportResolved)
}

func (e *Engine) applyDismissReport(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	return e.closeReport(tx, cmd, models.ReportDismissed)
}

func (e *Engine) closeReport(tx *gorm.DB, cmd *Command, status models.ReportStatus) (*Effects, error) {
	var report models.Report
	if err := tx.First(&report, cmd.TargetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return noop("report not found"), nil
		}
		return nil, err
	}
	if report.Status != models.ReportPending {
		return noop("report already closed"), nil
	}

	decisionValue := models.DecisionResolved
	notifyType := NotifyReportResolved
	notice := "Your report has been reviewed and resolved"
	message := "report resolved"
	if status == models.ReportDismissed {
		decisionValue = models.DecisionDismissed
		notifyType = NotifyReportDismissed
		notice = "Your report was reviewed and dismissed; no violation was found"
		message = "report dismissed"
	}

	decision, err := e.writeDecision(tx, cmd, decisionValue)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":         status,
		"moderator_id":   cmd.Actor.ID,
		"moderator_note": cmd.Reason,
		"resolved_at":    now,
	}
	if err := tx.Model(&report).Updates(updates).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: message}
	eff.notify(report.ReporterID, notifyType, string(TargetReport), report.ID,
		fmt.Sprintf("%s (decision %s)", notice, decision.DecisionCode))
	return eff, nil
}
