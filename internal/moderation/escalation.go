package moderation

import (
	"context"
	"encoding/json"
	"time"

	"warden/internal/models"
	"warden/internal/observability"

	"gorm.io/gorm"
)

// Escalation promotes a ban to account deletion when a user collects too
// many ban strikes inside a rolling window. The count is recomputed from
// decision history on every ban rather than kept as a stored counter, so it
// self-corrects when decisions are purged.
const (
	// EscalationWindow is the trailing period in which blocked decisions
	// count as strikes.
	EscalationWindow = 30 * 24 * time.Hour

	// EscalationThreshold is the strike count, including the triggering
	// ban, at which the account is deleted.
	EscalationThreshold = 4
)

// EscalationReason marks the synthetic decision written by auto-escalation.
const EscalationReason = "automatic escalation: repeated bans within 30 days"

// escalate runs after a ban has been recorded. When the in-window strike
// count reaches the threshold the account moves to deleted and a synthetic
// deleted decision is written, attributed to the banning moderator.
func (e *Engine) escalate(ctx context.Context, tx *gorm.DB, cmd *Command, user *models.User, eff *Effects) error {
	if e.flags.EnabledGlobal("disable_auto_escalation") {
		return nil
	}

	since := time.Now().UTC().Add(-EscalationWindow)
	var strikes int64
	err := tx.Model(&models.ModerationDecision{}).
		Where("target_type = ? AND target_id = ? AND decision = ? AND created_at >= ?",
			TargetUser, user.ID, models.DecisionBlocked, since).
		Count(&strikes).Error
	if err != nil {
		return err
	}
	if strikes < EscalationThreshold {
		return nil
	}

	row := models.ModerationDecision{
		TargetType:   string(TargetUser),
		TargetID:     user.ID,
		Decision:     models.DecisionDeleted,
		Reason:       EscalationReason,
		ModeratorID:  cmd.Actor.ID,
		DecisionCode: generateDecisionCode(tx),
	}
	if err := tx.Create(&row).Error; err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":            models.AccountDeleted,
		"moderation_reason": EscalationReason,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return err
	}

	observability.EscalationsTotal.Inc()
	eff.Message = "user banned and escalated to deletion"
	eff.notify(user.ID, NotifyAccountDeleted, string(TargetUser), user.ID,
		"Your account has been permanently deleted after repeated violations")
	eff.StaleEmailPrefs = append(eff.StaleEmailPrefs, user.ID)

	feed, err := json.Marshal(map[string]interface{}{
		"event":        "escalation",
		"user_id":      user.ID,
		"moderator_id": cmd.Actor.ID,
	})
	if err == nil {
		eff.Broadcast = string(feed)
	}
	return nil
}

// forgiveStrikes deletes every in-window blocked decision for the user,
// resetting the escalation counter.
func (e *Engine) forgiveStrikes(tx *gorm.DB, userID uint) error {
	since := time.Now().UTC().Add(-EscalationWindow)
	return tx.Where("target_type = ? AND target_id = ? AND decision = ? AND created_at >= ?",
		TargetUser, userID, models.DecisionBlocked, since).
		Delete(&models.ModerationDecision{}).Error
}
