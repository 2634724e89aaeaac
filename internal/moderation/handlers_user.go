package moderation

import (
	"context"
	"fmt"
	"time"

	"warden/internal/models"

	"gorm.io/gorm"
)

// Notification types raised by user handlers.
const (
	NotifyAccountWarned     = "account_warned"
	NotifyAccountBanned     = "account_banned"
	NotifyAccountRestored   = "account_restored"
	NotifyAccountFrozen     = "account_frozen"
	NotifyAccountDeleted    = "account_deleted"
	NotifyAccountModeration = "account_moderation"
	NotifyPremiumGranted    = "premium_granted"
	NotifyPremiumRevoked    = "premium_revoked"
	NotifyRestriction       = "account_restriction"
	NotifyUnverified        = "account_unverified"
	NotifyCopyrightRevoked  = "copyright_revoked"
)

// warnSpamIncrement is added to the spam score per warning, clamped to
// MaxSpamScore.
const warnSpamIncrement = 20

func (e *Engine) applyWarnUser(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionWarned)
	if err != nil {
		return nil, err
	}

	score := user.SpamScore + warnSpamIncrement
	if score > models.MaxSpamScore {
		score = models.MaxSpamScore
	}
	if err := tx.Model(user).Update("spam_score", score).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "user warned"}
	eff.notify(user.ID, NotifyAccountWarned, string(TargetUser), user.ID,
		fmt.Sprintf("You have received a warning (decision %s): %s", decision.DecisionCode, cmd.Reason))
	eff.email(user.ID, "account_warned", "Warning on your account",
		fmt.Sprintf("Your account received a moderation warning. Decision %s: %s", decision.DecisionCode, cmd.Reason))
	return eff, nil
}

func (e *Engine) applyBanUser(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionBlocked)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":            models.AccountBlocked,
		"spam_score":        models.MaxSpamScore,
		"moderation_reason": cmd.Reason,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "user banned"}
	eff.notify(user.ID, NotifyAccountBanned, string(TargetUser), user.ID,
		fmt.Sprintf("Your account has been blocked (decision %s): %s", decision.DecisionCode, cmd.Reason))
	eff.email(user.ID, "account_banned", "Your account has been blocked",
		fmt.Sprintf("Your account was blocked by moderation. Decision %s: %s", decision.DecisionCode, cmd.Reason))

	if err := e.escalate(ctx, tx, cmd, user, eff); err != nil {
		return nil, err
	}
	return eff, nil
}

// applyReinstateUser backs unban_user, activate_user and unfreeze_user: the
// account returns to active, moderation fields reset, and the rolling ban
// history is cleared. Deleting the in-window blocked decisions is the
// documented way to forgive a user's strike history.
func (e *Engine) applyReinstateUser(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("user not found"), nil
	}

	updates := map[string]interface{}{
		"status":            models.AccountActive,
		"spam_score":        0,
		"moderation_reason": "",
		"frozen_at":         nil,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	if err := e.forgiveStrikes(tx, user.ID); err != nil {
		return nil, err
	}

	eff := &Effects{Message: "user reinstated"}
	eff.notify(user.ID, NotifyAccountRestored, string(TargetUser), user.ID,
		"Your account has been restored to good standing")
	return eff, nil
}

func (e *Engine) applyFreezeUser(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionFrozen)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":            models.AccountFrozen,
		"frozen_at":         now,
		"moderation_reason": cmd.Reason,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "user frozen"}
	eff.notify(user.ID, NotifyAccountFrozen, string(TargetUser), user.ID,
		fmt.Sprintf("Your account has been frozen (decision %s): %s", decision.DecisionCode, cmd.Reason))
	return eff, nil
}

func (e *Engine) applyDeleteUser(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionDeleted)
	if err != nil {
		return nil, err
	}

	// Soft state only. The engine never hard-deletes accounts.
	updates := map[string]interface{}{
		"status":            models.AccountDeleted,
		"moderation_reason": cmd.Reason,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "user deleted"}
	eff.email(user.ID, "account_deleted", "Your account has been deleted",
		fmt.Sprintf("Your account was deleted by moderation. Decision %s: %s", decision.DecisionCode, cmd.Reason))
	eff.StaleEmailPrefs = append(eff.StaleEmailPrefs, user.ID)
	return eff, nil
}

func (e *Engine) applyModerateUser(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionModeration)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"status":            models.AccountModeration,
		"moderation_reason": cmd.Reason,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "user placed under moderation"}
	eff.notify(user.ID, NotifyAccountModeration, string(TargetUser), user.ID,
		fmt.Sprintf("Your account is under review (decision %s)", decision.DecisionCode))
	return eff, nil
}

// premiumGrantDuration is how long a granted plan lasts.
const premiumGrantDuration = 365 * 24 * time.Hour

func (e *Engine) applyGrantPremium(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	plan := cmd.Extra["plan"]
	until := time.Now().UTC().Add(premiumGrantDuration)
	updates := map[string]interface{}{
		"is_premium":    true,
		"premium_plan":  plan,
		"premium_until": until,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "premium granted"}
	eff.notify(user.ID, NotifyPremiumGranted, string(TargetUser), user.ID,
		fmt.Sprintf("You have been granted the %s plan", plan))
	return eff, nil
}

func (e *Engine) applyRevokePremium(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("user not found"), nil
	}

	updates := map[string]interface{}{
		"is_premium":    false,
		"premium_plan":  "",
		"premium_until": nil,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "premium revoked"}
	eff.notify(user.ID, NotifyPremiumRevoked, string(TargetUser), user.ID,
		"Your premium plan has been revoked")
	return eff, nil
}

// Shadow bans are silent: no decision row and no notification, only the
// audit log entry.
func (e *Engine) applyShadowBan(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"shadow_banned":    true,
		"shadow_banned_by": cmd.Actor.ID,
		"shadow_banned_at": now,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &Effects{Message: "user shadow banned"}, nil
}

func (e *Engine) applyUnshadowBan(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("user not found"), nil
	}

	updates := map[string]interface{}{
		"shadow_banned":    false,
		"shadow_banned_by": nil,
		"shadow_banned_at": nil,
	}
	if err := tx.Model(user).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &Effects{Message: "shadow ban lifted"}, nil
}

var restrictionColumns = map[Action]string{
	ActionRestrictFollow:  "restricted_follow",
	ActionRestrictLike:    "restricted_like",
	ActionRestrictComment: "restricted_comment",
}

// applyRestriction toggles one of the boolean restriction flags based on its
// current value. The decision and notification reflect the direction.
func (e *Engine) applyRestriction(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	column := restrictionColumns[cmd.Action]
	var enabled bool
	switch cmd.Action {
	case ActionRestrictFollow:
		enabled = !user.RestrictedFollow
	case ActionRestrictLike:
		enabled = !user.RestrictedLike
	case ActionRestrictComment:
		enabled = !user.RestrictedComment
	}

	outcome := string(cmd.Action)
	verb := "restricted"
	if !enabled {
		outcome = "un" + outcome
		verb = "no longer restricted"
	}

	decision, err := e.writeDecision(tx, cmd, outcome)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(user).Update(column, enabled).Error; err != nil {
		return nil, err
	}

	ability := map[Action]string{
		ActionRestrictFollow:  "following",
		ActionRestrictLike:    "liking",
		ActionRestrictComment: "commenting",
	}[cmd.Action]

	eff := &Effects{Message: outcome}
	eff.notify(user.ID, NotifyRestriction, string(TargetUser), user.ID,
		fmt.Sprintf("Your account is %s from %s (decision %s)", verb, ability, decision.DecisionCode))
	return eff, nil
}

func (e *Engine) applyUnverifyUser(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionUnverified)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(user).Update("is_verified", false).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "verification removed"}
	eff.notify(user.ID, NotifyUnverified, string(TargetUser), user.ID,
		fmt.Sprintf("Your verified status has been removed (decision %s)", decision.DecisionCode))
	return eff, nil
}

// applyRevokeCopyright clears the account's copyright eligibility and strips
// the protected flag from every post the author marked protected.
func (e *Engine) applyRevokeCopyright(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	user, found, err := loadUser(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found || user.Status == models.AccountDeleted {
		return noop("user not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionCopyrightRevoked)
	if err != nil {
		return nil, err
	}

	if err := tx.Model(user).Update("copyright_eligible", false).Error; err != nil {
		return nil, err
	}
	err = tx.Model(&models.Post{}).
		Where("user_id = ? AND copyright_protected = ?", user.ID, true).
		Update("copyright_protected", false).Error
	if err != nil {
		return nil, err
	}

	eff := &Effects{Message: "copyright eligibility revoked"}
	eff.notify(user.ID, NotifyCopyrightRevoked, string(TargetUser), user.ID,
		fmt.Sprintf("Your copyright protection has been revoked (decision %s): %s", decision.DecisionCode, cmd.Reason))
	return eff, nil
}
