package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warden/internal/models"

	"gorm.io/gorm"
)

// Notification types raised by withdrawal handlers.
const (
	NotifyWithdrawalApproved = "withdrawal_approved"
	NotifyWithdrawalRejected = "withdrawal_rejected"
)

func (e *Engine) applyApproveWithdrawal(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	var req models.WithdrawalRequest
	if err := tx.First(&req, cmd.TargetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return noop("withdrawal not found"), nil
		}
		return nil, err
	}
	if req.Status != models.WithdrawalPending {
		return noop("withdrawal already reviewed"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionApproved)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":      models.WithdrawalCompleted,
		"reviewed_by": cmd.Actor.ID,
		"reviewed_at": now,
	}
	if err := tx.Model(&req).Updates(updates).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "withdrawal approved"}
	eff.notify(req.UserID, NotifyWithdrawalApproved, string(TargetWithdrawal), req.ID,
		fmt.Sprintf("Your withdrawal of %d has been approved (decision %s)", req.Amount, decision.DecisionCode))
	return eff, nil
}

// applyRejectWithdrawal rejects a pending or processing request and refunds
// the amount. The refund and its ledger entry run inside the action
// transaction; the balance read-back makes balance_after exact.
func (e *Engine) applyRejectWithdrawal(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	var req models.WithdrawalRequest
	if err := tx.First(&req, cmd.TargetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return noop("withdrawal not found"), nil
		}
		return nil, err
	}
	if req.Status != models.WithdrawalPending && req.Status != models.WithdrawalProcessing {
		return noop("withdrawal already reviewed"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionRejected)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"status":           models.WithdrawalRejected,
		"reviewed_by":      cmd.Actor.ID,
		"reviewed_at":      now,
		"rejection_reason": cmd.Reason,
	}
	if err := tx.Model(&req).Updates(updates).Error; err != nil {
		return nil, err
	}

	err = tx.Model(&models.User{}).Where("id = ?", req.UserID).
		Update("balance", gorm.Expr("balance + ?", req.Amount)).Error
	if err != nil {
		return nil, err
	}

	var requester models.User
	if err := tx.Select("balance").First(&requester, req.UserID).Error; err != nil {
		return nil, err
	}

	entry := models.LedgerEntry{
		UserID:       req.UserID,
		Type:         models.LedgerEntryRefund,
		Amount:       req.Amount,
		BalanceAfter: requester.Balance,
		WithdrawalID: &req.ID,
		Note:         cmd.Reason,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	eff := &Effects{Message: "withdrawal rejected and refunded"}
	eff.notify(req.UserID, NotifyWithdrawalRejected, string(TargetWithdrawal), req.ID,
		fmt.Sprintf("Your withdrawal of %d was rejected and refunded (decision %s): %s", req.Amount, decision.DecisionCode, cmd.Reason))
	eff.email(req.UserID, "withdrawal_rejected", "Your withdrawal was rejected",
		fmt.Sprintf("Your withdrawal request was rejected and the amount refunded. Decision %s: %s", decision.DecisionCode, cmd.Reason))
	return eff, nil
}
