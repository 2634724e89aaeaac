package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warden/internal/models"

	"gorm.io/gorm"
)

// Notification types raised by content handlers.
const (
	NotifyContentApproved   = "content_approved"
	NotifyContentRejected   = "content_rejected"
	NotifyContentRemoved    = "content_removed"
	NotifyContentArchived   = "content_archived"
	NotifyReportNoViolation = "report_no_violation"
	NotifyReportConfirmed   = "report_confirmed"
)

func (e *Engine) applyApproveContent(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	if cmd.TargetType == TargetComment {
		return e.approveComment(ctx, tx, cmd)
	}
	return e.approvePost(ctx, tx, cmd)
}

func (e *Engine) applyRejectContent(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	if cmd.TargetType == TargetComment {
		return e.rejectComment(ctx, tx, cmd)
	}
	return e.rejectPost(ctx, tx, cmd)
}

func (e *Engine) approvePost(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	post, found, err := loadPost(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("post not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionApproved)
	if err != nil {
		return nil, err
	}

	if err := publishPost(tx, post); err != nil {
		return nil, err
	}

	eff := &Effects{Message: "post approved"}
	eff.notify(post.UserID, NotifyContentApproved, string(TargetPost), post.ID,
		fmt.Sprintf("Your post has been approved (decision %s)", decision.DecisionCode))

	reporters, err := deleteReports(tx, string(TargetPost), post.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range reporters {
		eff.notify(r.ReporterID, NotifyReportNoViolation, string(TargetPost), post.ID,
			"The post you reported was reviewed and no violation was found")
	}

	e.cascadePosts(ctx, tx, post, func(dup *models.Post) error {
		return publishPost(tx, dup)
	})
	return eff, nil
}

func (e *Engine) rejectPost(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	post, found, err := loadPost(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("post not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionRemoved)
	if err != nil {
		return nil, err
	}

	if err := removePost(tx, post, cmd.Reason, decision.ID); err != nil {
		return nil, err
	}

	eff := &Effects{Message: "post rejected"}
	eff.notify(post.UserID, NotifyContentRejected, string(TargetPost), post.ID,
		fmt.Sprintf("Your post was removed for violating platform rules (decision %s): %s", decision.DecisionCode, cmd.Reason))

	// Unlike approval, rejection leaves report rows in place. Reporters are
	// told their report was confirmed.
	var reports []models.Report
	if err := tx.Where("content_type = ? AND content_id = ?", TargetPost, post.ID).
		Find(&reports).Error; err != nil {
		return nil, err
	}
	for _, r := range reports {
		eff.notify(r.ReporterID, NotifyReportConfirmed, string(TargetPost), post.ID,
			"The post you reported was reviewed and removed")
	}

	e.cascadePosts(ctx, tx, post, func(dup *models.Post) error {
		return removePost(tx, dup, cmd.Reason, decision.ID)
	})
	return eff, nil
}

func (e *Engine) approveComment(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	comment, found, err := loadComment(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("comment not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionApproved)
	if err != nil {
		return nil, err
	}

	if err := approveCommentRow(tx, comment); err != nil {
		return nil, err
	}

	eff := &Effects{Message: "comment approved"}
	eff.notify(comment.UserID, NotifyContentApproved, string(TargetComment), comment.ID,
		fmt.Sprintf("Your comment has been approved (decision %s)", decision.DecisionCode))

	reporters, err := deleteReports(tx, string(TargetComment), comment.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range reporters {
		eff.notify(r.ReporterID, NotifyReportNoViolation, string(TargetComment), comment.ID,
			"The comment you reported was reviewed and no violation was found")
	}

	e.cascadeComments(ctx, tx, comment, func(dup *models.Comment) error {
		return approveCommentRow(tx, dup)
	})
	return eff, nil
}

func (e *Engine) rejectComment(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	comment, found, err := loadComment(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("comment not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionRejected)
	if err != nil {
		return nil, err
	}

	if err := rejectCommentRow(tx, comment, cmd.Reason); err != nil {
		return nil, err
	}

	eff := &Effects{Message: "comment rejected"}
	eff.notify(comment.UserID, NotifyContentRejected, string(TargetComment), comment.ID,
		fmt.Sprintf("Your comment was rejected (decision %s): %s", decision.DecisionCode, cmd.Reason))

	reporters, err := deleteReports(tx, string(TargetComment), comment.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range reporters {
		eff.notify(r.ReporterID, NotifyReportConfirmed, string(TargetComment), comment.ID,
			"The comment you reported was reviewed and rejected")
	}

	e.cascadeComments(ctx, tx, comment, func(dup *models.Comment) error {
		return rejectCommentRow(tx, dup, cmd.Reason)
	})
	return eff, nil
}

// applyDismissContent is the fast path for clearly-spam items: the target is
// dropped without a formal ModerationDecision. The action is still audited.
func (e *Engine) applyDismissContent(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	switch cmd.TargetType {
	case TargetPost:
		post, found, err := loadPost(tx, cmd.TargetID)
		if err != nil {
			return nil, err
		}
		if !found {
			return noop("post not found"), nil
		}
		if err := tx.Delete(post).Error; err != nil {
			return nil, err
		}
		if _, err := deleteReports(tx, string(TargetPost), post.ID); err != nil {
			return nil, err
		}
		eff := &Effects{Message: "post dismissed"}
		e.cascadePosts(ctx, tx, post, func(dup *models.Post) error {
			return tx.Delete(dup).Error
		})
		return eff, nil

	case TargetComment:
		comment, found, err := loadComment(tx, cmd.TargetID)
		if err != nil {
			return nil, err
		}
		if !found {
			return noop("comment not found"), nil
		}
		if err := tx.Delete(comment).Error; err != nil {
			return nil, err
		}
		if err := recountComments(tx, comment.PostID); err != nil {
			return nil, err
		}
		if _, err := deleteReports(tx, string(TargetComment), comment.ID); err != nil {
			return nil, err
		}
		eff := &Effects{Message: "comment dismissed"}
		e.cascadeComments(ctx, tx, comment, func(dup *models.Comment) error {
			if err := tx.Delete(dup).Error; err != nil {
				return err
			}
			return recountComments(tx, dup.PostID)
		})
		return eff, nil

	default:
		user, found, err := loadUser(tx, cmd.TargetID)
		if err != nil {
			return nil, err
		}
		if !found {
			return noop("user not found"), nil
		}
		updates := map[string]interface{}{
			"status":            models.AccountDeleted,
			"moderation_reason": cmd.Reason,
		}
		if err := tx.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
		if _, err := deleteReports(tx, string(TargetUser), user.ID); err != nil {
			return nil, err
		}
		return &Effects{Message: "account dismissed"}, nil
	}
}

func (e *Engine) applyRemovePost(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	post, found, err := loadPost(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("post not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionRemoved)
	if err != nil {
		return nil, err
	}
	if err := removePost(tx, post, cmd.Reason, decision.ID); err != nil {
		return nil, err
	}
	if err := resolveReports(tx, string(TargetPost), post.ID, cmd.Actor.ID, cmd.Reason); err != nil {
		return nil, err
	}

	eff := &Effects{Message: "post removed"}
	eff.notify(post.UserID, NotifyContentRemoved, string(TargetPost), post.ID,
		fmt.Sprintf("Your post was removed (decision %s): %s", decision.DecisionCode, cmd.Reason))
	return eff, nil
}

func (e *Engine) applyArchivePost(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	post, found, err := loadPost(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("post not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionArchived)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"status":            models.PostArchived,
		"moderation_reason": cmd.Reason,
	}
	if err := tx.Model(post).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := resolveReports(tx, string(TargetPost), post.ID, cmd.Actor.ID, cmd.Reason); err != nil {
		return nil, err
	}

	eff := &Effects{Message: "post archived"}
	eff.notify(post.UserID, NotifyContentArchived, string(TargetPost), post.ID,
		fmt.Sprintf("Your post was archived (decision %s)", decision.DecisionCode))
	return eff, nil
}

func (e *Engine) applyRemoveComment(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error) {
	comment, found, err := loadComment(tx, cmd.TargetID)
	if err != nil {
		return nil, err
	}
	if !found {
		return noop("comment not found"), nil
	}

	decision, err := e.writeDecision(tx, cmd, models.DecisionRemoved)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"status":            models.CommentRemoved,
		"moderation_reason": cmd.Reason,
	}
	if err := tx.Model(comment).Updates(updates).Error; err != nil {
		return nil, err
	}
	if err := recountComments(tx, comment.PostID); err != nil {
		return nil, err
	}
	if err := resolveReports(tx, string(TargetComment), comment.ID, cmd.Actor.ID, cmd.Reason); err != nil {
		return nil, err
	}

	eff := &Effects{Message: "comment removed"}
	eff.notify(comment.UserID, NotifyContentRemoved, string(TargetComment), comment.ID,
		fmt.Sprintf("Your comment was removed (decision %s): %s", decision.DecisionCode, cmd.Reason))
	return eff, nil
}

// Row-level mutations shared by the direct handlers and the cascade.

func publishPost(tx *gorm.DB, post *models.Post) error {
	return tx.Model(post).Updates(map[string]interface{}{
		"status":              models.PostPublished,
		"is_nsfw":             false,
		"moderation_reason":   "",
		"moderation_category": "",
		"moderation_score":    0,
	}).Error
}

func removePost(tx *gorm.DB, post *models.Post, reason string, decisionID uint) error {
	now := time.Now().UTC()
	return tx.Model(post).Updates(map[string]interface{}{
		"status":              models.PostRemoved,
		"removal_reason":      reason,
		"removed_at":          now,
		"removal_decision_id": decisionID,
	}).Error
}

func approveCommentRow(tx *gorm.DB, comment *models.Comment) error {
	err := tx.Model(comment).Updates(map[string]interface{}{
		"status":              models.CommentApproved,
		"is_nsfw":             false,
		"moderation_reason":   "",
		"moderation_category": "",
	}).Error
	if err != nil {
		return err
	}
	return recountComments(tx, comment.PostID)
}

func rejectCommentRow(tx *gorm.DB, comment *models.Comment, reason string) error {
	err := tx.Model(comment).Updates(map[string]interface{}{
		"status":            models.CommentRejected,
		"moderation_reason": reason,
	}).Error
	if err != nil {
		return err
	}
	return recountComments(tx, comment.PostID)
}

// recountComments refreshes the parent post's cached count of approved,
// non-NSFW comments from the live rows.
func recountComments(tx *gorm.DB, postID uint) error {
	var count int64
	err := tx.Model(&models.Comment{}).
		Where("post_id = ? AND status = ? AND is_nsfw = ?", postID, models.CommentApproved, false).
		Count(&count).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.Post{}).Where("id = ?", postID).
		Update("comment_count", count).Error
}

// deleteReports removes every report referencing the item and returns the
// removed rows so callers can notify the reporters.
func deleteReports(tx *gorm.DB, contentType string, contentID uint) ([]models.Report, error) {
	var reports []models.Report
	if err := tx.Where("content_type = ? AND content_id = ?", contentType, contentID).
		Find(&reports).Error; err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	err := tx.Where("content_type = ? AND content_id = ?", contentType, contentID).
		Delete(&models.Report{}).Error
	if err != nil {
		return nil, err
	}
	return reports, nil
}

func resolveReports(tx *gorm.DB, contentType string, contentID uint, moderatorID uint, note string) error {
	now := time.Now().UTC()
	return tx.Model(&models.Report{}).
		Where("content_type = ? AND content_id = ? AND status = ?", contentType, contentID, models.ReportPending).
		Updates(map[string]interface{}{
			"status":         models.ReportResolved,
			"moderator_id":   moderatorID,
			"moderator_note": note,
			"resolved_at":    now,
		}).Error
}

func loadPost(tx *gorm.DB, id uint) (*models.Post, bool, error) {
	var post models.Post
	if err := tx.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &post, true, nil
}

func loadComment(tx *gorm.DB, id uint) (*models.Comment, bool, error) {
	var comment models.Comment
	if err := tx.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &comment, true, nil
}

func loadUser(tx *gorm.DB, id uint) (*models.User, bool, error) {
	var user models.User
	if err := tx.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return &user, true, nil
}
