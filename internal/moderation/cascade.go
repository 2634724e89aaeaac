package moderation

import (
	"context"
	"log/slog"

	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/observability"

	"gorm.io/gorm"
)

// The duplicate cascade applies one decision to every copy of the same
// content a spammer posted: same author, same fingerprint, still under
// moderation. One review clears the whole set. Cascade failures are isolated
// and never fail the primary decision.

// cascadePosts finds duplicates of src (matching content_hash by the same
// author, in moderation or published-but-NSFW) and applies the same
// mutation, dropping each duplicate's reports.
func (e *Engine) cascadePosts(ctx context.Context, tx *gorm.DB, src *models.Post, apply func(dup *models.Post) error) {
	if e.flags.EnabledGlobal("disable_duplicate_cascade") {
		return
	}
	if src.ContentHash == "" {
		return
	}

	var dups []models.Post
	err := tx.Where("user_id = ? AND content_hash = ? AND id <> ?", src.UserID, src.ContentHash, src.ID).
		Where("status = ? OR (status = ? AND is_nsfw = ?)", models.PostModeration, models.PostPublished, true).
		Find(&dups).Error
	if err != nil {
		e.cascadeFailed(ctx, TargetPost, src.ID, err)
		return
	}

	for i := range dups {
		dup := &dups[i]
		if err := apply(dup); err != nil {
			e.cascadeFailed(ctx, TargetPost, dup.ID, err)
			continue
		}
		if _, err := deleteReports(tx, string(TargetPost), dup.ID); err != nil {
			e.cascadeFailed(ctx, TargetPost, dup.ID, err)
			continue
		}
		observability.CascadeSyncedTotal.WithLabelValues(string(TargetPost)).Inc()
	}
}

// cascadeComments is the comment variant: the fingerprint is the exact
// comment text, and only NSFW-flagged approved comments are in scope.
func (e *Engine) cascadeComments(ctx context.Context, tx *gorm.DB, src *models.Comment, apply func(dup *models.Comment) error) {
	if e.flags.EnabledGlobal("disable_duplicate_cascade") {
		return
	}
	if src.Content == "" {
		return
	}

	var dups []models.Comment
	err := tx.Where("user_id = ? AND content = ? AND id <> ?", src.UserID, src.Content, src.ID).
		Where("is_nsfw = ? AND status = ?", true, models.CommentApproved).
		Find(&dups).Error
	if err != nil {
		e.cascadeFailed(ctx, TargetComment, src.ID, err)
		return
	}

	for i := range dups {
		dup := &dups[i]
		if err := apply(dup); err != nil {
			e.cascadeFailed(ctx, TargetComment, dup.ID, err)
			continue
		}
		if _, err := deleteReports(tx, string(TargetComment), dup.ID); err != nil {
			e.cascadeFailed(ctx, TargetComment, dup.ID, err)
			continue
		}
		observability.CascadeSyncedTotal.WithLabelValues(string(TargetComment)).Inc()
	}
}

func (e *Engine) cascadeFailed(ctx context.Context, target TargetType, id uint, err error) {
	observability.EffectFailuresTotal.WithLabelValues("cascade").Inc()
	middleware.Logger.WarnContext(ctx, "duplicate cascade failed",
		slog.String("target_type", string(target)),
		slog.Uint64("target_id", uint64(id)),
		slog.String("error", err.Error()),
	)
}
