package moderation

import (
	"context"
	"fmt"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"warden/internal/featureflags"
	"warden/internal/models"
	"warden/internal/notifications"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type recordingMailer struct {
	sent []notifications.OutboundEmail
}

func (m *recordingMailer) EmailFor(_ context.Context, userID uint) (string, error) {
	return "user@example.com", nil
}

func (m *recordingMailer) Send(_ context.Context, msg notifications.OutboundEmail) error {
	m.sent = append(m.sent, msg)
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB, *recordingMailer) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Report{},
		&models.WithdrawalRequest{},
		&models.LedgerEntry{},
		&models.ModerationDecision{},
		&models.ModerationLogEntry{},
		&models.Notification{},
	))
	mailer := &recordingMailer{}
	engine := NewEngine(db, notifications.NewNotifier(db, nil), mailer, featureflags.NewManager(""))
	return engine, db, mailer
}

var userSeq atomic.Uint64

func createUser(t *testing.T, db *gorm.DB, role models.Role) *models.User {
	t.Helper()
	n := userSeq.Add(1)
	user := &models.User{
		Username:           fmt.Sprintf("user%d", n),
		Email:              fmt.Sprintf("user%d@example.com", n),
		Password:           "secret",
		Role:               role,
		Status:             models.AccountActive,
		EmailNotifications: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func moderatorActor(t *testing.T, db *gorm.DB) Actor {
	t.Helper()
	mod := createUser(t, db, models.RoleModerator)
	return Actor{ID: mod.ID, Role: models.RoleModerator}
}

func adminActor(t *testing.T, db *gorm.DB) Actor {
	t.Helper()
	admin := createUser(t, db, models.RoleAdmin)
	return Actor{ID: admin.ID, Role: models.RoleAdmin}
}

func countLogEntries(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.ModerationLogEntry{}).Count(&n).Error)
	return n
}

func TestUnknownActionRejected(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: "explode_user", TargetType: TargetUser, TargetID: 1,
	})
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)
}

func TestNonStaffActorForbidden(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	target := createUser(t, db, models.RoleUser)
	civilian := createUser(t, db, models.RoleUser)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor:      Actor{ID: civilian.ID, Role: models.RoleUser},
		Action:     ActionWarnUser,
		TargetType: TargetUser,
		TargetID:   target.ID,
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeForbidden, appErr.Code)

	_, err = engine.PerformAction(context.Background(), &Command{
		Action: ActionWarnUser, TargetType: TargetUser, TargetID: target.ID,
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeUnauthorized, appErr.Code)
}

func TestAdminOnlyActionsRefuseModerators(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	target := createUser(t, db, models.RoleUser)

	for _, action := range []Action{
		ActionGrantPremium, ActionRevokePremium, ActionDeleteUser,
		ActionUnverifyUser, ActionRevokeCopyright,
	} {
		cmd := &Command{
			Actor: actor, Action: action, TargetType: TargetUser,
			TargetID: target.ID, Extra: map[string]string{"plan": "pro"},
		}
		_, err := engine.PerformAction(context.Background(), cmd)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr, "action %s", action)
		assert.Equal(t, models.CodeForbidden, appErr.Code, "action %s", action)
	}

	// No mutation and no decision may exist after the refusals.
	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.Equal(t, models.AccountActive, fresh.Status)
	var decisions int64
	require.NoError(t, db.Model(&models.ModerationDecision{}).Count(&decisions).Error)
	assert.Zero(t, decisions)
}

func TestPunitiveActionsProtectAdmins(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := adminActor(t, db)
	protected := createUser(t, db, models.RoleAdmin)

	post := &models.Post{UserID: protected.ID, Content: "c", Status: models.PostModeration}
	require.NoError(t, db.Create(post).Error)

	cases := []*Command{
		{Actor: actor, Action: ActionBanUser, TargetType: TargetUser, TargetID: protected.ID},
		{Actor: actor, Action: ActionWarnUser, TargetType: TargetUser, TargetID: protected.ID},
		{Actor: actor, Action: ActionDeleteUser, TargetType: TargetUser, TargetID: protected.ID},
		{Actor: actor, Action: ActionRejectContent, TargetType: TargetPost, TargetID: post.ID},
		{Actor: actor, Action: ActionRemovePost, TargetType: TargetPost, TargetID: post.ID},
	}
	for _, cmd := range cases {
		_, err := engine.PerformAction(context.Background(), cmd)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr, "action %s", cmd.Action)
		assert.Equal(t, models.CodeForbidden, appErr.Code, "action %s", cmd.Action)
	}

	var fresh models.User
	require.NoError(t, db.First(&fresh, protected.ID).Error)
	assert.Equal(t, models.AccountActive, fresh.Status)
	assert.Zero(t, fresh.SpamScore)
}

// The dismiss fast path writes no decision, but it still deactivates or
// deletes its target, so the protected-actor rule applies to it too.
func TestDismissContentProtectsAdmins(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	protected := createUser(t, db, models.RoleAdmin)

	post := &models.Post{UserID: protected.ID, Content: "c", Status: models.PostModeration}
	require.NoError(t, db.Create(post).Error)
	comment := &models.Comment{UserID: protected.ID, PostID: post.ID, Content: "c", IsNSFW: true}
	require.NoError(t, db.Create(comment).Error)

	cases := []*Command{
		{Actor: actor, Action: ActionDismissContent, TargetType: TargetUser, TargetID: protected.ID},
		{Actor: actor, Action: ActionDismissContent, TargetType: TargetPost, TargetID: post.ID},
		{Actor: actor, Action: ActionDismissContent, TargetType: TargetComment, TargetID: comment.ID},
	}
	for _, cmd := range cases {
		_, err := engine.PerformAction(context.Background(), cmd)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr, "target %s", cmd.TargetType)
		assert.Equal(t, models.CodeForbidden, appErr.Code, "target %s", cmd.TargetType)
	}

	var fresh models.User
	require.NoError(t, db.First(&fresh, protected.ID).Error)
	assert.Equal(t, models.AccountActive, fresh.Status)
	require.NoError(t, db.First(&models.Post{}, post.ID).Error)
	require.NoError(t, db.First(&models.Comment{}, comment.ID).Error)
}

func TestEveryActionWritesOneAuditEntry(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	target := createUser(t, db, models.RoleUser)

	before := countLogEntries(t, db)
	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionWarnUser, TargetType: TargetUser,
		TargetID: target.ID, Reason: "spam",
	})
	require.NoError(t, err)
	assert.Equal(t, before+1, countLogEntries(t, db))

	// A no-op action is still audited.
	before = countLogEntries(t, db)
	res, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionWarnUser, TargetType: TargetUser, TargetID: 999999,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, before+1, countLogEntries(t, db))
}

func TestDecisionCodeFormat(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	codeShape := regexp.MustCompile(`^\d{6}$`)

	for i := 0; i < 20; i++ {
		target := createUser(t, db, models.RoleUser)
		_, err := engine.PerformAction(context.Background(), &Command{
			Actor: actor, Action: ActionWarnUser, TargetType: TargetUser,
			TargetID: target.ID, Reason: "spam",
		})
		require.NoError(t, err)
	}

	var decisions []models.ModerationDecision
	require.NoError(t, db.Find(&decisions).Error)
	require.Len(t, decisions, 20)
	seen := map[string]bool{}
	for _, d := range decisions {
		assert.Regexp(t, codeShape, d.DecisionCode)
		seen[d.DecisionCode] = true
	}
	// The checked path should essentially never collide at this volume.
	assert.Len(t, seen, 20)
}

func TestWarnClampsSpamScore(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	target := createUser(t, db, models.RoleUser)
	require.NoError(t, db.Model(target).Update("spam_score", 90).Error)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionWarnUser, TargetType: TargetUser,
		TargetID: target.ID, Reason: "again",
	})
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.Equal(t, models.MaxSpamScore, fresh.SpamScore)
}

func TestBanUser(t *testing.T) {
	engine, db, mailer := newTestEngine(t)
	actor := moderatorActor(t, db)
	target := createUser(t, db, models.RoleUser)

	res, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionBanUser, TargetType: TargetUser,
		TargetID: target.ID, Reason: "abuse",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.Equal(t, models.AccountBlocked, fresh.Status)
	assert.Equal(t, models.MaxSpamScore, fresh.SpamScore)

	var decision models.ModerationDecision
	err = db.Where("target_type = ? AND target_id = ?", TargetUser, target.ID).
		First(&decision).Error
	require.NoError(t, err)
	assert.Equal(t, models.DecisionBlocked, decision.Decision)
	assert.Equal(t, actor.ID, decision.ModeratorID)

	var notif models.Notification
	require.NoError(t, db.Where("user_id = ?", target.ID).First(&notif).Error)
	assert.Equal(t, NotifyAccountBanned, notif.Type)
	assert.Contains(t, notif.Content, decision.DecisionCode)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "account_banned", mailer.sent[0].Template)
}

func seedStrikes(t *testing.T, db *gorm.DB, userID, moderatorID uint, n int, age time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		d := models.ModerationDecision{
			TargetType:   string(TargetUser),
			TargetID:     userID,
			Decision:     models.DecisionBlocked,
			ModeratorID:  moderatorID,
			DecisionCode: "111111",
			CreatedAt:    time.Now().UTC().Add(-age),
		}
		require.NoError(t, db.Create(&d).Error)
	}
}

func TestFourthBanEscalatesToDeletion(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	target := createUser(t, db, models.RoleUser)
	seedStrikes(t, db, target.ID, actor.ID, 3, 24*time.Hour)

	res, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionBanUser, TargetType: TargetUser,
		TargetID: target.ID, Reason: "strike four",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.Equal(t, models.AccountDeleted, fresh.Status)

	var deleted models.ModerationDecision
	err = db.Where("target_type = ? AND target_id = ? AND decision = ?",
		TargetUser, target.ID, models.DecisionDeleted).First(&deleted).Error
	require.NoError(t, err)
	assert.Equal(t, actor.ID, deleted.ModeratorID)
	assert.Equal(t, EscalationReason, deleted.Reason)

	var total int64
	require.NoError(t, db.Model(&models.ModerationDecision{}).
		Where("target_id = ?", target.ID).Count(&total).Error)
	assert.EqualValues(t, 5, total)
}

func TestOldStrikesOutsideWindowDoNotEscalate(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	target := createUser(t, db, models.RoleUser)
	seedStrikes(t, db, target.ID, actor.ID, 3, EscalationWindow+24*time.Hour)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionBanUser, TargetType: TargetUser,
		TargetID: target.ID, Reason: "first recent strike",
	})
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.Equal(t, models.AccountBlocked, fresh.Status)
}

func TestUnbanForgivesStrikeHistory(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	target := createUser(t, db, models.RoleUser)
	seedStrikes(t, db, target.ID, actor.ID, 3, 24*time.Hour)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionUnbanUser, TargetType: TargetUser, TargetID: target.ID,
	})
	require.NoError(t, err)

	var strikes int64
	require.NoError(t, db.Model(&models.ModerationDecision{}).
		Where("target_id = ? AND decision = ?", target.ID, models.DecisionBlocked).
		Count(&strikes).Error)
	assert.Zero(t, strikes)

	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.Equal(t, models.AccountActive, fresh.Status)
	assert.Zero(t, fresh.SpamScore)

	// A subsequent ban must not immediately re-trigger escalation.
	_, err = engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionBanUser, TargetType: TargetUser,
		TargetID: target.ID, Reason: "fresh strike",
	})
	require.NoError(t, err)
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.Equal(t, models.AccountBlocked, fresh.Status)
}

func TestApproveContentCascadesToDuplicates(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	author := createUser(t, db, models.RoleUser)
	reporter := createUser(t, db, models.RoleUser)

	first := &models.Post{UserID: author.ID, Content: "dup", ContentHash: "abc123", Status: models.PostModeration}
	second := &models.Post{UserID: author.ID, Content: "dup", ContentHash: "abc123", Status: models.PostModeration}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)
	for _, id := range []uint{first.ID, second.ID} {
		require.NoError(t, db.Create(&models.Report{
			ContentType: models.ReportTargetPost, ContentID: id,
			ReporterID: reporter.ID, Reason: "spam",
		}).Error)
	}

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionApproveContent, TargetType: TargetPost, TargetID: first.ID,
	})
	require.NoError(t, err)

	for _, id := range []uint{first.ID, second.ID} {
		var post models.Post
		require.NoError(t, db.First(&post, id).Error)
		assert.Equal(t, models.PostPublished, post.Status)
	}
	var reports int64
	require.NoError(t, db.Model(&models.Report{}).Count(&reports).Error)
	assert.Zero(t, reports)
}

func TestApproveContentIdempotentForReporters(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	author := createUser(t, db, models.RoleUser)
	reporter := createUser(t, db, models.RoleUser)

	post := &models.Post{UserID: author.ID, Content: "x", Status: models.PostModeration}
	require.NoError(t, db.Create(post).Error)
	require.NoError(t, db.Create(&models.Report{
		ContentType: models.ReportTargetPost, ContentID: post.ID,
		ReporterID: reporter.ID, Reason: "spam",
	}).Error)

	for i := 0; i < 2; i++ {
		_, err := engine.PerformAction(context.Background(), &Command{
			Actor: actor, Action: ActionApproveContent, TargetType: TargetPost, TargetID: post.ID,
		})
		require.NoError(t, err)
	}

	var notices int64
	require.NoError(t, db.Model(&models.Notification{}).
		Where("user_id = ? AND type = ?", reporter.ID, NotifyReportNoViolation).
		Count(&notices).Error)
	assert.EqualValues(t, 1, notices)
}

func TestRejectContentKeepsReports(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	author := createUser(t, db, models.RoleUser)
	reporter := createUser(t, db, models.RoleUser)

	post := &models.Post{UserID: author.ID, Content: "bad", Status: models.PostModeration}
	require.NoError(t, db.Create(post).Error)
	require.NoError(t, db.Create(&models.Report{
		ContentType: models.ReportTargetPost, ContentID: post.ID,
		ReporterID: reporter.ID, Reason: "spam",
	}).Error)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionRejectContent, TargetType: TargetPost,
		TargetID: post.ID, Reason: "rule violation",
	})
	require.NoError(t, err)

	var post2 models.Post
	require.NoError(t, db.First(&post2, post.ID).Error)
	assert.Equal(t, models.PostRemoved, post2.Status)
	assert.Equal(t, "rule violation", post2.RemovalReason)
	assert.NotNil(t, post2.RemovedAt)
	assert.NotNil(t, post2.RemovalDecisionID)

	var reports int64
	require.NoError(t, db.Model(&models.Report{}).Count(&reports).Error)
	assert.EqualValues(t, 1, reports)
}

func TestCommentDecisionsMaintainCommentCount(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	author := createUser(t, db, models.RoleUser)

	post := &models.Post{UserID: author.ID, Content: "p", Status: models.PostPublished}
	require.NoError(t, db.Create(post).Error)
	clean := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "ok", Status: models.CommentApproved}
	flagged := &models.Comment{PostID: post.ID, UserID: author.ID, Content: "sus", Status: models.CommentApproved, IsNSFW: true}
	require.NoError(t, db.Create(clean).Error)
	require.NoError(t, db.Create(flagged).Error)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionApproveContent, TargetType: TargetComment, TargetID: flagged.ID,
	})
	require.NoError(t, err)
	var fresh models.Post
	require.NoError(t, db.First(&fresh, post.ID).Error)
	assert.Equal(t, 2, fresh.CommentCount)

	_, err = engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionRejectContent, TargetType: TargetComment,
		TargetID: flagged.ID, Reason: "nope",
	})
	require.NoError(t, err)
	require.NoError(t, db.First(&fresh, post.ID).Error)
	assert.Equal(t, 1, fresh.CommentCount)

	_, err = engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionRemoveComment, TargetType: TargetComment, TargetID: clean.ID,
	})
	require.NoError(t, err)
	require.NoError(t, db.First(&fresh, post.ID).Error)
	assert.Equal(t, 0, fresh.CommentCount)
}

func TestDismissContentWritesNoDecision(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	author := createUser(t, db, models.RoleUser)

	post := &models.Post{UserID: author.ID, Content: "spam", Status: models.PostModeration}
	require.NoError(t, db.Create(post).Error)

	res, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionDismissContent, TargetType: TargetPost, TargetID: post.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	var decisions int64
	require.NoError(t, db.Model(&models.ModerationDecision{}).Count(&decisions).Error)
	assert.Zero(t, decisions)
	assert.EqualValues(t, 1, countLogEntries(t, db))

	var gone models.Post
	err = db.First(&gone, post.ID).Error
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRejectWithdrawalRefundsExactly(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	requester := createUser(t, db, models.RoleUser)
	require.NoError(t, db.Model(requester).Update("balance", 1000).Error)

	req := &models.WithdrawalRequest{UserID: requester.ID, Amount: 250, Status: models.WithdrawalPending}
	require.NoError(t, db.Create(req).Error)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionRejectWithdrawal, TargetType: TargetWithdrawal,
		TargetID: req.ID, Reason: "suspicious",
	})
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, requester.ID).Error)
	assert.EqualValues(t, 1250, fresh.Balance)

	var entries []models.LedgerEntry
	require.NoError(t, db.Where("user_id = ?", requester.ID).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, models.LedgerEntryRefund, entries[0].Type)
	assert.EqualValues(t, 250, entries[0].Amount)
	assert.EqualValues(t, 1250, entries[0].BalanceAfter)

	// Rejecting again is a no-op: no second refund.
	res, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionRejectWithdrawal, TargetType: TargetWithdrawal, TargetID: req.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NoError(t, db.First(&fresh, requester.ID).Error)
	assert.EqualValues(t, 1250, fresh.Balance)
}

func TestApproveWithdrawalOnlyFromPending(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	requester := createUser(t, db, models.RoleUser)

	req := &models.WithdrawalRequest{UserID: requester.ID, Amount: 100, Status: models.WithdrawalCompleted}
	require.NoError(t, db.Create(req).Error)

	res, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionApproveWithdrawal, TargetType: TargetWithdrawal, TargetID: req.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	var decisions int64
	require.NoError(t, db.Model(&models.ModerationDecision{}).Count(&decisions).Error)
	assert.Zero(t, decisions)
}

func TestGrantPremiumValidatesPlan(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := adminActor(t, db)
	target := createUser(t, db, models.RoleUser)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionGrantPremium, TargetType: TargetUser,
		TargetID: target.ID, Extra: map[string]string{"plan": "platinum"},
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeValidation, appErr.Code)

	_, err = engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionGrantPremium, TargetType: TargetUser,
		TargetID: target.ID, Extra: map[string]string{"plan": "pro"},
	})
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.True(t, fresh.IsPremium)
	assert.Equal(t, "pro", fresh.PremiumPlan)
	require.NotNil(t, fresh.PremiumUntil)
	assert.True(t, fresh.PremiumUntil.After(time.Now()))
}

func TestRestrictionTogglesAndRecordsDirection(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	target := createUser(t, db, models.RoleUser)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionRestrictFollow, TargetType: TargetUser, TargetID: target.ID,
	})
	require.NoError(t, err)
	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.True(t, fresh.RestrictedFollow)

	_, err = engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionRestrictFollow, TargetType: TargetUser, TargetID: target.ID,
	})
	require.NoError(t, err)
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.False(t, fresh.RestrictedFollow)

	var decisions []models.ModerationDecision
	require.NoError(t, db.Order("id").Find(&decisions).Error)
	require.Len(t, decisions, 2)
	assert.Equal(t, "restrict_follow", decisions[0].Decision)
	assert.Equal(t, "unrestrict_follow", decisions[1].Decision)
}

func TestShadowBanIsSilent(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	target := createUser(t, db, models.RoleUser)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionShadowBan, TargetType: TargetUser, TargetID: target.ID,
	})
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.True(t, fresh.ShadowBanned)
	require.NotNil(t, fresh.ShadowBannedBy)
	assert.Equal(t, actor.ID, *fresh.ShadowBannedBy)

	var notifs, decisions int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&notifs).Error)
	require.NoError(t, db.Model(&models.ModerationDecision{}).Count(&decisions).Error)
	assert.Zero(t, notifs)
	assert.Zero(t, decisions)
}

func TestRevokeCopyrightStripsProtectedPosts(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := adminActor(t, db)
	target := createUser(t, db, models.RoleUser)
	require.NoError(t, db.Model(target).Update("copyright_eligible", true).Error)

	protected := &models.Post{UserID: target.ID, Content: "art", Status: models.PostPublished, CopyrightProtected: true}
	other := &models.Post{UserID: target.ID, Content: "misc", Status: models.PostPublished}
	require.NoError(t, db.Create(protected).Error)
	require.NoError(t, db.Create(other).Error)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionRevokeCopyright, TargetType: TargetUser,
		TargetID: target.ID, Reason: "fraudulent claim",
	})
	require.NoError(t, err)

	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.False(t, fresh.CopyrightEligible)

	var post models.Post
	require.NoError(t, db.First(&post, protected.ID).Error)
	assert.False(t, post.CopyrightProtected)
}

func TestResolveReportStampsModerator(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	actor := moderatorActor(t, db)
	reporter := createUser(t, db, models.RoleUser)

	report := &models.Report{
		ContentType: models.ReportTargetPost, ContentID: 1,
		ReporterID: reporter.ID, Reason: "spam", Status: models.ReportPending,
	}
	require.NoError(t, db.Create(report).Error)

	_, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionResolveReport, TargetType: TargetReport,
		TargetID: report.ID, Reason: "handled",
	})
	require.NoError(t, err)

	var fresh models.Report
	require.NoError(t, db.First(&fresh, report.ID).Error)
	assert.Equal(t, models.ReportResolved, fresh.Status)
	require.NotNil(t, fresh.ModeratorID)
	assert.Equal(t, actor.ID, *fresh.ModeratorID)
	assert.Equal(t, "handled", fresh.ModeratorNote)
	assert.NotNil(t, fresh.ResolvedAt)

	// Closing twice is a no-op.
	res, err := engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionDismissReport, TargetType: TargetReport, TargetID: report.ID,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	require.NoError(t, db.First(&fresh, report.ID).Error)
	assert.Equal(t, models.ReportResolved, fresh.Status)
}

func TestKillSwitchesDisableCascadeAndEscalation(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Post{}, &models.Comment{}, &models.Report{},
		&models.WithdrawalRequest{}, &models.LedgerEntry{},
		&models.ModerationDecision{}, &models.ModerationLogEntry{}, &models.Notification{},
	))
	flags := featureflags.NewManager("disable_duplicate_cascade=on,disable_auto_escalation=on")
	engine := NewEngine(db, notifications.NewNotifier(db, nil), &recordingMailer{}, flags)

	actor := moderatorActor(t, db)
	author := createUser(t, db, models.RoleUser)
	first := &models.Post{UserID: author.ID, Content: "dup", ContentHash: "h", Status: models.PostModeration}
	second := &models.Post{UserID: author.ID, Content: "dup", ContentHash: "h", Status: models.PostModeration}
	require.NoError(t, db.Create(first).Error)
	require.NoError(t, db.Create(second).Error)

	_, err = engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionApproveContent, TargetType: TargetPost, TargetID: first.ID,
	})
	require.NoError(t, err)
	var untouched models.Post
	require.NoError(t, db.First(&untouched, second.ID).Error)
	assert.Equal(t, models.PostModeration, untouched.Status)

	target := createUser(t, db, models.RoleUser)
	seedStrikes(t, db, target.ID, actor.ID, 3, 24*time.Hour)
	_, err = engine.PerformAction(context.Background(), &Command{
		Actor: actor, Action: ActionBanUser, TargetType: TargetUser,
		TargetID: target.ID, Reason: "strike",
	})
	require.NoError(t, err)
	var fresh models.User
	require.NoError(t, db.First(&fresh, target.ID).Error)
	assert.Equal(t, models.AccountBlocked, fresh.Status)
}
