package moderation

import (
	"context"
	"errors"
	"log/slog"

	"warden/internal/featureflags"
	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/notifications"
	"warden/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// Command is one inbound moderation action. Extra carries per-action
// parameters, currently only "plan" for grant_premium.
type Command struct {
	Actor      Actor
	Action     Action
	TargetType TargetType
	TargetID   uint
	Reason     string
	Extra      map[string]string
}

// Result is the outcome returned to the caller. There is no partial-success
// status: either the handler sequence logically completed or the whole
// action was rejected before any mutation.
type Result struct {
	Success bool   `json:"success"`
	Action  Action `json:"action"`
	Message string `json:"message"`
}

// handler applies one verb's mutation inside the action transaction and
// returns the side effects to run after commit.
type handler func(ctx context.Context, tx *gorm.DB, cmd *Command) (*Effects, error)

// Engine is the moderation action dispatcher. One instance serves all
// requests; it holds no per-action state.
type Engine struct {
	db       *gorm.DB
	notifier *notifications.Notifier
	mailer   notifications.Mailer
	flags    *featureflags.Manager
	handlers map[Action]handler
}

// NewEngine constructs the engine and its action registry. notifier, mailer
// and flags may be nil; the corresponding effects are skipped.
func NewEngine(db *gorm.DB, notifier *notifications.Notifier, mailer notifications.Mailer, flags *featureflags.Manager) *Engine {
	e := &Engine{
		db:       db,
		notifier: notifier,
		mailer:   mailer,
		flags:    flags,
	}
	e.handlers = map[Action]handler{
		ActionApproveContent: e.applyApproveContent,
		ActionRejectContent:  e.applyRejectContent,
		ActionDismissContent: e.applyDismissContent,
		ActionRemovePost:     e.applyRemovePost,
		ActionArchivePost:    e.applyArchivePost,
		ActionRemoveComment:  e.applyRemoveComment,

		ActionWarnUser:        e.applyWarnUser,
		ActionBanUser:         e.applyBanUser,
		ActionUnbanUser:       e.applyReinstateUser,
		ActionActivateUser:    e.applyReinstateUser,
		ActionUnfreezeUser:    e.applyReinstateUser,
		ActionFreezeUser:      e.applyFreezeUser,
		ActionDeleteUser:      e.applyDeleteUser,
		ActionModerateUser:    e.applyModerateUser,
		ActionGrantPremium:    e.applyGrantPremium,
		ActionRevokePremium:   e.applyRevokePremium,
		ActionShadowBan:       e.applyShadowBan,
		ActionUnshadowBan:     e.applyUnshadowBan,
		ActionRestrictFollow:  e.applyRestriction,
		ActionRestrictLike:    e.applyRestriction,
		ActionRestrictComment: e.applyRestriction,
		ActionUnverifyUser:    e.applyUnverifyUser,
		ActionRevokeCopyright: e.applyRevokeCopyright,

		ActionResolveReport:     e.applyResolveReport,
		ActionDismissReport:     e.applyDismissReport,
		ActionApproveWithdrawal: e.applyApproveWithdrawal,
		ActionRejectWithdrawal:  e.applyRejectWithdrawal,
	}
	return e
}

// PerformAction validates, authorizes, audits and applies one moderation
// action. The handler's full effect set (mutation, cascade, escalation) runs
// in a single transaction; notifications and emails run after commit and are
// best-effort.
func (e *Engine) PerformAction(ctx context.Context, cmd *Command) (*Result, error) {
	ctx, span := observability.StartSpan(ctx, "moderation.PerformAction",
		attribute.String("moderation.action", string(cmd.Action)),
		attribute.String("moderation.target_type", string(cmd.TargetType)),
		attribute.Int64("moderation.target_id", int64(cmd.TargetID)),
	)
	defer span.End()

	if err := e.validate(cmd); err != nil {
		observability.ActionsTotal.WithLabelValues(string(cmd.Action), "rejected").Inc()
		return nil, err
	}
	if err := e.authorize(ctx, cmd); err != nil {
		observability.ActionsTotal.WithLabelValues(string(cmd.Action), "forbidden").Inc()
		observability.RecordSpanError(span, err)
		return nil, err
	}

	// The audit entry is written before the handler runs so a trail exists
	// even when the handler later no-ops. Its failure never blocks the
	// action.
	e.audit(ctx, cmd)

	var eff *Effects
	apply := e.handlers[cmd.Action]
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var herr error
		eff, herr = apply(ctx, tx, cmd)
		return herr
	})
	if err != nil {
		observability.ActionsTotal.WithLabelValues(string(cmd.Action), "error").Inc()
		observability.RecordSpanError(span, err)
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, models.NewInternalError(err)
	}

	e.dispatchEffects(ctx, cmd, eff)

	outcome := "applied"
	if eff != nil && eff.NoOp {
		outcome = "noop"
	}
	observability.ActionsTotal.WithLabelValues(string(cmd.Action), outcome).Inc()

	message := "action applied"
	if eff != nil && eff.Message != "" {
		message = eff.Message
	}
	return &Result{Success: true, Action: cmd.Action, Message: message}, nil
}

func (e *Engine) validate(cmd *Command) error {
	if _, ok := e.handlers[cmd.Action]; !ok {
		return models.NewValidationError("unknown action: " + string(cmd.Action))
	}
	if cmd.TargetID == 0 {
		return models.NewValidationError("target_id is required")
	}
	if !allowsTarget(cmd.Action, cmd.TargetType) {
		return models.NewValidationError(
			"action " + string(cmd.Action) + " does not apply to target type " + string(cmd.TargetType))
	}
	if cmd.Action == ActionGrantPremium && !PremiumPlans[cmd.Extra["plan"]] {
		return models.NewValidationError("plan must be one of super, pro, max, business")
	}
	return nil
}

func (e *Engine) audit(ctx context.Context, cmd *Command) {
	entry := models.ModerationLogEntry{
		ModeratorID: cmd.Actor.ID,
		Action:      string(cmd.Action),
		TargetType:  string(cmd.TargetType),
		TargetID:    cmd.TargetID,
		Reason:      cmd.Reason,
	}
	if err := e.db.WithContext(ctx).Create(&entry).Error; err != nil {
		observability.EffectFailuresTotal.WithLabelValues("audit").Inc()
		middleware.Logger.WarnContext(ctx, "audit log write failed",
			slog.String("action", string(cmd.Action)),
			slog.String("error", err.Error()),
		)
	}
}

// writeDecision creates the immutable ModerationDecision row for an action
// carrying a decision semantic, including its display code.
func (e *Engine) writeDecision(tx *gorm.DB, cmd *Command, decision string) (*models.ModerationDecision, error) {
	row := models.ModerationDecision{
		TargetType:   string(cmd.TargetType),
		TargetID:     cmd.TargetID,
		Decision:     decision,
		Reason:       cmd.Reason,
		ModeratorID:  cmd.Actor.ID,
		DecisionCode: generateDecisionCode(tx),
	}
	if err := tx.Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
