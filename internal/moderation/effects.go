package moderation

import (
	"context"
	"log/slog"

	"warden/internal/cache"
	"warden/internal/middleware"
	"warden/internal/models"
	"warden/internal/notifications"
	"warden/internal/observability"
)

// NotificationEffect is an in-app notification a handler wants raised.
type NotificationEffect struct {
	UserID     uint
	Type       string
	ObjectType string
	ObjectID   uint
	Content    string
}

// EmailEffect is an outbound email a handler wants queued. The mailer
// resolves the address and honors the recipient's opt-out.
type EmailEffect struct {
	UserID   uint
	Template string
	Subject  string
	Body     string
}

// Effects is the typed side-effect list a handler returns instead of firing
// notifications inline. The engine executes it after the mutation commits;
// every entry is best-effort.
type Effects struct {
	Notifications []NotificationEffect
	Emails        []EmailEffect

	// Broadcast is a payload published to the staff-wide channel, used for
	// events every open dashboard should see (currently escalations).
	Broadcast string

	// StaleEmailPrefs lists users whose cached email preferences must be
	// dropped because the account row changed underneath them.
	StaleEmailPrefs []uint

	// Message overrides the result message shown to the caller.
	Message string

	// NoOp marks a missing or already-terminal target. The action still
	// succeeds, but nothing was mutated and no decision was written.
	NoOp bool
}

func (e *Effects) notify(userID uint, typ, objectType string, objectID uint, content string) {
	e.Notifications = append(e.Notifications, NotificationEffect{
		UserID:     userID,
		Type:       typ,
		ObjectType: objectType,
		ObjectID:   objectID,
		Content:    content,
	})
}

func (e *Effects) email(userID uint, template, subject, body string) {
	e.Emails = append(e.Emails, EmailEffect{
		UserID:   userID,
		Template: template,
		Subject:  subject,
		Body:     body,
	})
}

func noop(message string) *Effects {
	return &Effects{NoOp: true, Message: message}
}

// dispatchEffects executes the effect list. Failures are counted and logged
// but never surface: the committed mutation is the action's outcome, and
// delivery is a black box owned by collaborators.
func (e *Engine) dispatchEffects(ctx context.Context, cmd *Command, eff *Effects) {
	if eff == nil {
		return
	}

	if len(eff.StaleEmailPrefs) > 0 {
		keys := make([]string, 0, len(eff.StaleEmailPrefs))
		for _, id := range eff.StaleEmailPrefs {
			keys = append(keys, notifications.EmailPrefsKey(id))
		}
		cache.Invalidate(ctx, keys...)
	}

	for _, n := range eff.Notifications {
		if e.notifier == nil {
			break
		}
		err := e.notifier.CreateNotification(ctx, &models.Notification{
			UserID:     n.UserID,
			ActorID:    cmd.Actor.ID,
			Type:       n.Type,
			ObjectType: n.ObjectType,
			ObjectID:   n.ObjectID,
			Content:    n.Content,
		})
		if err != nil {
			observability.EffectFailuresTotal.WithLabelValues("notification").Inc()
			middleware.Logger.WarnContext(ctx, "notification effect failed",
				slog.String("action", string(cmd.Action)),
				slog.Uint64("user_id", uint64(n.UserID)),
				slog.String("error", err.Error()),
			)
		}
	}

	if eff.Broadcast != "" && e.notifier != nil {
		if err := e.notifier.PublishBroadcast(ctx, eff.Broadcast); err != nil {
			observability.EffectFailuresTotal.WithLabelValues("broadcast").Inc()
			middleware.Logger.WarnContext(ctx, "broadcast effect failed",
				slog.String("action", string(cmd.Action)),
				slog.String("error", err.Error()),
			)
		}
	}

	if len(eff.Emails) == 0 || e.mailer == nil {
		return
	}
	if e.flags.EnabledGlobal("disable_email_delivery") {
		return
	}
	for _, m := range eff.Emails {
		addr, err := e.mailer.EmailFor(ctx, m.UserID)
		if err != nil || addr == "" {
			if err != nil {
				observability.EffectFailuresTotal.WithLabelValues("email").Inc()
			}
			continue
		}
		err = e.mailer.Send(ctx, notifications.OutboundEmail{
			To:       addr,
			Template: m.Template,
			Subject:  m.Subject,
			Body:     m.Body,
		})
		if err != nil {
			observability.EffectFailuresTotal.WithLabelValues("email").Inc()
			middleware.Logger.WarnContext(ctx, "email effect failed",
				slog.String("action", string(cmd.Action)),
				slog.Uint64("user_id", uint64(m.UserID)),
				slog.String("error", err.Error()),
			)
		}
	}
}
