// Package moderation implements the moderation action engine: the
// authorization-gated command handler that turns a moderator's decision into
// a durable record, applies the state transition to the target, cascades the
// decision to duplicate content, and auto-escalates repeat offenders.
package moderation

import "warden/internal/models"

// Actor is the authenticated staff identity performing an action. It is an
// explicit parameter on every call; the engine never consults ambient
// session state. The caller resolves the role fresh per request.
type Actor struct {
	ID   uint
	Role models.Role
}

// IsStaff reports whether the actor may invoke moderation actions at all.
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleModerator || a.Role == models.RoleAdmin
}
