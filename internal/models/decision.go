package models

import "time"

// Decision short codes recorded on ModerationDecision rows.
const (
	DecisionApproved         = "approved"
	DecisionRemoved          = "removed"
	DecisionArchived         = "archived"
	DecisionWarned           = "warned"
	DecisionBlocked          = "blocked"
	DecisionFrozen           = "frozen"
	DecisionDeleted          = "deleted"
	DecisionModeration       = "moderation"
	DecisionResolved         = "resolved"
	DecisionDismissed        = "dismissed"
	DecisionRejected         = "rejected"
	DecisionUnverified       = "unverified"
	DecisionCopyrightRevoked = "copyright_revoked"
)

// ModerationDecision is the immutable record of a moderation outcome. It is
// created once per action carrying a decision semantic and never updated;
// the only deletion path is the escalation reset on unban/activate/unfreeze.
//
// DecisionCode is indexed but intentionally not unique: the generator's
// timestamp fallback may occasionally collide, and codes are a display aid,
// not a key.
type ModerationDecision struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	TargetType   string `gorm:"not null;index:idx_decisions_target" json:"target_type"`
	TargetID     uint   `gorm:"not null;index:idx_decisions_target" json:"target_id"`
	Decision     string `gorm:"not null;index" json:"decision"`
	Reason       string `json:"reason,omitempty"`
	ModeratorID  uint   `gorm:"not null;index" json:"moderator_id"`
	DecisionCode string `gorm:"size:6;index" json:"decision_code"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// ModerationLogEntry is the append-only audit record written for every
// dispatched action, decision-bearing or not. Never mutated.
type ModerationLogEntry struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	ModeratorID uint   `gorm:"not null;index" json:"moderator_id"`
	Action      string `gorm:"not null;index" json:"action"`
	TargetType  string `gorm:"not null" json:"target_type"`
	TargetID    uint   `gorm:"not null" json:"target_id"`
	Reason      string `json:"reason,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
