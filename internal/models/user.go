// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// Role is the platform-wide role of a user account.
type Role string

// Account roles.
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// AccountStatus is the lifecycle status of a user account.
type AccountStatus string

// Account statuses. Deleted is a soft state; the engine never hard-deletes
// accounts.
const (
	AccountActive     AccountStatus = "active"
	AccountModeration AccountStatus = "moderation"
	AccountFrozen     AccountStatus = "frozen"
	AccountBlocked    AccountStatus = "blocked"
	AccountDeleted    AccountStatus = "deleted"
)

// MaxSpamScore is the ceiling for the per-account spam score.
const MaxSpamScore = 100

// User represents a platform account. Moderation-owned fields (status, spam
// score, restriction flags, premium flags) are mutated exclusively through
// the moderation engine.
type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Username string `gorm:"unique;not null" json:"username"`
	Email    string `gorm:"unique;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	Role   Role          `gorm:"not null;default:user;index" json:"role"`
	Status AccountStatus `gorm:"not null;default:active;index" json:"status"`

	SpamScore        int    `gorm:"not null;default:0" json:"spam_score"`
	ModerationReason string `json:"moderation_reason,omitempty"`

	RestrictedFollow  bool `gorm:"not null;default:false" json:"restricted_follow"`
	RestrictedLike    bool `gorm:"not null;default:false" json:"restricted_like"`
	RestrictedComment bool `gorm:"not null;default:false" json:"restricted_comment"`

	ShadowBanned   bool       `gorm:"not null;default:false" json:"shadow_banned"`
	ShadowBannedBy *uint      `json:"shadow_banned_by,omitempty"`
	ShadowBannedAt *time.Time `json:"shadow_banned_at,omitempty"`

	IsVerified bool `gorm:"not null;default:false" json:"is_verified"`

	IsPremium    bool       `gorm:"not null;default:false" json:"is_premium"`
	PremiumPlan  string     `json:"premium_plan,omitempty"`
	PremiumUntil *time.Time `json:"premium_until,omitempty"`

	CopyrightEligible bool `gorm:"not null;default:false" json:"copyright_eligible"`

	// Balance is the withdrawable balance in minor currency units.
	Balance int64 `gorm:"not null;default:0" json:"balance"`

	// EmailNotifications carries no column default: GORM omits zero values
	// on insert, so a DB-side default true would silently overwrite an
	// opt-out at creation. Account creators set it explicitly.
	EmailNotifications bool `gorm:"not null" json:"email_notifications"`

	FrozenAt  *time.Time     `json:"frozen_at,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// IsStaff reports whether the account may invoke moderation actions at all.
func (u *User) IsStaff() bool {
	return u.Role == RoleModerator || u.Role == RoleAdmin
}
