package models

import (
	"time"

	"gorm.io/gorm"
)

// CommentStatus is the moderation status of a comment.
type CommentStatus string

// Comment statuses.
const (
	CommentApproved CommentStatus = "approved"
	CommentRejected CommentStatus = "rejected"
	CommentRemoved  CommentStatus = "removed"
)

// Comment represents a comment on a post. The raw content text is the
// duplicate-matching fingerprint for comments.
type Comment struct {
	ID      uint   `gorm:"primaryKey" json:"id"`
	PostID  uint   `gorm:"not null;index" json:"post_id"`
	UserID  uint   `gorm:"not null;index" json:"user_id"`
	User    User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Content string `gorm:"type:text;not null" json:"content"`

	Status CommentStatus `gorm:"not null;default:approved;index" json:"status"`
	IsNSFW bool          `gorm:"not null;default:false" json:"is_nsfw"`

	ModerationReason   string `json:"moderation_reason,omitempty"`
	ModerationCategory string `json:"moderation_category,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
