package models

import (
	"time"

	"gorm.io/gorm"
)

// PostStatus is the moderation lifecycle status of a post.
type PostStatus string

// Post statuses.
const (
	PostDraft      PostStatus = "draft"
	PostModeration PostStatus = "moderation"
	PostPublished  PostStatus = "published"
	PostRemoved    PostStatus = "removed"
	PostArchived   PostStatus = "archived"
)

// Post represents a post under moderation control. ContentHash is the
// duplicate-matching fingerprint used by the cascade resolver.
type Post struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Title    string `json:"title"`
	Content  string `gorm:"type:text;not null" json:"content"`
	UserID   uint   `gorm:"not null;index" json:"user_id"`
	User     User   `gorm:"foreignKey:UserID" json:"user,omitempty"`
	ImageURL string `json:"image_url,omitempty"`

	Status PostStatus `gorm:"not null;default:draft;index" json:"status"`
	IsNSFW bool       `gorm:"not null;default:false" json:"is_nsfw"`

	ContentHash string `gorm:"size:64;index" json:"content_hash"`

	// ModerationCategory and ModerationScore are precomputed upstream;
	// the engine only consumes them.
	ModerationReason   string  `json:"moderation_reason,omitempty"`
	ModerationCategory string  `json:"moderation_category,omitempty"`
	ModerationScore    float64 `json:"moderation_score,omitempty"`

	RemovalReason      string     `json:"removal_reason,omitempty"`
	RemovedAt          *time.Time `json:"removed_at,omitempty"`
	RemovalDecisionID  *uint      `json:"removal_decision_id,omitempty"`
	CopyrightProtected bool       `gorm:"not null;default:false" json:"copyright_protected"`

	// CommentCount caches the number of approved, non-NSFW comments.
	CommentCount int `gorm:"not null;default:0" json:"comment_count"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
