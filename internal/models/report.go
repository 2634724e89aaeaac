package models

import "time"

// ReportStatus is the lifecycle status of a user-filed report.
type ReportStatus string

// Report statuses.
const (
	ReportPending   ReportStatus = "pending"
	ReportResolved  ReportStatus = "resolved"
	ReportDismissed ReportStatus = "dismissed"
)

// Content types reports can reference.
const (
	ReportTargetPost    = "post"
	ReportTargetComment = "comment"
	ReportTargetUser    = "user"
)

// Report is a user-filed flag against a content item or account. Many
// reports may reference the same item; a single moderation decision
// resolves or deletes all of them.
type Report struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	ContentType string       `gorm:"not null;index:idx_reports_content" json:"content_type"`
	ContentID   uint         `gorm:"not null;index:idx_reports_content" json:"content_id"`
	ReporterID  uint         `gorm:"not null;index" json:"reporter_id"`
	Reporter    User         `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	Reason      string       `json:"reason"`
	Status      ReportStatus `gorm:"not null;default:pending;index" json:"status"`

	ModeratorID   *uint      `json:"moderator_id,omitempty"`
	ModeratorNote string     `json:"moderator_note,omitempty"`
	ResolvedAt    *time.Time `json:"resolved_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
