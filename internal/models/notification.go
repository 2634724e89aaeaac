package models

import "time"

// Notification is a persisted in-app notification raised by the moderation
// engine. Delivery beyond the row and the pub/sub fan-out is a collaborator
// concern.
type Notification struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"not null;index" json:"user_id"`
	ActorID    uint   `gorm:"not null" json:"actor_id"`
	Type       string `gorm:"not null" json:"type"`
	ObjectType string `json:"object_type,omitempty"`
	ObjectID   uint   `json:"object_id,omitempty"`
	Content    string `gorm:"type:text" json:"content"`
	Read       bool   `gorm:"not null;default:false" json:"read"`

	CreatedAt time.Time `json:"created_at"`
}
