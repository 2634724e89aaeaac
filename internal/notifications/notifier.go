// Package notifications delivers in-app notifications and outbound email for
// the moderation backend. Notifications are persisted rows plus a Redis
// pub/sub fan-out; emails are enqueued on a Redis list for an external worker.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"time"

	"warden/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Event is the pub/sub envelope published alongside each persisted
// notification row.
type Event struct {
	EventID    string    `json:"event_id"`
	UserID     uint      `json:"user_id"`
	ActorID    uint      `json:"actor_id"`
	Type       string    `json:"type"`
	ObjectType string    `json:"object_type,omitempty"`
	ObjectID   uint      `json:"object_id,omitempty"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

// Notifier persists notification rows and publishes them into Redis channels.
type Notifier struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance. Both dependencies are
// optional: a nil db skips persistence, a nil rdb skips the fan-out.
func NewNotifier(db *gorm.DB, rdb *redis.Client) *Notifier {
	return &Notifier{db: db, rdb: rdb}
}

// CreateNotification persists a notification row and publishes the matching
// event to the recipient's channel. The publish is best-effort; only the row
// write can fail the call.
func (n *Notifier) CreateNotification(ctx context.Context, notif *models.Notification) error {
	if n == nil {
		return nil
	}

	if n.db != nil {
		if err := n.db.WithContext(ctx).Create(notif).Error; err != nil {
			return fmt.Errorf("persist notification: %w", err)
		}
	}

	event := Event{
		EventID:    uuid.NewString(),
		UserID:     notif.UserID,
		ActorID:    notif.ActorID,
		Type:       notif.Type,
		ObjectType: notif.ObjectType,
		ObjectID:   notif.ObjectID,
		Content:    notif.Content,
		CreatedAt:  notif.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil
	}
	if pubErr := n.PublishUser(ctx, notif.UserID, string(payload)); pubErr != nil {
		log.Printf("notification publish failed for user %d: %v", notif.UserID, pubErr)
	}
	return nil
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(
	ctx context.Context, userID uint, payload string,
) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a notification payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, "notifications:broadcast", payload).Err()
}

// StartPatternSubscriber subscribes to pattern `notifications:user:*` and calls onMessage
// for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*", "notifications:broadcast")
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
