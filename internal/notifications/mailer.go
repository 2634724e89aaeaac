package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"warden/internal/cache"
	"warden/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// OutboundEmail is the envelope pushed onto the outbound email queue. An
// external worker owns SMTP delivery.
type OutboundEmail struct {
	MessageID string    `json:"message_id"`
	To        string    `json:"to"`
	Template  string    `json:"template"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	QueuedAt  time.Time `json:"queued_at"`
}

// Mailer queues outbound email for users who have email notifications
// enabled.
type Mailer interface {
	// EmailFor returns the user's address, or "" when the user has opted
	// out of email or cannot be found.
	EmailFor(ctx context.Context, userID uint) (string, error)
	Send(ctx context.Context, msg OutboundEmail) error
}

// RedisMailer enqueues email envelopes as JSON onto a Redis list.
type RedisMailer struct {
	db    *gorm.DB
	rdb   *redis.Client
	queue string
}

// NewRedisMailer creates a mailer backed by the given Redis list key.
func NewRedisMailer(db *gorm.DB, rdb *redis.Client, queue string) *RedisMailer {
	return &RedisMailer{db: db, rdb: rdb, queue: queue}
}

// EmailPrefsKey is the cache key holding a user's address and opt-out flag.
// Callers that mutate accounts invalidate it to avoid serving a stale
// address.
func EmailPrefsKey(userID uint) string {
	return fmt.Sprintf("emailprefs:%d", userID)
}

// EmailFor looks up the user's address, honoring the opt-out preference. The
// lookup is cached briefly since moderation bursts often hit the same user.
func (m *RedisMailer) EmailFor(ctx context.Context, userID uint) (string, error) {
	if m.db == nil {
		return "", nil
	}

	type prefs struct {
		Email   string
		Enabled bool
	}

	key := EmailPrefsKey(userID)
	p, err := cache.Fetch(ctx, key, 5*time.Minute, func() (prefs, error) {
		var user models.User
		if err := m.db.WithContext(ctx).Select("email", "email_notifications").
			First(&user, userID).Error; err != nil {
			return prefs{}, err
		}
		return prefs{Email: user.Email, Enabled: user.EmailNotifications}, nil
	})
	if err != nil {
		return "", err
	}
	if !p.Enabled {
		return "", nil
	}
	return p.Email, nil
}

// Send pushes the envelope onto the queue. A nil Redis client drops the
// message; email is best-effort by contract.
func (m *RedisMailer) Send(ctx context.Context, msg OutboundEmail) error {
	if m.rdb == nil {
		return nil
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.QueuedAt.IsZero() {
		msg.QueuedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal email envelope: %w", err)
	}
	return m.rdb.RPush(ctx, m.queue, payload).Err()
}
