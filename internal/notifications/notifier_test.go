package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"warden/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Notification{}))
	return db
}

func newTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()}), mr
}

func TestCreateNotificationPersistsRow(t *testing.T) {
	db := newTestDB(t)
	rdb, _ := newTestRedis(t)
	n := NewNotifier(db, rdb)

	notif := &models.Notification{
		UserID:  7,
		ActorID: 2,
		Type:    "account_banned",
		Content: "Your account has been blocked",
	}
	require.NoError(t, n.CreateNotification(context.Background(), notif))
	assert.NotZero(t, notif.ID)

	var stored models.Notification
	require.NoError(t, db.First(&stored, notif.ID).Error)
	assert.Equal(t, uint(7), stored.UserID)
	assert.Equal(t, "account_banned", stored.Type)
	assert.False(t, stored.Read)
}

func TestCreateNotificationPublishesEvent(t *testing.T) {
	db := newTestDB(t)
	rdb, _ := newTestRedis(t)
	n := NewNotifier(db, rdb)

	sub := rdb.Subscribe(context.Background(), UserChannel(9))
	defer sub.Close()
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	require.NoError(t, n.CreateNotification(context.Background(), &models.Notification{
		UserID:  9,
		ActorID: 3,
		Type:    "content_removed",
		Content: "Your post was removed",
	}))

	select {
	case msg := <-sub.Channel():
		var event Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
		assert.NotEmpty(t, event.EventID)
		assert.Equal(t, uint(9), event.UserID)
		assert.Equal(t, "content_removed", event.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a published notification event")
	}
}

func TestCreateNotificationSurvivesNilRedis(t *testing.T) {
	db := newTestDB(t)
	n := NewNotifier(db, nil)

	require.NoError(t, n.CreateNotification(context.Background(), &models.Notification{
		UserID:  1,
		ActorID: 2,
		Type:    "account_warned",
		Content: "You have been warned",
	}))
}

func TestPatternSubscriberReceivesBroadcast(t *testing.T) {
	rdb, _ := newTestRedis(t)
	n := NewNotifier(nil, rdb)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan string, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == "notifications:broadcast" {
			got <- payload
		}
	}))

	// PSubscribe setup races with the publish; retry until delivered.
	deadline := time.After(2 * time.Second)
	for {
		require.NoError(t, n.PublishBroadcast(ctx, `{"event":"escalation","user_id":4}`))
		select {
		case payload := <-got:
			assert.Contains(t, payload, "escalation")
			return
		case <-deadline:
			t.Fatal("expected the broadcast to reach the subscriber")
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestRedisMailerEnqueuesEnvelope(t *testing.T) {
	rdb, mr := newTestRedis(t)
	m := NewRedisMailer(nil, rdb, "warden:emails:test")

	err := m.Send(context.Background(), OutboundEmail{
		To:       "user@example.com",
		Template: "account_banned",
		Subject:  "Account status update",
		Body:     "Your account has been blocked.",
	})
	require.NoError(t, err)

	raw, err := mr.Lpop("warden:emails:test")
	require.NoError(t, err)

	var envelope OutboundEmail
	require.NoError(t, json.Unmarshal([]byte(raw), &envelope))
	assert.NotEmpty(t, envelope.MessageID)
	assert.Equal(t, "user@example.com", envelope.To)
	assert.False(t, envelope.QueuedAt.IsZero())
}

func TestEmailForHonorsOptOut(t *testing.T) {
	db := newTestDB(t)
	m := NewRedisMailer(db, nil, "warden:emails:test")

	optedIn := models.User{Username: "in", Email: "in@example.com", EmailNotifications: true}
	optedOut := models.User{Username: "out", Email: "out@example.com", EmailNotifications: false}
	require.NoError(t, db.Create(&optedIn).Error)
	require.NoError(t, db.Create(&optedOut).Error)

	// An opt-out chosen at creation must survive the insert; a column
	// default would silently flip the omitted zero value back to true.
	var stored models.User
	require.NoError(t, db.First(&stored, optedOut.ID).Error)
	assert.False(t, stored.EmailNotifications)

	addr, err := m.EmailFor(context.Background(), optedIn.ID)
	require.NoError(t, err)
	assert.Equal(t, "in@example.com", addr)

	addr, err = m.EmailFor(context.Background(), optedOut.ID)
	require.NoError(t, err)
	assert.Empty(t, addr)
}
