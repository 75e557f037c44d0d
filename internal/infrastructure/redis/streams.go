package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tudogo/functions/internal/domain/notification"
)

const (
	// NotificationStream feeds the push delivery pipeline.
	NotificationStream = "notifications:outbound"

	notificationStreamMaxLen = 100000
)

// notificationMessage is the stream payload for one notification
type notificationMessage struct {
	ID      string `json:"id"`
	UserID  string `json:"userId"`
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
	SentAt  string `json:"sentAt"`
}

type StreamProducer struct {
	client redis.Cmdable
}

func NewStreamProducer(client redis.Cmdable) *StreamProducer {
	return &StreamProducer{client: client}
}

// PublishNotification appends n to the outbound notification stream.
func (p *StreamProducer) PublishNotification(ctx context.Context, n *notification.Notification) error {
	payload, err := json.Marshal(notificationMessage{
		ID:      n.ID.String(),
		UserID:  n.UserID.String(),
		Type:    string(n.Type),
		Title:   n.Title,
		Message: n.Message,
		SentAt:  n.SentAt.UTC().Format("2006-01-02T15:04:05.000Z"),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	_, err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: NotificationStream,
		MaxLen: notificationStreamMaxLen,
		Approx: true,
		Values: map[string]any{
			"notification_id": n.ID.String(),
			"user_id":         n.UserID.String(),
			"payload":         string(payload),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
