// Package notify fans site events out to the sales team's tooling. Email
// delivery happens outside this service; events are logged or published.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Event kinds.
const (
	KindLeadCreated       = "lead.created"
	KindSubscriberCreated = "subscriber.created"
	KindAssessmentCreated = "assessment.created"
)

// Event describes something a human should follow up on.
type Event struct {
	Kind      string            `json:"kind"`
	RequestID string            `json:"requestId,omitempty"`
	Subject   string            `json:"subject"`
	Payload   map[string]string `json:"payload,omitempty"`
	At        time.Time         `json:"at"`
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// LogNotifier writes events to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a LogNotifier; a nil logger discards events.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event Event) error {
	fields := []zap.Field{
		zap.String("op", "notify.LogNotifier.Notify"),
		zap.String("kind", event.Kind),
		zap.String("requestId", event.RequestID),
		zap.Time("at", event.At),
	}
	for key, value := range event.Payload {
		fields = append(fields, zap.String("payload."+key, value))
	}
	n.logger.Info(event.Subject, fields...)
	return nil
}

// RedisNotifier publishes events as JSON on a pub/sub channel.
type RedisNotifier struct {
	client  redis.UniversalClient
	channel string
}

// NewRedisNotifier publishes to channel.
func NewRedisNotifier(client redis.UniversalClient, channel string) *RedisNotifier {
	return &RedisNotifier{client: client, channel: channel}
}

func (n *RedisNotifier) Notify(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Kind, err)
	}
	return nil
}

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*RedisNotifier)(nil)
	_ Notifier = Multi(nil)
)
