// Package events publishes auth domain events to Kafka topics and to an Elasticsearch
// audit index. Publishing is best effort: callers wrap publishers in Async so a slow
// broker never holds up an HTTP response.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/Skotchmaster/snapbuy/pkg/logging"
)

const (
	TopicUserEvents    = "user_events"
	TopicNotifications = "notifications"
)

type Publisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	UserID     uint           `json:"user_id,omitempty"`
	Email      string         `json:"email,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Attrs      map[string]any `json:"attrs,omitempty"`
}

func NewEvent(typ string, userID uint, email string, at time.Time) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     userID,
		Email:      email,
		OccurredAt: at.UTC(),
	}
}

// Log writes events to the request logger. Used when no broker is configured.
type Log struct{}

func (Log) PublishEvent(ctx context.Context, topic, key string, event any) error {
	logging.FromContext(ctx).Info("event_published", "topic", topic, "key", key, "event", event)
	return nil
}

// Fanout delivers to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) PublishEvent(ctx context.Context, topic, key string, event any) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishEvent(ctx, topic, key, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
