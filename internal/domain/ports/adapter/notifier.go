package adapter

import (
	"context"
	"time"

	"cityguide-billing/internal/domain/model"
)

// Notification is a rendered, localized message ready for delivery.
type Notification struct {
	Kind     model.EventKind `json:"kind"`
	UserID   string          `json:"user_id"`
	PlaceID  string          `json:"place_id"`
	Language string          `json:"language"`
	Text     string          `json:"text"`
	SentAt   string          `json:"sent_at"`
}

// NotificationPublisher delivers rendered notifications to the outbound channel.
type NotificationPublisher interface {
	Publish(ctx context.Context, n Notification) error
	Close() error
}

// EventDispatcher accepts billing events without blocking the caller.
// Dispatch reports false when the event was dropped.
type EventDispatcher interface {
	Dispatch(ev model.BillingEvent) bool
}

// RunLocker guards a job so only one instance runs it at a time.
type RunLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}
