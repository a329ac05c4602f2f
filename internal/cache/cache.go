package cache

import (
	"context"
	"time"
)

// Cache is a small key/value cache with expiry.
type Cache interface {
	Get(ctx context.Context, key string) (interface{}, bool)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)
	// SetIfAbsent stores value only when key is missing and reports whether it
	// did. It is atomic for a single backend.
	SetIfAbsent(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Delete(ctx context.Context, key string)
	Flush(ctx context.Context)
}

// Key prefixes
const (
	PrefixWebhookEvent = "webhook_event:"
)

// WebhookEventKey is the dedupe key of one gateway delivery.
func WebhookEventKey(provider, eventID string) string {
	return PrefixWebhookEvent + provider + ":" + eventID
}
