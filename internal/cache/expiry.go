package cache

import "time"

const (
	ExpiryDefaultInMemory = 30 * time.Minute
	ExpiryDefaultRedis    = 5 * time.Minute

	// ExpiryWebhookEvent covers the retry window gateways use for redelivery.
	ExpiryWebhookEvent = 72 * time.Hour
)
