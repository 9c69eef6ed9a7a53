// Package constants holds shared configuration value names used across layers.
package constants

// Pub/Sub provider names accepted by the pubsub.provider config key.
const (
	PubSubProviderLocal  = "local"
	PubSubProviderGoogle = "google"
)

// Rate-limit store names accepted by the rateLimit.store config key.
const (
	RateLimitStoreMemory = "memory"
	RateLimitStoreRedis  = "redis"
)
