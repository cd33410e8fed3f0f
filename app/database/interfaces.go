package database

import "time"

// SeenKey is one durable dedupe entry queued for persistence.
type SeenKey struct {
	Key       string
	ChannelID string
}

// SeenRepository is the durable dedupe cache. Lookups and writes are
// advisory: callers degrade to at-least-once delivery when the store is
// unavailable, they never fail the run.
type SeenRepository interface {
	IsSeen(key string) (bool, error)
	MarkSeen(keys []SeenKey, ttl time.Duration) error
	Count() (int, error)
	PurgeExpired() (int64, error)
}
