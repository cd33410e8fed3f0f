package dedupe

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ugboard/yt-pull/app/database"
	"github.com/ugboard/yt-pull/app/feed"
)

// Deduplicator suppresses repeat records. The in-memory set covers one run
// and is discarded with the Deduplicator; the optional durable store covers
// repeats across runs. Durable failures degrade to at-least-once delivery
// instead of failing the run.
type Deduplicator struct {
	store database.SeenRepository // nil disables the durable layer

	mu   sync.Mutex
	seen map[string]struct{}
}

func New(store database.SeenRepository) *Deduplicator {
	return &Deduplicator{
		store: store,
		seen:  make(map[string]struct{}),
	}
}

// Admit reports whether the record should be forwarded. The first occurrence
// of a key in this run is admitted unless the durable store remembers it from
// an earlier run.
func (d *Deduplicator) Admit(record feed.Record) bool {
	key := record.Key()

	d.mu.Lock()
	if _, dup := d.seen[key]; dup {
		d.mu.Unlock()
		return false
	}
	d.seen[key] = struct{}{}
	d.mu.Unlock()

	// The durable lookup happens outside the lock; concurrent workers never
	// share a key here because the intra-run set already claimed it.
	if d.store != nil {
		seen, err := d.store.IsSeen(key)
		if err != nil {
			slog.Warn("Durable dedupe lookup failed, treating as unseen", "key", key, "error", err)
			return true
		}
		if seen {
			return false
		}
	}

	return true
}

// MarkForwarded persists keys for records that reached the engine. Write
// failures are logged and swallowed: the worst case is a re-forward next run.
func (d *Deduplicator) MarkForwarded(records []feed.Record, ttl time.Duration) {
	if d.store == nil || len(records) == 0 {
		return
	}

	keys := make([]database.SeenKey, 0, len(records))
	for _, record := range records {
		keys = append(keys, database.SeenKey{Key: record.Key(), ChannelID: record.ChannelID})
	}

	if err := d.store.MarkSeen(keys, ttl); err != nil {
		slog.Warn("Failed to persist forwarded keys to dedupe cache", "count", len(keys), "error", err)
	}
}
