package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ SeenRepository = (*SeenItemRepository)(nil)

// SeenItemRepository handles database operations for the dedupe cache
type SeenItemRepository struct {
	db *DB
}

func NewSeenItemRepository(db *DB) *SeenItemRepository {
	return &SeenItemRepository{db: db}
}

// IsSeen reports whether a key exists with a live TTL. Expired rows count as
// unseen; PurgeExpired removes them eventually.
func (r *SeenItemRepository) IsSeen(key string) (bool, error) {
	var found int
	err := r.db.QueryRow(`
		SELECT 1 FROM seen_items
		WHERE key = ? AND expires_at > ?
		LIMIT 1
	`, key, time.Now().UTC()).Scan(&found)

	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check seen key: %w", err)
	}

	return true, nil
}

// MarkSeen upserts keys with a fresh expiry. Called once per batch after a
// successful downstream push.
func (r *SeenItemRepository) MarkSeen(keys []SeenKey, ttl time.Duration) error {
	if len(keys) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO seen_items (key, channel_id, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			channel_id = excluded.channel_id,
			expires_at = excluded.expires_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	expiresAt := time.Now().UTC().Add(ttl)
	for _, k := range keys {
		if _, err := stmt.Exec(k.Key, k.ChannelID, expiresAt); err != nil {
			return fmt.Errorf("failed to upsert seen key %s: %w", k.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seen keys: %w", err)
	}

	return nil
}

// Count returns the number of live (unexpired) entries.
func (r *SeenItemRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM seen_items WHERE expires_at > ?
	`, time.Now().UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count seen items: %w", err)
	}

	return count, nil
}

// PurgeExpired deletes rows whose TTL has lapsed and returns how many were
// removed.
func (r *SeenItemRepository) PurgeExpired() (int64, error) {
	result, err := r.db.Exec(`
		DELETE FROM seen_items WHERE expires_at <= ?
	`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired seen items: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read purge result: %w", err)
	}

	return removed, nil
}
