package feed

import (
	"strings"
	"time"

	"github.com/ugboard/yt-pull/app/channel"
)

// publishedLayouts are the timestamp formats accepted from feed documents.
// YouTube emits RFC 3339; the RFC 1123 variant shows up in repackaged feeds.
var publishedLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
}

// Normalizer maps raw entries into canonical records. It is a pure
// transformation: no I/O, no shared state, safe to call from concurrent
// channel workers.
type Normalizer struct {
	maxAge time.Duration
	now    func() time.Time
}

func NewNormalizer(maxAgeDays int) *Normalizer {
	return &Normalizer{
		maxAge: time.Duration(maxAgeDays) * 24 * time.Hour,
		now:    time.Now,
	}
}

// Run normalizes one entry for a channel. It returns nil when the entry is
// rejected: empty required fields, an unparsable timestamp, or content older
// than the recency window. An unparsable timestamp is never replaced with
// "now"; that would defeat the recency filter.
func (n *Normalizer) Run(entry Entry, ch channel.Channel) *Record {
	record := Record{
		Source:     Source,
		ExternalID: strings.TrimSpace(entry.VideoID),
		Title:      strings.TrimSpace(entry.Title),
		ChannelID:  strings.TrimSpace(ch.ID),
	}

	publishedAt, ok := n.parsePublished(strings.TrimSpace(entry.PublishedAt))
	if !ok {
		return nil
	}

	// Boundary is exclusive: an entry exactly maxAge old is still admitted.
	if n.now().Sub(publishedAt) > n.maxAge {
		return nil
	}

	record.PublishedAt = publishedAt.UTC().Format(time.RFC3339)

	if record.ExternalID == "" || record.Title == "" || record.PublishedAt == "" || record.ChannelID == "" {
		return nil
	}

	return &record
}

func (n *Normalizer) parsePublished(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}

	for _, layout := range publishedLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

// WithClock returns a copy of the normalizer using the given clock. Tests
// use this to pin "now".
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	return &Normalizer{maxAge: n.maxAge, now: now}
}
