package feed

import (
	"bytes"
	"cmp"
	"log/slog"
	"strings"

	"github.com/mmcdole/gofeed"
)

// Parser extracts raw video entries from YouTube Atom documents. Feed content
// is publisher-controlled, so the parser skips anything malformed instead of
// failing the document.
type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses feed data into entries in document order. An unparsable document
// yields an empty slice, never an error.
func (p *Parser) Run(data []byte) []Entry {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		slog.Debug("Feed document could not be parsed, skipping", "error", err)
		return nil
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		entry := Entry{
			VideoID:     p.extractVideoID(item),
			Title:       item.Title,
			PublishedAt: cmp.Or(item.Published, item.Updated),
		}

		if entry.VideoID == "" || entry.Title == "" || entry.PublishedAt == "" {
			continue
		}

		entries = append(entries, entry)
	}

	return entries
}

// extractVideoID reads the yt:videoId extension; older feed variants only
// carry the id inside the entry GUID ("yt:video:<id>").
func (p *Parser) extractVideoID(item *gofeed.Item) string {
	if ext, ok := item.Extensions["yt"]; ok {
		if values, ok := ext["videoId"]; ok && len(values) > 0 {
			if id := strings.TrimSpace(values[0].Value); id != "" {
				return id
			}
		}
	}

	if strings.HasPrefix(item.GUID, "yt:video:") {
		return strings.TrimSpace(strings.TrimPrefix(item.GUID, "yt:video:"))
	}

	return ""
}
