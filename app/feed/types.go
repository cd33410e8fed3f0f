package feed

import "strconv"

// Source is the constant source tag carried by every ingestion record.
const Source = "youtube"

// Entry is one raw feed entry as parsed out of the Atom document. The
// published timestamp is kept in its feed-native form; the normalizer owns
// timestamp interpretation.
type Entry struct {
	VideoID     string
	Title       string
	PublishedAt string
}

// Record is the canonical ingestion record. All fields are non-empty and
// PublishedAt is RFC 3339 UTC by the time a Record leaves the normalizer.
type Record struct {
	Source      string `json:"source"`
	ExternalID  string `json:"external_id"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
	ChannelID   string `json:"channel_id"`
}

// Key returns the deduplication key for the record.
func (r Record) Key() string {
	return r.Source + ":" + r.ExternalID
}

// FetchErrorKind classifies feed retrieval failures.
type FetchErrorKind string

const (
	FetchErrInvalidInput FetchErrorKind = "invalid_input"
	FetchErrNetwork      FetchErrorKind = "network"
	FetchErrTimeout      FetchErrorKind = "timeout"
	FetchErrHTTPStatus   FetchErrorKind = "http_status"
	FetchErrInvalidBody  FetchErrorKind = "invalid_body"
)

// FetchError is the single failure signal returned by the fetcher.
type FetchError struct {
	Kind   FetchErrorKind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchErrHTTPStatus:
		return "feed fetch failed: HTTP " + strconv.Itoa(e.Status)
	case FetchErrTimeout:
		return "feed fetch timed out"
	case FetchErrInvalidBody:
		return "feed fetch returned an invalid body"
	case FetchErrInvalidInput:
		return "invalid channel id"
	default:
		if e.Err != nil {
			return "feed fetch failed: " + e.Err.Error()
		}
		return "feed fetch failed"
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
