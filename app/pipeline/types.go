package pipeline

import "time"

// ChannelFailure records one channel that could not be processed this run.
type ChannelFailure struct {
	ChannelID string `json:"channel_id"`
	Kind      string `json:"kind"`
}

// RunResult summarizes one pipeline run. It is built fresh per run and kept
// only for observability; nothing replays it.
type RunResult struct {
	ChannelsProcessed int              `json:"channels_processed"`
	RecordsForwarded  int              `json:"records_forwarded"`
	ChannelFailures   []ChannelFailure `json:"channel_failures,omitempty"`
	PushError         string           `json:"push_error,omitempty"`
	StartedAt         time.Time        `json:"started_at"`
	Duration          time.Duration    `json:"duration"`
}

// Failed reports whether the run ended with an undelivered batch.
func (r RunResult) Failed() bool {
	return r.PushError != ""
}
