package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ugboard/yt-pull/app/channel"
	"github.com/ugboard/yt-pull/app/database"
	"github.com/ugboard/yt-pull/app/dedupe"
	"github.com/ugboard/yt-pull/app/engine"
	"github.com/ugboard/yt-pull/app/feed"
	"github.com/ugboard/yt-pull/app/metrics"
)

// Runner drives the ingestion pipeline: fetch, parse, normalize and dedupe
// per channel, then one combined push to the engine. Channels are isolated
// from each other; the only shared state within a run is the dedupe set and
// the batch accumulator.
type Runner struct {
	registry      *channel.Registry
	fetcher       *feed.Fetcher
	parser        *feed.Parser
	normalizer    *feed.Normalizer
	pusher        *engine.Client
	seenStore     database.SeenRepository // nil disables cross-run dedupe
	maxPerChannel int
	dedupeTTL     time.Duration
	workerCount   int

	// Overlapping invocations (cron tick plus manual trigger) are
	// serialized rather than interleaved.
	runMu sync.Mutex

	lastMu  sync.RWMutex
	lastRun *RunResult
}

func NewRunner(registry *channel.Registry, fetcher *feed.Fetcher, parser *feed.Parser,
	normalizer *feed.Normalizer, pusher *engine.Client, seenStore database.SeenRepository,
	maxPerChannel, dedupeTTLDays, workerCount int) *Runner {
	return &Runner{
		registry:      registry,
		fetcher:       fetcher,
		parser:        parser,
		normalizer:    normalizer,
		pusher:        pusher,
		seenStore:     seenStore,
		maxPerChannel: maxPerChannel,
		dedupeTTL:     time.Duration(dedupeTTLDays) * 24 * time.Hour,
		workerCount:   workerCount,
	}
}

// RunOnce executes one full pipeline run across all configured channels and
// always returns a RunResult, even when every channel failed.
func (r *Runner) RunOnce(ctx context.Context) RunResult {
	r.runMu.Lock()
	defer r.runMu.Unlock()

	started := time.Now()
	result := RunResult{StartedAt: started.UTC()}

	deduper := dedupe.New(r.seenStore)
	channels := r.registry.All()

	var (
		mu       sync.Mutex
		batch    []feed.Record
		failures []ChannelFailure
	)

	jobs := make(chan channel.Channel)
	var wg sync.WaitGroup

	workers := r.workerCount
	if workers > len(channels) {
		workers = len(channels)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ch := range jobs {
				records, failure := r.processChannel(ctx, ch, deduper)

				mu.Lock()
				if failure != nil {
					failures = append(failures, *failure)
				} else {
					batch = append(batch, records...)
				}
				mu.Unlock()
			}
		}()
	}

	for _, ch := range channels {
		jobs <- ch
	}
	close(jobs)
	wg.Wait()

	result.ChannelsProcessed = len(channels) - len(failures)
	result.ChannelFailures = failures

	for _, failure := range failures {
		metrics.RecordChannelFailure(failure.Kind)
	}

	pushResult := r.pusher.Run(ctx, batch)
	metrics.PushAttemptsTotal.Add(float64(pushResult.Attempts))

	if pushResult.Success {
		deduper.MarkForwarded(batch, r.dedupeTTL)
		result.RecordsForwarded = len(batch)
		metrics.RecordsForwardedTotal.Add(float64(len(batch)))
	} else {
		result.PushError = pushResult.Message
	}

	r.purgeExpired()

	result.Duration = time.Since(started)

	outcome := "completed"
	if result.Failed() {
		outcome = "push_failed"
	}
	metrics.RecordRun(outcome, result.Duration)

	slog.Info("Pipeline run finished",
		"outcome", outcome,
		"channels", len(channels),
		"processed", result.ChannelsProcessed,
		"failures", len(failures),
		"forwarded", result.RecordsForwarded,
		"duration", result.Duration)

	r.lastMu.Lock()
	r.lastRun = &result
	r.lastMu.Unlock()

	return result
}

// LastRun returns the most recent run summary, or nil before the first run.
func (r *Runner) LastRun() *RunResult {
	r.lastMu.RLock()
	defer r.lastMu.RUnlock()

	if r.lastRun == nil {
		return nil
	}
	copied := *r.lastRun
	return &copied
}

// processChannel runs the per-channel stages. Any failure is reported as a
// ChannelFailure and never escapes to abort the run.
func (r *Runner) processChannel(ctx context.Context, ch channel.Channel, deduper *dedupe.Deduplicator) (records []feed.Record, failure *ChannelFailure) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Channel processing panicked", "channel", ch.ID, "panic", fmt.Sprint(rec))
			records = nil
			failure = &ChannelFailure{ChannelID: ch.ID, Kind: "panic"}
		}
	}()

	data, fetchErr := r.fetcher.Run(ctx, ch.ID)
	if fetchErr != nil {
		slog.Warn("Feed fetch failed, skipping channel for this run",
			"channel", ch.ID, "name", ch.Name, "kind", string(fetchErr.Kind), "error", fetchErr)
		return nil, &ChannelFailure{ChannelID: ch.ID, Kind: string(fetchErr.Kind)}
	}

	entries := r.parser.Run(data)
	if len(entries) > r.maxPerChannel {
		entries = entries[:r.maxPerChannel]
	}

	dropped := 0
	duplicates := 0
	for _, entry := range entries {
		record := r.normalizer.Run(entry, ch)
		if record == nil {
			dropped++
			continue
		}

		if !deduper.Admit(*record) {
			duplicates++
			metrics.DuplicatesSuppressedTotal.Inc()
			continue
		}

		records = append(records, *record)
	}

	slog.Debug("Channel processed",
		"channel", ch.ID,
		"name", ch.Name,
		"entries", len(entries),
		"rejected", dropped,
		"duplicates", duplicates,
		"accepted", len(records))

	return records, nil
}

func (r *Runner) purgeExpired() {
	if r.seenStore == nil {
		return
	}

	removed, err := r.seenStore.PurgeExpired()
	if err != nil {
		slog.Warn("Failed to purge expired dedupe entries", "error", err)
		return
	}
	if removed > 0 {
		slog.Debug("Purged expired dedupe entries", "count", removed)
	}
}
