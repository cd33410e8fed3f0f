package cfg

import (
	"cmp"
	"fmt"
	"net/url"
	"strings"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Downstream engine configuration
	EngineURL          string `long:"engine-url" env:"ENGINE_BASE_URL" description:"Base URL of the ingestion engine (required)" required:"true"`
	EngineToken        string `long:"engine-token" env:"INTERNAL_TOKEN" description:"Shared secret for engine ingestion requests (required)" required:"true"`
	AuthHeader         string `long:"auth-header" env:"AUTH_HEADER" description:"Custom auth header name; empty means Authorization: Bearer"`
	ManualTriggerToken string `long:"manual-trigger-token" env:"MANUAL_TRIGGER_TOKEN" description:"Secret for the manual trigger endpoint (optional)"`

	// Ingestion configuration
	ChannelsFile  string `long:"channels-file" env:"CHANNELS_FILE" default:"./channels.yml" description:"YAML file listing monitored channels"`
	FeedBaseURL   string `long:"feed-base-url" env:"FEED_BASE_URL" default:"https://www.youtube.com/feeds/videos.xml" description:"Base URL for channel RSS feeds"`
	FetchTimeout  int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"10" description:"Per-feed fetch timeout in seconds"`
	MaxPerChannel int    `long:"max-per-channel" env:"MAX_VIDEOS_PER_CHANNEL" default:"20" description:"Maximum entries ingested per channel per run"`
	MaxAgeDays    int    `long:"max-age-days" env:"MAX_AGE_DAYS" default:"30" description:"Entries older than this are not ingested"`
	DedupeTTLDays int    `long:"dedupe-ttl-days" env:"DEDUPE_TTL_DAYS" default:"30" description:"How long forwarded entries are remembered in the dedupe cache"`

	// Application configuration
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./ytpull.db" description:"SQLite database path for the dedupe cache"`
	Port        string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	Schedule    string `long:"schedule" env:"SCHEDULE" default:"*/30 * * * *" description:"Cron expression for scheduled pipeline runs"`
	WorkerCount int    `long:"worker-count" env:"WORKER_COUNT" default:"3" description:"Number of concurrent channel workers per run"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"YTPull/1.0" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		EngineURL:          strings.TrimRight(raw.EngineURL, "/"),
		EngineToken:        raw.EngineToken,
		AuthHeader:         raw.AuthHeader,
		ManualTriggerToken: raw.ManualTriggerToken,
		ChannelsFile:       raw.ChannelsFile,
		FeedBaseURL:        raw.FeedBaseURL,
		FetchTimeout:       raw.FetchTimeout,
		MaxPerChannel:      raw.MaxPerChannel,
		MaxAgeDays:         raw.MaxAgeDays,
		DedupeTTLDays:      raw.DedupeTTLDays,
		DBPath:             raw.DBPath,
		Port:               raw.Port,
		Schedule:           raw.Schedule,
		WorkerCount:        raw.WorkerCount,
		UserAgent:          raw.UserAgent,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	parsed, err := url.Parse(cfg.EngineURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("invalid engine URL: %q", cfg.EngineURL)
	}

	if strings.TrimSpace(cfg.EngineToken) == "" {
		return fmt.Errorf("engine token is required")
	}

	positiveFields := map[string]int{
		"fetch timeout":   cfg.FetchTimeout,
		"max per channel": cfg.MaxPerChannel,
		"max age days":    cfg.MaxAgeDays,
		"dedupe TTL days": cfg.DedupeTTLDays,
		"worker count":    cfg.WorkerCount,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive, got %d", fieldName, fieldValue)
		}
	}

	return nil
}
