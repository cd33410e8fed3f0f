package cfg

type Cfg struct {
	// Downstream engine configuration
	EngineURL          string
	EngineToken        string
	AuthHeader         string
	ManualTriggerToken string

	// Ingestion configuration
	ChannelsFile  string
	FeedBaseURL   string
	FetchTimeout  int
	MaxPerChannel int
	MaxAgeDays    int
	DedupeTTLDays int

	// Application configuration
	DBPath      string
	Port        string
	Schedule    string
	WorkerCount int

	// Application metadata
	UserAgent string
	Debug     bool
	Version   string
}
