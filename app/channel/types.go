package channel

// Channel identifies one monitored content channel. The ID is the opaque
// platform identifier used to build the feed URL.
type Channel struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

type channelsFile struct {
	Channels []Channel `yaml:"channels"`
}
