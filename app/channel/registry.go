package channel

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry is the immutable set of monitored channels, loaded once at
// startup. Nothing mutates it after Load returns.
type Registry struct {
	channels []Channel
}

// Load reads and validates the channel list from a YAML file.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels file: %w", err)
	}

	var file channelsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse channels file: %w", err)
	}

	channels := make([]Channel, 0, len(file.Channels))
	seen := make(map[string]bool)
	for i, ch := range file.Channels {
		ch.ID = strings.TrimSpace(ch.ID)
		ch.Name = strings.TrimSpace(ch.Name)

		if ch.ID == "" {
			return nil, fmt.Errorf("channel at index %d has an empty id", i)
		}
		if seen[ch.ID] {
			return nil, fmt.Errorf("duplicate channel id: %s", ch.ID)
		}
		seen[ch.ID] = true

		channels = append(channels, ch)
	}

	return &Registry{channels: channels}, nil
}

// All returns a copy of the channel list so callers cannot mutate the
// registry.
func (r *Registry) All() []Channel {
	out := make([]Channel, len(r.channels))
	copy(out, r.channels)
	return out
}

func (r *Registry) Count() int {
	return len(r.channels)
}

// NewRegistry builds a registry from an in-memory list. Tests and wiring
// code that already has channels use this instead of Load.
func NewRegistry(channels []Channel) *Registry {
	copied := make([]Channel, len(channels))
	copy(copied, channels)
	return &Registry{channels: copied}
}
