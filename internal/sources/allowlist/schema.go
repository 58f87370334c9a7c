package allowlist

// Config is the top-level structure of the allow-list file:
//
//	channels:
//	  - id: UCp6pmlkI1WbrZFOWlXtOwCQ
//	    name: Argon
type Config struct {
	Channels []ChannelEntry `yaml:"channels"`
}

// ChannelEntry is one allowed channel. Name is informational.
type ChannelEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}
