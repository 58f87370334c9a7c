package allowlist

import (
	"errors"
	"strings"

	"github.com/MrSnakeDoc/streammarks/internal/domain"
)

// ErrEmpty is returned when a file yields no valid channel. The previous
// list is kept rather than locking every channel out.
var ErrEmpty = errors.New("allow-list has no valid channels")

// Mapped is the result of MapChannels.
type Mapped struct {
	Channels map[string]string // channel ID -> name
	Skipped  []string          // entries with a malformed ID
}

// MapChannels validates the entries of config. Duplicates keep the first name.
func MapChannels(config Config) (Mapped, error) {
	out := Mapped{Channels: make(map[string]string, len(config.Channels))}

	for _, entry := range config.Channels {
		id := strings.TrimSpace(entry.ID)
		if !domain.ValidChannelID(id) {
			out.Skipped = append(out.Skipped, entry.ID)
			continue
		}
		if _, dup := out.Channels[id]; dup {
			continue
		}
		out.Channels[id] = strings.TrimSpace(entry.Name)
	}

	if len(out.Channels) == 0 {
		return out, ErrEmpty
	}
	return out, nil
}
