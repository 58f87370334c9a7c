// Package allowlist holds the channels allowed to create bookmarks.
package allowlist

import (
	"slices"
	"sync"
	"time"
)

// List is the channel allow-list. Channels come from two sources: a fixed
// set given at startup and a file-backed set that is swapped on every reload.
// A List with neither source allows every channel.
type List struct {
	mu         sync.RWMutex
	static     map[string]struct{}
	file       map[string]string // channel ID -> name
	fileSource bool
	lastReload time.Time
}

// New creates a list from the startup channel IDs. fileSource tells whether a
// file will feed Replace; until the first Replace that set is empty.
func New(static []string, fileSource bool) *List {
	l := &List{
		static:     make(map[string]struct{}, len(static)),
		file:       make(map[string]string),
		fileSource: fileSource,
	}
	for _, id := range static {
		l.static[id] = struct{}{}
	}
	return l
}

// Enabled reports whether the list restricts anything.
func (l *List) Enabled() bool {
	return len(l.static) > 0 || l.fileSource
}

// Allowed reports whether channelID may create bookmarks.
func (l *List) Allowed(channelID string) bool {
	if !l.Enabled() {
		return true
	}
	if _, ok := l.static[channelID]; ok {
		return true
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.file[channelID]
	return ok
}

// Replace swaps the file-backed channels.
func (l *List) Replace(channels map[string]string) {
	next := make(map[string]string, len(channels))
	for id, name := range channels {
		next[id] = name
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.file = next
	l.lastReload = time.Now()
}

// Len returns the number of distinct allowed channels.
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.static)
	for id := range l.file {
		if _, dup := l.static[id]; !dup {
			n++
		}
	}
	return n
}

// Channels returns the allowed channel IDs, sorted.
func (l *List) Channels() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.static)+len(l.file))
	for id := range l.static {
		ids = append(ids, id)
	}
	for id := range l.file {
		if _, dup := l.static[id]; !dup {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

// LastReload returns when the file-backed set was last replaced.
func (l *List) LastReload() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastReload
}
