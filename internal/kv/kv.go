// Package kv is the storage contract of the service: a strongly consistent
// key-value store with tuple keys, per-key versionstamps and an atomic
// check-then-write commit.
//
// Two backends implement it, internal/store/redis and internal/store/memory.
package kv

import (
	"context"
	"strings"
	"time"
)

// Key is a hierarchical tuple, ex: {"bookmarks", videoID, username}.
type Key []string

// HasPrefix reports whether prefix is a leading sub-tuple of k.
// {"bookmarks","a"} is a prefix of {"bookmarks","a","x"} but not of {"bookmarks","ab"}.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Compare orders keys part by part, shorter first on a common prefix.
func (k Key) Compare(other Key) int {
	for i := 0; i < len(k) && i < len(other); i++ {
		if c := strings.Compare(k[i], other[i]); c != 0 {
			return c
		}
	}
	return len(k) - len(other)
}

func (k Key) String() string { return "[" + strings.Join(k, ", ") + "]" }

// Entry is the result of a read. An absent key has an empty Versionstamp.
type Entry struct {
	Key          Key
	Value        []byte
	Versionstamp string
}

// Exists reports whether the key was present.
func (e Entry) Exists() bool { return e.Versionstamp != "" }

// Store is implemented by every backend.
type Store interface {
	// Get reads a single key. A missing key is not an error.
	Get(ctx context.Context, key Key) (Entry, error)
	// List returns every entry strictly under prefix (not the prefix key
	// itself), ordered by key.
	List(ctx context.Context, prefix Key) ([]Entry, error)
	// Set writes value with an optional expiry (0 = none).
	Set(ctx context.Context, key Key, value []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error
	// Commit applies op atomically. A failed check returns OK=false and no error.
	Commit(ctx context.Context, op *AtomicOp) (CommitResult, error)
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
}

// CommitResult reports whether the checks held and, if so, the new versionstamp.
type CommitResult struct {
	OK           bool
	Versionstamp string
}
