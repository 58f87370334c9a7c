package memory

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/MrSnakeDoc/streammarks/internal/kv"
)

// Store is an in-process kv.Store.
// It backs KV_BACKEND=memory (single instance, no persistence) and the tests.
type Store struct {
	mu      sync.RWMutex
	clock   clockwork.Clock
	entries map[string]*item // encoded key -> item
	seq     uint64           // last versionstamp drawn
}

type item struct {
	key       kv.Key
	value     []byte
	stamp     string
	expiresAt time.Time // zero = never
}

// NewStore creates an empty store. A nil clock means the real clock.
func NewStore(clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{
		clock:   clock,
		entries: make(map[string]*item),
	}
}

var _ kv.Store = (*Store)(nil)

// ─────────────────────────────────────────────────────────────────
// Reads
// ─────────────────────────────────────────────────────────────────

// Get retrieves a single key
func (s *Store) Get(_ context.Context, key kv.Key) (kv.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	it := s.liveLocked(key, s.clock.Now())
	if it == nil {
		return kv.Entry{Key: key}, nil
	}
	return it.entry(), nil
}

// List returns every live entry strictly under prefix, ordered by key
func (s *Store) List(_ context.Context, prefix kv.Key) ([]kv.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	out := make([]kv.Entry, 0)
	for _, it := range s.entries {
		if it.expired(now) || len(it.key) == len(prefix) || !it.key.HasPrefix(prefix) {
			continue
		}
		out = append(out, it.entry())
	}
	slices.SortFunc(out, func(a, b kv.Entry) int { return a.Key.Compare(b.Key) })
	return out, nil
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of live keys
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.clock.Now()
	n := 0
	for _, it := range s.entries {
		if !it.expired(now) {
			n++
		}
	}
	return n
}

// ─────────────────────────────────────────────────────────────────
// Writes
// ─────────────────────────────────────────────────────────────────

// Set writes a single key
func (s *Store) Set(ctx context.Context, key kv.Key, value []byte, ttl time.Duration) error {
	_, err := s.Commit(ctx, kv.NewAtomic().Set(key, value, ttl))
	return err
}

// Delete removes a single key
func (s *Store) Delete(ctx context.Context, key kv.Key) error {
	_, err := s.Commit(ctx, kv.NewAtomic().Delete(key))
	return err
}

// Commit evaluates all checks and applies all mutations under one lock
func (s *Store) Commit(ctx context.Context, op *kv.AtomicOp) (kv.CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return kv.CommitResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for _, c := range op.Checks {
		current := ""
		if it := s.liveLocked(c.Key, now); it != nil {
			current = it.stamp
		}
		if current != c.Versionstamp {
			return kv.CommitResult{OK: false}, nil
		}
	}

	// Validate sums before touching anything so a bad counter leaves no partial write.
	for _, m := range op.Mutations {
		if m.Kind != kv.MutationSum {
			continue
		}
		if it := s.liveLocked(m.Key, now); it != nil {
			if _, err := kv.DecodeU64(it.value); err != nil {
				return kv.CommitResult{}, fmt.Errorf("sum %s: %w", m.Key, err)
			}
		}
	}

	s.seq++
	stamp := FormatVersionstamp(s.seq)

	for _, m := range op.Mutations {
		id := encodeKey(m.Key)
		switch m.Kind {
		case kv.MutationSet:
			it := &item{key: slices.Clone(m.Key), value: slices.Clone(m.Value), stamp: stamp}
			if m.TTL > 0 {
				it.expiresAt = now.Add(m.TTL)
			}
			s.entries[id] = it
		case kv.MutationSum:
			it := s.liveLocked(m.Key, now)
			if it == nil {
				it = &item{key: slices.Clone(m.Key), value: kv.EncodeU64(0)}
				s.entries[id] = it
			}
			n, _ := kv.DecodeU64(it.value)
			it.value = kv.EncodeU64(n + m.Delta)
			it.stamp = stamp
		case kv.MutationDelete:
			delete(s.entries, id)
		default:
			return kv.CommitResult{}, fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
	}

	return kv.CommitResult{OK: true, Versionstamp: stamp}, nil
}

// ─────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────

// FormatVersionstamp renders a sequence number so that string order matches numeric order.
func FormatVersionstamp(seq uint64) string { return fmt.Sprintf("%020d", seq) }

// liveLocked returns the item at key unless it is missing or expired.
// Expired items are left in place; Set overwrites them and List skips them.
func (s *Store) liveLocked(key kv.Key, now time.Time) *item {
	it, ok := s.entries[encodeKey(key)]
	if !ok || it.expired(now) {
		return nil
	}
	return it
}

func (it *item) expired(now time.Time) bool {
	return !it.expiresAt.IsZero() && !now.Before(it.expiresAt)
}

func (it *item) entry() kv.Entry {
	return kv.Entry{Key: slices.Clone(it.key), Value: slices.Clone(it.value), Versionstamp: it.stamp}
}

// encodeKey escapes every part so that ':' only ever separates parts.
func encodeKey(k kv.Key) string {
	parts := make([]string, len(k))
	for i, p := range k {
		parts[i] = url.QueryEscape(p)
	}
	return strings.Join(parts, ":")
}
