package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/streammarks/internal/kv"
)

const (
	fieldValue = "v"
	fieldStamp = "vs"

	// scanCount is the COUNT hint passed to SCAN
	scanCount = 500
)

// Store is the Redis kv.Store. Every tuple key maps to a hash {v, vs}.
type Store struct {
	client *redis.Client
	keys   Keys
}

// Option customizes a Store
type Option func(*Store)

// WithNamespace isolates the store under another key prefix (tests use it)
func WithNamespace(ns string) Option {
	return func(s *Store) { s.keys = NewKeys(ns) }
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		keys:   NewKeys(DefaultNamespace),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ kv.Store = (*Store)(nil)

// Get retrieves a single key
func (s *Store) Get(ctx context.Context, key kv.Key) (kv.Entry, error) {
	vals, err := s.client.HMGet(ctx, s.keys.Encode(key), fieldValue, fieldStamp).Result()
	if err != nil {
		return kv.Entry{}, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return toEntry(key, vals), nil
}

// List returns every entry strictly under prefix, ordered by key
func (s *Store) List(ctx context.Context, prefix kv.Key) ([]kv.Entry, error) {
	seen := make(map[string]struct{})
	var raw []string

	iter := s.client.Scan(ctx, 0, s.keys.Pattern(prefix), scanCount).Iterator()
	for iter.Next(ctx) {
		k := iter.Val()
		// SCAN may return a key more than once
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		raw = append(raw, k)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", prefix, err)
	}
	if len(raw) == 0 {
		return []kv.Entry{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(raw))
	for i, k := range raw {
		cmds[i] = pipe.HMGet(ctx, k, fieldValue, fieldStamp)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read %s: %w", prefix, err)
	}

	entries := make([]kv.Entry, 0, len(raw))
	for i, k := range raw {
		key, err := s.keys.Decode(k)
		if err != nil {
			return nil, err
		}
		e := toEntry(key, cmds[i].Val())
		// expired or deleted between SCAN and HMGET
		if !e.Exists() {
			continue
		}
		entries = append(entries, e)
	}

	slices.SortFunc(entries, func(a, b kv.Entry) int { return a.Key.Compare(b.Key) })
	return entries, nil
}

// Set writes a single key
func (s *Store) Set(ctx context.Context, key kv.Key, value []byte, ttl time.Duration) error {
	if _, err := s.Commit(ctx, kv.NewAtomic().Set(key, value, ttl)); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}
	return nil
}

// Delete removes a single key
func (s *Store) Delete(ctx context.Context, key kv.Key) error {
	if _, err := s.Commit(ctx, kv.NewAtomic().Delete(key)); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Flush removes every key of the namespace, the sequence key included
func (s *Store) Flush(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.keys.Pattern(nil), scanCount).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to flush: %w", err)
	}
	if err := s.client.Del(ctx, s.keys.Versionstamp()).Err(); err != nil {
		return fmt.Errorf("failed to flush versionstamp: %w", err)
	}
	return nil
}

// toEntry converts an HMGET [v, vs] reply. Missing hashes come back as [nil, nil].
func toEntry(key kv.Key, vals []interface{}) kv.Entry {
	e := kv.Entry{Key: key}
	if len(vals) != 2 {
		return e
	}
	stamp, ok := vals[1].(string)
	if !ok || stamp == "" {
		return e
	}
	e.Versionstamp = stamp
	if v, ok := vals[0].(string); ok {
		e.Value = []byte(v)
	}
	return e
}
