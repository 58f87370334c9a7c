package kv

import (
	"fmt"
	"strconv"
)

// Counters written by Sum are stored as base-10 ASCII so that Redis HINCRBY can
// operate on them in place.

func EncodeU64(n uint64) []byte { return []byte(strconv.FormatUint(n, 10)) }

func DecodeU64(b []byte) (uint64, error) {
	n, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode counter %q: %w", string(b), err)
	}
	return n, nil
}
