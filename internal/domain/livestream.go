package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Livestream is the live video currently running on a channel.
type Livestream struct {
	VideoID   string    `json:"videoId"`
	StartTime time.Time `json:"startTime"`
}

// Elapsed returns whole seconds since the stream started, clamped at zero.
func (l Livestream) Elapsed(now time.Time) int64 {
	secs := int64(now.Sub(l.StartTime) / time.Second)
	if secs < 0 {
		return 0
	}
	return secs
}

// DecodeLivestream parses a cached livestream entry.
// Anything that does not round-trip into a valid Livestream is data corruption.
func DecodeLivestream(raw []byte) (*Livestream, error) {
	var ls Livestream
	if err := json.Unmarshal(raw, &ls); err != nil {
		return nil, fmt.Errorf("%w: livestream entry: %v", ErrDataCorruption, err)
	}
	if !ValidVideoID(ls.VideoID) {
		return nil, fmt.Errorf("%w: livestream entry has invalid video id %q", ErrDataCorruption, ls.VideoID)
	}
	if ls.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: livestream entry has no start time", ErrDataCorruption)
	}
	return &ls, nil
}

// Encode serializes the livestream for the cache.
func (l Livestream) Encode() ([]byte, error) {
	return json.Marshal(l)
}
