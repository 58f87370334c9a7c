package domain

import (
	"fmt"
	"net/url"
)

// Bookmark is a viewer's mark inside a livestream.
//
// There is at most one Bookmark per (video, username): a later request for the
// same pair moves it instead of adding a second one.
type Bookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// Username is the Nightbot display name of the viewer.
	Username string `json:"username"`

	// ─────────────────────────────
	// Position
	// ─────────────────────────────

	// SecondsSinceStart is floor((now - startTime) / 1s) at the time of the
	// request, never negative and never adjusted afterwards.
	SecondsSinceStart int64 `json:"secondsSinceStart"`
}

// Link points at the bookmarked offset on YouTube.
func (b Bookmark) Link(videoID string) string {
	return fmt.Sprintf("https://youtube.com/watch?v=%s&t=%d", url.QueryEscape(videoID), b.SecondsSinceStart)
}

// Formatted returns the bookmark position as H:MM:SS.
func (b Bookmark) Formatted() string {
	return FormatTime(float64(b.SecondsSinceStart))
}

// Action tells whether an upsert wrote a new bookmark or overwrote one.
type Action string

const (
	ActionCreates Action = "creates"
	ActionMoves   Action = "moves"
)

// VideoBookmarks is everything the list page of a video shows.
type VideoBookmarks struct {
	VideoID   string
	Title     string
	Bookmarks []Bookmark // ordered by SecondsSinceStart, then Username
}

// RecountResult is the outcome of recomputing the bookmark counter.
type RecountResult struct {
	OldCount  *uint64 // nil when the counter did not exist
	NewCount  uint64
	TimeTaken string // ex: "12.5ms"
}
