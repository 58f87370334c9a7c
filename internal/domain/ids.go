package domain

import "regexp"

var (
	channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	videoIDPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
)

// ValidChannelID reports whether id looks like a YouTube channel id (UC + 22 chars).
func ValidChannelID(id string) bool { return channelIDPattern.MatchString(id) }

// ValidVideoID reports whether id looks like a YouTube video id (11 chars).
func ValidVideoID(id string) bool { return videoIDPattern.MatchString(id) }
