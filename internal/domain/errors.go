package domain

import "errors"

// Client errors: the caller sent something we cannot act on. Never retried.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrChannelNotAllowed   = errors.New("channel not allowed")
	ErrStreamNotLive       = errors.New("stream not live")
)

// Server side failures.
var (
	ErrUpstream             = errors.New("upstream error")
	ErrDataCorruption       = errors.New("data corruption")
	ErrConcurrencyExhausted = errors.New("concurrency retries exhausted")
	ErrVideoNotFound        = errors.New("video not found")
)

// IsClientError reports whether err belongs to the client error class.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrUnsupportedProvider) ||
		errors.Is(err, ErrChannelNotAllowed) ||
		errors.Is(err, ErrStreamNotLive)
}
