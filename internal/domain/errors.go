package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidDate is returned for input that is not a YYYY-MM-DD calendar date.
	ErrInvalidDate = errors.New("invalid date")

	// ErrRateLimited marks a rate-limit signal from an upstream service.
	ErrRateLimited = errors.New("rate limited")

	// ErrCacheMiss is returned by Cache implementations when a key is absent.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidMonth is returned for a search month that is not YYYY-MM.
	ErrInvalidMonth = errors.New("invalid month")

	// ErrUnknownEvent is returned for an event type outside EventTypes.
	ErrUnknownEvent = errors.New("unknown event type")

	// ErrInvalidZodiac is returned for anything other than one of the 12 animals.
	ErrInvalidZodiac = errors.New("invalid zodiac animal")

	// ErrMalformedCommentary is returned when generated text cannot be decoded.
	ErrMalformedCommentary = errors.New("malformed commentary")
)

// FetchError reports a transport failure or a non-success status from an
// upstream source. It is never defaulted away.
type FetchError struct {
	Source     string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s fetch %s: status %d", e.Source, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s fetch %s: %v", e.Source, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// RateLimitError is the distinct error kind callers use to apply a cooldown.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	msg := e.Source + " rate limited"
	if e.RetryAfter > 0 {
		msg += fmt.Sprintf(", retry after %s", e.RetryAfter)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Is(target error) bool { return target == ErrRateLimited }

func (e *RateLimitError) Unwrap() error { return e.Err }
