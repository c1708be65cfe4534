package domain

import (
	"context"
	"time"
)

// AlmanacSource retrieves the raw almanac markup for a calendar date.
type AlmanacSource interface {
	FetchMarkup(ctx context.Context, date string) (string, error)
}

// Commentator produces commentary for a day. Implementations return a
// *RateLimitError when the service signals a rate limit.
type Commentator interface {
	Comment(ctx context.Context, almanac AlmanacRecord, tibetan TibetanDateRecord) (Commentary, error)
}

// FortuneTeller writes a zodiac animal's fortune for a day. Implementations
// return a *RateLimitError when the service signals a rate limit.
type FortuneTeller interface {
	Fortune(ctx context.Context, zodiac string, almanac AlmanacRecord) (ZodiacFortune, error)
}

// ObservanceLookup supplies richer Tibetan observance data for a solar date.
type ObservanceLookup interface {
	LookupObservance(ctx context.Context, date time.Time) (Observance, error)
}

// Cache stores serialized records by string key. Get returns ErrCacheMiss
// for an absent key.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
