package pipeline

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"github.com/couchcryptid/almanac-etl-service/internal/observability"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

// DefaultCooldown is how long commentary is skipped after a rate-limit signal
// that carries no retry hint of its own.
const DefaultCooldown = 45 * time.Second

// searchConcurrency bounds the almanac fetches of one lucky-date search.
const searchConcurrency = 4

// Cache key prefixes.
const (
	advisoryKeyPrefix = "advisory:"
	almanacKeyPrefix  = "almanac:"
)

// AdvisoryTransformer builds composed advisories for calendar dates. It
// implements Transformer for the Kafka pipeline and backs the HTTP API.
type AdvisoryTransformer struct {
	source      domain.AlmanacSource
	commentator domain.Commentator
	fortunes    domain.FortuneTeller
	observances domain.ObservanceLookup
	cache       domain.Cache
	clock       clockwork.Clock
	cooldown    time.Duration
	metrics     *observability.Metrics
	logger      *slog.Logger

	mu            sync.Mutex
	cooldownUntil time.Time
}

// Option configures an AdvisoryTransformer.
type Option func(*AdvisoryTransformer)

// WithCommentator enables generative commentary. Without it every advisory
// carries the fallback text.
func WithCommentator(c domain.Commentator) Option {
	return func(t *AdvisoryTransformer) { t.commentator = c }
}

// WithFortuneTeller enables generative zodiac fortunes. Without it every
// fortune is the static fallback.
func WithFortuneTeller(f domain.FortuneTeller) Option {
	return func(t *AdvisoryTransformer) { t.fortunes = f }
}

// WithObservanceLookup enables best-effort observance enrichment.
func WithObservanceLookup(l domain.ObservanceLookup) Option {
	return func(t *AdvisoryTransformer) { t.observances = l }
}

// WithCache stores parsed almanacs and composed advisories.
func WithCache(c domain.Cache) Option {
	return func(t *AdvisoryTransformer) { t.cache = c }
}

// WithClock sets the clock used for the commentary cooldown.
func WithClock(c clockwork.Clock) Option {
	return func(t *AdvisoryTransformer) { t.clock = c }
}

// WithCooldown sets the minimum pause after a commentary rate limit.
func WithCooldown(d time.Duration) Option {
	return func(t *AdvisoryTransformer) { t.cooldown = d }
}

// NewTransformer creates an AdvisoryTransformer that reads almanac pages from source.
func NewTransformer(source domain.AlmanacSource, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *AdvisoryTransformer {
	t := &AdvisoryTransformer{
		source:   source,
		clock:    clockwork.NewRealClock(),
		cooldown: DefaultCooldown,
		metrics:  metrics,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform decodes a date request and builds its advisory. A commentary
// rate limit does not fail the message; the record already carries the
// fallback commentary.
func (t *AdvisoryTransformer) Transform(ctx context.Context, raw domain.RawMessage) (domain.AdvisoryRecord, error) {
	date, err := domain.ParseDateRequest(raw)
	if err != nil {
		t.metrics.Advisories.WithLabelValues("kafka", Outcome(err)).Inc()
		return domain.AdvisoryRecord{}, err
	}

	rec, err := t.Build(ctx, date)
	t.metrics.Advisories.WithLabelValues("kafka", Outcome(err)).Inc()
	if err != nil && !errors.Is(err, domain.ErrRateLimited) {
		return domain.AdvisoryRecord{}, err
	}
	return rec, nil
}

// Build returns the advisory for date.
//
// Errors:
//   - domain.ErrInvalidDate for malformed input; no record.
//   - *domain.FetchError when the almanac page cannot be retrieved; no record.
//   - *domain.RateLimitError when commentary is rate limited or cooling down;
//     the record is complete and carries the fallback commentary.
func (t *AdvisoryTransformer) Build(ctx context.Context, date string) (domain.AdvisoryRecord, error) {
	day, err := domain.ParseDate(date)
	if err != nil {
		return domain.AdvisoryRecord{}, err
	}

	key := advisoryKeyPrefix + date
	var cached domain.AdvisoryRecord
	if t.cacheGet(ctx, "advisory", key, &cached) {
		return cached, nil
	}

	var (
		almanac domain.AlmanacRecord
		tibetan domain.TibetanDateRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		almanac, err = t.almanac(gctx, date)
		return err
	})
	g.Go(func() error {
		tibetan = domain.EnrichWithObservance(gctx, domain.ConvertTibetan(day), day, t.observances, t.logger)
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.AdvisoryRecord{}, err
	}

	commentary, commentErr := t.comment(ctx, almanac, tibetan)
	rec := domain.Compose(almanac, tibetan, commentary)

	if rec.CommentarySource == domain.CommentarySourceModel {
		t.cacheSet(ctx, key, rec)
	}
	return rec, commentErr
}

// almanac returns the parsed almanac for date, fetching the page on a cache miss.
func (t *AdvisoryTransformer) almanac(ctx context.Context, date string) (domain.AlmanacRecord, error) {
	key := almanacKeyPrefix + date
	var rec domain.AlmanacRecord
	if t.cacheGet(ctx, "almanac", key, &rec) {
		return rec, nil
	}

	markup, err := t.source.FetchMarkup(ctx, date)
	if err != nil {
		return domain.AlmanacRecord{}, err
	}

	rec, defaulted := domain.ParseReport(markup, date)
	for _, field := range defaulted {
		t.metrics.FieldFallbacks.WithLabelValues(field).Inc()
	}
	if len(defaulted) > 0 {
		t.logger.Debug("almanac fields defaulted", "date", date, "fields", defaulted)
	}

	t.cacheSet(ctx, key, rec)
	return rec, nil
}

// comment asks the commentator for commentary, substituting the fallback on
// any failure. Only a rate limit is reported to the caller.
func (t *AdvisoryTransformer) comment(ctx context.Context, almanac domain.AlmanacRecord, tibetan domain.TibetanDateRecord) (domain.Commentary, error) {
	if t.commentator == nil {
		t.metrics.Commentary.WithLabelValues("disabled").Inc()
		return domain.FallbackCommentary(), nil
	}

	if remaining := t.cooldownRemaining(); remaining > 0 {
		t.metrics.Commentary.WithLabelValues("cooldown").Inc()
		return domain.FallbackCommentary(), &domain.RateLimitError{Source: "commentary", RetryAfter: remaining}
	}

	c, err := t.commentator.Comment(ctx, almanac, tibetan)
	if err != nil {
		return domain.FallbackCommentary(), t.modelFailure(almanac.Date, "commentary", err)
	}

	t.metrics.Commentary.WithLabelValues("success").Inc()
	c.Source = domain.CommentarySourceModel
	return c, nil
}

// modelFailure records a failed model call. A rate limit starts the cooldown
// and is returned with the wait; anything else is logged and swallowed.
func (t *AdvisoryTransformer) modelFailure(date, kind string, err error) error {
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		wait := max(t.cooldown, rl.RetryAfter)
		t.startCooldown(wait)
		t.metrics.Commentary.WithLabelValues("rate_limited").Inc()
		t.logger.Warn(kind+" rate limited", "date", date, "cooldown", wait, "error", err)
		return &domain.RateLimitError{Source: rl.Source, RetryAfter: wait, Err: rl.Err}
	}
	t.metrics.Commentary.WithLabelValues("fallback").Inc()
	t.logger.Warn(kind+" failed, using fallback", "date", date, "error", err)
	return nil
}

// LuckyDates scans every day of month for days whose almanac favors event,
// best first. Days whose page cannot be fetched are skipped; the search
// fails only when no day could be read.
func (t *AdvisoryTransformer) LuckyDates(ctx context.Context, event, month string) ([]domain.DateRecommendation, error) {
	ev, err := domain.ParseEventType(event)
	if err != nil {
		return nil, err
	}
	dates, err := domain.MonthDates(month)
	if err != nil {
		return nil, err
	}

	almanacs := make([]domain.AlmanacRecord, len(dates))
	errs := make([]error, len(dates))
	var g errgroup.Group
	g.SetLimit(searchConcurrency)
	for i, date := range dates {
		g.Go(func() error {
			almanacs[i], errs[i] = t.almanac(ctx, date)
			return nil
		})
	}
	_ = g.Wait()

	out := []domain.DateRecommendation{}
	var firstErr error
	read := 0
	for i, err := range errs {
		if err != nil {
			firstErr = cmp.Or(firstErr, err)
			t.logger.Warn("lucky-date search skipped day", "date", dates[i], "error", err)
			continue
		}
		read++
		if rec, ok := domain.RecommendDate(almanacs[i], ev); ok {
			out = append(out, rec)
		}
	}
	if read == 0 {
		return nil, firstErr
	}
	domain.RankRecommendations(out)
	return out, nil
}

// Fortune returns the zodiac animal's fortune for date. Its errors follow
// Build: a rate limit still returns the fallback fortune.
func (t *AdvisoryTransformer) Fortune(ctx context.Context, zodiac, date string) (domain.ZodiacFortune, error) {
	animal, err := domain.ParseZodiac(zodiac)
	if err != nil {
		return domain.ZodiacFortune{}, err
	}
	if _, err := domain.ParseDate(date); err != nil {
		return domain.ZodiacFortune{}, err
	}
	almanac, err := t.almanac(ctx, date)
	if err != nil {
		return domain.ZodiacFortune{}, err
	}

	fallback := domain.FallbackFortune(animal, almanac)
	if t.fortunes == nil {
		t.metrics.Commentary.WithLabelValues("disabled").Inc()
		return fallback, nil
	}
	if remaining := t.cooldownRemaining(); remaining > 0 {
		t.metrics.Commentary.WithLabelValues("cooldown").Inc()
		return fallback, &domain.RateLimitError{Source: "fortune", RetryAfter: remaining}
	}

	f, err := t.fortunes.Fortune(ctx, animal, almanac)
	if err != nil {
		return fallback, t.modelFailure(date, "fortune", err)
	}
	t.metrics.Commentary.WithLabelValues("success").Inc()
	f.Source = domain.CommentarySourceModel
	return domain.ComposeFortune(f, fallback), nil
}

func (t *AdvisoryTransformer) cooldownRemaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cooldownUntil.Sub(t.clock.Now())
}

func (t *AdvisoryTransformer) startCooldown(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if until := t.clock.Now().Add(d); until.After(t.cooldownUntil) {
		t.cooldownUntil = until
	}
}

func (t *AdvisoryTransformer) cacheGet(ctx context.Context, layer, key string, v any) bool {
	if t.cache == nil {
		return false
	}
	data, err := t.cache.Get(ctx, key)
	switch {
	case errors.Is(err, domain.ErrCacheMiss):
		t.metrics.Cache.WithLabelValues(layer, "miss").Inc()
		return false
	case err != nil:
		t.metrics.Cache.WithLabelValues(layer, "error").Inc()
		t.logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.metrics.Cache.WithLabelValues(layer, "error").Inc()
		t.logger.Warn("cache entry unreadable", "key", key, "error", err)
		return false
	}
	t.metrics.Cache.WithLabelValues(layer, "hit").Inc()
	return true
}

func (t *AdvisoryTransformer) cacheSet(ctx context.Context, key string, v any) {
	if t.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		t.logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := t.cache.Set(ctx, key, data); err != nil {
		t.logger.Warn("cache write failed", "key", key, "error", err)
	}
}

// Outcome labels an advisory build result for metrics.
func Outcome(err error) string {
	var fe *domain.FetchError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidMonth),
		errors.Is(err, domain.ErrUnknownEvent),
		errors.Is(err, domain.ErrInvalidZodiac):
		return "invalid"
	case errors.As(err, &fe):
		return "fetch_error"
	default:
		return "error"
	}
}
