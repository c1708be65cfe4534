// Package zangli looks up Tibetan observance days on a yearly calendar page.
package zangli

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"github.com/couchcryptid/almanac-etl-service/internal/observability"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const (
	sourceName     = "zangli"
	maxPageBytes   = 8 << 20
	defaultTimeout = 30 * time.Second
)

// Client implements domain.ObservanceLookup. Each year's page is fetched
// once and kept as flattened text for the life of the client.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	timeout    time.Duration
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger

	group singleflight.Group
	mu    sync.RWMutex
	pages map[int]string
}

// NewClient creates an observance lookup client for the calendar at baseURL.
func NewClient(baseURL, userAgent string, timeout time.Duration, requestsPerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		timeout: cmp.Or(timeout, defaultTimeout),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		metrics: metrics,
		logger:  logger,
		pages:   make(map[int]string),
	}
}

// LookupObservance returns the observance data for date. A date absent from
// the page yields an empty Observance and no error.
func (c *Client) LookupObservance(ctx context.Context, date time.Time) (domain.Observance, error) {
	text, err := c.yearText(ctx, date.Year())
	if err != nil {
		return domain.Observance{}, err
	}
	return parseObservance(text, date.Year(), int(date.Month()), date.Day()), nil
}

func (c *Client) yearText(ctx context.Context, year int) (string, error) {
	c.mu.RLock()
	text, ok := c.pages[year]
	c.mu.RUnlock()
	if ok {
		return text, nil
	}

	// The fetch is shared by every waiter for this year and outlives any
	// one caller's context.
	ch := c.group.DoChan(strconv.Itoa(year), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		markup, err := c.fetch(fetchCtx, year)
		if err != nil {
			return "", err
		}
		text := pageText(markup)
		c.mu.Lock()
		c.pages[year] = text
		c.mu.Unlock()
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *Client) fetch(ctx context.Context, year int) (string, error) {
	u := fmt.Sprintf("%s/%d.html", c.baseURL, year)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("observance rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.WithLabelValues(sourceName).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(sourceName, "error").Inc()
		return "", &domain.FetchError{Source: sourceName, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.metrics.FetchRequests.WithLabelValues(sourceName, "status").Inc()
		return "", &domain.FetchError{Source: sourceName, URL: u, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(sourceName, "error").Inc()
		return "", &domain.FetchError{Source: sourceName, URL: u, Err: fmt.Errorf("read body: %w", err)}
	}

	c.metrics.FetchRequests.WithLabelValues(sourceName, "success").Inc()
	c.logger.Debug("observance calendar fetched", "year", year, "bytes", len(body))
	return string(body), nil
}
