package goodday

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/almanac-etl-service/internal/domain"
	"github.com/couchcryptid/almanac-etl-service/internal/observability"
	"golang.org/x/time/rate"
)

const (
	sourceName = "goodday"

	// maxPageBytes bounds how much of an almanac page is read.
	maxPageBytes = 4 << 20
)

// Client implements domain.AlmanacSource against the goodaytw almanac site.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an almanac page client. requestsPerSecond bounds the
// outbound request rate; a burst of one keeps requests evenly spaced.
func NewClient(baseURL, userAgent string, timeout time.Duration, requestsPerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		metrics: metrics,
		logger:  logger,
	}
}

// FetchMarkup returns the raw page for date. Transport failures and
// non-2xx statuses are returned as *domain.FetchError.
func (c *Client) FetchMarkup(ctx context.Context, date string) (string, error) {
	u := c.baseURL + "/" + url.PathEscape(date)

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("almanac rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Language", "zh-TW,zh;q=0.9")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.FetchDuration.WithLabelValues(sourceName).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(sourceName, "error").Inc()
		return "", &domain.FetchError{Source: sourceName, URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.metrics.FetchRequests.WithLabelValues(sourceName, "status").Inc()
		c.logger.Warn("almanac page status",
			"date", date,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return "", &domain.FetchError{Source: sourceName, URL: u, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues(sourceName, "error").Inc()
		return "", &domain.FetchError{Source: sourceName, URL: u, Err: fmt.Errorf("read body: %w", err)}
	}

	c.metrics.FetchRequests.WithLabelValues(sourceName, "success").Inc()
	c.logger.Debug("almanac page fetched", "date", date, "bytes", len(body))
	return string(body), nil
}
