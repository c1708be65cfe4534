package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimitError(t *testing.T) {
	cause := errors.New("429 RESOURCE_EXHAUSTED")
	err := fmt.Errorf("commentary: %w", &RateLimitError{Source: "gemini", RetryAfter: 30 * time.Second, Err: cause})

	assert.ErrorIs(t, err, ErrRateLimited)
	assert.ErrorIs(t, err, cause)

	var rl *RateLimitError
	assert.ErrorAs(t, err, &rl)
	assert.Equal(t, 30*time.Second, rl.RetryAfter)
	assert.Equal(t, "gemini rate limited, retry after 30s: 429 RESOURCE_EXHAUSTED", rl.Error())
}

func TestFetchError(t *testing.T) {
	status := &FetchError{Source: "goodday", URL: "https://example.test/2025-03-05", StatusCode: 503}
	assert.Equal(t, "goodday fetch https://example.test/2025-03-05: status 503", status.Error())
	assert.NotErrorIs(t, status, ErrRateLimited)

	cause := errors.New("connection refused")
	transport := &FetchError{Source: "goodday", URL: "https://example.test/x", Err: cause}
	assert.ErrorIs(t, transport, cause)
	assert.Contains(t, transport.Error(), "connection refused")
}
