package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Veraticus/tally/internal/common"
)

// Client is a single chat completion against a provider. Implementations
// classify failures with common.RetryableError or common.ErrRateLimit so
// callers can decide whether to retry.
type Client interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Provider defaults applied when the configuration leaves them unset.
const (
	defaultTemperature = 0.3
	defaultMaxTokens   = 500
	requestTimeout     = 30 * time.Second
)

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: requestTimeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// statusError classifies a non-200 provider response. Rate limits and
// server errors are retryable; other client errors are not.
func statusError(provider string, status int, body []byte) error {
	err := fmt.Errorf("%s API error (status %d): %s", provider, status, truncate(string(body), 200))
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case status >= http.StatusInternalServerError:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}

// transportError marks a failed round trip. Timeouts stay retryable through
// net.Error; anything else is treated as transient unless the context ended.
func transportError(ctx context.Context, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return fmt.Errorf("request failed: %w", err)
	}
	return &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
