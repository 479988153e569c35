package llm

import (
	"context"
	"errors"
	"time"

	"github.com/wrenfield/mentorloop-backend/internal/platform/envutil"
	"github.com/wrenfield/mentorloop-backend/internal/platform/httpx"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

const maxRetryBackoff = 10 * time.Second

func maxRetriesFromEnv() int {
	return envutil.Int("LLM_MAX_RETRIES", 2)
}

// withRetry runs fn up to 1+maxRetries times, backing off exponentially on
// retryable failures (408, 429, 5xx, network errors). A Retry-After carried
// by the provider error overrides the computed backoff.
func withRetry(ctx context.Context, log *logger.Logger, maxRetries int, fn func() (*Response, error)) (*Response, error) {
	backoff := 1 * time.Second
	for attempt := 0; ; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		if !httpx.IsRetryableError(err) || attempt >= maxRetries {
			return nil, err
		}

		sleepFor := backoff
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			sleepFor = apiErr.RetryAfter
		}
		if sleepFor > maxRetryBackoff {
			sleepFor = maxRetryBackoff
		}
		sleepFor = httpx.JitterSleep(sleepFor)

		log.Warn("llm request retrying",
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
}
