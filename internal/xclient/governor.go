package xclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"tnega/internal/logging"
	"tnega/internal/metrics"
)

// doWithRetry executes one request under the retry policy shared by every
// remote call:
//   - 429: wait min(ceiling, base*2^n) and retry, with no attempt cap — the
//     run outlasts rate limiting instead of failing on it.
//   - transport errors and 5xx: retry with linear backoff up to the
//     transient budget, then propagate.
//   - any other 4xx: fail immediately.
func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	rateLimited := 0
	transient := 0
	var lastErr error
	for {
		resp, err := c.httpClient.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			transient++
			if transient >= c.transientAttempts {
				return nil, fmt.Errorf("%s failed after %d attempts: %w", endpoint, transient, lastErr)
			}
			metrics.IncAPIRetry(endpoint)
			if err := sleepCtx(ctx, time.Duration(transient)*c.retryWait); err != nil {
				return nil, err
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			wait := backoffWait(c.backoffBase, c.backoffCeiling, rateLimited)
			rateLimited++
			metrics.IncRateLimitWait(endpoint)
			logging.Warn("rate_limited", map[string]any{"endpoint": endpoint, "wait": wait.String(), "retry": rateLimited})
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			continue
		case resp.StatusCode >= 500:
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("%s server error: status %d", endpoint, resp.StatusCode)
			transient++
			if transient >= c.transientAttempts {
				return nil, fmt.Errorf("%s failed after %d attempts: %w", endpoint, transient, lastErr)
			}
			metrics.IncAPIRetry(endpoint)
			if err := sleepCtx(ctx, time.Duration(transient)*c.retryWait); err != nil {
				return nil, err
			}
			continue
		case resp.StatusCode >= 400:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%s status %d", endpoint, resp.StatusCode)
		}
		return resp, nil
	}
}

// backoffWait doubles the base wait per rate-limit retry, capped at ceiling.
func backoffWait(base, ceiling time.Duration, retry int) time.Duration {
	if retry > 30 {
		return ceiling
	}
	w := base << uint(retry)
	if w <= 0 || w > ceiling {
		return ceiling
	}
	return w
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
