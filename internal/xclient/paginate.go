package xclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"tnega/internal/logging"
	"tnega/internal/metrics"
)

// rawItem is one undecoded tweet object from a page.
type rawItem = json.RawMessage

// pageEnvelope is the wire shape shared by all paginated endpoints. Success
// responses carry no status field; error responses carry status plus msg.
type pageEnvelope struct {
	Tweets      []rawItem `json:"tweets"`
	HasNextPage bool      `json:"has_next_page"`
	HasMore     bool      `json:"has_more"`
	NextCursor  string    `json:"next_cursor"`
	Status      string    `json:"status"`
	Msg         string    `json:"msg"`
}

// fetchPaginated walks one endpoint's cursor chain and hands each page's
// unseen items to fn. The sequence is finite and not restartable; each call
// starts a fresh cursor and seen-set. itemCap <= 0 means no cap.
//
// Stopping rules, in the order they are checked:
//   - a page with zero unseen items (stale repeated page from the backend)
//   - the item cap is reached; the final page is truncated to the budget
//   - the backend reports no further pages, or omits the next cursor
func (c *HTTPClient) fetchPaginated(ctx context.Context, endpoint string, params url.Values, itemCap int, fn func(page []rawItem) error) error {
	cursor := ""
	seen := make(map[string]struct{})
	total := 0

	for {
		env, err := c.fetchPage(ctx, endpoint, params, cursor)
		if err != nil {
			return err
		}
		if env.Status != "" && env.Status != "success" {
			// API-level error envelope on a 200: stop with what we have.
			logging.Error("api_error_envelope", map[string]any{"endpoint": endpoint, "msg": env.Msg})
			return nil
		}
		metrics.PagesFetched.WithLabelValues(endpoint).Inc()

		fresh := make([]rawItem, 0, len(env.Tweets))
		for _, item := range env.Tweets {
			id := probeID(item)
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			fresh = append(fresh, item)
		}
		if len(fresh) == 0 {
			logging.Debug("pagination_stale_page", map[string]any{"endpoint": endpoint, "total": total})
			return nil
		}
		if itemCap > 0 {
			remaining := itemCap - total
			if remaining <= 0 {
				return nil
			}
			if len(fresh) > remaining {
				fresh = fresh[:remaining]
			}
		}

		if err := fn(fresh); err != nil {
			return err
		}
		total += len(fresh)

		if !env.HasNextPage && !env.HasMore {
			return nil
		}
		if env.NextCursor == "" {
			return nil
		}
		cursor = env.NextCursor

		if itemCap > 0 && total >= itemCap {
			return nil
		}
	}
}

// fetchPage issues one request carrying the current cursor.
func (c *HTTPClient) fetchPage(ctx context.Context, endpoint string, params url.Values, cursor string) (*pageEnvelope, error) {
	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("cursor", cursor)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	resp, err := c.doWithRetry(ctx, req, endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env pageEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		// Unparsable body is structural, not transient: no retry.
		return nil, fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return &env, nil
}

// probeID extracts just the id field so dedup happens before full parsing.
func probeID(item rawItem) string {
	var probe struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(item, &probe); err != nil {
		return ""
	}
	return probe.ID
}
