package xclient

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"tnega/internal/model"
)

// Endpoints on the twitterapi.io-style API the collector speaks to.
const (
	endpointSearch  = "/twitter/tweet/advanced_search"
	endpointReplies = "/twitter/tweet/replies"
	endpointThread  = "/twitter/tweet/thread_context"
)

// API defines the remote calls the collection engine uses. Implemented by
// HTTPClient; fakes implement it in tests.
type API interface {
	// SearchTweets pages the advanced-search endpoint for seed tweets,
	// returning at most maxResults tweets plus their authors keyed by ID.
	SearchTweets(ctx context.Context, query string, queryType model.QueryType, maxResults int) ([]model.Tweet, map[string]model.Author, error)
	// GetReplies pages a tweet's replies up to maxResults.
	GetReplies(ctx context.Context, tweetID string, maxResults int) ([]model.Tweet, error)
	// GetThreadContext pages a tweet's conversational ancestors, uncapped.
	GetThreadContext(ctx context.Context, tweetID string) ([]model.Tweet, error)
}

// Options configures an HTTPClient. Zero fields fall back to defaults.
type Options struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RPS               float64
	Burst             int
	BackoffBase       time.Duration // first 429 wait
	BackoffCeiling    time.Duration // cap on 429 waits
	TransientAttempts int           // budget for non-429 retryable failures
	RetryWait         time.Duration // linear wait unit between transient retries
}

// HTTPClient is an x-api-key client for the remote tweet API. All calls go
// through a client-side rate limiter and the retry governor.
type HTTPClient struct {
	baseURL           string
	apiKey            string
	httpClient        *http.Client
	limiter           *rate.Limiter
	backoffBase       time.Duration
	backoffCeiling    time.Duration
	transientAttempts int
	retryWait         time.Duration
}

func New(opts Options) *HTTPClient {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.twitterapi.io"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RPS <= 0 {
		opts.RPS = 2.0
	}
	if opts.Burst <= 0 {
		opts.Burst = 10
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Minute
	}
	if opts.BackoffCeiling <= 0 {
		opts.BackoffCeiling = 15 * time.Minute
	}
	if opts.TransientAttempts <= 0 {
		opts.TransientAttempts = 3
	}
	if opts.RetryWait <= 0 {
		opts.RetryWait = 500 * time.Millisecond
	}
	return &HTTPClient{
		baseURL:           opts.BaseURL,
		apiKey:            opts.APIKey,
		httpClient:        &http.Client{Timeout: opts.Timeout},
		limiter:           rate.NewLimiter(rate.Limit(opts.RPS), opts.Burst),
		backoffBase:       opts.BackoffBase,
		backoffCeiling:    opts.BackoffCeiling,
		transientAttempts: opts.TransientAttempts,
		retryWait:         opts.RetryWait,
	}
}

// SearchTweets searches seed tweets for a query. Authors are collected from
// the embedded author objects; the first version seen for an ID is kept.
func (c *HTTPClient) SearchTweets(ctx context.Context, query string, queryType model.QueryType, maxResults int) ([]model.Tweet, map[string]model.Author, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("queryType", string(queryType))

	var tweets []model.Tweet
	authors := make(map[string]model.Author)
	err := c.fetchPaginated(ctx, endpointSearch, params, maxResults, func(page []rawItem) error {
		ts, us := parseBatch(page)
		tweets = append(tweets, ts...)
		for id, a := range us {
			if _, ok := authors[id]; !ok {
				authors[id] = a
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return tweets, authors, nil
}

// GetReplies fetches replies to a tweet, capped at maxResults.
func (c *HTTPClient) GetReplies(ctx context.Context, tweetID string, maxResults int) ([]model.Tweet, error) {
	params := url.Values{}
	params.Set("tweetId", tweetID)

	var replies []model.Tweet
	err := c.fetchPaginated(ctx, endpointReplies, params, maxResults, func(page []rawItem) error {
		ts, _ := parseBatch(page)
		replies = append(replies, ts...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return replies, nil
}

// GetThreadContext fetches the ancestor chain of a tweet's conversation,
// with no item cap.
func (c *HTTPClient) GetThreadContext(ctx context.Context, tweetID string) ([]model.Tweet, error) {
	params := url.Values{}
	params.Set("tweetId", tweetID)

	var thread []model.Tweet
	err := c.fetchPaginated(ctx, endpointThread, params, 0, func(page []rawItem) error {
		ts, _ := parseBatch(page)
		thread = append(thread, ts...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return thread, nil
}
