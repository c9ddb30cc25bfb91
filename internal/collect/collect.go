// Package collect runs one full collection pass: validate the query, search
// seed tweets, expand each into its discussion, and aggregate the results.
package collect

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"tnega/internal/expand"
	"tnega/internal/logging"
	"tnega/internal/model"
	"tnega/internal/xclient"
)

const maxQueryLength = 500

// Request is one collection pass's parameters.
type Request struct {
	Query              string
	QueryType          model.QueryType
	MaxSeedTweets      int
	MaxRepliesPerTweet int
	IncludeThread      bool
	MaxConcurrent      int
}

// DefaultRequest returns a request for query with the standard limits.
func DefaultRequest(query string) Request {
	return Request{
		Query:              query,
		QueryType:          model.QueryLatest,
		MaxSeedTweets:      500,
		MaxRepliesPerTweet: 10,
		IncludeThread:      true,
		MaxConcurrent:      10,
	}
}

// ValidateQuery rejects queries the search backend cannot accept: empty
// strings, queries over 500 characters, and unbalanced parentheses.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is empty")
	}
	if n := utf8.RuneCountInString(query); n > maxQueryLength {
		return fmt.Errorf("query is %d characters, limit is %d", n, maxQueryLength)
	}
	depth := 0
	for _, r := range query {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("query has unbalanced parentheses")
			}
		}
	}
	if depth != 0 {
		return fmt.Errorf("query has unbalanced parentheses")
	}
	return nil
}

func (r Request) validate() error {
	if err := ValidateQuery(r.Query); err != nil {
		return err
	}
	if r.MaxSeedTweets <= 0 {
		return fmt.Errorf("max seed tweets must be positive, got %d", r.MaxSeedTweets)
	}
	if r.MaxRepliesPerTweet <= 0 {
		return fmt.Errorf("max replies per tweet must be positive, got %d", r.MaxRepliesPerTweet)
	}
	if r.MaxConcurrent <= 0 {
		return fmt.Errorf("max concurrent must be positive, got %d", r.MaxConcurrent)
	}
	return nil
}

// Aggregate assembles expanded items and metadata into a collection, filling
// in the derived counts.
func Aggregate(items []model.TweetWithContext, failedIDs []string, req Request, seedCount int) model.Collection {
	meta := model.CollectionMetadata{
		Query:              req.Query,
		QueryType:          req.QueryType,
		CollectedAt:        time.Now().UTC(),
		SeedTweetCount:     seedCount,
		FailedTweetIDs:     failedIDs,
		MaxSeedTweets:      req.MaxSeedTweets,
		MaxRepliesPerTweet: req.MaxRepliesPerTweet,
		MaxConcurrent:      req.MaxConcurrent,
	}
	for _, item := range items {
		meta.TotalReplyCount += len(item.Replies)
		meta.TotalThreadCount += len(item.ThreadContext)
	}
	return model.Collection{Items: items, Metadata: meta}
}

// CollectTweetDiscussions runs one pass end to end. Search failures propagate;
// per-seed expansion failures are recorded in the metadata instead.
func CollectTweetDiscussions(ctx context.Context, api xclient.API, req Request) (model.Collection, error) {
	if err := req.validate(); err != nil {
		return model.Collection{}, err
	}

	seeds, authors, err := api.SearchTweets(ctx, req.Query, req.QueryType, req.MaxSeedTweets)
	if err != nil {
		return model.Collection{}, fmt.Errorf("search tweets: %w", err)
	}
	if len(seeds) == 0 {
		logging.Info("no_seed_tweets", map[string]any{"query": req.Query})
		return Aggregate(nil, nil, req, 0), nil
	}
	if err := ctx.Err(); err != nil {
		return model.Collection{}, err
	}

	logging.Info("expanding_seeds", map[string]any{"query": req.Query, "seeds": len(seeds)})
	res, err := expand.Expand(ctx, api, seeds, authors, expand.Options{
		MaxRepliesPerTweet: req.MaxRepliesPerTweet,
		IncludeThread:      req.IncludeThread,
		Concurrency:        req.MaxConcurrent,
	})
	if err != nil {
		return model.Collection{}, err
	}

	c := Aggregate(res.Items, res.FailedTweetIDs, req, len(seeds))
	logging.Info("collection_complete", map[string]any{
		"query":        req.Query,
		"seeds":        len(seeds),
		"items":        len(res.Items),
		"failed":       len(res.FailedTweetIDs),
		"success_rate": c.SuccessRate(),
	})
	return c, nil
}
