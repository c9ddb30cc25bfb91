// Package expand turns seed tweets into full discussion items by fanning out
// reply and thread-context fetches under a bounded concurrency gate.
package expand

import (
	"context"
	"fmt"
	"sync"

	"tnega/internal/logging"
	"tnega/internal/metrics"
	"tnega/internal/model"
	"tnega/internal/xclient"
)

// Options bounds one expansion pass.
type Options struct {
	MaxRepliesPerTweet int
	IncludeThread      bool
	Concurrency        int
}

// Result is the outcome of expanding a batch of seeds. Items holds the seeds
// that expanded, in seed order; FailedTweetIDs the seeds that did not.
type Result struct {
	Items          []model.TweetWithContext
	FailedTweetIDs []string
}

// Expand fetches replies and thread context for every seed concurrently, at
// most opts.Concurrency fetches in flight at once. A seed whose reply or
// thread fetch fails still yields an item with that part empty; a seed fails
// outright only when its author is unknown or the context is cancelled.
// Expand itself returns an error only on invalid options.
func Expand(ctx context.Context, api xclient.API, seeds []model.Tweet, authors map[string]model.Author, opts Options) (Result, error) {
	if opts.Concurrency <= 0 {
		return Result{}, fmt.Errorf("concurrency must be positive, got %d", opts.Concurrency)
	}
	if len(seeds) == 0 {
		return Result{}, nil
	}

	type outcome struct {
		item model.TweetWithContext
		err  error
	}
	outcomes := make([]outcome, len(seeds))

	sem := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup
	for i, seed := range seeds {
		wg.Add(1)
		go func(i int, seed model.Tweet) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			item, err := expandOne(ctx, api, seed, authors, opts)
			outcomes[i] = outcome{item: item, err: err}
		}(i, seed)
	}
	wg.Wait()

	var res Result
	for i, o := range outcomes {
		if o.err != nil {
			logging.Warn("seed_expansion_failed", map[string]any{
				"tweet_id": seeds[i].ID,
				"error":    o.err.Error(),
			})
			metrics.ExpansionFailures.Inc()
			res.FailedTweetIDs = append(res.FailedTweetIDs, seeds[i].ID)
			continue
		}
		res.Items = append(res.Items, o.item)
	}
	return res, nil
}

// expandOne builds the discussion item for one seed. Reply and thread fetch
// errors degrade to empty slices unless the context is done.
func expandOne(ctx context.Context, api xclient.API, seed model.Tweet, authors map[string]model.Author, opts Options) (model.TweetWithContext, error) {
	author, ok := authors[seed.AuthorID]
	if !ok {
		return model.TweetWithContext{}, fmt.Errorf("author %q not found for tweet %s", seed.AuthorID, seed.ID)
	}

	replies, err := api.GetReplies(ctx, seed.ID, opts.MaxRepliesPerTweet)
	if err != nil {
		if ctx.Err() != nil {
			return model.TweetWithContext{}, ctx.Err()
		}
		logging.Warn("replies_fetch_failed", map[string]any{"tweet_id": seed.ID, "error": err.Error()})
		replies = nil
	}

	var thread []model.Tweet
	if opts.IncludeThread {
		thread, err = api.GetThreadContext(ctx, seed.ID)
		if err != nil {
			if ctx.Err() != nil {
				return model.TweetWithContext{}, ctx.Err()
			}
			logging.Warn("thread_fetch_failed", map[string]any{"tweet_id": seed.ID, "error": err.Error()})
			thread = nil
		}
	}

	return model.TweetWithContext{
		Tweet:         seed,
		Author:        author,
		Replies:       replies,
		ThreadContext: thread,
	}, nil
}
