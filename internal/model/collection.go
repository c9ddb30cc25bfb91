package model

import "time"

// CollectionMetadata records how one collection attempt was produced.
// It is filled in once when the attempt completes and never mutated after.
type CollectionMetadata struct {
	Query              string
	QueryType          QueryType
	CollectedAt        time.Time
	SeedTweetCount     int
	TotalReplyCount    int
	TotalThreadCount   int
	FailedTweetIDs     []string
	MaxSeedTweets      int
	MaxRepliesPerTweet int
	MaxConcurrent      int
}

// Collection is the result of one collection attempt: the expanded discussions
// plus the metadata that produced them. All aggregate figures are derived,
// not stored.
type Collection struct {
	Items    []TweetWithContext
	Metadata CollectionMetadata
}

// AllTweets flattens the collection into a deduplicated tweet list. Traversal
// is seed, then that seed's replies, then its thread context, across items in
// input order; the first occurrence of an ID wins even when a later duplicate
// carries different counters.
func (c Collection) AllTweets() []Tweet {
	seen := make(map[string]struct{})
	var out []Tweet
	add := func(t Tweet) {
		if _, ok := seen[t.ID]; ok {
			return
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	for _, item := range c.Items {
		add(item.Tweet)
		for _, r := range item.Replies {
			add(r)
		}
		for _, th := range item.ThreadContext {
			add(th)
		}
	}
	return out
}

// TotalTweets is the number of unique tweets across seeds, replies and threads.
func (c Collection) TotalTweets() int { return len(c.AllTweets()) }

// TotalReplies counts replies across all items.
func (c Collection) TotalReplies() int {
	n := 0
	for _, item := range c.Items {
		n += len(item.Replies)
	}
	return n
}

// TotalThreads counts thread-context tweets across all items.
func (c Collection) TotalThreads() int {
	n := 0
	for _, item := range c.Items {
		n += len(item.ThreadContext)
	}
	return n
}

// SuccessRate is the fraction of seed tweets whose expansion completed.
// Zero when no seeds were found.
func (c Collection) SuccessRate() float64 {
	seeds := c.Metadata.SeedTweetCount
	if seeds == 0 {
		return 0
	}
	return float64(seeds-len(c.Metadata.FailedTweetIDs)) / float64(seeds)
}

// AvgRepliesPerSeed averages reply counts over successfully expanded seeds.
func (c Collection) AvgRepliesPerSeed() float64 {
	if len(c.Items) == 0 {
		return 0
	}
	return float64(c.TotalReplies()) / float64(len(c.Items))
}
