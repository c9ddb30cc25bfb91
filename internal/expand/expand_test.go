package expand

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"tnega/internal/model"
)

// fakeAPI scripts per-tweet reply/thread results and tracks in-flight fetches.
type fakeAPI struct {
	mu         sync.Mutex
	inFlight   int
	maxFlight  int
	replies    map[string][]model.Tweet
	threads    map[string][]model.Tweet
	replyErrs  map[string]error
	threadErrs map[string]error
}

func (f *fakeAPI) enter() {
	f.mu.Lock()
	f.inFlight++
	if f.inFlight > f.maxFlight {
		f.maxFlight = f.inFlight
	}
	f.mu.Unlock()
}

func (f *fakeAPI) exit() {
	f.mu.Lock()
	f.inFlight--
	f.mu.Unlock()
}

func (f *fakeAPI) SearchTweets(ctx context.Context, query string, queryType model.QueryType, maxResults int) ([]model.Tweet, map[string]model.Author, error) {
	return nil, nil, errors.New("not used")
}

func (f *fakeAPI) GetReplies(ctx context.Context, tweetID string, maxResults int) ([]model.Tweet, error) {
	f.enter()
	defer f.exit()
	time.Sleep(5 * time.Millisecond)
	if err := f.replyErrs[tweetID]; err != nil {
		return nil, err
	}
	return f.replies[tweetID], nil
}

func (f *fakeAPI) GetThreadContext(ctx context.Context, tweetID string) ([]model.Tweet, error) {
	f.enter()
	defer f.exit()
	time.Sleep(5 * time.Millisecond)
	if err := f.threadErrs[tweetID]; err != nil {
		return nil, err
	}
	return f.threads[tweetID], nil
}

func seedBatch(n int) ([]model.Tweet, map[string]model.Author) {
	seeds := make([]model.Tweet, 0, n)
	authors := make(map[string]model.Author)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("%d", i)
		seeds = append(seeds, model.Tweet{ID: id, Text: "seed " + id, AuthorID: "u" + id})
		authors["u"+id] = model.Author{ID: "u" + id, Username: "user" + id}
	}
	return seeds, authors
}

func TestExpandBoundsConcurrency(t *testing.T) {
	seeds, authors := seedBatch(10)
	api := &fakeAPI{}

	res, err := Expand(context.Background(), api, seeds, authors, Options{
		MaxRepliesPerTweet: 10,
		IncludeThread:      true,
		Concurrency:        2,
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Items) != 10 {
		t.Fatalf("expected 10 items, got %d", len(res.Items))
	}
	if api.maxFlight > 2 {
		t.Fatalf("observed %d concurrent fetches, limit is 2", api.maxFlight)
	}
}

func TestExpandPreservesSeedOrder(t *testing.T) {
	seeds, authors := seedBatch(6)
	api := &fakeAPI{}

	res, err := Expand(context.Background(), api, seeds, authors, Options{Concurrency: 4})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	for i, item := range res.Items {
		if item.Tweet.ID != seeds[i].ID {
			t.Fatalf("item %d: got id %s, want %s", i, item.Tweet.ID, seeds[i].ID)
		}
	}
}

func TestExpandIsolatesFailures(t *testing.T) {
	seeds, authors := seedBatch(10)
	delete(authors, "u3")
	delete(authors, "u7")
	api := &fakeAPI{}

	res, err := Expand(context.Background(), api, seeds, authors, Options{Concurrency: 10})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Items) != 8 {
		t.Fatalf("expected 8 items, got %d", len(res.Items))
	}
	if len(res.FailedTweetIDs) != 2 {
		t.Fatalf("expected 2 failed ids, got %v", res.FailedTweetIDs)
	}
	failed := map[string]bool{}
	for _, id := range res.FailedTweetIDs {
		failed[id] = true
	}
	if !failed["3"] || !failed["7"] {
		t.Fatalf("wrong failed ids: %v", res.FailedTweetIDs)
	}
}

func TestExpandDegradesOnFetchErrors(t *testing.T) {
	seeds, authors := seedBatch(2)
	api := &fakeAPI{
		replies:    map[string][]model.Tweet{"2": {{ID: "r1", Text: "re"}}},
		threads:    map[string][]model.Tweet{"2": {{ID: "t1", Text: "th"}}},
		replyErrs:  map[string]error{"1": errors.New("replies unavailable")},
		threadErrs: map[string]error{"1": errors.New("thread unavailable")},
	}

	res, err := Expand(context.Background(), api, seeds, authors, Options{
		MaxRepliesPerTweet: 10,
		IncludeThread:      true,
		Concurrency:        2,
	})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Items) != 2 || len(res.FailedTweetIDs) != 0 {
		t.Fatalf("fetch errors must degrade, not fail: items=%d failed=%v", len(res.Items), res.FailedTweetIDs)
	}
	var one, two model.TweetWithContext
	for _, item := range res.Items {
		switch item.Tweet.ID {
		case "1":
			one = item
		case "2":
			two = item
		}
	}
	if len(one.Replies) != 0 || len(one.ThreadContext) != 0 {
		t.Fatalf("seed 1 should have empty context: %+v", one)
	}
	if len(two.Replies) != 1 || len(two.ThreadContext) != 1 {
		t.Fatalf("seed 2 context lost: %+v", two)
	}
}

func TestExpandRejectsBadConcurrency(t *testing.T) {
	seeds, authors := seedBatch(1)
	if _, err := Expand(context.Background(), &fakeAPI{}, seeds, authors, Options{Concurrency: 0}); err == nil {
		t.Fatal("expected error for zero concurrency")
	}
}

func TestExpandEmptySeeds(t *testing.T) {
	res, err := Expand(context.Background(), &fakeAPI{}, nil, nil, Options{Concurrency: 1})
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(res.Items) != 0 || len(res.FailedTweetIDs) != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
