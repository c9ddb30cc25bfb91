package sqlitestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"tnega/internal/model"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSaveCollectionIgnoresDuplicates(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	c := model.Collection{Items: []model.TweetWithContext{
		{
			Tweet:         model.Tweet{ID: "1", Text: "seed", CreatedAt: time.Now()},
			Replies:       []model.Tweet{{ID: "2", Text: "reply"}},
			ThreadContext: []model.Tweet{{ID: "3", Text: "ancestor"}},
		},
	}}
	if err := db.SaveCollection(ctx, "task1", c); err != nil {
		t.Fatal(err)
	}
	// saving the same collection again must not duplicate rows
	if err := db.SaveCollection(ctx, "task1", c); err != nil {
		t.Fatal(err)
	}
	n, err := db.CountTweets(ctx, "task1")
	if err != nil || n != 3 {
		t.Fatalf("count = %d, err = %v, want 3", n, err)
	}
	// same tweets under a different task are distinct rows
	if err := db.SaveCollection(ctx, "task2", c); err != nil {
		t.Fatal(err)
	}
	n, err = db.CountTweets(ctx, "task2")
	if err != nil || n != 3 {
		t.Fatalf("task2 count = %d, err = %v, want 3", n, err)
	}
}

func TestAttemptsRoundTrip(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	first := model.AttemptResult{
		AttemptNumber: 1, Query: "golang", NewTweetCount: 40,
		TotalTweetCount: 40, SuccessRate: 0.9,
		SampleTexts: []string{"one", "two"},
	}
	second := model.AttemptResult{
		AttemptNumber: 2, Query: "golang", NewTweetCount: 0,
		DuplicateCount: 40, TotalTweetCount: 40, ErrorMessage: "search down",
	}
	if err := db.SaveAttempt(ctx, "task1", first); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveAttempt(ctx, "task1", second); err != nil {
		t.Fatal(err)
	}

	got, err := db.LoadAttempts(ctx, "task1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("attempts = %d, want 2", len(got))
	}
	if got[0].NewTweetCount != 40 || len(got[0].SampleTexts) != 2 {
		t.Fatalf("first attempt mismatch: %+v", got[0])
	}
	if got[1].ErrorMessage != "search down" {
		t.Fatalf("error not persisted: %+v", got[1])
	}
}

func TestStatusLifecycle(t *testing.T) {
	db := openTest(t)
	ctx := context.Background()

	if _, err := db.LoadStatus(ctx, "missing"); !errors.Is(err, ErrNoStatus) {
		t.Fatalf("expected ErrNoStatus, got %v", err)
	}

	s := TaskStatus{TaskID: "task1", Status: "ATTEMPTING", Progress: 0.4, CurrentStep: "attempt 2", TweetCount: 800, Attempt: 2}
	if err := db.SaveStatus(ctx, s, time.Hour); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadStatus(ctx, "task1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != "ATTEMPTING" || got.TweetCount != 800 {
		t.Fatalf("status mismatch: %+v", got)
	}

	// upsert replaces the row
	s.Status = "TERMINATED_SUCCESS"
	s.Progress = 1
	if err := db.SaveStatus(ctx, s, time.Hour); err != nil {
		t.Fatal(err)
	}
	got, err = db.LoadStatus(ctx, "task1")
	if err != nil || got.Status != "TERMINATED_SUCCESS" {
		t.Fatalf("upsert failed: %+v, err = %v", got, err)
	}

	// expired rows act as missing
	if err := db.SaveStatus(ctx, s, -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, err := db.LoadStatus(ctx, "task1"); !errors.Is(err, ErrNoStatus) {
		t.Fatalf("expected ErrNoStatus after expiry, got %v", err)
	}
}
