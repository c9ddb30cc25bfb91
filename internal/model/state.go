package model

import "time"

// CollectorState is the cross-attempt memory of one controller run. It is
// created once at run start and mutated only by the controller, after an
// attempt's results are fully assembled. An ID placed in SeenTweetIDs stays
// there for the life of the run and is never counted as new again.
type CollectorState struct {
	SeenTweetIDs map[string]struct{}
	AllTweets    []Tweet
	Attempts     int
	QueriesTried []string
	StartedAt    time.Time
	Duration     time.Duration
}

func NewCollectorState() *CollectorState {
	return &CollectorState{SeenTweetIDs: make(map[string]struct{})}
}

// Merge folds an attempt's collection into the state and returns the tweets
// that were new to this run plus the count of duplicates. The sum of both
// always equals the collection's unique tweet total.
func (s *CollectorState) Merge(c Collection) (newTweets []Tweet, duplicateCount int) {
	for _, t := range c.AllTweets() {
		if _, ok := s.SeenTweetIDs[t.ID]; ok {
			duplicateCount++
			continue
		}
		s.SeenTweetIDs[t.ID] = struct{}{}
		s.AllTweets = append(s.AllTweets, t)
		newTweets = append(newTweets, t)
	}
	return newTweets, duplicateCount
}

// AttemptResult is the per-attempt summary handed back to the controller's
// caller and to the query planner.
type AttemptResult struct {
	NewTweetCount   int
	DuplicateCount  int
	TotalTweetCount int
	Query           string
	AttemptNumber   int
	SuccessRate     float64
	SampleTexts     []string
	ErrorMessage    string
}
