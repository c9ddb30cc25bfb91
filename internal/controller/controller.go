// Package controller drives repeated collection attempts against a tweet
// target, deduplicating across attempts and stopping on target, attempt
// budget, or a streak of low-yield attempts.
package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"tnega/internal/collect"
	"tnega/internal/config"
	"tnega/internal/logging"
	"tnega/internal/metrics"
	"tnega/internal/model"
	"tnega/internal/xclient"
)

// State is the controller's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateAttempting
	StateTerminatedSuccess
	StateTerminatedLowYield
	StateTerminatedMaxAttempts
	StateTerminatedError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAttempting:
		return "ATTEMPTING"
	case StateTerminatedSuccess:
		return "TERMINATED_SUCCESS"
	case StateTerminatedLowYield:
		return "TERMINATED_LOW_YIELD"
	case StateTerminatedMaxAttempts:
		return "TERMINATED_MAX_ATTEMPTS"
	case StateTerminatedError:
		return "TERMINATED_ERROR"
	default:
		return fmt.Sprintf("STATE(%d)", int(s))
	}
}

// Terminal reports whether the run is over.
func (s State) Terminal() bool {
	return s >= StateTerminatedSuccess
}

// QueryPlanner picks the query for the next attempt. The first attempt always
// receives the initial query unchanged.
type QueryPlanner interface {
	PlanQuery(initial string, attempt int, history []model.AttemptResult) string
}

// StaticPlanner reuses the initial query on every attempt.
type StaticPlanner struct{}

func (StaticPlanner) PlanQuery(initial string, attempt int, history []model.AttemptResult) string {
	return initial
}

// Status is a progress snapshot published after every attempt.
type Status struct {
	TaskID      string
	State       State
	Progress    float64 // collected / target, clamped to 1
	CurrentStep string
	TweetCount  int
	Attempt     int
}

// StatusPublisher receives progress snapshots. Publish errors are logged and
// never fail the run.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, s Status) error
}

// StatusPublisherFunc adapts a function to StatusPublisher.
type StatusPublisherFunc func(ctx context.Context, s Status) error

func (f StatusPublisherFunc) PublishStatus(ctx context.Context, s Status) error {
	return f(ctx, s)
}

// Store persists per-attempt artifacts. Both methods are best effort from the
// controller's point of view; persistence errors are logged, not fatal.
type Store interface {
	SaveCollection(ctx context.Context, taskID string, c model.Collection) error
	SaveAttempt(ctx context.Context, taskID string, r model.AttemptResult) error
}

// RunResult is everything a finished run produced.
type RunResult struct {
	TaskID    string
	State     State
	Err       error
	Attempts  []model.AttemptResult
	Collector *model.CollectorState
}

// Controller owns one adaptive collection run at a time.
type Controller struct {
	api     xclient.API
	ctrlCfg config.ControllerConfig
	collCfg config.CollectorConfig
	planner QueryPlanner
	pub     StatusPublisher
	store   Store
	taskID  string
}

type Option func(*Controller)

func WithPlanner(p QueryPlanner) Option {
	return func(c *Controller) { c.planner = p }
}

func WithStatusPublisher(p StatusPublisher) Option {
	return func(c *Controller) { c.pub = p }
}

func WithStore(s Store) Option {
	return func(c *Controller) { c.store = s }
}

func WithTaskID(id string) Option {
	return func(c *Controller) { c.taskID = id }
}

func New(api xclient.API, cfg config.Config, opts ...Option) *Controller {
	c := &Controller{
		api:     api,
		ctrlCfg: cfg.Controller,
		collCfg: cfg.Collector,
		planner: StaticPlanner{},
		taskID:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes attempts until a stopping rule fires. Checked after every
// attempt, in priority order: target reached, attempt budget exhausted,
// low-yield streak. A failed attempt terminates the run immediately but the
// result still carries everything collected before it.
func (c *Controller) Run(ctx context.Context, initialQuery string) RunResult {
	state := model.NewCollectorState()
	state.StartedAt = time.Now().UTC()
	res := RunResult{TaskID: c.taskID, Collector: state}
	lowStreak := 0

	logging.Info("run_started", map[string]any{
		"task_id": c.taskID,
		"query":   initialQuery,
		"target":  c.ctrlCfg.TargetTweetCount,
	})

	for attempt := 1; attempt <= c.ctrlCfg.MaxAttempts; attempt++ {
		query := initialQuery
		if attempt > 1 {
			query = c.planner.PlanQuery(initialQuery, attempt, res.Attempts)
		}

		ar, err := c.runAttempt(ctx, query, attempt, state)
		res.Attempts = append(res.Attempts, ar)
		c.saveAttempt(ctx, ar)

		if err != nil {
			res.State = StateTerminatedError
			res.Err = err
			metrics.AttemptErrors.Inc()
			logging.Error("run_terminated_error", map[string]any{
				"task_id": c.taskID,
				"attempt": attempt,
				"error":   err.Error(),
			})
			break
		}

		c.publish(ctx, StateAttempting, attempt, len(state.AllTweets),
			fmt.Sprintf("attempt %d: %d new, %d total", attempt, ar.NewTweetCount, len(state.AllTweets)))

		if len(state.AllTweets) >= c.ctrlCfg.TargetTweetCount {
			res.State = StateTerminatedSuccess
			break
		}
		if attempt == c.ctrlCfg.MaxAttempts {
			res.State = StateTerminatedMaxAttempts
			break
		}
		if ar.NewTweetCount < c.ctrlCfg.LowYieldThreshold {
			lowStreak++
			if lowStreak >= c.ctrlCfg.LowYieldStreak {
				res.State = StateTerminatedLowYield
				break
			}
		} else {
			lowStreak = 0
		}
	}

	state.Duration = time.Since(state.StartedAt)
	c.publish(ctx, res.State, state.Attempts, len(state.AllTweets), "finished")
	logging.Info("run_finished", map[string]any{
		"task_id":  c.taskID,
		"state":    res.State.String(),
		"attempts": state.Attempts,
		"tweets":   len(state.AllTweets),
		"duration": state.Duration.String(),
	})
	return res
}

func (c *Controller) runAttempt(ctx context.Context, query string, attempt int, state *model.CollectorState) (model.AttemptResult, error) {
	start := time.Now()
	state.Attempts = attempt
	state.QueriesTried = append(state.QueriesTried, query)
	metrics.AttemptsTotal.Inc()

	ar := model.AttemptResult{Query: query, AttemptNumber: attempt}

	req := collect.Request{
		Query:              query,
		QueryType:          model.QueryType(c.collCfg.QueryType),
		MaxSeedTweets:      c.collCfg.MaxSeedTweets,
		MaxRepliesPerTweet: c.collCfg.MaxRepliesPerTweet,
		IncludeThread:      c.collCfg.IncludeThread,
		MaxConcurrent:      c.collCfg.MaxConcurrent,
	}
	coll, err := collect.CollectTweetDiscussions(ctx, c.api, req)
	if err != nil {
		ar.ErrorMessage = err.Error()
		return ar, err
	}
	c.saveCollection(ctx, coll)

	newTweets, dups := state.Merge(coll)
	ar.NewTweetCount = len(newTweets)
	ar.DuplicateCount = dups
	ar.TotalTweetCount = len(state.AllTweets)
	ar.SuccessRate = coll.SuccessRate()
	ar.SampleTexts = sampleTexts(newTweets, 5, 100)

	metrics.TweetsCollected.Add(float64(len(newTweets)))
	metrics.ObserveAttemptDuration(start)
	logging.Info("attempt_complete", map[string]any{
		"task_id":    c.taskID,
		"attempt":    attempt,
		"query":      query,
		"new":        ar.NewTweetCount,
		"duplicates": ar.DuplicateCount,
		"total":      ar.TotalTweetCount,
	})
	return ar, nil
}

func (c *Controller) publish(ctx context.Context, st State, attempt, tweets int, step string) {
	if c.pub == nil {
		return
	}
	progress := 0.0
	if c.ctrlCfg.TargetTweetCount > 0 {
		progress = float64(tweets) / float64(c.ctrlCfg.TargetTweetCount)
		if progress > 1 {
			progress = 1
		}
	}
	s := Status{
		TaskID:      c.taskID,
		State:       st,
		Progress:    progress,
		CurrentStep: step,
		TweetCount:  tweets,
		Attempt:     attempt,
	}
	if err := c.pub.PublishStatus(ctx, s); err != nil {
		logging.Warn("status_publish_failed", map[string]any{"task_id": c.taskID, "error": err.Error()})
	}
}

func (c *Controller) saveAttempt(ctx context.Context, ar model.AttemptResult) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveAttempt(ctx, c.taskID, ar); err != nil {
		logging.Warn("attempt_save_failed", map[string]any{"task_id": c.taskID, "error": err.Error()})
	}
}

func (c *Controller) saveCollection(ctx context.Context, coll model.Collection) {
	if c.store == nil {
		return
	}
	if err := c.store.SaveCollection(ctx, c.taskID, coll); err != nil {
		logging.Warn("collection_save_failed", map[string]any{"task_id": c.taskID, "error": err.Error()})
	}
}

// sampleTexts takes the first n texts, each truncated to maxRunes.
func sampleTexts(tweets []model.Tweet, n, maxRunes int) []string {
	if len(tweets) == 0 {
		return nil
	}
	if len(tweets) < n {
		n = len(tweets)
	}
	out := make([]string, 0, n)
	for _, t := range tweets[:n] {
		r := []rune(t.Text)
		if len(r) > maxRunes {
			r = r[:maxRunes]
		}
		out = append(out, string(r))
	}
	return out
}
