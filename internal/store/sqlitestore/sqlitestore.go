// Package sqlitestore persists collected tweets, attempt summaries and task
// status in a SQLite database.
package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"tnega/internal/model"
)

// ErrNoStatus is returned when a task has no live status row.
var ErrNoStatus = errors.New("no status for task")

// DB wraps the SQLite database holding collection runs.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS tweets (
	  task_id TEXT NOT NULL,
	  tweet_id TEXT NOT NULL,
	  source TEXT NOT NULL,
	  text TEXT NOT NULL,
	  author_id TEXT,
	  author_name TEXT,
	  created_at INTEGER,
	  like_count INTEGER,
	  retweet_count INTEGER,
	  reply_count INTEGER,
	  view_count INTEGER,
	  conversation_id TEXT,
	  PRIMARY KEY (task_id, tweet_id)
	);
	CREATE TABLE IF NOT EXISTS attempts (
	  id INTEGER PRIMARY KEY AUTOINCREMENT,
	  task_id TEXT NOT NULL,
	  attempt INTEGER NOT NULL,
	  query TEXT NOT NULL,
	  new_count INTEGER NOT NULL,
	  duplicate_count INTEGER NOT NULL,
	  total_count INTEGER NOT NULL,
	  success_rate REAL NOT NULL,
	  sample_texts TEXT,
	  error TEXT,
	  created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_task ON attempts(task_id);
	CREATE TABLE IF NOT EXISTS task_status (
	  task_id TEXT PRIMARY KEY,
	  status TEXT NOT NULL,
	  progress REAL NOT NULL,
	  current_step TEXT,
	  tweet_count INTEGER NOT NULL,
	  attempt INTEGER NOT NULL,
	  expires_at INTEGER NOT NULL
	);
	`)
	return err
}

// SaveCollection stores every tweet of a collection under the task, labelled
// by where it came from. A tweet already stored for the task is left as is,
// so the first stored occurrence wins.
func (d *DB) SaveCollection(ctx context.Context, taskID string, c model.Collection) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO tweets
		(task_id, tweet_id, source, text, author_id, author_name, created_at,
		 like_count, retweet_count, reply_count, view_count, conversation_id)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	put := func(t model.Tweet, source string) error {
		_, err := stmt.ExecContext(ctx, taskID, t.ID, source, t.Text, t.AuthorID, t.AuthorName,
			t.CreatedAt.Unix(), t.LikeCount, t.RetweetCount, t.ReplyCount, t.ViewCount, t.ConversationID)
		return err
	}
	for _, item := range c.Items {
		if err := put(item.Tweet, "seed"); err != nil {
			return err
		}
		for _, r := range item.Replies {
			if err := put(r, "reply"); err != nil {
				return err
			}
		}
		for _, t := range item.ThreadContext {
			if err := put(t, "thread"); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}

// SaveAttempt appends one attempt summary for the task.
func (d *DB) SaveAttempt(ctx context.Context, taskID string, r model.AttemptResult) error {
	var samples *string
	if len(r.SampleTexts) > 0 {
		b, _ := json.Marshal(r.SampleTexts)
		s := string(b)
		samples = &s
	}
	_, err := d.sql.ExecContext(ctx, `INSERT INTO attempts
		(task_id, attempt, query, new_count, duplicate_count, total_count, success_rate, sample_texts, error, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		taskID, r.AttemptNumber, r.Query, r.NewTweetCount, r.DuplicateCount, r.TotalTweetCount,
		r.SuccessRate, samples, r.ErrorMessage, time.Now().Unix())
	return err
}

// LoadAttempts returns a task's attempt summaries in attempt order.
func (d *DB) LoadAttempts(ctx context.Context, taskID string) ([]model.AttemptResult, error) {
	rows, err := d.sql.QueryContext(ctx, `SELECT attempt, query, new_count, duplicate_count,
		total_count, success_rate, COALESCE(sample_texts, ''), COALESCE(error, '')
		FROM attempts WHERE task_id=? ORDER BY attempt`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.AttemptResult
	for rows.Next() {
		var r model.AttemptResult
		var samples string
		if err := rows.Scan(&r.AttemptNumber, &r.Query, &r.NewTweetCount, &r.DuplicateCount,
			&r.TotalTweetCount, &r.SuccessRate, &samples, &r.ErrorMessage); err != nil {
			return nil, err
		}
		if samples != "" {
			_ = json.Unmarshal([]byte(samples), &r.SampleTexts)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountTweets returns how many tweets are stored for a task.
func (d *DB) CountTweets(ctx context.Context, taskID string) (int, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT COUNT(*) FROM tweets WHERE task_id=?`, taskID)
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// TaskStatus is the stored progress snapshot for a task.
type TaskStatus struct {
	TaskID      string
	Status      string
	Progress    float64
	CurrentStep string
	TweetCount  int
	Attempt     int
	ExpiresAt   time.Time
}

// SaveStatus upserts the task's status row with the given time to live.
func (d *DB) SaveStatus(ctx context.Context, s TaskStatus, ttl time.Duration) error {
	expires := time.Now().Add(ttl).Unix()
	_, err := d.sql.ExecContext(ctx, `INSERT INTO task_status
		(task_id, status, progress, current_step, tweet_count, attempt, expires_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT(task_id) DO UPDATE SET
		  status=excluded.status, progress=excluded.progress,
		  current_step=excluded.current_step, tweet_count=excluded.tweet_count,
		  attempt=excluded.attempt, expires_at=excluded.expires_at`,
		s.TaskID, s.Status, s.Progress, s.CurrentStep, s.TweetCount, s.Attempt, expires)
	return err
}

// LoadStatus returns the task's status, or ErrNoStatus when there is none or
// it has expired.
func (d *DB) LoadStatus(ctx context.Context, taskID string) (TaskStatus, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT task_id, status, progress,
		COALESCE(current_step, ''), tweet_count, attempt, expires_at
		FROM task_status WHERE task_id=?`, taskID)
	var s TaskStatus
	var expires int64
	err := row.Scan(&s.TaskID, &s.Status, &s.Progress, &s.CurrentStep, &s.TweetCount, &s.Attempt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return TaskStatus{}, ErrNoStatus
	}
	if err != nil {
		return TaskStatus{}, err
	}
	s.ExpiresAt = time.Unix(expires, 0).UTC()
	if time.Now().After(s.ExpiresAt) {
		return TaskStatus{}, ErrNoStatus
	}
	return s, nil
}
