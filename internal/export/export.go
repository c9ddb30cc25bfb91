// Package export writes collections to CSV and NDJSON files for downstream
// analysis.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"tnega/internal/logging"
	"tnega/internal/model"
	"tnega/internal/textx"
)

// row is one exported tweet with its place in the discussion.
type row struct {
	tweet  model.Tweet
	source string
	author string
}

// WriteCollectionCSV writes every unique tweet of the collection to path,
// one row per tweet with its cleaned text. Tweets whose cleaned text is
// shorter than three runes are dropped.
func WriteCollectionCSV(path string, c model.Collection, opts textx.CleanOptions) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"index", "text", "source", "author", "created_at", "likes", "retweets", "replies", "chars"}); err != nil {
		return 0, err
	}

	n := 0
	for _, r := range collectRows(c) {
		text := textx.Clean(r.tweet.Text, opts)
		if utf8.RuneCountInString(text) < 3 {
			continue
		}
		rec := []string{
			strconv.Itoa(n),
			text,
			r.source,
			r.author,
			r.tweet.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			strconv.Itoa(r.tweet.LikeCount),
			strconv.Itoa(r.tweet.RetweetCount),
			strconv.Itoa(r.tweet.ReplyCount),
			strconv.Itoa(utf8.RuneCountInString(text)),
		}
		if err := w.Write(rec); err != nil {
			return n, err
		}
		n++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return n, err
	}
	logging.Info("csv_written", map[string]any{"path": path, "rows": n})
	return n, nil
}

// WriteTextsCSV writes only the cleaned unique texts, one per row.
func WriteTextsCSV(path string, c model.Collection, opts textx.CleanOptions) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"text"}); err != nil {
		return 0, err
	}
	texts := textx.CleanAll(textx.ExtractTexts(c), opts)
	for _, t := range texts {
		if err := w.Write([]string{t}); err != nil {
			return 0, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, err
	}
	return len(texts), nil
}

// WriteNDJSON writes each discussion item as one JSON line, raw and
// uncleaned, plus a trailing metadata line.
func WriteNDJSON(path string, c model.Collection) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i, item := range c.Items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("encode item %d: %w", i, err)
		}
	}
	if err := enc.Encode(c.Metadata); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	logging.Info("ndjson_written", map[string]any{"path": path, "items": len(c.Items)})
	return nil
}

// WriteTweetsCSV writes an already-deduplicated tweet list, one row per tweet
// with its cleaned text. Tweets whose cleaned text is shorter than three
// runes are dropped.
func WriteTweetsCSV(path string, tweets []model.Tweet, opts textx.CleanOptions) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, err
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"index", "text", "author", "created_at", "likes", "retweets", "replies", "chars"}); err != nil {
		return 0, err
	}
	n := 0
	for _, t := range tweets {
		text := textx.Clean(t.Text, opts)
		if utf8.RuneCountInString(text) < 3 {
			continue
		}
		rec := []string{
			strconv.Itoa(n),
			text,
			t.AuthorName,
			t.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
			strconv.Itoa(t.LikeCount),
			strconv.Itoa(t.RetweetCount),
			strconv.Itoa(t.ReplyCount),
			strconv.Itoa(utf8.RuneCountInString(text)),
		}
		if err := w.Write(rec); err != nil {
			return n, err
		}
		n++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return n, err
	}
	logging.Info("csv_written", map[string]any{"path": path, "rows": n})
	return n, nil
}

// WriteTweetsNDJSON writes each tweet as one JSON line.
func WriteTweetsNDJSON(path string, tweets []model.Tweet) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i, t := range tweets {
		if err := enc.Encode(t); err != nil {
			return fmt.Errorf("encode tweet %d: %w", i, err)
		}
	}
	return nil
}

// collectRows flattens a collection into unique rows, seed first, then its
// replies, then thread context, per item.
func collectRows(c model.Collection) []row {
	seen := make(map[string]struct{})
	var out []row
	add := func(t model.Tweet, source, author string) {
		if _, ok := seen[t.ID]; ok {
			return
		}
		seen[t.ID] = struct{}{}
		out = append(out, row{tweet: t, source: source, author: author})
	}
	for _, item := range c.Items {
		add(item.Tweet, "seed", item.Author.Username)
		for _, r := range item.Replies {
			add(r, "reply", r.AuthorName)
		}
		for _, t := range item.ThreadContext {
			add(t, "thread", t.AuthorName)
		}
	}
	return out
}
