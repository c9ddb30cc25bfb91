package xclient

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"tnega/internal/logging"
	"tnega/internal/model"
)

// twitterTimeLayout is the RFC2822-style timestamp the API emits,
// e.g. "Mon Oct 13 06:27:38 +0000 2025".
const twitterTimeLayout = "Mon Jan 02 15:04:05 -0700 2006"

type rawAuthor struct {
	ID             string `json:"id"`
	UserName       string `json:"userName"`
	Name           string `json:"name"`
	Location       string `json:"location"`
	IsBlueVerified bool   `json:"isBlueVerified"`
	IsVerified     bool   `json:"isVerified"`
	Followers      int    `json:"followers"`
	CreatedAt      string `json:"createdAt"`
}

type rawTweet struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	CreatedAt      string     `json:"createdAt"`
	Author         *rawAuthor `json:"author"`
	Lang           string     `json:"lang"`
	LikeCount      int        `json:"likeCount"`
	RetweetCount   int        `json:"retweetCount"`
	ReplyCount     int        `json:"replyCount"`
	ViewCount      int        `json:"viewCount"`
	ConversationID string     `json:"conversationId"`
	IsReply        bool       `json:"isReply"`
	InReplyToID    string     `json:"inReplyToId"`
}

// parseTwitterTime parses the API's timestamp format.
func parseTwitterTime(s string) (time.Time, error) {
	return time.Parse(twitterTimeLayout, s)
}

// parseTweet converts one raw tweet into the model type. ID, text and a
// parsable creation time are required.
func parseTweet(raw rawTweet) (model.Tweet, error) {
	if raw.ID == "" {
		return model.Tweet{}, errors.New("tweet missing id")
	}
	if raw.Text == "" {
		return model.Tweet{}, errors.New("tweet missing text")
	}
	createdAt, err := parseTwitterTime(raw.CreatedAt)
	if err != nil {
		return model.Tweet{}, err
	}

	t := model.Tweet{
		ID:             raw.ID,
		Text:           raw.Text,
		CreatedAt:      createdAt,
		Lang:           raw.Lang,
		LikeCount:      raw.LikeCount,
		RetweetCount:   raw.RetweetCount,
		ReplyCount:     raw.ReplyCount,
		ViewCount:      raw.ViewCount,
		ConversationID: raw.ConversationID,
		IsReply:        raw.IsReply,
		InReplyToID:    raw.InReplyToID,
	}
	if raw.Author != nil {
		t.AuthorID = raw.Author.ID
		t.AuthorName = raw.Author.Name
	}
	return t, nil
}

// parseAuthor converts a raw author. A bad creation time degrades to zero
// rather than dropping the author.
func parseAuthor(raw rawAuthor) model.Author {
	a := model.Author{
		ID:             raw.ID,
		Username:       raw.UserName,
		Name:           raw.Name,
		Location:       strings.TrimSpace(raw.Location),
		Verified:       raw.IsBlueVerified || raw.IsVerified,
		FollowersCount: raw.Followers,
	}
	if raw.CreatedAt != "" {
		if ts, err := parseTwitterTime(raw.CreatedAt); err == nil {
			a.CreatedAt = ts
		} else {
			logging.Warn("author_created_at_unparsable", map[string]any{"author_id": raw.ID, "value": raw.CreatedAt})
		}
	}
	return a
}

// parseBatch decodes a page of raw items into tweets and their authors.
// Malformed records are skipped with a diagnostic; untyped data never leaves
// this boundary.
func parseBatch(items []rawItem) ([]model.Tweet, map[string]model.Author) {
	tweets := make([]model.Tweet, 0, len(items))
	authors := make(map[string]model.Author)

	for _, item := range items {
		var raw rawTweet
		if err := json.Unmarshal(item, &raw); err != nil {
			logging.Error("tweet_decode_failed", map[string]any{"error": err.Error()})
			continue
		}
		t, err := parseTweet(raw)
		if err != nil {
			logging.Error("tweet_parse_failed", map[string]any{"tweet_id": raw.ID, "error": err.Error()})
			continue
		}
		tweets = append(tweets, t)
		if raw.Author != nil && raw.Author.ID != "" {
			if _, ok := authors[raw.Author.ID]; !ok {
				authors[raw.Author.ID] = parseAuthor(*raw.Author)
			}
		}
	}
	return tweets, authors
}
