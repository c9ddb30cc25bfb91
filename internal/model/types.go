package model

import "time"

// QueryType selects how the search endpoint orders results.
type QueryType string

const (
	QueryLatest QueryType = "Latest" // newest first
	QueryTop    QueryType = "Top"    // ranked by engagement
)

// Author is the subset of X user fields the collector keeps.
type Author struct {
	ID             string
	Username       string
	Name           string
	Location       string // free text, may be empty
	Verified       bool
	FollowersCount int
	CreatedAt      time.Time // zero when the API omitted or mangled it
}

// Tweet is the subset of X tweet fields the collector keeps.
// Values are never mutated after parsing.
type Tweet struct {
	ID             string
	Text           string
	AuthorID       string
	AuthorName     string
	CreatedAt      time.Time
	LikeCount      int
	RetweetCount   int
	ReplyCount     int
	ViewCount      int
	Lang           string
	ConversationID string
	IsReply        bool
	InReplyToID    string
}

// TweetWithContext couples a seed tweet with its author, its replies, and the
// ancestor chain of its conversation.
type TweetWithContext struct {
	Tweet         Tweet
	Author        Author
	Replies       []Tweet
	ThreadContext []Tweet
}

// TotalEngagement sums likes, retweets and replies for the seed tweet.
func (t TweetWithContext) TotalEngagement() int {
	return t.Tweet.LikeCount + t.Tweet.RetweetCount + t.Tweet.ReplyCount
}
