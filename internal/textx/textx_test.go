package textx

import (
	"testing"

	"tnega/internal/model"
)

func TestCleanRemovesURLs(t *testing.T) {
	got := Clean("check this out https://example.com/a?b=c now", CleanOptions{RemoveURLs: true})
	want := "check this out now"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCleanRemovesMentions(t *testing.T) {
	got := Clean("hey @alice and @bob_42, thoughts?", CleanOptions{RemoveMentions: true})
	want := "hey and , thoughts?"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCleanRemovesEmojis(t *testing.T) {
	got := Clean("great launch \U0001F680\U0001F600 today", CleanOptions{RemoveEmojis: true})
	want := "great launch today"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCleanCollapsesWhitespace(t *testing.T) {
	got := Clean("a   b\t c\n\n\n\n\nd", CleanOptions{})
	want := "a b c\n\nd"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCleanAllDropsShortResults(t *testing.T) {
	texts := []string{"https://only.a/url", "ok", "long enough text"}
	got := CleanAll(texts, DefaultCleanOptions())
	if len(got) != 1 || got[0] != "long enough text" {
		t.Fatalf("got %v", got)
	}
}

func TestExtractTextsUnique(t *testing.T) {
	c := model.Collection{Items: []model.TweetWithContext{
		{
			Tweet:         model.Tweet{ID: "1", Text: "seed"},
			Replies:       []model.Tweet{{ID: "2", Text: "reply"}},
			ThreadContext: []model.Tweet{{ID: "1", Text: "seed again"}},
		},
		{
			Tweet:   model.Tweet{ID: "3", Text: "other seed"},
			Replies: []model.Tweet{{ID: "2", Text: "reply dup"}},
		},
	}}
	got := ExtractTexts(c)
	want := []string{"seed", "reply", "other seed"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
