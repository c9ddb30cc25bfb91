// Package textx cleans tweet text for export and analysis.
package textx

import (
	"regexp"
	"strings"

	"tnega/internal/model"
)

var (
	urlRe     = regexp.MustCompile(`https?://\S+`)
	mentionRe = regexp.MustCompile(`@\w+`)
	newlineRe = regexp.MustCompile(`\n{3,}`)
	spaceRe   = regexp.MustCompile(`[ \t]+`)
)

// emoji and pictograph blocks stripped by RemoveEmojis.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols and pictographs
	{0x1F680, 0x1F6FF}, // transport
	{0x1F1E0, 0x1F1FF}, // flags
	{0x2702, 0x27B0},   // dingbats
	{0x24C2, 0x24C2},   // circled M
	{0x1F900, 0x1F9FF}, // supplemental symbols
	{0x1FA70, 0x1FAFF}, // extended symbols
}

// CleanOptions selects which transformations Clean applies.
type CleanOptions struct {
	RemoveURLs     bool
	RemoveMentions bool
	RemoveEmojis   bool
}

// DefaultCleanOptions strips URLs and emojis but keeps mentions.
func DefaultCleanOptions() CleanOptions {
	return CleanOptions{RemoveURLs: true, RemoveEmojis: true}
}

// Clean normalizes one tweet's text: optional URL, mention and emoji
// removal, then whitespace collapsing.
func Clean(text string, opts CleanOptions) string {
	if opts.RemoveURLs {
		text = urlRe.ReplaceAllString(text, "")
	}
	if opts.RemoveMentions {
		text = mentionRe.ReplaceAllString(text, "")
	}
	if opts.RemoveEmojis {
		text = stripEmojis(text)
	}
	text = newlineRe.ReplaceAllString(text, "\n\n")
	text = spaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripEmojis(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isEmoji(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isEmoji(r rune) bool {
	for _, rg := range emojiRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// CleanAll cleans every text, dropping results shorter than three runes.
func CleanAll(texts []string, opts CleanOptions) []string {
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		c := Clean(t, opts)
		if len([]rune(c)) < 3 {
			continue
		}
		out = append(out, c)
	}
	return out
}

// ExtractTexts returns the unique tweet texts of a collection, walking each
// item's seed, replies, then thread context.
func ExtractTexts(c model.Collection) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t model.Tweet) {
		if _, ok := seen[t.ID]; ok {
			return
		}
		seen[t.ID] = struct{}{}
		out = append(out, t.Text)
	}
	for _, item := range c.Items {
		add(item.Tweet)
		for _, r := range item.Replies {
			add(r)
		}
		for _, t := range item.ThreadContext {
			add(t)
		}
	}
	return out
}
