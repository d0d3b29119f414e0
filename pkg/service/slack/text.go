package slack

import (
	"strings"
	"unicode/utf8"

	"github.com/slack-go/slack/slackutilsx"
)

const (
	// MaxSectionText is the mrkdwn length Slack accepts in one section block
	MaxSectionText = 3000

	// MaxTitleLength bounds user supplied titles inside a message
	MaxTitleLength = 120
)

// Text prepares user supplied text for mrkdwn: it is cut to max runes and
// then &, < and > are escaped, so titles cannot inject mentions or links.
// max <= 0 disables truncation.
func Text(s string, max int) string {
	if max > 0 && utf8.RuneCountInString(s) > max {
		runes := []rune(s)
		s = string(runes[:max-1]) + "…"
	}
	return slackutilsx.EscapeMessage(s)
}

// Mention renders a user mention, or an empty string for an empty ID
func Mention(userID string) string {
	if userID == "" {
		return ""
	}
	return "<@" + slackutilsx.EscapeMessage(userID) + ">"
}

// Sections joins lines into chunks that each fit one section block. A single
// line longer than the limit is truncated.
func Sections(lines []string) []string {
	var (
		chunks  []string
		current strings.Builder
	)
	for _, line := range lines {
		if utf8.RuneCountInString(line) > MaxSectionText {
			line = string([]rune(line)[:MaxSectionText-1]) + "…"
		}
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(line) > MaxSectionText {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
