package slack_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/riskledger/pkg/service/slack"
)

func TestText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		max   int
		want  string
	}{
		{"plain", "Supplier insolvency", 0, "Supplier insolvency"},
		{"broadcast mention", "<!channel> outage", 0, "&lt;!channel&gt; outage"},
		{"link and ampersand", "R&D <https://evil.example|click>", 0, "R&amp;D &lt;https://evil.example|click&gt;"},
		{"truncated before escaping", "abcdef<>", 5, "abcd…"},
		{"multibyte", "データ漏えいリスク", 4, "データ…"},
		{"within limit", "short", 10, "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, slack.Text(tt.input, tt.max)).Equal(tt.want)
		})
	}
}

func TestMention(t *testing.T) {
	gt.Value(t, slack.Mention("U123")).Equal("<@U123>")
	gt.Value(t, slack.Mention("")).Equal("")
	gt.Value(t, slack.Mention("U1> <!here")).Equal("<@U1&gt; &lt;!here>")
}

func TestSections(t *testing.T) {
	t.Run("short lines share one section", func(t *testing.T) {
		got := slack.Sections([]string{"a", "b", "c"})
		gt.Array(t, got).Equal([]string{"a\nb\nc"})
	})

	t.Run("splits at the section limit", func(t *testing.T) {
		line := strings.Repeat("x", 400)
		lines := make([]string, 20)
		for i := range lines {
			lines[i] = line
		}

		got := slack.Sections(lines)
		gt.Number(t, len(got)).Greater(1)

		total := 0
		for _, section := range got {
			gt.Number(t, utf8.RuneCountInString(section)).LessOrEqual(slack.MaxSectionText)
			total += strings.Count(section, line)
		}
		gt.Number(t, total).Equal(20)
	})

	t.Run("oversized line is truncated", func(t *testing.T) {
		got := slack.Sections([]string{strings.Repeat("y", slack.MaxSectionText+50)})
		gt.Array(t, got).Length(1)
		gt.Number(t, utf8.RuneCountInString(got[0])).Equal(slack.MaxSectionText)
	})

	t.Run("empty", func(t *testing.T) {
		gt.Array(t, slack.Sections(nil)).Length(0)
	})
}
