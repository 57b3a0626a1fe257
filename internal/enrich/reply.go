package enrich

import (
	"regexp"
	"strings"

	"github.com/dgallion1/slidenotes/internal/cluster"
	"github.com/dgallion1/slidenotes/internal/slides"
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:markdown|md)?\\s*(.*?)\\s*```$")

// stripCodeBlock unwraps a reply that is entirely one fenced block.
func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// ParseReply splits a completion into summary (first line) and expansions
// (every non-blank line, trimmed).
func ParseReply(reply string) slides.Enrichment {
	reply = stripCodeBlock(reply)
	lines := strings.Split(reply, "\n")
	en := slides.Enrichment{
		Summary:        strings.TrimSpace(lines[0]),
		Expansions:     []string{},
		References:     []string{},
		SearchSnippets: []string{},
	}
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			en.Expansions = append(en.Expansions, l)
		}
	}
	return en
}

// CleanExpansions drops numbered-list preamble lines ("1)", "1."), summary
// label lines and lines repeating the summary.
func CleanExpansions(lines []string, summary string) []string {
	summary = strings.TrimSpace(summary)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" || l == summary {
			continue
		}
		marker := strings.ToLower(strings.TrimLeft(l, "#* "))
		if strings.HasPrefix(marker, "1)") || strings.HasPrefix(marker, "1.") ||
			strings.HasPrefix(marker, "概要") || strings.HasPrefix(marker, "summary") {
			continue
		}
		out = append(out, l)
	}
	return out
}

var (
	suppressedMarkers = []string{"目录", "知识块"}
	suppressedTitles  = map[string]bool{"table of contents": true, "agenda": true}
)

// IsSuppressedTitle reports whether a topic must be left out of the notes.
// The English markers must be the whole title.
func IsSuppressedTitle(title string) bool {
	for _, m := range suppressedMarkers {
		if strings.Contains(title, m) {
			return true
		}
	}
	return suppressedTitles[cluster.NormalizeKey(title)]
}
