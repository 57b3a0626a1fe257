package cluster

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/slidenotes/internal/slides"
)

var numberedLineRe = regexp.MustCompile(`^\d+[.、)]`)

// tocMarker flags agenda pages anywhere in the title; tocTitles must match the
// whole normalised title so "Agenda-setting theory" stays content.
const tocMarker = "目录"

var tocTitles = map[string]bool{"table of contents": true, "agenda": true, "contents": true}

// NoiseOptions tunes the page filter.
type NoiseOptions struct {
	// MinBodyChars drops titled slides whose body is a single line of at most
	// this many runes. Zero disables the check.
	MinBodyChars int
}

// IsNoise reports whether a record should be dropped before clustering:
// headings and title-only slides, agenda pages, and bodies that are mostly a
// numbered list.
func IsNoise(rec slides.Record, opts NoiseOptions) bool {
	body := strings.TrimSpace(rec.RawText)
	if rec.IsHeading || (rec.Title != "" && body == "") {
		return true
	}
	if opts.MinBodyChars > 0 && rec.Title != "" &&
		utf8.RuneCountInString(body) <= opts.MinBodyChars && !strings.Contains(body, "\n") {
		return true
	}
	if rec.Title != "" && isTOCTitle(rec.Title) {
		return true
	}
	return isNumberedListBody(body)
}

func isNumberedListBody(body string) bool {
	total, numbered := 0, 0
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total++
		if numberedLineRe.MatchString(line) {
			numbered++
		}
	}
	return numbered >= 2 && float64(numbered)/float64(total) >= 0.6
}

func isTOCTitle(title string) bool {
	return strings.Contains(title, tocMarker) || tocTitles[NormalizeKey(title)]
}

// containsFold reports whether s contains any marker, ignoring case.
func containsFold(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
