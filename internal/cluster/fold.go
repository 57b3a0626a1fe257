package cluster

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/slidenotes/internal/slides"
)

const maxTitleRunes = 60

var stepTitleRe = regexp.MustCompile(`(?i)^(第\s*\d|step\s*\d)`)

// placeholderMarkers match anywhere in a title; placeholderTitles only as the
// whole normalised title.
var (
	placeholderMarkers = []string{"目录", "目录页", "知识块", "知识 block", "标题"}
	placeholderTitles  = map[string]bool{"table of contents": true, "agenda": true}
)

// IsPlaceholderTitle reports whether a title is template filler that should
// not seed a topic.
func IsPlaceholderTitle(title string) bool {
	return title != "" && (containsFold(title, placeholderMarkers) || placeholderTitles[NormalizeKey(title)])
}

// IsStepTitle matches "第1步", "Step 2" and similar.
func IsStepTitle(title string) bool {
	return stepTitleRe.MatchString(title)
}

// IsOverlongTitle catches body sentences that ended up in the title shape.
func IsOverlongTitle(title string) bool {
	return utf8.RuneCountInString(title) > maxTitleRunes
}

// TitleFold carries the most recent usable title across a deck.
type TitleFold struct {
	Last string
}

// Resolve returns the effective title for rec and the next fold state. ok is
// false when no title can be derived and the record should be skipped.
func (f TitleFold) Resolve(rec slides.Record) (title string, next TitleFold, ok bool) {
	title = strings.TrimSpace(rec.Title)
	if title != "" && (IsStepTitle(title) || IsOverlongTitle(title)) {
		title = f.Last
	}
	if title != "" {
		return title, TitleFold{Last: title}, true
	}
	if f.Last != "" {
		return f.Last, f, true
	}
	if section := strings.TrimSpace(rec.Section); section != "" {
		return section, f, true
	}
	return "", f, false
}
