package slides

import (
	"fmt"
	"strings"
)

// Record is one slide's extracted content.
type Record struct {
	Number    int      `json:"slide_number"`      // 1-based ordinal in deck order
	Title     string   `json:"title,omitempty"`   // Empty when the slide has no title
	Bullets   []string `json:"bullets"`           // Body lines in reading order
	Notes     string   `json:"notes,omitempty"`   // Speaker notes
	RawText   string   `json:"raw_text"`          // Bullets joined by newlines
	Section   string   `json:"section,omitempty"` // Title of the nearest heading record
	IsHeading bool     `json:"is_heading"`
	Level     int      `json:"level"` // Minimum paragraph level observed
}

// Deck is the parsed form of a slide file.
type Deck struct {
	Title   string   // From the filename stem
	Records []Record // Deck order
}

// NewRecord builds a record from its title and body lines, deriving RawText and
// the heading flag. Blank bullets are dropped.
func NewRecord(number int, title string, bullets []string, notes string, level int) Record {
	body := make([]string, 0, len(bullets))
	for _, b := range bullets {
		if b = strings.TrimSpace(b); b != "" {
			body = append(body, b)
		}
	}
	raw := strings.Join(body, "\n")
	title = strings.TrimSpace(title)
	return Record{
		Number:    number,
		Title:     title,
		Bullets:   body,
		Notes:     strings.TrimSpace(notes),
		RawText:   raw,
		IsHeading: title != "" && strings.TrimSpace(raw) == "",
		Level:     level,
	}
}

// Backfill assigns every record the title of the nearest heading record at or
// before it. Records before the first heading keep an empty section.
func Backfill(records []Record) {
	current := ""
	for i := range records {
		if records[i].IsHeading {
			current = records[i].Title
		}
		records[i].Section = current
	}
}

// ValidateOrdinals checks that slide numbers are exactly 1..N in order.
func ValidateOrdinals(records []Record) error {
	for i, r := range records {
		if r.Number != i+1 {
			return fmt.Errorf("slide at position %d has number %d, want %d", i, r.Number, i+1)
		}
	}
	return nil
}

// Topic is a working cluster of records merged under one effective title.
type Topic struct {
	Section string
	Title   string
	Members []Record // First-seen order
}

// SlideNumbers returns member ordinals in member order.
func (t Topic) SlideNumbers() []int {
	out := make([]int, 0, len(t.Members))
	for _, m := range t.Members {
		out = append(out, m.Number)
	}
	return out
}

// RawText joins the non-blank member texts with newlines.
func (t Topic) RawText() string {
	parts := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		if m.RawText != "" {
			parts = append(parts, m.RawText)
		}
	}
	return strings.Join(parts, "\n")
}

// MinNumber returns the smallest member ordinal, or 0 for an empty topic.
func (t Topic) MinNumber() int {
	lowest := 0
	for i, m := range t.Members {
		if i == 0 || m.Number < lowest {
			lowest = m.Number
		}
	}
	return lowest
}
