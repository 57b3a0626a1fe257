package parser

import (
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/slidenotes/internal/slides"
	"github.com/fumiama/go-docx"
)

// DOCXParser reads a handout-style outline from a .docx file. A Heading 1
// paragraph becomes a heading record, other heading levels open a titled
// record, and plain paragraphs become body lines of the current record.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*slides.Deck, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, size, cleanup, err := spool(r, "slidenotes-docx-*.docx")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	doc, err := docx.Parse(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	type draft struct {
		title   string
		heading bool
		bullets []string
	}
	var drafts []*draft
	var cur *draft

	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}

		switch level := docxHeadingLevel(para); {
		case level == 1:
			cur = &draft{title: text, heading: true}
			drafts = append(drafts, cur)
		case level > 1:
			cur = &draft{title: text}
			drafts = append(drafts, cur)
		default:
			if cur == nil || cur.heading {
				// Text directly under a chapter heading gets its own record so the
				// heading itself stays a section divider.
				title := ""
				if cur != nil {
					title = cur.title
				}
				cur = &draft{title: title}
				drafts = append(drafts, cur)
			}
			cur.bullets = append(cur.bullets, text)
		}
	}

	records := make([]slides.Record, 0, len(drafts))
	for _, d := range drafts {
		records = append(records, slides.NewRecord(0, d.title, d.bullets, "", 0))
	}
	return finish(filename, records)
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") {
		return 0
	}
	n := 0
	if _, err := fmt.Sscanf(strings.TrimPrefix(style, "heading"), "%d", &n); err != nil {
		return 0
	}
	return n
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
