package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/slidenotes/internal/slides"
)

// TextParser handles plain-text outlines. Blank lines or form feeds separate
// slides; the first line of a block is its title and the remaining lines are
// bullets, nested by leading indentation. A one-line block is a section
// heading.
type TextParser struct{}

type textBlock struct {
	lines  []string
	indent []int
}

func (p *TextParser) Parse(r io.Reader, filename string) (*slides.Deck, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var blocks []textBlock
	var cur textBlock
	flush := func() {
		if len(cur.lines) > 0 {
			blocks = append(blocks, cur)
		}
		cur = textBlock{}
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		for strings.Contains(line, "\f") {
			before, after, _ := strings.Cut(line, "\f")
			cur.add(before)
			flush()
			line = after
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		cur.add(line)
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	records := make([]slides.Record, 0, len(blocks))
	for _, b := range blocks {
		records = append(records, b.record())
	}
	return finish(filename, records)
}

func (b *textBlock) add(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	b.lines = append(b.lines, strings.TrimSpace(line))
	b.indent = append(b.indent, indentDepth(line))
}

// record turns a block into a slide. The level is the shallowest bullet
// depth relative to the title.
func (b textBlock) record() slides.Record {
	level := 0
	for i := 1; i < len(b.indent); i++ {
		d := max(b.indent[i]-b.indent[0], 0)
		if i == 1 || d < level {
			level = d
		}
	}
	return slides.NewRecord(0, b.lines[0], b.lines[1:], "", level)
}

// indentDepth counts a tab or two spaces as one level.
func indentDepth(line string) int {
	spaces := 0
	for _, r := range line {
		switch r {
		case '\t':
			spaces += 2
		case ' ':
			spaces++
		default:
			return spaces / 2
		}
	}
	return spaces / 2
}
