package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/slidenotes/internal/slides"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown slide decks (Marp/reveal style) using
// goldmark. Slides are separated by thematic breaks; the first heading of a
// slide is its title and HTML comments are speaker notes.
type MarkdownParser struct{}

type mdSlide struct {
	title    string
	bullets  []string
	notes    []string
	level    int
	hasLevel bool
}

func (s *mdSlide) empty() bool {
	return s.title == "" && len(s.bullets) == 0 && len(s.notes) == 0
}

func (s *mdSlide) addLines(t string, depth int) {
	for _, line := range strings.Split(t, "\n") {
		if line = strings.TrimSpace(line); line == "" {
			continue
		}
		s.bullets = append(s.bullets, line)
		if !s.hasLevel || depth < s.level {
			s.level = depth
			s.hasLevel = true
		}
	}
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*slides.Deck, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	src = stripFrontMatter(src)

	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var parsed []*mdSlide
	cur := &mdSlide{}
	flush := func() {
		if !cur.empty() {
			parsed = append(parsed, cur)
		}
		cur = &mdSlide{}
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if n.Kind() == ast.KindThematicBreak {
			flush()
			continue
		}
		addBlock(cur, n, src, 0)
	}
	flush()

	records := make([]slides.Record, 0, len(parsed))
	for _, s := range parsed {
		records = append(records, slides.NewRecord(0, s.title, s.bullets, strings.Join(s.notes, "\n"), s.level))
	}
	return finish(filename, records)
}

func addBlock(s *mdSlide, n ast.Node, src []byte, depth int) {
	switch node := n.(type) {
	case *ast.Heading:
		t := extractText(node, src)
		if s.title == "" && len(s.bullets) == 0 {
			s.title = t
			return
		}
		s.addLines(t, depth)
	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			for c := item.FirstChild(); c != nil; c = c.NextSibling() {
				if c.Kind() == ast.KindList {
					addBlock(s, c, src, depth+1)
					continue
				}
				s.addLines(extractText(c, src), depth)
			}
		}
	case *ast.HTMLBlock:
		var buf bytes.Buffer
		lines := node.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
		if node.HasClosure() {
			buf.Write(node.ClosureLine.Value(src))
		}
		note := strings.TrimSpace(buf.String())
		if strings.HasPrefix(note, "<!--") {
			note = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(note, "<!--"), "-->"))
			if note != "" {
				s.notes = append(s.notes, note)
			}
		}
	default:
		s.addLines(extractText(n, src), depth)
	}
}

// stripFrontMatter drops a leading YAML front matter block, which goldmark
// would otherwise read as a thematic break plus a setext heading.
func stripFrontMatter(src []byte) []byte {
	normalized := bytes.ReplaceAll(src, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return normalized
	}
	rest := normalized[4:]
	end := bytes.Index(rest, []byte("\n---\n"))
	if end < 0 {
		return normalized
	}
	return rest[end+5:]
}

// extractText gets the text content of a goldmark AST node. Leaf blocks such
// as code blocks carry their text in Lines; everything else is read from its
// children so inline text is not counted twice.
func extractText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock && !n.HasChildren() {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch {
		case c.Type() == ast.TypeBlock:
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(extractText(c, src))
		default:
			if t, ok := c.(*ast.Text); ok {
				buf.Write(t.Value(src))
				if t.HardLineBreak() || t.SoftLineBreak() {
					buf.WriteByte('\n')
				}
				continue
			}
			// Recurse for nested inlines.
			buf.WriteString(extractText(c, src))
		}
	}
	return strings.TrimSpace(buf.String())
}
