package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/slidenotes/internal/slides"
)

const (
	nsDrawing     = "http://schemas.openxmlformats.org/drawingml/2006/main"
	relTypeSlide  = "/slide"
	relTypeNotes  = "/notesSlide"
	presentation  = "ppt/presentation.xml"
	maxPartLength = 32 << 20
)

var slidePartRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// PPTXParser handles Office Open XML presentations. The title placeholder (or,
// when a slide has none, the first line of a leading plain shape) becomes the
// record title; every other shape contributes body lines in document order. Table rows are
// rendered as "cell | cell".
type PPTXParser struct{}

func (p *PPTXParser) Parse(r io.Reader, filename string) (*slides.Deck, error) {
	// archive/zip needs a ReaderAt+size, so we write to a temp file.
	tmp, size, cleanup, err := spool(r, "slidenotes-pptx-*.pptx")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	zr, err := zip.NewReader(tmp, size)
	if err != nil {
		return nil, fmt.Errorf("open pptx archive: %w", err)
	}
	parts := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		parts[f.Name] = f
	}

	order, err := slideOrder(parts)
	if err != nil {
		return nil, err
	}

	records := make([]slides.Record, 0, len(order))
	for _, name := range order {
		shapes, err := readShapes(parts, name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		title, bullets, level := composeSlide(shapes)

		notes := ""
		if notesPart := relatedPart(parts, name, relTypeNotes); notesPart != "" {
			// Speaker notes are optional; an unreadable notes part leaves them empty.
			if noteShapes, err := readShapes(parts, notesPart); err == nil {
				notes = notesText(noteShapes)
			}
		}
		records = append(records, slides.NewRecord(0, title, bullets, notes, level))
	}
	return finish(filename, records)
}

type xmlRelationships struct {
	Rels []xmlRel `xml:"Relationship"`
}

type xmlRel struct {
	ID     string `xml:"Id,attr"`
	Type   string `xml:"Type,attr"`
	Target string `xml:"Target,attr"`
}

type xmlPresentation struct {
	SlideIDs []struct {
		RID string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sldIdLst>sldId"`
}

// slideOrder returns slide part names in presentation order. It follows
// presentation.xml's slide list and falls back to numeric part order.
func slideOrder(parts map[string]*zip.File) ([]string, error) {
	var pres xmlPresentation
	if err := readXML(parts, presentation, &pres); err == nil {
		rels, err := readRels(parts, presentation)
		if err == nil {
			byID := make(map[string]xmlRel, len(rels))
			for _, rel := range rels {
				byID[rel.ID] = rel
			}
			var order []string
			for _, sid := range pres.SlideIDs {
				rel, ok := byID[sid.RID]
				if !ok || !strings.HasSuffix(rel.Type, relTypeSlide) {
					continue
				}
				if name := resolvePart(presentation, rel.Target); parts[name] != nil {
					order = append(order, name)
				}
			}
			if len(order) > 0 {
				return order, nil
			}
		}
	}

	type numbered struct {
		name string
		n    int
	}
	var found []numbered
	for name := range parts {
		if m := slidePartRe.FindStringSubmatch(name); m != nil {
			n, _ := strconv.Atoi(m[1])
			found = append(found, numbered{name, n})
		}
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("no slides found in presentation")
	}
	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	order := make([]string, len(found))
	for i, f := range found {
		order[i] = f.name
	}
	return order, nil
}

// relatedPart returns the first part related to name by a relationship whose
// type ends with relSuffix, or "".
func relatedPart(parts map[string]*zip.File, name, relSuffix string) string {
	rels, err := readRels(parts, name)
	if err != nil {
		return ""
	}
	for _, rel := range rels {
		if strings.HasSuffix(rel.Type, relSuffix) {
			if target := resolvePart(name, rel.Target); parts[target] != nil {
				return target
			}
		}
	}
	return ""
}

func readRels(parts map[string]*zip.File, name string) ([]xmlRel, error) {
	relsName := path.Join(path.Dir(name), "_rels", path.Base(name)+".rels")
	var rels xmlRelationships
	if err := readXML(parts, relsName, &rels); err != nil {
		return nil, err
	}
	return rels.Rels, nil
}

func resolvePart(from, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(from), target)
}

func openPart(parts map[string]*zip.File, name string) (io.ReadCloser, error) {
	f, ok := parts[name]
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open part %s: %w", name, err)
	}
	return rc, nil
}

func readXML(parts map[string]*zip.File, name string, v any) error {
	rc, err := openPart(parts, name)
	if err != nil {
		return err
	}
	defer rc.Close()
	return xml.NewDecoder(io.LimitReader(rc, maxPartLength)).Decode(v)
}

type paragraph struct {
	text  string
	level int
}

type shape struct {
	placeholder string // ph type; "body" for untyped placeholders, "" for plain shapes
	paras       []paragraph
}

func (s shape) isTitle() bool {
	return s.placeholder == "title" || s.placeholder == "ctrTitle"
}

func (s shape) joined(sep string) string {
	texts := make([]string, len(s.paras))
	for i, p := range s.paras {
		texts[i] = p.text
	}
	return strings.Join(texts, sep)
}

// readShapes streams a slide or notes part and returns its text-bearing shapes
// in document order.
func readShapes(parts map[string]*zip.File, name string) ([]shape, error) {
	rc, err := openPart(parts, name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	dec := xml.NewDecoder(io.LimitReader(rc, maxPartLength))
	var (
		shapes    []shape
		cur       *shape
		para      strings.Builder
		paraLevel int
		inPara    bool
		inText    bool
		inCell    bool
		cell      strings.Builder
		row       []string
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode xml: %w", err)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch {
			case el.Name.Local == "sp" || el.Name.Local == "graphicFrame":
				cur = &shape{}
			case el.Name.Local == "ph" && cur != nil:
				cur.placeholder = "body"
				if v := attr(el, "type"); v != "" {
					cur.placeholder = v
				}
			case el.Name.Space == nsDrawing && el.Name.Local == "p":
				inPara = true
				para.Reset()
				paraLevel = 0
			case el.Name.Space == nsDrawing && el.Name.Local == "pPr" && inPara:
				if lvl, err := strconv.Atoi(attr(el, "lvl")); err == nil {
					paraLevel = lvl
				}
			case el.Name.Space == nsDrawing && el.Name.Local == "t":
				inText = true
			case el.Name.Space == nsDrawing && el.Name.Local == "br" && inPara:
				para.WriteByte(' ')
			case el.Name.Space == nsDrawing && el.Name.Local == "tr":
				row = row[:0]
			case el.Name.Space == nsDrawing && el.Name.Local == "tc":
				inCell = true
				cell.Reset()
			}

		case xml.CharData:
			if inText {
				para.Write(el)
			}

		case xml.EndElement:
			switch {
			case el.Name.Space == nsDrawing && el.Name.Local == "t":
				inText = false
			case el.Name.Space == nsDrawing && el.Name.Local == "p":
				inPara = false
				text := strings.TrimSpace(para.String())
				if text == "" {
					continue
				}
				if inCell {
					if cell.Len() > 0 {
						cell.WriteByte(' ')
					}
					cell.WriteString(text)
				} else if cur != nil {
					cur.paras = append(cur.paras, paragraph{text: text, level: paraLevel})
				}
			case el.Name.Space == nsDrawing && el.Name.Local == "tc":
				inCell = false
				row = append(row, strings.TrimSpace(cell.String()))
			case el.Name.Space == nsDrawing && el.Name.Local == "tr":
				if cur != nil && strings.TrimSpace(strings.Join(row, "")) != "" {
					cur.paras = append(cur.paras, paragraph{text: strings.Join(row, " | ")})
				}
			case el.Name.Local == "sp" || el.Name.Local == "graphicFrame":
				if cur != nil && len(cur.paras) > 0 {
					shapes = append(shapes, *cur)
				}
				cur = nil
			}
		}
	}
	return shapes, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// composeSlide picks the title and flattens the remaining shapes into body
// lines, returning the minimum paragraph level seen in the body. Without a
// title placeholder, the first paragraph of the first plain shape is the title,
// provided another shape is left for the body. Placeholders are never promoted,
// so a lone body shape stays body text.
func composeSlide(shapes []shape) (title string, bullets []string, level int) {
	titleIdx := -1
	for i, s := range shapes {
		if s.isTitle() {
			titleIdx = i
			break
		}
	}
	skip := 0 // paragraphs of the title shape consumed by the title
	if titleIdx >= 0 {
		title = shapes[titleIdx].joined(" ")
		skip = len(shapes[titleIdx].paras)
	} else if len(shapes) > 1 && shapes[0].placeholder == "" {
		titleIdx = 0
		title = shapes[0].paras[0].text
		skip = 1
	}

	seen := false
	for i, s := range shapes {
		paras := s.paras
		if i == titleIdx {
			paras = paras[skip:]
		}
		for _, p := range paras {
			bullets = append(bullets, p.text)
			if !seen || p.level < level {
				level = p.level
				seen = true
			}
		}
	}
	return title, bullets, level
}

// notesText returns the body placeholder text of a notes slide.
func notesText(shapes []shape) string {
	var parts []string
	for _, s := range shapes {
		if s.placeholder == "body" {
			parts = append(parts, s.joined("\n"))
		}
	}
	return strings.Join(parts, "\n")
}
