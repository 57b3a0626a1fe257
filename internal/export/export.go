// Package export renders topic notes as a downloadable study document.
package export

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/dgallion1/slidenotes/internal/slides"
)

// Format names accepted by Render.
const (
	FormatMarkdown = "md"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

type labels struct {
	toc, notes, untitled, section, content, snippets, references, docTitle string
}

var labelSets = map[string]labels{
	"zh": {
		toc: "目录", notes: "笔记内容", untitled: "未命名", section: "章节：",
		content: "内容", snippets: "检索片段", references: "参考", docTitle: "学习笔记",
	},
	"en": {
		toc: "Contents", notes: "Notes", untitled: "Untitled", section: "Section: ",
		content: "Content", snippets: "Search snippets", references: "References", docTitle: "Study notes",
	},
}

func labelsFor(locale string) labels {
	if l, ok := labelSets[locale]; ok {
		return l
	}
	return labelSets["zh"]
}

// tocExcluded titles are template filler and stay out of the contents list.
var tocExcluded = []string{"目录", "目录页", "知识块", "标题"}

var (
	bulletPrefix = regexp.MustCompile(`^\s*[-•]\s*`)
	numberPrefix = regexp.MustCompile(`^\s*\d+[.)]\s*`)
	dashPrefix   = regexp.MustCompile(`^\s*--\s*`)
)

// CleanLine strips list bullets, numbering and "--" separators so a line
// renders as plain text.
func CleanLine(line string) string {
	line = dashPrefix.ReplaceAllString(line, "")
	line = bulletPrefix.ReplaceAllString(line, "")
	line = numberPrefix.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

func inContents(title string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, m := range tocExcluded {
		if strings.Contains(lower, m) {
			return false
		}
	}
	return true
}

// Markdown renders the notes as one Markdown document: a contents list, then
// each topic with its section, content, expansions, references and search
// snippets. Lines inside fenced code blocks are kept verbatim.
func Markdown(notes []slides.TopicNote, locale string) string {
	l := labelsFor(locale)
	var parts []string

	if len(notes) > 0 {
		parts = append(parts, "## "+l.toc)
		for _, n := range notes {
			if inContents(n.Title) {
				parts = append(parts, "- "+n.Title)
			}
		}
		parts = append(parts, "")
	}
	parts = append(parts, "## "+l.notes)

	for _, n := range notes {
		title := n.Title
		if title == "" {
			title = l.untitled
		}
		parts = append(parts, "## "+title)
		if s := n.SectionName(); s != "" {
			parts = append(parts, "> "+l.section+s)
		}
		parts = append(parts, "", "#### "+l.content, CleanLine(n.Enrichment.Summary))

		inCode := false
		for _, line := range n.Enrichment.Expansions {
			if strings.HasPrefix(line, "```") {
				parts = append(parts, line)
				inCode = !inCode
				continue
			}
			if inCode {
				parts = append(parts, line)
				continue
			}
			if c := CleanLine(line); c != "" {
				parts = append(parts, c)
			}
		}
		if inCode {
			parts = append(parts, "```")
		}
		parts = append(parts, "")

		parts = appendList(parts, "### "+l.references, n.Enrichment.References)
		parts = appendList(parts, "### "+l.snippets, n.Enrichment.SearchSnippets)
	}
	return strings.Join(parts, "\n")
}

func appendList(parts []string, heading string, lines []string) []string {
	var cleaned []string
	for _, line := range lines {
		if c := CleanLine(line); c != "" {
			cleaned = append(cleaned, "- "+c)
		}
	}
	if len(cleaned) == 0 {
		return parts
	}
	parts = append(parts, heading)
	parts = append(parts, cleaned...)
	return append(parts, "")
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
)

// HTML renders the Markdown document as a standalone HTML page. Raw HTML in
// the notes is not passed through.
func HTML(notes []slides.TopicNote, locale string) (string, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(Markdown(notes, locale)), &body); err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}
	l := labelsFor(locale)
	lang := "zh"
	if locale == "en" {
		lang = "en"
	}
	var page strings.Builder
	fmt.Fprintf(&page, "<!DOCTYPE html>\n<html lang=%q>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n",
		lang, html.EscapeString(l.docTitle))
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.String(), nil
}

// ContentType is the MIME type for a format.
func ContentType(format string) string {
	switch format {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "application/json"
	}
}

// ValidFormat reports whether format names a supported rendering.
func ValidFormat(format string) bool {
	return format == FormatMarkdown || format == FormatHTML || format == FormatJSON
}
