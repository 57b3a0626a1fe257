package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dgallion1/slidenotes/internal/export"
	"github.com/dgallion1/slidenotes/internal/slides"
)

const formatTable = "table"

const summaryWidth = 60

// writeNotes renders resp in format to w.
func writeNotes(w io.Writer, format, locale string, resp slides.ProcessResponse) error {
	switch format {
	case export.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(resp)
	case export.FormatMarkdown:
		_, err := io.WriteString(w, export.Markdown(resp.Topics, locale))
		return err
	case export.FormatHTML:
		page, err := export.HTML(resp.Topics, locale)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, page)
		return err
	case formatTable:
		_, err := fmt.Fprintln(w, topicTable(resp.Topics))
		return err
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func topicTable(notes []slides.TopicNote) string {
	rows := make([][]string, 0, len(notes))
	for _, n := range notes {
		numbers := make([]string, len(n.SlideNumbers))
		for i, s := range n.SlideNumbers {
			numbers[i] = strconv.Itoa(s)
		}
		rows = append(rows, []string{
			strings.Join(numbers, ","),
			n.Title,
			n.SectionName(),
			truncate(firstLine(n.Enrichment.Summary), summaryWidth),
			strconv.Itoa(len(n.Enrichment.References)),
		})
	}
	return renderTable(
		[]string{"Slides", "Title", "Section", "Summary", "Refs"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// openOutput returns stdout when path is empty, otherwise a created file.
func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}
