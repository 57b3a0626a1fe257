package parser

import (
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/dgallion1/slidenotes/internal/slides"
	pdflib "github.com/ledongthuc/pdf"
)

// PDFParser handles decks exported to PDF, one page per slide. The first
// non-blank line of a page is its title. It tries the Go library first, then
// falls back to pdftotext if enabled.
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename string) (*slides.Deck, error) {
	// ledongthuc/pdf requires a ReaderAt+size, so we write to a temp file.
	tmp, size, cleanup, err := spool(r, "slidenotes-pdf-*.pdf")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	pages, err := extractPDFPages(tmp, size)
	if err != nil && p.FallbackPdftotext {
		pages, err = extractPdftotext(tmp.Name())
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	records := make([]slides.Record, 0, len(pages))
	for _, page := range pages {
		title, bullets := splitPage(page)
		records = append(records, slides.NewRecord(0, title, bullets, "", 0))
	}
	return finish(filename, records)
}

func extractPDFPages(r io.ReaderAt, size int64) ([]string, error) {
	reader, err := pdflib.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			// Keep the slot so ordinals stay aligned with page numbers.
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func extractPdftotext(path string) ([]string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w", err)
	}
	// Form feed separates pages; the last one is trailing.
	pages := strings.Split(string(out), "\f")
	if n := len(pages); n > 1 && strings.TrimSpace(pages[n-1]) == "" {
		pages = pages[:n-1]
	}
	return pages, nil
}

// splitPage returns the first non-blank line as the title and the remaining
// non-blank lines as body.
func splitPage(text string) (string, []string) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return "", nil
	}
	return lines[0], lines[1:]
}
