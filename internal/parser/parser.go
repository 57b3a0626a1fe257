package parser

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/slidenotes/internal/slides"
)

// ErrUnsupported is returned for files no parser handles.
var ErrUnsupported = errors.New("unsupported file extension")

// Parser converts raw deck bytes into ordered slide records.
type Parser interface {
	Parse(r io.Reader, filename string) (*slides.Deck, error)
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".pptx":     true,
	".pdf":      true,
	".docx":     true,
	".md":       true,
	".markdown": true,
	".txt":      true,
}

// Options tune the parsers picked by ForFile.
type Options struct {
	PdftotextFallback bool // Shell out to pdftotext when the Go PDF reader fails
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string) (Parser, error) {
	return Options{}.ForFile(filename)
}

func (o Options) ForFile(filename string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pptx":
		return &PPTXParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: o.PdftotextFallback}, nil
	case ".docx":
		return &DOCXParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".txt":
		return &TextParser{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, ext)
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

// ParseFile opens path and parses it with the parser matching its extension.
func ParseFile(path string) (*slides.Deck, error) {
	return Options{}.ParseFile(path)
}

func (o Options) ParseFile(path string) (*slides.Deck, error) {
	p, err := o.ForFile(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open deck: %w", err)
	}
	defer f.Close()

	deck, err := p.Parse(f, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return deck, nil
}

// finish numbers records in deck order, backfills sections and checks the
// ordinal invariant. Every parser returns through it.
func finish(filename string, records []slides.Record) (*slides.Deck, error) {
	for i := range records {
		records[i].Number = i + 1
	}
	slides.Backfill(records)
	if err := slides.ValidateOrdinals(records); err != nil {
		return nil, err
	}
	return &slides.Deck{Title: stem(filename), Records: records}, nil
}

func stem(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// spool copies r into a temp file for libraries that need random access.
// The caller must call the returned cleanup.
func spool(r io.Reader, pattern string) (*os.File, int64, func(), error) {
	tmp, err := os.CreateTemp("", pattern)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}
	size, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, 0, nil, fmt.Errorf("seek temp file: %w", err)
	}
	return tmp, size, cleanup, nil
}
