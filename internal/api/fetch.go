package api

import (
	"bytes"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/slidenotes/internal/parser"
)

const sniffLen = 512

// download fetches a deck by URL into dir. HTML pages, empty bodies and
// failed requests are input errors.
func (s *Server) download(r *http.Request, dir, rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", badRequest("invalid url: %q", rawURL)
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, u.String(), nil)
	if err != nil {
		return "", badRequest("invalid url: %s", err)
	}
	resp, err := s.fetch.Do(req)
	if err != nil {
		return "", badRequest("download url failed: %s", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", badRequest("download url failed: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return "", badRequest("download url failed: %s", err)
	}
	if len(body) == 0 {
		return "", badRequest("url returned an empty file")
	}
	if looksLikeHTML(body) {
		return "", badRequest("url did not return a slide deck (got HTML)")
	}

	suffix := guessSuffix(u.Path, resp.Header.Get("Content-Type"))
	stem := strings.TrimSuffix(path.Base(u.Path), path.Ext(u.Path))
	if stem == "" || stem == "." || stem == "/" {
		stem = "download"
	}
	s.log.Debug("downloaded deck", "url", u.Redacted(), "bytes", len(body), "suffix", suffix)
	return s.writeInput(dir, sanitizeFilename(stem+suffix), bytes.NewReader(body))
}

// guessSuffix picks a file extension from the URL path, then the response
// Content-Type, defaulting to .pptx.
func guessSuffix(urlPath, contentType string) string {
	ext := strings.ToLower(path.Ext(urlPath))
	if parser.IsSupportedExtension(ext) || ext == ".ppt" {
		return ext
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "presentationml") || strings.Contains(ct, "pptx"):
		return ".pptx"
	case strings.Contains(ct, "ms-powerpoint") || strings.Contains(ct, "ppt"):
		return ".ppt"
	case strings.Contains(ct, "pdf"):
		return ".pdf"
	case strings.Contains(ct, "wordprocessingml"):
		return ".docx"
	case strings.Contains(ct, "markdown"):
		return ".md"
	case strings.Contains(ct, "text/plain"):
		return ".txt"
	default:
		return ".pptx"
	}
}

// looksLikeHTML reports whether body opens with an HTML doctype or root tag,
// ignoring leading whitespace and comments.
func looksLikeHTML(body []byte) bool {
	z := html.NewTokenizer(bytes.NewReader(body[:min(len(body), sniffLen)]))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.DoctypeToken:
			return true
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "html", "head", "body":
				return true
			}
			return false
		case html.TextToken:
			if len(bytes.TrimSpace(z.Text())) > 0 {
				return false
			}
		}
	}
}
