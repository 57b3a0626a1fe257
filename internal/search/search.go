// Package search queries public reference sources for snippets keyed by a
// topic title. Every searcher fails soft: errors degrade to an empty list.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/dgallion1/slidenotes/internal/failsoft"
	"github.com/dgallion1/slidenotes/internal/retry"
)

const (
	DefaultWikipediaEN = "https://en.wikipedia.org/w/api.php"
	DefaultWikipediaZH = "https://zh.wikipedia.org/w/api.php"
	DefaultArxiv       = "http://export.arxiv.org/api/query"
	DefaultTimeout     = 10 * time.Second
	userAgent          = "slidenotes/1.0 (study-notes generator)"
	maxBody            = 4 << 20
)

// Searcher returns up to limit snippets for query.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string, limit int) failsoft.Result[[]string]
}

func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, retry.Truncate(string(body), 200))
	}
	return body, nil
}

// stripTags returns the text content of an HTML fragment with entities
// decoded, e.g. Wikipedia's searchmatch spans.
func stripTags(fragment string) string {
	z := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.TrimSpace(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Multi runs searchers in order and concatenates their results. Degraded
// searchers contribute nothing; their reasons are returned keyed by name.
func Multi(ctx context.Context, searchers []Searcher, query string, limit int) ([]string, map[string]string) {
	out := []string{}
	var degraded map[string]string
	for _, s := range searchers {
		res := s.Search(ctx, query, limit)
		if res.Degraded() {
			if degraded == nil {
				degraded = make(map[string]string)
			}
			degraded[s.Name()] = res.Reason
			continue
		}
		out = append(out, res.Value...)
	}
	return out, degraded
}
