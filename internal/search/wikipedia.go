package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dgallion1/slidenotes/internal/failsoft"
)

// Wikipedia queries a MediaWiki search API.
type Wikipedia struct {
	name       string
	endpoint   string
	httpClient *http.Client
}

// NewWikipedia returns a searcher for the MediaWiki API at endpoint,
// e.g. DefaultWikipediaEN.
func NewWikipedia(name, endpoint string, timeout time.Duration) *Wikipedia {
	return &Wikipedia{name: name, endpoint: endpoint, httpClient: newHTTPClient(timeout)}
}

func (w *Wikipedia) Name() string { return w.name }

type wikiResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
}

// Search returns "title: snippet" lines.
func (w *Wikipedia) Search(ctx context.Context, query string, limit int) failsoft.Result[[]string] {
	empty := []string{}
	if query == "" || limit <= 0 {
		return failsoft.OK(empty)
	}
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"format":   {"json"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(limit)},
	}
	body, err := get(ctx, w.httpClient, w.endpoint+"?"+params.Encode())
	if err != nil {
		return failsoft.Degrade(empty, fmt.Sprintf("%s: %v", w.name, err))
	}

	var resp wikiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return failsoft.Degrade(empty, fmt.Sprintf("%s: decode response: %v", w.name, err))
	}
	out := make([]string, 0, len(resp.Query.Search))
	for _, item := range resp.Query.Search {
		if len(out) == limit {
			break
		}
		out = append(out, fmt.Sprintf("%s: %s", item.Title, stripTags(item.Snippet)))
	}
	return failsoft.OK(out)
}
