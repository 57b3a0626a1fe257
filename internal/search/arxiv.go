package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/slidenotes/internal/failsoft"
)

const arxivSummaryRunes = 160

// Arxiv queries the arXiv Atom API.
type Arxiv struct {
	endpoint   string
	httpClient *http.Client
}

func NewArxiv(endpoint string, timeout time.Duration) *Arxiv {
	return &Arxiv{endpoint: endpoint, httpClient: newHTTPClient(timeout)}
}

func (a *Arxiv) Name() string { return "arxiv" }

type atomFeed struct {
	Entries []struct {
		Title   string `xml:"title"`
		ID      string `xml:"id"`
		Summary string `xml:"summary"`
		Links   []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
			Type string `xml:"type,attr"`
		} `xml:"link"`
	} `xml:"entry"`
}

// Search returns "title | link | summary..." lines with the summary cut to
// 160 characters.
func (a *Arxiv) Search(ctx context.Context, query string, limit int) failsoft.Result[[]string] {
	empty := []string{}
	if query == "" || limit <= 0 {
		return failsoft.OK(empty)
	}
	u := a.endpoint + "?search_query=all:" + url.QueryEscape(query) +
		"&start=0&max_results=" + strconv.Itoa(limit)
	body, err := get(ctx, a.httpClient, u)
	if err != nil {
		return failsoft.Degrade(empty, fmt.Sprintf("arxiv: %v", err))
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return failsoft.Degrade(empty, fmt.Sprintf("arxiv: decode feed: %v", err))
	}
	out := make([]string, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		if len(out) == limit {
			break
		}
		link := e.ID
		for _, l := range e.Links {
			if l.Rel == "alternate" || (l.Rel == "" && l.Type == "text/html") {
				link = l.Href
				break
			}
		}
		title := strings.Join(strings.Fields(e.Title), " ")
		summary := strings.ReplaceAll(strings.TrimSpace(e.Summary), "\n", " ")
		out = append(out, fmt.Sprintf("%s | %s | %s...", title, link, truncateRunes(summary, arxivSummaryRunes)))
	}
	return failsoft.OK(out)
}
