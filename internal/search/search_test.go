package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/slidenotes/internal/failsoft"
)

func TestWikipedia_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("action") != "query" || q.Get("list") != "search" || q.Get("format") != "json" {
			t.Errorf("unexpected params %v", q)
		}
		if q.Get("srsearch") != "Linear Regression" || q.Get("srlimit") != "2" {
			t.Errorf("unexpected search params %v", q)
		}
		w.Write([]byte(`{"query":{"search":[
			{"title":"Linear regression","snippet":"In statistics, <span class=\"searchmatch\">linear</span> regression &amp; more"},
			{"title":"Ordinary least squares","snippet":"<span class=\"searchmatch\">OLS</span> estimator"},
			{"title":"Extra","snippet":"beyond limit"}
		]}}`))
	}))
	defer srv.Close()

	w := NewWikipedia("wikipedia-en", srv.URL, time.Second)
	res := w.Search(context.Background(), "Linear Regression", 2)
	if res.Degraded() {
		t.Fatalf("unexpected degradation: %s", res.Reason)
	}
	want := []string{
		"Linear regression: In statistics, linear regression & more",
		"Ordinary least squares: OLS estimator",
	}
	if strings.Join(res.Value, "\n") != strings.Join(want, "\n") {
		t.Errorf("expected %q, got %q", want, res.Value)
	}
}

func TestWikipedia_FailsSoft(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("<html>")) }},
		{"rate limited", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			res := NewWikipedia("wikipedia-zh", srv.URL, time.Second).Search(context.Background(), "梯度下降", 2)
			if !res.Degraded() {
				t.Error("expected degraded result")
			}
			if res.Value == nil || len(res.Value) != 0 {
				t.Errorf("expected empty non-nil fallback, got %#v", res.Value)
			}
		})
	}
}

func TestSearch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	res := NewArxiv(srv.URL, 50*time.Millisecond).Search(context.Background(), "sgd", 2)
	if !res.Degraded() {
		t.Error("expected timeout to degrade")
	}
}

func TestArxiv_Search(t *testing.T) {
	long := strings.Repeat("a", 200)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_query"); got != "all:gradient descent" {
			t.Errorf("unexpected search_query %q", got)
		}
		if r.URL.Query().Get("max_results") != "2" || r.URL.Query().Get("start") != "0" {
			t.Errorf("unexpected paging %v", r.URL.Query())
		}
		w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/1609.04747v2</id>
    <title>An overview of gradient descent
      optimization algorithms</title>
    <summary>Gradient descent optimization
algorithms are popular.</summary>
    <link href="http://arxiv.org/abs/1609.04747v2" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/1609.04747v2" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2</id>
    <title>Second</title>
    <summary>` + long + `</summary>
  </entry>
</feed>`))
	}))
	defer srv.Close()

	res := NewArxiv(srv.URL, time.Second).Search(context.Background(), "gradient descent", 2)
	if res.Degraded() {
		t.Fatalf("unexpected degradation: %s", res.Reason)
	}
	if len(res.Value) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Value))
	}
	want := "An overview of gradient descent optimization algorithms | http://arxiv.org/abs/1609.04747v2 | Gradient descent optimization algorithms are popular...."
	if res.Value[0] != want {
		t.Errorf("expected %q, got %q", want, res.Value[0])
	}
	if want := "Second | http://arxiv.org/abs/2 | " + strings.Repeat("a", 160) + "..."; res.Value[1] != want {
		t.Errorf("expected summary cut at 160, got %q", res.Value[1])
	}
}

type fakeSearcher struct {
	name string
	res  failsoft.Result[[]string]
}

func (f fakeSearcher) Name() string { return f.name }
func (f fakeSearcher) Search(context.Context, string, int) failsoft.Result[[]string] {
	return f.res
}

func TestMulti_ConcatenatesInOrder(t *testing.T) {
	searchers := []Searcher{
		fakeSearcher{"en", failsoft.OK([]string{"en1", "en2"})},
		fakeSearcher{"zh", failsoft.Degrade([]string{}, "timeout")},
		fakeSearcher{"arxiv", failsoft.OK([]string{"ax1"})},
	}
	got, degraded := Multi(context.Background(), searchers, "q", 2)
	if strings.Join(got, ",") != "en1,en2,ax1" {
		t.Errorf("expected en then arxiv results, got %v", got)
	}
	if degraded["zh"] != "timeout" || len(degraded) != 1 {
		t.Errorf("expected zh degraded, got %v", degraded)
	}
}

func TestStripTags(t *testing.T) {
	if got := stripTags(`a <span class="searchmatch">b</span> &quot;c&quot;`); got != `a b "c"` {
		t.Errorf("unexpected %q", got)
	}
}
