package retrieve

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dgallion1/slidenotes/internal/failsoft"
	"github.com/dgallion1/slidenotes/internal/search"
	"github.com/dgallion1/slidenotes/internal/slides"
	"github.com/dgallion1/slidenotes/internal/vectorindex"
)

type stubSearcher struct {
	name  string
	res   failsoft.Result[[]string]
	calls int
	query string
}

func (s *stubSearcher) Name() string { return s.name }
func (s *stubSearcher) Search(_ context.Context, q string, limit int) failsoft.Result[[]string] {
	s.calls++
	s.query = q
	return s.res
}

// axisEmbedder maps a text to a fixed vector by lookup.
type axisEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (e *axisEmbedder) Name() string { return "axis" }
func (e *axisEmbedder) Dimension() int { return 2 }
func (e *axisEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vectors[t]
	}
	return out, nil
}

func corpus() []slides.Record {
	return []slides.Record{
		{Number: 1, RawText: "alpha"},
		{Number: 2, RawText: "beta"},
		{Number: 3, RawText: "alpha prime"},
	}
}

func buildIndex(t *testing.T) *vectorindex.Flat {
	t.Helper()
	idx := vectorindex.NewFlat(2)
	if err := idx.Add(context.Background(), [][]float32{{1, 0}, {0, 1}, {0.8, 0.6}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	return idx
}

func TestRetrieve_SnippetsAndReferences(t *testing.T) {
	en := &stubSearcher{name: "en", res: failsoft.OK([]string{"en"})}
	zh := &stubSearcher{name: "zh", res: failsoft.Degrade([]string{}, "down")}
	ax := &stubSearcher{name: "arxiv", res: failsoft.OK([]string{"ax"})}
	r := &Retriever{
		Searchers: []search.Searcher{en, zh, ax},
		Embedder:  &axisEmbedder{vectors: map[string][]float32{"alpha": {1, 0}}},
		Index:     buildIndex(t),
		Corpus:    corpus(),
		TopK:      2,
	}
	topic := slides.Topic{Title: " Alpha ", Members: []slides.Record{{Number: 1, RawText: "alpha"}}}
	got := r.Retrieve(context.Background(), topic)

	if strings.Join(got.Snippets, ",") != "en,ax" {
		t.Errorf("expected degraded searcher skipped, got %v", got.Snippets)
	}
	if en.query != "Alpha" {
		t.Errorf("expected trimmed title as query, got %q", en.query)
	}
	want := []string{"相关页1(1.00): alpha", "相关页3(0.80): alpha prime"}
	if strings.Join(got.References, "|") != strings.Join(want, "|") {
		t.Errorf("expected %v, got %v", want, got.References)
	}
}

func TestRetrieve_NoTitleSkipsSearch(t *testing.T) {
	en := &stubSearcher{name: "en", res: failsoft.OK([]string{"en"})}
	r := &Retriever{Searchers: []search.Searcher{en}}
	got := r.Retrieve(context.Background(), slides.Topic{Members: []slides.Record{{RawText: "x"}}})
	if en.calls != 0 {
		t.Errorf("expected no search without a title, got %d calls", en.calls)
	}
	if got.Snippets == nil || got.References == nil || len(got.Snippets)+len(got.References) != 0 {
		t.Errorf("expected empty non-nil lists, got %#v", got)
	}
}

func TestRetrieve_SkipsOutOfRangeAndDegradesOnEmbedError(t *testing.T) {
	r := &Retriever{
		Embedder: &axisEmbedder{vectors: map[string][]float32{"alpha": {1, 0}}},
		Index:    buildIndex(t),
		Corpus:   corpus()[:1],
		Locale:   "en",
	}
	got := r.Retrieve(context.Background(), slides.Topic{Members: []slides.Record{{RawText: "alpha"}}})
	if len(got.References) != 1 || got.References[0] != "Slide 1 (1.00): alpha" {
		t.Errorf("expected only in-range neighbour, got %v", got.References)
	}

	r.Embedder = &axisEmbedder{err: errors.New("model offline")}
	got = r.Retrieve(context.Background(), slides.Topic{Members: []slides.Record{{RawText: "alpha"}}})
	if got.References == nil || len(got.References) != 0 {
		t.Errorf("expected empty references on embed failure, got %#v", got.References)
	}
}

func TestRetrieve_NoIndex(t *testing.T) {
	r := &Retriever{Embedder: &axisEmbedder{}}
	got := r.Retrieve(context.Background(), slides.Topic{Members: []slides.Record{{RawText: "alpha"}}})
	if len(got.References) != 0 {
		t.Errorf("expected no references without an index, got %v", got.References)
	}
}
