// Package retrieve gathers the context an enrichment prompt is built from:
// external search snippets and nearest-neighbour slides from the run's index.
package retrieve

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dgallion1/slidenotes/internal/embedding"
	"github.com/dgallion1/slidenotes/internal/search"
	"github.com/dgallion1/slidenotes/internal/slides"
	"github.com/dgallion1/slidenotes/internal/vectorindex"
)

const (
	DefaultTopK        = 4
	DefaultSearchLimit = 2
)

// Context is what the enrichment prompt cites.
type Context struct {
	Snippets   []string // External search results, searcher order
	References []string // Neighbour slide citations, best first
}

// Retriever is shared read-only across a run's enrichment tasks.
type Retriever struct {
	Searchers   []search.Searcher
	SearchLimit int
	Embedder    embedding.Embedder
	Index       vectorindex.Index // nil when the deck produced no vectors
	Corpus      []slides.Record   // Index position i is Corpus[i]
	TopK        int
	Locale      string
	Log         *slog.Logger
}

// Retrieve never fails: each source degrades to an empty list on its own.
func (r *Retriever) Retrieve(ctx context.Context, topic slides.Topic) Context {
	log := r.Log
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	log = log.With("topic", topic.Title)

	out := Context{Snippets: []string{}, References: []string{}}

	if title := strings.TrimSpace(topic.Title); title != "" && len(r.Searchers) > 0 {
		limit := r.SearchLimit
		if limit <= 0 {
			limit = DefaultSearchLimit
		}
		snippets, degraded := search.Multi(ctx, r.Searchers, title, limit)
		for name, reason := range degraded {
			log.Warn("search degraded", "searcher", name, "reason", reason)
		}
		out.Snippets = snippets
	}

	refs, err := r.references(ctx, topic.RawText())
	if err != nil {
		log.Warn("neighbour retrieval degraded", "error", err)
	} else {
		out.References = refs
	}
	return out
}

func (r *Retriever) references(ctx context.Context, text string) ([]string, error) {
	if r.Index == nil || r.Embedder == nil || r.Index.Len() == 0 {
		return []string{}, nil
	}
	k := r.TopK
	if k <= 0 {
		k = DefaultTopK
	}
	query, err := embedding.EmbedOne(ctx, r.Embedder, text)
	if err != nil {
		return nil, fmt.Errorf("embed topic: %w", err)
	}
	hits, err := r.Index.Search(ctx, query, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	refs := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Position < 0 || h.Position >= len(r.Corpus) {
			continue
		}
		refs = append(refs, Cite(r.Locale, r.Corpus[h.Position], h.Score))
	}
	return refs, nil
}

// Cite formats a neighbour slide reference.
func Cite(locale string, rec slides.Record, score float64) string {
	if locale == "en" {
		return fmt.Sprintf("Slide %d (%.2f): %s", rec.Number, score, rec.RawText)
	}
	return fmt.Sprintf("相关页%d(%.2f): %s", rec.Number, score, rec.RawText)
}
