// Package pipeline runs a deck end to end: parse, embed, deduplicate,
// cluster, enrich every topic concurrently and cache the notes.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/slidenotes/internal/cluster"
	"github.com/dgallion1/slidenotes/internal/dedup"
	"github.com/dgallion1/slidenotes/internal/embedding"
	"github.com/dgallion1/slidenotes/internal/enrich"
	"github.com/dgallion1/slidenotes/internal/notecache"
	"github.com/dgallion1/slidenotes/internal/parser"
	"github.com/dgallion1/slidenotes/internal/retrieve"
	"github.com/dgallion1/slidenotes/internal/search"
	"github.com/dgallion1/slidenotes/internal/slides"
	"github.com/dgallion1/slidenotes/internal/vectorindex"
)

// ErrParse marks a deck that could not be read, which is a caller input error.
var ErrParse = errors.New("parse deck")

// Options tune a run.
type Options struct {
	Workers        int
	DedupThreshold float64
	Noise          cluster.NoiseOptions
	TopK           int
	SearchLimit    int
	Locale         string
}

// Deps are the collaborators a Pipeline calls. Only Completer is required.
type Deps struct {
	Parse     func(path string) (*slides.Deck, error) // Defaults to parser.ParseFile
	Embedder  *embedding.Lazy                         // nil disables dedup and neighbour references
	Store     *vectorindex.Store                      // nil keeps each run's index in memory
	Searchers []search.Searcher
	Completer enrich.Completer
	Cache     *notecache.Cache // nil disables caching
}

// Pipeline is safe for concurrent use. Concurrent runs of the same unchanged
// file share one execution.
type Pipeline struct {
	deps   Deps
	opts   Options
	log    *slog.Logger
	flight singleflight.Group
}

func New(deps Deps, opts Options, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Parse == nil {
		deps.Parse = parser.ParseFile
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.DedupThreshold <= 0 {
		opts.DedupThreshold = dedup.DefaultThreshold
	}
	if opts.TopK <= 0 {
		opts.TopK = retrieve.DefaultTopK
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = retrieve.DefaultSearchLimit
	}
	if opts.Locale == "" {
		opts.Locale = enrich.LocaleZH
	}
	return &Pipeline{deps: deps, opts: opts, log: log}
}

// Cache returns the document cache, or nil.
func (p *Pipeline) Cache() *notecache.Cache { return p.deps.Cache }

// Run processes the deck at path. Collaborator failures degrade the notes;
// only parse, consistency and index errors fail the run.
func (p *Pipeline) Run(ctx context.Context, path string) (slides.ProcessResponse, error) {
	key, err := notecache.KeyFor(path)
	if err != nil {
		return slides.ProcessResponse{}, err
	}
	// The shared run outlives any single caller; a caller that goes away only
	// stops waiting.
	runCtx := context.WithoutCancel(ctx)
	ch := p.flight.DoChan(key, func() (any, error) {
		return p.run(runCtx, path, key)
	})
	select {
	case <-ctx.Done():
		return slides.ProcessResponse{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return slides.ProcessResponse{}, res.Err
		}
		if res.Shared {
			p.log.Debug("joined in-flight run", "document_id", key)
		}
		return res.Val.(slides.ProcessResponse), nil
	}
}

func (p *Pipeline) run(ctx context.Context, path, key string) (slides.ProcessResponse, error) {
	log := p.log.With("run_id", uuid.NewString(), "document_id", key)
	start := time.Now()

	if p.deps.Cache != nil {
		if notes, ok := p.deps.Cache.LoadKey(key); ok {
			log.Info("served from cache", "topics", len(notes))
			return slides.NewProcessResponse(key, notes), nil
		}
	}

	deck, err := p.deps.Parse(path)
	if err != nil {
		return slides.ProcessResponse{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	records := deck.Records
	log.Info("parsed deck", "title", deck.Title, "slides", len(records))

	emb, vectors, err := p.embed(ctx, log, records)
	if err != nil {
		return slides.ProcessResponse{}, err
	}
	index, err := p.index(ctx, key, vectors)
	if err != nil {
		return slides.ProcessResponse{}, err
	}

	kept := dedup.KeepRecords(len(records), vectors, p.opts.DedupThreshold)
	filtered := cluster.Filter(records, kept, p.opts.Noise)
	topics := cluster.Group(filtered)
	log.Info("clustered slides", "kept", len(kept), "filtered", len(filtered), "topics", len(topics))

	retriever := &retrieve.Retriever{
		Searchers:   p.deps.Searchers,
		SearchLimit: p.opts.SearchLimit,
		Embedder:    emb,
		Index:       index,
		Corpus:      records,
		TopK:        p.opts.TopK,
		Locale:      p.opts.Locale,
		Log:         log,
	}
	engine := enrich.NewEngine(p.deps.Completer, retriever, p.opts.Locale, log)
	notes := FanOut(ctx, p.opts.Workers, topics, engine.Enrich)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].MinNumber() < notes[j].MinNumber() })

	if p.deps.Cache != nil {
		if err := p.deps.Cache.StoreKey(key, notes); err != nil {
			log.Warn("cache write failed", "error", err)
		}
	}

	log.Info("run complete", "topics", len(notes), "duration_ms", time.Since(start).Milliseconds())
	return slides.NewProcessResponse(key, notes), nil
}

// embed returns one vector per record. An unreachable embedder degrades the
// run to no vectors; inconsistent dimensions are fatal.
func (p *Pipeline) embed(ctx context.Context, log *slog.Logger, records []slides.Record) (embedding.Embedder, [][]float32, error) {
	if p.deps.Embedder == nil || len(records) == 0 {
		return nil, nil, nil
	}
	emb, err := p.deps.Embedder.Get()
	if err != nil {
		log.Warn("embedder unavailable, skipping dedup and neighbour references", "error", err)
		return nil, nil, nil
	}

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = embedText(rec)
	}
	vectors, err := emb.Embed(ctx, texts)
	if err != nil {
		if errors.Is(err, embedding.ErrInconsistentDimension) {
			return nil, nil, fmt.Errorf("embed slides: %w", err)
		}
		log.Warn("embedding failed, skipping dedup and neighbour references", "embedder", emb.Name(), "error", err)
		return nil, nil, nil
	}
	if len(vectors) != len(records) {
		return nil, nil, fmt.Errorf("embed slides: %w: got %d vectors for %d slides",
			embedding.ErrInconsistentDimension, len(vectors), len(records))
	}
	return emb, vectors, nil
}

// embedText is the slide body, or its title when the body is blank.
func embedText(rec slides.Record) string {
	if t := strings.TrimSpace(rec.RawText); t != "" {
		return rec.RawText
	}
	return rec.Title
}

// index builds the neighbour index for this document. A persisted collection
// holding exactly this deck's slide count is reused as is.
func (p *Pipeline) index(ctx context.Context, key string, vectors [][]float32) (vectorindex.Index, error) {
	if len(vectors) == 0 {
		return nil, nil
	}
	dim := len(vectors[0])

	if p.deps.Store == nil {
		flat := vectorindex.NewFlat(dim)
		if err := flat.Add(ctx, vectors); err != nil {
			return nil, fmt.Errorf("build index: %w", err)
		}
		return flat, nil
	}

	col, err := p.deps.Store.Collection(ctx, key, dim)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	if col.Len() == len(vectors) {
		return col, nil
	}
	if col.Len() > 0 {
		if err := col.Reset(ctx); err != nil {
			return nil, fmt.Errorf("reset index: %w", err)
		}
	}
	if err := col.Add(ctx, vectors); err != nil {
		return nil, fmt.Errorf("build index: %w", err)
	}
	return col, nil
}
