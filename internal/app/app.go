// Package app wires a configuration into a ready pipeline for the server and
// the command line tool.
package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/slidenotes/internal/cluster"
	"github.com/dgallion1/slidenotes/internal/config"
	"github.com/dgallion1/slidenotes/internal/embedding"
	"github.com/dgallion1/slidenotes/internal/enrich"
	"github.com/dgallion1/slidenotes/internal/notecache"
	"github.com/dgallion1/slidenotes/internal/parser"
	"github.com/dgallion1/slidenotes/internal/pipeline"
	"github.com/dgallion1/slidenotes/internal/search"
	"github.com/dgallion1/slidenotes/internal/vectorindex"
)

// App holds the long-lived collaborators of a process.
type App struct {
	Pipeline *pipeline.Pipeline
	Cache    *notecache.Cache
	Stats    *enrich.LLMStats

	mu      sync.Mutex
	closers []func()
}

// New builds the pipeline and its clients from cfg.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{
		Cache: notecache.New(cfg.CacheDir, log),
		Stats: enrich.NewLLMStats(0),
	}

	store, err := vectorindex.Open(cfg.IndexPath)
	if err != nil {
		return nil, fmt.Errorf("open vector index: %w", err)
	}
	a.onClose(func() { store.Close() })

	chat := enrich.NewChatClient(enrich.ChatConfig{
		URL:         cfg.LLMBaseURL,
		APIKey:      cfg.OpenAIAPIKey,
		Model:       cfg.ModelName,
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
		Locale:      cfg.Locale,
	}, a.Stats, log)
	a.onClose(chat.Close)

	var searchers []search.Searcher
	if cfg.SearchEnabled {
		searchers = []search.Searcher{
			search.NewWikipedia("wikipedia-en", cfg.WikipediaENURL, cfg.SearchTimeout),
			search.NewWikipedia("wikipedia-zh", cfg.WikipediaZHURL, cfg.SearchTimeout),
			search.NewArxiv(cfg.ArxivURL, cfg.SearchTimeout),
		}
	}

	a.Pipeline = pipeline.New(pipeline.Deps{
		Parse:     parser.Options{PdftotextFallback: cfg.PDFFallbackPdftotext}.ParseFile,
		Embedder:  a.embedder(cfg, log),
		Store:     store,
		Searchers: searchers,
		Completer: chat,
		Cache:     a.Cache,
	}, pipeline.Options{
		Workers:        cfg.WorkerCount,
		DedupThreshold: cfg.DedupThreshold,
		Noise:          cluster.NoiseOptions{MinBodyChars: cfg.MinBodyChars},
		TopK:           cfg.TopK,
		SearchLimit:    cfg.SearchLimit,
		Locale:         cfg.Locale,
	}, log)
	return a, nil
}

// embedder defers client construction to the first run. Without an
// embeddings endpoint the offline hashing embedder is used.
func (a *App) embedder(cfg config.Config, log *slog.Logger) *embedding.Lazy {
	return embedding.NewLazy(func() (embedding.Embedder, error) {
		if cfg.EmbeddingBaseURL == "" {
			log.Info("using offline hashing embedder", "dim", cfg.EmbeddingDim)
			return embedding.NewHashEmbedder(cfg.EmbeddingDim), nil
		}
		client := embedding.NewOpenAIClient(embedding.OpenAIConfig{
			BaseURL: cfg.EmbeddingBaseURL,
			APIKey:  cfg.EmbeddingAPIKey,
			Model:   cfg.EmbeddingModel,
			Timeout: cfg.EmbeddingTimeout,
		}, log)
		a.onClose(client.Close)
		return client, nil
	})
}

func (a *App) onClose(fn func()) {
	a.mu.Lock()
	a.closers = append(a.closers, fn)
	a.mu.Unlock()
}

// Close releases clients in reverse order of creation.
func (a *App) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
