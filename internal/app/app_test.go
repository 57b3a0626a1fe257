package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dgallion1/slidenotes/internal/config"
)

func TestNew_OfflineRun(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.IndexPath = filepath.Join(dir, "data", "vectors.db")
	cfg.CacheDir = filepath.Join(dir, "data", "cache")
	cfg.SearchEnabled = false
	cfg.EmbeddingDim = 32

	a, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer a.Close()

	deck := filepath.Join(dir, "lecture.md")
	src := "## Linear Regression\n\n- y=wx+b\n- squared error loss\n\n---\n\n## Gradient Descent\n\n- step along the negative gradient\n- learning rate\n"
	if err := os.WriteFile(deck, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := a.Pipeline.Run(context.Background(), deck)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(resp.Topics) == 0 || resp.Topics[0].Title != "Linear Regression" {
		t.Fatalf("expected topics starting with Linear Regression, got %+v", resp.Topics)
	}

	if _, ok := a.Cache.LoadKey(resp.DocumentID); !ok {
		t.Errorf("expected notes cached under %s", resp.DocumentID)
	}
	if _, err := os.Stat(cfg.IndexPath); err != nil {
		t.Errorf("expected index database: %v", err)
	}
	if snap := a.Stats.Snapshot(); snap.Count != 0 {
		t.Errorf("expected no timed completions without an API key, got %+v", snap)
	}
}

func TestNew_BadIndexPath(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Defaults()
	cfg.IndexPath = filepath.Join(blocker, "vectors.db")
	cfg.CacheDir = filepath.Join(dir, "cache")
	if _, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Fatal("expected error when the index directory cannot be created")
	}
}
