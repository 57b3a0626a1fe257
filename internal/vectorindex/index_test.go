package vectorindex

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestFlat_SearchOrder(t *testing.T) {
	ctx := context.Background()
	f := NewFlat(0)
	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.8, 0.6, 0},
		{1, 0, 0},
	}
	if err := f.Add(ctx, vecs); err != nil {
		t.Fatalf("add: %v", err)
	}
	if f.Len() != 4 || f.Dimension() != 3 {
		t.Fatalf("expected 4 vectors of dim 3, got %d/%d", f.Len(), f.Dimension())
	}

	hits, err := f.Search(ctx, []float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	want := []int{0, 3, 2}
	if len(hits) != len(want) {
		t.Fatalf("expected %d hits, got %d", len(want), len(hits))
	}
	for i, pos := range want {
		if hits[i].Position != pos {
			t.Errorf("hit %d: expected position %d, got %d", i, pos, hits[i].Position)
		}
	}
	if hits[2].Score < 0.79 || hits[2].Score > 0.81 {
		t.Errorf("expected score ~0.8, got %f", hits[2].Score)
	}

	all, _ := f.Search(ctx, []float32{0, 1, 0}, 10)
	if len(all) != 4 {
		t.Errorf("expected k clamped to 4, got %d", len(all))
	}
}

func TestFlat_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	f := NewFlat(2)
	if err := f.Add(ctx, [][]float32{{1, 0, 0}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on add, got %v", err)
	}
	if err := f.Add(ctx, [][]float32{{1, 0}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.Search(ctx, []float32{1}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch on search, got %v", err)
	}
}

func TestFlat_EmptyAndReset(t *testing.T) {
	ctx := context.Background()
	f := NewFlat(2)
	hits, err := f.Search(ctx, []float32{1, 0}, 4)
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits from empty index, got %v %v", hits, err)
	}
	f.Add(ctx, [][]float32{{1, 0}})
	f.Reset(ctx)
	if f.Len() != 0 {
		t.Errorf("expected empty index after reset, got %d", f.Len())
	}
}

func TestStore_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index", "vectors.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	c, err := s.Collection(ctx, "deck_1_10", 2)
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	if err := c.Add(ctx, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := c.Add(ctx, [][]float32{{0.6, 0.8}}); err != nil {
		t.Fatalf("add: %v", err)
	}
	other, _ := s.Collection(ctx, "other", 2)
	other.Add(ctx, [][]float32{{1, 0}})
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	c, err = s.Collection(ctx, "deck_1_10", 2)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if c.Len() != 3 {
		t.Fatalf("expected 3 persisted vectors, got %d", c.Len())
	}
	hits, err := c.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if hits[0].Position != 1 {
		t.Errorf("expected position 1, got %d", hits[0].Position)
	}

	if _, err := s.Collection(ctx, "deck_1_10", 3); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch for different embedder width, got %v", err)
	}

	if err := c.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	c, _ = s.Collection(ctx, "deck_1_10", 2)
	if c.Len() != 0 {
		t.Errorf("expected empty collection after reset, got %d", c.Len())
	}
	other, _ = s.Collection(ctx, "other", 2)
	if other.Len() != 1 {
		t.Errorf("expected other collection untouched, got %d", other.Len())
	}
}

func TestVectorCodec(t *testing.T) {
	v := []float32{0.25, -1.5, 3}
	got, err := decodeVector(encodeVector(v), 3)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("component %d: expected %f, got %f", i, v[i], got[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}, 1); err == nil {
		t.Error("expected error for short blob")
	}
}
