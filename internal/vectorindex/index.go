// Package vectorindex is a flat inner-product index over L2-normalised
// vectors, held in memory or persisted per collection in SQLite.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index dimension. It is fatal for a run.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Neighbor is one search hit: the insertion position of the stored vector and
// its inner product with the query.
type Neighbor struct {
	Position int
	Score    float64
}

// Index is the contract the retriever searches against.
type Index interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Neighbor, error)
	Len() int
	Dimension() int
	Reset(ctx context.Context) error
}

// Flat is an in-memory brute-force index.
type Flat struct {
	mu      sync.RWMutex
	dim     int
	vectors [][]float32
}

// NewFlat returns an empty index. dim <= 0 fixes the dimension on first Add.
func NewFlat(dim int) *Flat {
	return &Flat{dim: max(dim, 0)}
}

func (f *Flat) Add(_ context.Context, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.checkLocked(vectors); err != nil {
		return err
	}
	for _, v := range vectors {
		f.vectors = append(f.vectors, append([]float32(nil), v...))
	}
	return nil
}

func (f *Flat) checkLocked(vectors [][]float32) error {
	dim := f.dim
	for i, v := range vectors {
		if dim == 0 {
			dim = len(v)
		}
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d, index has %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	f.dim = dim
	return nil
}

// Search returns the k nearest stored vectors by inner product, best first.
// Ties keep insertion order.
func (f *Flat) Search(_ context.Context, query []float32, k int) ([]Neighbor, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.vectors) == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), f.dim)
	}

	hits := make([]Neighbor, len(f.vectors))
	for i, v := range f.vectors {
		var s float64
		for j := range v {
			s += float64(v[j]) * float64(query[j])
		}
		hits[i] = Neighbor{Position: i, Score: s}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (f *Flat) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

func (f *Flat) Dimension() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dim
}

func (f *Flat) Reset(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vectors = nil
	return nil
}
