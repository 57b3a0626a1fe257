// Package embedding turns slide text into L2-normalised vectors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
)

// ErrInconsistentDimension is returned when an embedder produces vectors of
// different lengths within one process.
var ErrInconsistentDimension = errors.New("embedding dimension changed")

// Embedder produces one vector per input text, in input order.
type Embedder interface {
	Name() string
	// Dimension is the vector length, or 0 before the first call for remote
	// embedders that learn it lazily.
	Dimension() int
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedOne embeds a single text.
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("embed: expected 1 vector, got %d", len(vecs))
	}
	return vecs[0], nil
}

// Normalize scales v to unit length in place. Zero vectors are left as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return v
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// Dot returns the inner product of two equal-length vectors.
func Dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// dimensionGuard records the first dimension seen and rejects later changes.
type dimensionGuard struct {
	mu  sync.Mutex
	dim int
}

func (g *dimensionGuard) check(vecs [][]float32) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, v := range vecs {
		if g.dim == 0 {
			g.dim = len(v)
		}
		if len(v) != g.dim {
			return fmt.Errorf("%w: got %d, want %d", ErrInconsistentDimension, len(v), g.dim)
		}
	}
	return nil
}

func (g *dimensionGuard) get() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dim
}

// Lazy builds an Embedder on first use and shares it for the rest of the
// process. Construction errors are sticky.
type Lazy struct {
	once  sync.Once
	build func() (Embedder, error)
	e     Embedder
	err   error
}

// NewLazy wraps a constructor.
func NewLazy(build func() (Embedder, error)) *Lazy {
	return &Lazy{build: build}
}

// Get returns the shared embedder, constructing it on the first call.
func (l *Lazy) Get() (Embedder, error) {
	l.once.Do(func() {
		l.e, l.err = l.build()
	})
	return l.e, l.err
}
