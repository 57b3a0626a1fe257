package pipeline

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers bounds concurrent enrichment tasks in one run.
const DefaultWorkers = 4

// FanOut runs fn for every item with at most workers in flight and returns
// the kept results in item order, whatever order the tasks finish in. A task
// reporting false is dropped. Tasks cannot fail, so none cancels another.
func FanOut[T, R any](ctx context.Context, workers int, items []T, fn func(context.Context, T) (R, bool)) []R {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	type tagged struct {
		idx int
		val R
	}
	var (
		mu      sync.Mutex
		results = make([]tagged, 0, len(items))
	)

	var g errgroup.Group
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			r, ok := fn(ctx, item)
			if !ok {
				return nil
			}
			mu.Lock()
			results = append(results, tagged{idx: i, val: r})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	sort.SliceStable(results, func(a, b int) bool { return results[a].idx < results[b].idx })
	out := make([]R, 0, len(results))
	for _, r := range results {
		out = append(out, r.val)
	}
	return out
}
