// Package dedup drops slides whose embedding is nearly identical to one
// already kept.
package dedup

import "github.com/dgallion1/slidenotes/internal/embedding"

// DefaultThreshold is the inner-product similarity at or above which a slide
// is treated as a duplicate.
const DefaultThreshold = 0.82

// Keep returns the positions of vectors that survive a single forward pass.
// Each vector is compared only against vectors already kept, so a chain
// A~B, B~C with A!~C keeps A and C.
func Keep(vectors [][]float32, threshold float64) []int {
	kept := make([]int, 0, len(vectors))
	for i, v := range vectors {
		dup := false
		for _, k := range kept {
			if embedding.Dot(v, vectors[k]) >= threshold {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, i)
		}
	}
	return kept
}

// KeepRecords is Keep for a run with n records. With no vectors every record
// is kept.
func KeepRecords(n int, vectors [][]float32, threshold float64) []int {
	if len(vectors) == 0 {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return Keep(vectors, threshold)
}
