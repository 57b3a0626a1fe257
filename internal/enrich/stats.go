package enrich

import (
	"slices"
	"sync"
	"time"
)

type callSample struct {
	at       time.Time
	ms       int64
	degraded bool
}

// StatsSnapshot aggregates completion calls inside the rolling window.
type StatsSnapshot struct {
	Count    int     `json:"count"`
	Degraded int     `json:"degraded"`
	MinMs    int64   `json:"min_ms"`
	MaxMs    int64   `json:"max_ms"`
	AvgMs    float64 `json:"avg_ms"`
	P50Ms    float64 `json:"p50_ms"`
	P95Ms    float64 `json:"p95_ms"`
	P99Ms    float64 `json:"p99_ms"`
}

// LLMStats tracks recent completion latencies and how many degraded to the
// offline fallback.
type LLMStats struct {
	mu      sync.Mutex
	samples []callSample
	window  time.Duration
	now     func() time.Time
}

func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{
		samples: make([]callSample, 0, 256),
		window:  window,
		now:     time.Now,
	}
}

// Record adds one call. Safe on a nil receiver.
func (s *LLMStats) Record(elapsed time.Duration, degraded bool) {
	if s == nil {
		return
	}
	ms := max(elapsed.Milliseconds(), 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.samples = append(s.samples, callSample{at: now, ms: ms, degraded: degraded})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(s.now())
	if len(s.samples) == 0 {
		return StatsSnapshot{}
	}

	values := make([]int64, len(s.samples))
	var sum int64
	degraded := 0
	for i, sm := range s.samples {
		values[i] = sm.ms
		sum += sm.ms
		if sm.degraded {
			degraded++
		}
	}
	slices.Sort(values)

	return StatsSnapshot{
		Count:    len(values),
		Degraded: degraded,
		MinMs:    values[0],
		MaxMs:    values[len(values)-1],
		AvgMs:    float64(sum) / float64(len(values)),
		P50Ms:    percentile(values, 50),
		P95Ms:    percentile(values, 95),
		P99Ms:    percentile(values, 99),
	}
}

func (s *LLMStats) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	s.samples = slices.DeleteFunc(s.samples, func(sm callSample) bool {
		return sm.at.Before(cutoff)
	})
}

// percentile interpolates linearly between the two closest ranks of a sorted
// slice.
func percentile(sorted []int64, pct float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[n-1])
	}
	rank := float64(n-1) * pct / 100
	lower := int(rank)
	if lower+1 >= n {
		return float64(sorted[lower])
	}
	frac := rank - float64(lower)
	return float64(sorted[lower]) + frac*float64(sorted[lower+1]-sorted[lower])
}
