package metrics

import "sync/atomic"

// CacheMetric tracks hit/miss statistics for a named cache.
// All methods are thread-safe using atomic operations.
type CacheMetric struct {
	name          string
	hits          int64
	misses        int64
	invalidations int64
}

// newCacheMetric creates a new cache metric with the given name.
func newCacheMetric(name string) *CacheMetric {
	return &CacheMetric{name: name}
}

// RecordHit records a cache hit.
func (m *CacheMetric) RecordHit() {
	if !enabled {
		return
	}
	atomic.AddInt64(&m.hits, 1)
}

// RecordMiss records a cache miss.
func (m *CacheMetric) RecordMiss() {
	if !enabled {
		return
	}
	atomic.AddInt64(&m.misses, 1)
}

// RecordInvalidation records a cache entry discarded as stale.
func (m *CacheMetric) RecordInvalidation() {
	if !enabled {
		return
	}
	atomic.AddInt64(&m.invalidations, 1)
}

// Name returns the metric name.
func (m *CacheMetric) Name() string {
	return m.name
}

// Hits returns the number of recorded hits.
func (m *CacheMetric) Hits() int64 {
	return atomic.LoadInt64(&m.hits)
}

// Misses returns the number of recorded misses.
func (m *CacheMetric) Misses() int64 {
	return atomic.LoadInt64(&m.misses)
}

// Invalidations returns the number of discarded entries.
func (m *CacheMetric) Invalidations() int64 {
	return atomic.LoadInt64(&m.invalidations)
}

// HitRate returns hits/(hits+misses), or 0 with no lookups.
func (m *CacheMetric) HitRate() float64 {
	hits := atomic.LoadInt64(&m.hits)
	misses := atomic.LoadInt64(&m.misses)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// Stats returns all cache statistics at once.
func (m *CacheMetric) Stats() CacheStats {
	return CacheStats{
		Name:          m.name,
		Hits:          m.Hits(),
		Misses:        m.Misses(),
		Invalidations: m.Invalidations(),
		HitRate:       m.HitRate(),
	}
}

// Reset clears all recorded measurements.
func (m *CacheMetric) Reset() {
	atomic.StoreInt64(&m.hits, 0)
	atomic.StoreInt64(&m.misses, 0)
	atomic.StoreInt64(&m.invalidations, 0)
}

// CacheStats holds a snapshot of cache statistics.
type CacheStats struct {
	Name          string  `json:"name"`
	Hits          int64   `json:"hits"`
	Misses        int64   `json:"misses"`
	Invalidations int64   `json:"invalidations"`
	HitRate       float64 `json:"hit_rate"`
}

// Global cache metrics.
var (
	// LayoutCache counts layout restore attempts: a hit restores settled
	// positions without resimulating, an invalidation means the stored
	// fingerprint or coverage no longer matched the current graph.
	LayoutCache = newCacheMetric("layout_cache")
)

// AllCacheMetrics returns all registered cache metrics.
func AllCacheMetrics() []*CacheMetric {
	return []*CacheMetric{
		LayoutCache,
	}
}

// AllCacheStats returns stats for all cache metrics with data.
func AllCacheStats() []CacheStats {
	metrics := AllCacheMetrics()
	stats := make([]CacheStats, 0, len(metrics))
	for _, m := range metrics {
		if m.Hits()+m.Misses() > 0 {
			stats = append(stats, m.Stats())
		}
	}
	return stats
}
