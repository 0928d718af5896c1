// Package memo provides the in-process caches behind the Memo port.
package memo

import (
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/jobrunner/layerscope/internal/ports/output"
)

// DefaultSize is the cache capacity used when none is configured.
const DefaultSize = 256

// LRU is a bounded Memo. Concurrent loads of the same key share one call
// to the loader. Failed loads are not cached.
//
// Purge starts a new generation. A load begun before a Purge is neither
// stored nor shared with callers arriving after it.
type LRU[V any] struct {
	name    string
	cache   *lru.Cache[string, V]
	group   singleflight.Group
	metrics output.MetricsCollector

	mu  sync.Mutex
	gen uint64
}

// NewLRU creates a cache holding at most size entries.
// name labels the cache in metrics.
func NewLRU[V any](name string, size int, metrics output.MetricsCollector) *LRU[V] {
	if size <= 0 {
		size = DefaultSize
	}
	if metrics == nil {
		metrics = &output.NoOpMetrics{}
	}
	// Only fails for a non-positive size.
	c, _ := lru.New[string, V](size)
	return &LRU[V]{
		name:    name,
		cache:   c,
		metrics: metrics,
	}
}

// Ensure interface compliance.
var _ output.Memo[int] = (*LRU[int])(nil)

// GetOrLoad returns the cached value for key, calling load on a miss.
func (m *LRU[V]) GetOrLoad(key string, load func() (V, error)) (V, error) {
	if v, ok := m.cache.Get(key); ok {
		m.metrics.IncCacheLookups(m.name, true)
		return v, nil
	}
	m.metrics.IncCacheLookups(m.name, false)

	gen := m.generation()
	flight := strconv.FormatUint(gen, 10) + ":" + key
	res, err, _ := m.group.Do(flight, func() (interface{}, error) {
		// Another caller may have filled the entry while we waited.
		if v, ok := m.cache.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return v, err
		}

		m.mu.Lock()
		if m.gen == gen {
			m.cache.Add(key, v)
		}
		m.mu.Unlock()
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Purge drops every cached value and disowns loads still in flight.
func (m *LRU[V]) Purge() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.cache.Purge()
}

func (m *LRU[V]) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// Len returns the number of cached entries.
func (m *LRU[V]) Len() int {
	return m.cache.Len()
}

// Passthrough is a Memo that never caches.
type Passthrough[V any] struct{}

// GetOrLoad always calls load.
func (Passthrough[V]) GetOrLoad(_ string, load func() (V, error)) (V, error) {
	return load()
}

// Purge is a no-op.
func (Passthrough[V]) Purge() {}
