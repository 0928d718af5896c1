package output

// Memo caches computed values by key. Implementations compute each key at
// most once while it stays cached; failed computations are not cached.
type Memo[V any] interface {
	// GetOrLoad returns the cached value for key, calling load on a miss.
	GetOrLoad(key string, load func() (V, error)) (V, error)

	// Purge drops every cached value.
	Purge()
}
