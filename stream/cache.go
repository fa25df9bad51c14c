package stream

// Cache is a plain memo table with get-or-compute semantics.
//
// One instance is owned by each Stream; it is not safe for concurrent use.
type Cache[K comparable, V any] struct {
	m map[K]V
}

// NewCache creates an empty cache.
func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{m: make(map[K]V)}
}

// Get returns the cached value for k.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	v, ok := c.m[k]
	return v, ok
}

// GetOrCompute returns the cached value for k, computing and storing it on a miss.
func (c *Cache[K, V]) GetOrCompute(k K, compute func(K) V) V {
	if v, ok := c.m[k]; ok {
		return v
	}
	v := compute(k)
	c.m[k] = v
	return v
}

// Set stores v under k.
func (c *Cache[K, V]) Set(k K, v V) { c.m[k] = v }

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int { return len(c.m) }

// Clear drops every entry.
func (c *Cache[K, V]) Clear() { clear(c.m) }
