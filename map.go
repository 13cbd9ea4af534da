// package swiss is a Go implementation of Swiss Tables as described in
// https://abseil.io/about/design/swisstables. See also:
// https://faultlore.com/blah/hashbrown-tldr/.
//
// Swiss tables are hash tables that map keys to values, similar to Go's
// builtin map type. Swiss tables use open-addressing rather than chaining to
// handle collisions: a hybrid between linear and quadratic probing is used,
// linear within a fixed-size group of slots and quadratic across groups. The
// key design choice is a separate metadata array of one control byte per
// slot, 7 bits of which are a fingerprint taken from hash(key) and the
// remaining bit marks empty/deleted/full. The control array lets a lookup
// rule out most non-matching slots without ever touching the key array.
//
// Map rejects nil keys (returned as NullKeyRejected); Set accepts them.
// Both are built on the same tableCore and are not safe for concurrent use;
// ShardedMap wraps a striped array of these for concurrent access.
package swiss

const defaultInitialCapacity = 16

// Map is an unordered K -> V table. It is not safe for concurrent use by
// multiple goroutines without external synchronization; see ShardedMap for
// a concurrent-safe wrapper.
type Map[K comparable, V any] struct {
	t *tableCore[K, V]
}

// NewMap constructs an empty Map with the given options applied over the
// package defaults (initial capacity 16, load factor 0.875).
func NewMap[K comparable, V any](opts ...Option[K, V]) (*Map[K, V], error) {
	c, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Map[K, V]{
		t: newTableCore[K, V](c.initialCapacity, c.loadFactor, c.hash),
	}, nil
}

// Get returns the value stored for key, whether it was present, and a
// non-nil error only if key is a nil pointer/interface/map/slice/chan/func.
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	if isNilKey(key) {
		var zero V
		return zero, false, newError(NullKeyRejected, "Map does not accept nil keys")
	}
	idx, ok := m.t.find(key)
	if !ok {
		var zero V
		return zero, false, nil
	}
	return m.t.vals[idx], true, nil
}

// Contains reports whether key is present, ignoring its value.
func (m *Map[K, V]) Contains(key K) (bool, error) {
	_, ok, err := m.Get(key)
	return ok, err
}

// Put inserts or overwrites the entry for key, returning the previous value
// and whether one existed.
func (m *Map[K, V]) Put(key K, val V) (V, bool, error) {
	if isNilKey(key) {
		var zero V
		return zero, false, newError(NullKeyRejected, "Map does not accept nil keys")
	}
	maybeRehash(m.t)
	prev, hadPrev := m.t.insert(key, val)
	return prev, hadPrev, nil
}

// PutAll inserts every entry of entries, pre-sizing the table once for the
// whole batch rather than rehashing incrementally as each entry lands.
func (m *Map[K, V]) PutAll(entries map[K]V) error {
	for k := range entries {
		if isNilKey(k) {
			return newError(NullKeyRejected, "Map does not accept nil keys")
		}
	}
	reserveForBulk(m.t, len(entries))
	for k, v := range entries {
		m.t.insert(k, v)
	}
	return nil
}

// Remove deletes the entry for key, returning its previous value and
// whether it was present.
func (m *Map[K, V]) Remove(key K) (V, bool, error) {
	if isNilKey(key) {
		var zero V
		return zero, false, newError(NullKeyRejected, "Map does not accept nil keys")
	}
	prev, existed := m.t.erase(key)
	if existed {
		maybeRehash(m.t)
	}
	return prev, existed, nil
}

// Len returns the number of entries currently stored.
func (m *Map[K, V]) Len() int {
	return int(m.t.live)
}

// Clear removes every entry without shrinking the backing arrays.
func (m *Map[K, V]) Clear() {
	m.t.clear()
}

// Capacity returns the number of slots currently backing the table.
func (m *Map[K, V]) Capacity() int {
	return int(m.t.capacity())
}

// Iterator returns a fresh randomized-order iterator over the map. The
// iterator is invalidated by any mutation performed through m other than
// the iterator's own Remove.
func (m *Map[K, V]) Iterator() *Iterator[K, V] {
	return newIterator(m.t)
}

// Range calls fn for every entry in randomized order, stopping early if fn
// returns false. It is a convenience wrapper over Iterator for callers that
// do not need in-loop Remove.
func (m *Map[K, V]) Range(fn func(key K, val V) bool) {
	it := m.Iterator()
	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			return
		}
	}
}
