package swiss

// Set is an unordered collection of unique K elements, built on the same
// tableCore as Map with V instantiated to struct{} so no value storage is
// allocated. Unlike Map, Set accepts nil elements: there is no value to be
// missing, so there is nothing for a nil element to be confused with.
//
// Set is not safe for concurrent use by multiple goroutines without
// external synchronization.
type Set[K comparable] struct {
	t *tableCore[K, struct{}]
}

// NewSet constructs an empty Set with the given options applied over the
// package defaults.
func NewSet[K comparable](opts ...Option[K, struct{}]) (*Set[K], error) {
	c, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	return &Set[K]{
		t: newTableCore[K, struct{}](c.initialCapacity, c.loadFactor, c.hash),
	}, nil
}

// Contains reports whether element is present.
func (s *Set[K]) Contains(element K) bool {
	_, ok := s.t.find(element)
	return ok
}

// Add inserts element, returning whether it was already present.
func (s *Set[K]) Add(element K) bool {
	maybeRehash(s.t)
	_, existed := s.t.insert(element, struct{}{})
	return existed
}

// AddAll inserts every element of elements, pre-sizing the table once for
// the whole batch.
func (s *Set[K]) AddAll(elements []K) {
	reserveForBulk(s.t, len(elements))
	for _, e := range elements {
		s.t.insert(e, struct{}{})
	}
}

// Remove deletes element, returning whether it was present.
func (s *Set[K]) Remove(element K) bool {
	_, existed := s.t.erase(element)
	if existed {
		maybeRehash(s.t)
	}
	return existed
}

// Len returns the number of elements currently stored.
func (s *Set[K]) Len() int {
	return int(s.t.live)
}

// Clear removes every element without shrinking the backing arrays.
func (s *Set[K]) Clear() {
	s.t.clear()
}

// Capacity returns the number of slots currently backing the table.
func (s *Set[K]) Capacity() int {
	return int(s.t.capacity())
}

// Iterator returns a fresh randomized-order iterator over the set.
func (s *Set[K]) Iterator() *Iterator[K, struct{}] {
	return newIterator(s.t)
}

// Range calls fn for every element in randomized order, stopping early if
// fn returns false.
func (s *Set[K]) Range(fn func(element K) bool) {
	it := s.Iterator()
	for it.Next() {
		if !fn(it.Key()) {
			return
		}
	}
}
