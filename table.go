package swiss

// tableCore is the single flat SwissTable slot array shared by Map and Set.
// It is not safe for concurrent use; ShardedMap serializes access to each
// shard's tableCore with its own locking.
//
// Slots are held in three parallel slices rather than one slice of boxed
// (key, value, control) structs, so the hot group scan touches only the
// cache-dense ctrl slice.
type tableCore[K comparable, V any] struct {
	ctrl []uint8
	keys []K
	vals []V

	groupMask  uint32 // groupCount - 1
	live       uint32 // occupied, non-tombstone slots
	tombstones uint32
	maxLoad    uint32 // rehash threshold on live+tombstones

	loadFactor float64
	hash       HashFunc[K]
}

func newTableCore[K comparable, V any](minCapacity int, loadFactor float64, hash HashFunc[K]) *tableCore[K, V] {
	groupCount := groupCountFor(minCapacity)
	capacity := groupCount * groupWidth
	t := &tableCore[K, V]{
		ctrl:       make([]uint8, capacity),
		keys:       make([]K, capacity),
		vals:       make([]V, capacity),
		groupMask:  groupCount - 1,
		loadFactor: loadFactor,
		hash:       hash,
	}
	for i := range t.ctrl {
		t.ctrl[i] = ctrlEmpty
	}
	t.maxLoad = computeMaxLoad(capacity, loadFactor)
	return t
}

func (t *tableCore[K, V]) capacity() uint32 {
	return uint32(len(t.ctrl))
}

func (t *tableCore[K, V]) groupCount() uint32 {
	return t.groupMask + 1
}

// find returns the slot index holding key, and whether it was found.
func (t *tableCore[K, V]) find(key K) (int, bool) {
	if t.live == 0 {
		return 0, false
	}
	h1v, h2v := splitHash(t.hash, key)
	seq := makeProbeSeq(h1v, t.groupMask)
	for visited := uint32(0); visited <= t.groupMask; visited++ {
		base := int(seq.group) * groupWidth
		word := loadGroupWord(t.ctrl, base)
		for m := matchFingerprint(word, h2v); m.any(); m = m.next() {
			idx := base + m.first()
			if t.keys[idx] == key {
				return idx, true
			}
		}
		if matchEmpty(word).any() {
			return 0, false
		}
		seq = seq.next()
	}
	return 0, false
}

// insert writes (key, val) into the table, overwriting any existing entry
// for key. It returns the previous value and whether one existed. Callers
// are responsible for invoking the Rehash Controller before calling insert
// when load has crossed maxLoad; insert itself only panics if the probe
// exhausts every group, which the controller is designed to make
// unreachable.
func (t *tableCore[K, V]) insert(key K, val V) (V, bool) {
	h1v, h2v := splitHash(t.hash, key)
	seq := makeProbeSeq(h1v, t.groupMask)
	firstTombstone := -1
	for visited := uint32(0); visited <= t.groupMask; visited++ {
		base := int(seq.group) * groupWidth
		word := loadGroupWord(t.ctrl, base)
		for m := matchFingerprint(word, h2v); m.any(); m = m.next() {
			idx := base + m.first()
			if t.keys[idx] == key {
				prev := t.vals[idx]
				t.vals[idx] = val
				return prev, true
			}
		}
		if firstTombstone < 0 {
			if tm := matchTombstone(word); tm.any() {
				firstTombstone = base + tm.first()
			}
		}
		if em := matchEmpty(word); em.any() {
			target := firstTombstone
			wasTombstone := target >= 0
			if target < 0 {
				target = base + em.first()
			}
			t.keys[target] = key
			t.vals[target] = val
			t.ctrl[target] = h2v
			t.live++
			if wasTombstone {
				t.tombstones--
			}
			var zero V
			return zero, false
		}
		seq = seq.next()
	}
	panic(newError(ProbeCycleExhausted, "insert walked every group without finding an empty slot"))
}

// erase marks key's slot DELETED if present, returning its value and
// whether it was found. Callers invoke the Rehash Controller afterward to
// decide whether a tombstone-triggered rebuild is due.
func (t *tableCore[K, V]) erase(key K) (V, bool) {
	idx, ok := t.find(key)
	if !ok {
		var zero V
		return zero, false
	}
	prev := t.vals[idx]
	var zeroK K
	var zeroV V
	t.keys[idx] = zeroK
	t.vals[idx] = zeroV
	t.ctrl[idx] = ctrlDeleted
	t.live--
	t.tombstones++
	return prev, true
}

func (t *tableCore[K, V]) clear() {
	for i := range t.ctrl {
		t.ctrl[i] = ctrlEmpty
	}
	var zeroK K
	var zeroV V
	for i := range t.keys {
		t.keys[i] = zeroK
		t.vals[i] = zeroV
	}
	t.live = 0
	t.tombstones = 0
}

// loadedSlots is the count that is compared against maxLoad to decide
// whether a rehash is due: live entries plus tombstones, since both occupy
// a control byte that is not EMPTY.
func (t *tableCore[K, V]) loadedSlots() uint32 {
	return t.live + t.tombstones
}
