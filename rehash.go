package swiss

// maybeRehash decides, before every single-entry insert and after every
// successful erase, whether the table needs to grow or be rebuilt at the
// same capacity.
//
// Two distinct triggers exist because they call for different remedies:
//   - live+tombstones have reached maxLoad: the table has no room left for
//     a probe to terminate reliably, whether that space was consumed by
//     live entries or by churn, and needs more slots (grow).
//   - tombstones exceed half the live entries (tombstones > live/2): the table is
//     cluttered with tombstones even though it is not full (rebuild at the
//     same capacity, clearing tombstones and re-inserting live entries).
//
// The grow check takes priority: a table that is both over-full and
// tombstone-heavy needs more slots, not just a tombstone sweep.
//
// A single flat table has no bucket-directory structure to split
// incrementally, so both triggers rebuild the whole table in one pass
// rather than splitting individual buckets.
func maybeRehash[K comparable, V any](t *tableCore[K, V]) {
	if t.loadedSlots() >= t.maxLoad {
		growRehash(t, 0)
		return
	}
	if t.tombstones > t.live/2 {
		rebuildSameCapacity(t)
	}
}

// reserveForBulk grows the table up front for a bulk insert of n additional
// entries, rather than rehashing incrementally as each one lands. The
// projection is conservative: live+tombstones plus the new entries that
// cannot land in tombstones, assuming none of the n keys is already present.
// When it exceeds maxLoad, the table grows until maxLoad covers live+n.
func reserveForBulk[K comparable, V any](t *tableCore[K, V], n int) {
	projected := int(t.loadedSlots()) + max(0, n-int(t.tombstones))
	if projected <= int(t.maxLoad) {
		return
	}
	want := int(t.live) + n
	minCapacity := int(float64(want)/t.loadFactor) + 1
	for int(computeMaxLoad(groupCountFor(minCapacity)*groupWidth, t.loadFactor)) < want {
		minCapacity *= 2
	}
	growRehash(t, minCapacity)
}

// growRehash rebuilds the table into a fresh, larger backing array and
// re-inserts every live entry. minCapacity, if non-zero, is a lower bound on
// the requested capacity (used by reserveForBulk); otherwise the capacity is
// simply doubled.
func growRehash[K comparable, V any](t *tableCore[K, V], minCapacity int) {
	newGroupCount := t.groupCount() * 2
	if minCapacity > 0 {
		wanted := groupCountFor(minCapacity)
		if wanted > newGroupCount {
			newGroupCount = wanted
		}
	}
	rebuildInto(t, newGroupCount)
}

// rebuildSameCapacity clears tombstones without changing capacity: every
// live entry is re-inserted into a freshly zeroed control array of the same
// size.
func rebuildSameCapacity[K comparable, V any](t *tableCore[K, V]) {
	rebuildInto(t, t.groupCount())
}

// rebuildInto allocates a new backing array of newGroupCount groups and
// re-inserts every live entry from the old arrays using insertFresh, which
// skips the find-existing-key check since every key is known to be unique
// already.
func rebuildInto[K comparable, V any](t *tableCore[K, V], newGroupCount uint32) {
	capacity := newGroupCount * groupWidth
	newCtrl := make([]uint8, capacity)
	for i := range newCtrl {
		newCtrl[i] = ctrlEmpty
	}
	newKeys := make([]K, capacity)
	newVals := make([]V, capacity)
	newMask := newGroupCount - 1

	for i, c := range t.ctrl {
		if c == ctrlEmpty || c == ctrlDeleted {
			continue
		}
		insertFresh(newCtrl, newKeys, newVals, newMask, t.hash, t.keys[i], t.vals[i])
	}

	t.ctrl = newCtrl
	t.keys = newKeys
	t.vals = newVals
	t.groupMask = newMask
	t.tombstones = 0
	t.maxLoad = computeMaxLoad(capacity, t.loadFactor)
}

// insertFresh places (key, val) into a table known to not yet contain key,
// skipping the equality-check scan that insert performs. Used only while
// rebuilding, where every source key is unique by construction.
func insertFresh[K comparable, V any](ctrl []uint8, keys []K, vals []V, groupMask uint32, hash HashFunc[K], key K, val V) {
	h1v, h2v := splitHash(hash, key)
	seq := makeProbeSeq(h1v, groupMask)
	for {
		base := int(seq.group) * groupWidth
		word := loadGroupWord(ctrl, base)
		if em := matchEmpty(word); em.any() {
			idx := base + em.first()
			keys[idx] = key
			vals[idx] = val
			ctrl[idx] = h2v
			return
		}
		seq = seq.next()
	}
}
