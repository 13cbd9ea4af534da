package swiss

import (
	"math/bits"

	"go.uber.org/atomic"

	"github.com/bluuewhale/swisstable/internal/seqlock"
)

// shard pairs one tableCore with the seqlock that guards it. Each shard is
// an independent, fully functional table; ShardedMap routes every operation
// to exactly one shard by key, so cross-shard operations are never atomic
// with each other: strongly consistent per shard, weakly consistent across
// the whole map.
type shard[K comparable, V any] struct {
	lock *seqlock.SeqLock
	t    *tableCore[K, V]
}

// ShardedMap is a concurrent-safe K -> V table striped across a fixed
// number of independently-locked shards.
type ShardedMap[K comparable, V any] struct {
	shards     []*shard[K, V]
	shardShift uint32 // 32 - log2(len(shards))
	hash       HashFunc[K]
	loadFactor float64
	size       atomic.Int64
}

// NewShardedMap constructs an empty ShardedMap. Shard count defaults to
// runtime.NumCPU() rounded up to a power of two; WithShardCount overrides
// it (also rounded up to a power of two).
func NewShardedMap[K comparable, V any](opts ...Option[K, V]) (*ShardedMap[K, V], error) {
	c, err := buildConfig(opts)
	if err != nil {
		return nil, err
	}
	shardCount := nextPow2(uint32(c.shardCount))
	sm := &ShardedMap[K, V]{
		shards:     make([]*shard[K, V], shardCount),
		shardShift: 32 - uint32(bits.Len32(shardCount-1)),
		hash:       c.hash,
		loadFactor: c.loadFactor,
	}
	for i := range sm.shards {
		sm.shards[i] = &shard[K, V]{
			lock: seqlock.New(),
			t:    newTableCore[K, V](c.initialCapacity, c.loadFactor, c.hash),
		}
	}
	return sm, nil
}

// shardFor picks a shard using the top bits of the smeared hash. h1 (used
// for in-table group selection) is derived from bits 7-31 and masked down
// to however few low-order bits the table's groupMask needs, so the very
// top bits consumed here are, in practice, independent of the bits that
// decide group placement within the chosen shard.
func (sm *ShardedMap[K, V]) shardFor(key K) *shard[K, V] {
	h := smearedHash32(sm.hash, key)
	return sm.shards[h>>sm.shardShift]
}

// Get returns the value stored for key, whether it was present, and a
// non-nil error only for a rejected nil key.
//
// The fast path samples the shard's seqlock optimistically: it reads the
// table without taking any lock, then validates that no write raced with
// the read. Validate failing means a write was in flight; Get then falls
// back to a blocking read lock. This mirrors the torn-read-then-validate
// pattern StampedLock.tryOptimisticRead is designed around, and carries the
// same caveat: the speculative read touches shared memory without a lock,
// which a data race detector will flag even though the result is discarded
// whenever Validate fails.
func (sm *ShardedMap[K, V]) Get(key K) (V, bool, error) {
	if isNilKey(key) {
		var zero V
		return zero, false, newError(NullKeyRejected, "ShardedMap does not accept nil keys")
	}
	sh := sm.shardFor(key)

	stamp := sh.lock.TryOptimisticRead()
	if !sh.lock.IsWriting(stamp) {
		idx, ok := sh.t.find(key)
		var val V
		if ok {
			val = sh.t.vals[idx]
		}
		if sh.lock.Validate(stamp) {
			return val, ok, nil
		}
	}

	sh.lock.RLock()
	idx, ok := sh.t.find(key)
	var val V
	if ok {
		val = sh.t.vals[idx]
	}
	sh.lock.RUnlock()
	return val, ok, nil
}

// Contains reports whether key is present, ignoring its value.
func (sm *ShardedMap[K, V]) Contains(key K) (bool, error) {
	_, ok, err := sm.Get(key)
	return ok, err
}

// Put inserts or overwrites the entry for key under the shard's exclusive
// write lock, returning the previous value and whether one existed.
func (sm *ShardedMap[K, V]) Put(key K, val V) (V, bool, error) {
	if isNilKey(key) {
		var zero V
		return zero, false, newError(NullKeyRejected, "ShardedMap does not accept nil keys")
	}
	sh := sm.shardFor(key)
	sh.lock.Lock()
	maybeRehash(sh.t)
	prev, had := sh.t.insert(key, val)
	if !had {
		sm.size.Inc()
	}
	sh.lock.Unlock()
	return prev, had, nil
}

// PutAll inserts every entry of entries. Entries are first bucketed by
// shard so each shard is locked, pre-sized, and populated exactly once,
// rather than re-acquiring the shard lock per entry.
func (sm *ShardedMap[K, V]) PutAll(entries map[K]V) error {
	byShard := make(map[*shard[K, V]]map[K]V, len(sm.shards))
	for k, v := range entries {
		if isNilKey(k) {
			return newError(NullKeyRejected, "ShardedMap does not accept nil keys")
		}
		sh := sm.shardFor(k)
		bucket, ok := byShard[sh]
		if !ok {
			bucket = make(map[K]V)
			byShard[sh] = bucket
		}
		bucket[k] = v
	}
	for sh, bucket := range byShard {
		sh.lock.Lock()
		reserveForBulk(sh.t, len(bucket))
		added := int64(0)
		for k, v := range bucket {
			if _, had := sh.t.insert(k, v); !had {
				added++
			}
		}
		sm.size.Add(added)
		sh.lock.Unlock()
	}
	return nil
}

// Remove deletes the entry for key under the shard's exclusive write lock,
// returning its previous value and whether it was present.
func (sm *ShardedMap[K, V]) Remove(key K) (V, bool, error) {
	if isNilKey(key) {
		var zero V
		return zero, false, newError(NullKeyRejected, "ShardedMap does not accept nil keys")
	}
	sh := sm.shardFor(key)
	sh.lock.Lock()
	prev, existed := sh.t.erase(key)
	if existed {
		maybeRehash(sh.t)
		sm.size.Dec()
	}
	sh.lock.Unlock()
	return prev, existed, nil
}

// Len returns the aggregate number of entries across every shard. It is a
// single atomic load and is weakly consistent with any write racing it.
func (sm *ShardedMap[K, V]) Len() int {
	return int(sm.size.Load())
}

// ShardCount returns the number of independently-locked shards.
func (sm *ShardedMap[K, V]) ShardCount() int {
	return len(sm.shards)
}

// Clear removes every entry from every shard. Shards are cleared one at a
// time under their own write lock; a concurrent reader can observe a
// partially-cleared map while this runs.
func (sm *ShardedMap[K, V]) Clear() {
	for _, sh := range sm.shards {
		sh.lock.Lock()
		removed := sh.t.live
		sh.t.clear()
		sm.size.Sub(int64(removed))
		sh.lock.Unlock()
	}
}

// snapshotEntry is one (key, value) pair copied out of a shard by
// SnapshotIterator.
type snapshotEntry[K comparable, V any] struct {
	key K
	val V
}

// SnapshotIterator walks a point-in-time copy of a ShardedMap. Each shard's
// live entries are copied into a flat buffer under that shard's read lock,
// which is released before the buffer is iterated, so the traversal never
// holds a lock across caller code: strongly consistent within a shard
// (every entry reflects that shard's state at the moment it was copied) and
// weakly consistent across the whole map (shards copied later may reflect
// writes that raced the traversal).
//
// A SnapshotIterator is not safe for concurrent use, and not safe to share
// across goroutines.
type SnapshotIterator[K comparable, V any] struct {
	sm      *ShardedMap[K, V]
	entries []snapshotEntry[K, V]
	pos     int
	cur     int // index into entries most recently returned by Next, -1 if none yet
}

// Snapshot returns a SnapshotIterator over every entry currently in sm.
func (sm *ShardedMap[K, V]) Snapshot() *SnapshotIterator[K, V] {
	var entries []snapshotEntry[K, V]
	for _, sh := range sm.shards {
		sh.lock.RLock()
		for i, c := range sh.t.ctrl {
			if c&ctrlEmpty == 0 { // live fingerprint, never EMPTY/DELETED
				entries = append(entries, snapshotEntry[K, V]{key: sh.t.keys[i], val: sh.t.vals[i]})
			}
		}
		sh.lock.RUnlock()
	}
	return &SnapshotIterator[K, V]{sm: sm, entries: entries, cur: -1}
}

// Next advances to the next entry in the snapshot and reports whether one
// was found.
func (it *SnapshotIterator[K, V]) Next() bool {
	if it.pos >= len(it.entries) {
		it.cur = -1
		return false
	}
	it.cur = it.pos
	it.pos++
	return true
}

// Key returns the key at the iterator's current position. Must only be
// called after a Next that returned true.
func (it *SnapshotIterator[K, V]) Key() K {
	return it.entries[it.cur].key
}

// Value returns the value at the iterator's current position. Must only be
// called after a Next that returned true.
func (it *SnapshotIterator[K, V]) Value() V {
	return it.entries[it.cur].val
}

// Remove deletes the entry at the iterator's current position from the
// underlying ShardedMap. Unlike Iterator.Remove, this takes the shard's
// write lock on each call since the snapshot buffer holds no lock of its
// own; it is safe to call even though other writers may have already
// removed or overwritten the same key.
func (it *SnapshotIterator[K, V]) Remove() error {
	if it.cur < 0 {
		return newError(IteratorIllegalState, "Remove called before Next")
	}
	_, _, err := it.sm.Remove(it.entries[it.cur].key)
	return err
}

// Range calls fn for every entry, stopping early if fn returns false. It is
// a convenience wrapper over Snapshot for callers that do not need
// in-loop Remove.
func (sm *ShardedMap[K, V]) Range(fn func(key K, val V) bool) {
	it := sm.Snapshot()
	for it.Next() {
		if !fn(it.Key(), it.Value()) {
			return
		}
	}
}
