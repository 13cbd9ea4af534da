package swiss

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestShardedMapBasicPutGetRemove(t *testing.T) {
	sm, err := NewShardedMap[string, int]()
	require.NoError(t, err)

	_, hadPrev, err := sm.Put("a", 1)
	require.NoError(t, err)
	require.False(t, hadPrev)
	require.Equal(t, 1, sm.Len())

	v, ok, err := sm.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, v)

	prev, existed, err := sm.Remove("a")
	require.NoError(t, err)
	require.True(t, existed)
	require.Equal(t, 1, prev)
	require.Equal(t, 0, sm.Len())
}

func TestShardedMapRejectsNilKey(t *testing.T) {
	sm, err := NewShardedMap[*int, int]()
	require.NoError(t, err)

	_, _, err = sm.Put(nil, 1)
	require.Error(t, err)
	var swissErr *Error
	require.ErrorAs(t, err, &swissErr)
	require.Equal(t, NullKeyRejected, swissErr.Kind)
}

func TestShardedMapShardCountRoundsUpToPowerOfTwo(t *testing.T) {
	sm, err := NewShardedMap[int, int](WithShardCount[int, int](10))
	require.NoError(t, err)
	require.Equal(t, 16, sm.ShardCount())
}

func TestNewShardedMapRejectsNonPositiveShardCount(t *testing.T) {
	_, err := NewShardedMap[int, int](WithShardCount[int, int](0))
	require.Error(t, err)
	var swissErr *Error
	require.ErrorAs(t, err, &swissErr)
	require.Equal(t, InvalidConfiguration, swissErr.Kind)

	_, err = NewShardedMap[int, int](WithShardCount[int, int](-1))
	require.Error(t, err)
}

// TestBuildConfigRejectsShardCountExceedingH2Budget is the constructor side
// of the shard_count constraint: h2 always claims the low 7 bits of the
// smeared hash, leaving at most 2^25 shards addressable by the remaining
// bits. 2^25 itself is still in budget; one shard past it is not. Exercised
// against buildConfig directly (rather than NewShardedMap) since actually
// allocating 2^25 per-shard tables has no place in a unit test.
func TestBuildConfigRejectsShardCountExceedingH2Budget(t *testing.T) {
	_, err := buildConfig([]Option[int, int]{WithShardCount[int, int](1 << 25)})
	require.NoError(t, err)

	_, err = buildConfig([]Option[int, int]{WithShardCount[int, int](1<<25 + 1)})
	require.Error(t, err)
	var swissErr *Error
	require.ErrorAs(t, err, &swissErr)
	require.Equal(t, InvalidConfiguration, swissErr.Kind)
}

// TestShardedMapConcurrentDisjointPuts is P9/S5 at a reduced scale: many
// writer goroutines each insert a disjoint key range; at quiescence, Len
// equals the total number of unique keys inserted and every key resolves
// to its expected value.
func TestShardedMapConcurrentDisjointPuts(t *testing.T) {
	sm, err := NewShardedMap[int, int](WithShardCount[int, int](16))
	require.NoError(t, err)

	const writers = 8
	const perWriter = 2000

	var g errgroup.Group
	for w := 0; w < writers; w++ {
		w := w
		g.Go(func() error {
			base := w * perWriter
			for i := 0; i < perWriter; i++ {
				key := base + i
				if _, _, err := sm.Put(key, key); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, writers*perWriter, sm.Len())
	for w := 0; w < writers; w++ {
		base := w * perWriter
		for i := 0; i < perWriter; i++ {
			key := base + i
			v, ok, err := sm.Get(key)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, key, v)
		}
	}

	seen := make(map[int]bool, writers*perWriter)
	sm.Range(func(k, v int) bool {
		require.False(t, seen[k], "duplicate key %d from Range", k)
		seen[k] = true
		require.Equal(t, k, v)
		return true
	})
	require.Len(t, seen, writers*perWriter)
}

// TestShardedMapSnapshotIteratorRemove checks that Remove on a
// SnapshotIterator deletes the live entry through the
// wrapper, not just from the copied buffer, so a later Get no longer finds
// it.
func TestShardedMapSnapshotIteratorRemove(t *testing.T) {
	sm, err := NewShardedMap[int, int](WithShardCount[int, int](4))
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		_, _, err := sm.Put(i, i*10)
		require.NoError(t, err)
	}

	it := sm.Snapshot()
	removed := 0
	for it.Next() {
		if it.Key()%2 == 0 {
			require.NoError(t, it.Remove())
			removed++
		}
	}
	require.Equal(t, 10, removed)
	require.Equal(t, 10, sm.Len())

	for i := 0; i < 20; i++ {
		_, ok, err := sm.Get(i)
		require.NoError(t, err)
		require.Equal(t, i%2 != 0, ok)
	}
}

func TestShardedMapSnapshotIteratorRemoveBeforeNextFails(t *testing.T) {
	sm, err := NewShardedMap[int, int]()
	require.NoError(t, err)
	it := sm.Snapshot()

	err = it.Remove()
	require.Error(t, err)
	var swissErr *Error
	require.ErrorAs(t, err, &swissErr)
	require.Equal(t, IteratorIllegalState, swissErr.Kind)
}

// TestShardedMapConcurrentPutAndRemove is P10: concurrent readers racing a
// putter and a remover on a fixed key space must never observe a torn entry.
// Every key is only ever written with itself as its value, so every
// snapshot (k, v) pair must have v == k; which keys a snapshot contains
// depends on how the writers race it (weakly consistent across shards).
func TestShardedMapConcurrentPutAndRemove(t *testing.T) {
	sm, err := NewShardedMap[int, int](WithShardCount[int, int](16))
	require.NoError(t, err)

	const keySpace = 500
	for i := 0; i < keySpace; i++ {
		_, _, err := sm.Put(i, i)
		require.NoError(t, err)
	}

	var g errgroup.Group
	g.Go(func() error {
		for round := 0; round < 500; round++ {
			for i := 0; i < keySpace; i++ {
				sm.Put(i, i)
			}
		}
		return nil
	})
	g.Go(func() error {
		for round := 0; round < 500; round++ {
			for i := 0; i < keySpace; i++ {
				sm.Remove(i)
			}
		}
		return nil
	})
	g.Go(func() error {
		for round := 0; round < 500; round++ {
			for i := 0; i < keySpace; i++ {
				if _, ok, _ := sm.Get(i); ok {
					_ = ok
				}
			}
		}
		return nil
	})
	g.Go(func() error {
		for round := 0; round < 100; round++ {
			sm.Range(func(k, v int) bool {
				require.Equal(t, k, v)
				return true
			})
		}
		return nil
	})
	require.NoError(t, g.Wait())
}
