package swiss

import (
	"math/bits"
	"runtime"
)

// defaultLoadFactor matches the classic SwissTable figure: the table is due
// for a rehash once 7/8 of all its slots are live or tombstoned.
const defaultLoadFactor = 0.875

// maxShardBits bounds shardCount: shard selection consumes the high bits of
// the 32-bit smeared hash, and h2 always claims the low 7 bits, leaving at
// most 32-7 = 25 bits available to split between h1 and shard selection.
const maxShardBits = 32 - 7

type config[K comparable, V any] struct {
	initialCapacity int
	loadFactor      float64
	hash            HashFunc[K]
	shardCount      int
}

// defaultShardCount rounds runtime.NumCPU() up to a power of two so shard
// selection can mask instead of mod. NewMap and NewSet do not use shardCount,
// though buildConfig still validates it for them.
func defaultShardCount() int {
	return int(nextPow2(uint32(runtime.NumCPU())))
}

func newConfig[K comparable, V any]() config[K, V] {
	return config[K, V]{
		initialCapacity: defaultInitialCapacity,
		loadFactor:      defaultLoadFactor,
		hash:            defaultHashFunc[K](),
		shardCount:      defaultShardCount(),
	}
}

type initialCapacityOption[K comparable, V any] struct {
	initialCapacity int
}

func (op initialCapacityOption[K, V]) apply(c *config[K, V]) {
	c.initialCapacity = op.initialCapacity
}

// WithInitialCapacity overrides the default initial capacity (16). The
// table is always sized to at least this many slots, rounded up to the
// table core's group-aligned capacity.
func WithInitialCapacity[K comparable, V any](initialCapacity int) Option[K, V] {
	return initialCapacityOption[K, V]{initialCapacity}
}

// Option configures a Map, Set, or ShardedMap at construction time.
type Option[K comparable, V any] interface {
	apply(c *config[K, V])
}

type loadFactorOption[K comparable, V any] struct {
	loadFactor float64
}

func (op loadFactorOption[K, V]) apply(c *config[K, V]) {
	c.loadFactor = op.loadFactor
}

// WithLoadFactor overrides the default load factor (0.875). Valid values are
// in (0, 1); a constructor receiving a value outside that range returns an
// InvalidConfiguration error rather than panicking.
func WithLoadFactor[K comparable, V any](loadFactor float64) Option[K, V] {
	return loadFactorOption[K, V]{loadFactor}
}

type hashFuncOption[K comparable, V any] struct {
	hash HashFunc[K]
}

func (op hashFuncOption[K, V]) apply(c *config[K, V]) {
	c.hash = op.hash
}

// WithHashFunc overrides the default hash/maphash-backed hasher. Use
// HashString when K is string and the extra indirection of
// hash/maphash.Comparable is worth avoiding.
func WithHashFunc[K comparable, V any](hash HashFunc[K]) Option[K, V] {
	return hashFuncOption[K, V]{hash}
}

type shardCountOption[K comparable, V any] struct {
	shardCount int
}

func (op shardCountOption[K, V]) apply(c *config[K, V]) {
	c.shardCount = op.shardCount
}

// WithShardCount overrides the default shard count (runtime.NumCPU(),
// rounded up to a power of two) of a ShardedMap. Map and Set do not use it,
// but their constructors still return InvalidConfiguration for an invalid
// value. shardCount is rounded up to the next power of two so shard
// selection can mask instead of mod.
func WithShardCount[K comparable, V any](shardCount int) Option[K, V] {
	return shardCountOption[K, V]{shardCount}
}

func buildConfig[K comparable, V any](opts []Option[K, V]) (config[K, V], error) {
	c := newConfig[K, V]()
	for _, opt := range opts {
		opt.apply(&c)
	}
	if c.loadFactor <= 0 || c.loadFactor >= 1 {
		return c, newError(InvalidConfiguration, "load factor %v must be in (0, 1)", c.loadFactor)
	}
	if c.initialCapacity < 0 {
		return c, newError(InvalidConfiguration, "initial capacity %d must be non-negative", c.initialCapacity)
	}
	if c.shardCount <= 0 {
		return c, newError(InvalidConfiguration, "shard count %d must be positive", c.shardCount)
	}
	if rounded := nextPow2(uint32(c.shardCount)); bits.Len32(rounded-1) > maxShardBits {
		return c, newError(InvalidConfiguration, "shard count %d rounds up to 2^%d shards, exceeding the %d-bit budget left after h2", c.shardCount, bits.Len32(rounded-1), maxShardBits)
	}
	return c, nil
}
