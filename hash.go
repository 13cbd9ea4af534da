package swiss

import (
	"hash/maphash"
	"reflect"

	"github.com/cespare/xxhash/v2"
)

// HashFunc computes a 64-bit hash for a key. The low 32 bits are folded
// against the high 32 bits before the smearing mix in h1/h2 is applied, so
// implementations need not worry about producing exactly 32 bits of output.
type HashFunc[K comparable] func(key K) uint64

// defaultHashFunc builds the package default: hash/maphash.Comparable seeded
// once per table, avoiding the unsafe tricks some hash table implementations
// use to reach into a language runtime's built-in hash function.
func defaultHashFunc[K comparable]() HashFunc[K] {
	seed := maphash.MakeSeed()
	return func(k K) uint64 {
		return maphash.Comparable(seed, k)
	}
}

// HashBytes builds a byte-slice hasher backed by github.com/cespare/xxhash/v2,
// which is noticeably faster than hash/maphash for long inputs. []byte is not
// comparable, so it can never be the K of a Map, Set or ShardedMap and the
// result is a plain function rather than a HashFunc; it can be called from
// inside a custom HashFunc for a key type that carries bytes.
func HashBytes() func(k []byte) uint64 {
	return func(k []byte) uint64 {
		return xxhash.Sum64(k)
	}
}

// HashString builds a HashFunc for string keys backed by
// github.com/cespare/xxhash/v2. Pass it to WithHashFunc when K is string.
func HashString() HashFunc[string] {
	return func(k string) uint64 {
		return xxhash.Sum64String(k)
	}
}

// fold collapses a 64-bit hash into 32 bits by XORing the halves together,
// so HashFunc implementations need not worry about producing exactly 32
// bits of output before the smear/h1/h2 mix below.
func fold(h64 uint64) uint32 {
	return uint32(h64) ^ uint32(h64>>32)
}

// smear improves the low-bit entropy of a 32-bit hash before it is split
// into h1/h2.
func smear(h uint32) uint32 {
	return h ^ (h >> 16)
}

// h1 extracts the group-selector bits: the upper 25 bits of the smeared hash.
func h1(h uint32) uint32 {
	return (h & 0xFFFFFF80) >> 7
}

// h2 extracts the 7-bit fingerprint stored in a control byte.
func h2(h uint32) uint8 {
	return uint8(h & 0x7F)
}

// splitHash runs a key through fn, folds it to 32 bits, smears it, and
// returns the (h1, h2) pair used throughout the table core.
func splitHash[K comparable](fn HashFunc[K], key K) (uint32, uint8) {
	h := smear(fold(fn(key)))
	return h1(h), h2(h)
}

// smearedHash32 is the smeared 32-bit hash of key, used directly by the
// sharded wrapper for shard selection (it reads the top bits, which the
// table's group mask discards from h1).
func smearedHash32[K comparable](fn HashFunc[K], key K) uint32 {
	return smear(fold(fn(key)))
}

// isNilKey reports whether key is a nil pointer/interface/map/slice/chan/func
// value. Most comparable K instantiations (ints, strings, structs) can never
// satisfy this and the check is a cheap no-op for them.
//
// A plain `any(key) == nil` comparison is not enough: boxing a nil *T into an
// interface value produces a non-nil interface (the type descriptor is still
// present), so the nil-ness has to be asked of the underlying value via
// reflection instead. A nil interface-typed key reaches reflect.ValueOf as a
// nil any and yields an invalid Value, which also counts as nil.
func isNilKey[K comparable](key K) bool {
	v := reflect.ValueOf(key)
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface, reflect.UnsafePointer:
		return v.IsNil()
	default:
		return false
	}
}
