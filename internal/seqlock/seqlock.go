// Package seqlock provides an optimistic read/write lock in the shape of
// Java's java.util.concurrent.locks.StampedLock: an optimistic read that
// costs no lock acquisition on the fast path, with a blocking read lock and
// an exclusive write lock as fallbacks. Go's standard library has no
// StampedLock equivalent, so this is built directly on
// go.uber.org/atomic.Uint64 (the sequence counter) layered over a
// sync.RWMutex (the blocking fallback paths).
package seqlock

import (
	"sync"

	"go.uber.org/atomic"
)

// SeqLock pairs a sequence counter with a reader/writer mutex. The counter
// is even while quiescent and odd while a write is in flight; a reader that
// samples an even stamp, does its work, and observes the same stamp again
// knows no write was concurrent with it.
type SeqLock struct {
	seq atomic.Uint64
	mu  sync.RWMutex
}

// New returns a quiescent SeqLock.
func New() *SeqLock {
	return &SeqLock{}
}

// TryOptimisticRead returns the current stamp. The caller should perform its
// read, then call Validate with this stamp; if Validate reports false, the
// caller must retry via RLock instead.
func (l *SeqLock) TryOptimisticRead() uint64 {
	return l.seq.Load()
}

// IsWriting reports whether stamp was sampled while a write was in flight,
// in which case the caller must not trust any read performed under it and
// should fall back to RLock directly.
func (l *SeqLock) IsWriting(stamp uint64) bool {
	return stamp&1 == 1
}

// Validate reports whether the sequence counter is unchanged since stamp was
// sampled, i.e. no write completed concurrently with the optimistic read.
func (l *SeqLock) Validate(stamp uint64) bool {
	return l.seq.Load() == stamp
}

// RLock acquires the blocking read-side fallback.
func (l *SeqLock) RLock() {
	l.mu.RLock()
}

// RUnlock releases the blocking read-side fallback.
func (l *SeqLock) RUnlock() {
	l.mu.RUnlock()
}

// Lock acquires the exclusive write lock, incrementing the sequence counter
// to an odd value so any concurrent optimistic reader's Validate call will
// fail.
func (l *SeqLock) Lock() {
	l.mu.Lock()
	l.seq.Add(1)
}

// Unlock increments the sequence counter back to an even value and releases
// the exclusive write lock. Must only be called while holding the lock
// acquired by Lock.
func (l *SeqLock) Unlock() {
	l.seq.Add(1)
	l.mu.Unlock()
}
