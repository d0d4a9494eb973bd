package core

import (
	"sync"

	"golang.org/x/sync/semaphore"
)

// Releaser is a per-live-key record: a bounded semaphore of capacity
// MaxCount, a reference count of currently interested parties (holders,
// waiters, and the acquirer presently inserting it into the index), and the
// key it currently represents.
//
// mu serializes reads and writes of key, refCount, and notInUse. Every
// critical section under mu is O(1) and never suspends — it brackets only
// field reads/writes, never a semaphore wait or a map operation.
type Releaser[K comparable] struct {
	mu sync.Mutex

	// key is the key this Releaser currently represents. Mutable only while
	// the Releaser is owned by the pool, between Pool.take popping it and
	// publishing it back into the index.
	key K

	// sem is the bounded semaphore gating concurrent holders of key, with
	// capacity MaxCount.
	sem *semaphore.Weighted

	// refCount counts every waiter, every holder, and the installer during
	// its own installation window. The last release retires the Releaser
	// while refCount is still 1, without decrementing it to zero; the
	// retirement is recorded by notInUse instead.
	refCount int64

	// notInUse is true only while the Releaser sits in the pool, or during
	// the transient interval in which a racing goroutine could still
	// observe a stale index entry for it. Authoritative under mu.
	notInUse bool

	// engine is the back reference used by the release path.
	engine *Engine[K]
}

// newSemaphore constructs a bounded semaphore with the given capacity.
func newSemaphore(maxCount int64) *semaphore.Weighted {
	return semaphore.NewWeighted(maxCount)
}

// Sem returns the Releaser's bounded semaphore. Exported for the top-level
// acquisition facade, which waits on it directly.
func (r *Releaser[K]) Sem() *semaphore.Weighted {
	return r.sem
}

// Engine returns the Releaser's owning Engine.
func (r *Releaser[K]) Engine() *Engine[K] {
	return r.engine
}

// tryIncrement attempts to register another interested party on r. Under
// r's monitor, it checks that r is still live and still represents key; if
// both hold, it increments refCount and returns true. Otherwise it returns
// false without modifying state.
//
// The key re-check defends against an ABA hazard: a Releaser observed in
// the index may have already been retired and recycled by the pool for a
// different key between the caller's index lookup and this call taking the
// monitor.
func (r *Releaser[K]) tryIncrement(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.notInUse || r.key != key {
		return false
	}
	r.refCount++
	return true
}

// refCountSnapshot returns the current refCount, or 0 if the Releaser no
// longer represents key or has been retired. Advisory by construction: the
// value may be stale by the time the caller observes it.
func (r *Releaser[K]) refCountSnapshot(key K) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.notInUse || r.key != key {
		return 0
	}
	return r.refCount
}

// inUse reports whether r is currently live and represents key. Advisory.
func (r *Releaser[K]) inUse(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return !r.notInUse && r.key == key
}
