// Package core provides the internal implementation of the keyed
// asynchronous lock.
//
// The primary types are:
//   - [Engine]: the concurrent index of live keys plus the GetOrAdd/Release/
//     ReleaseWithoutPermitRelease protocol that guarantees exactly one
//     Releaser per active key at any instant.
//   - [Releaser]: a per-live-key record bundling a bounded semaphore, a
//     reference count, and the key it currently represents.
//   - [EngineConfig]: validated, immutable configuration controlling
//     MaxCount, pool sizing, and index sizing hints.
package core

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Engine is the keyed-semaphore engine: a concurrent index from key to live
// Releaser, plus the GetOrAdd/Release/ReleaseWithoutPermitRelease protocols
// that maintain exactly one live Releaser per active key at any instant.
//
// Safe for concurrent use by multiple goroutines. There is no global lock:
// the index is a sharded, lock-free map, and per-Releaser state transitions
// serialize only under that Releaser's own monitor.
type Engine[K comparable] struct {
	cfg EngineConfig

	// index maps live keys to their current Releaser. Backed by a sharded,
	// lock-free concurrent map so that contention on distinct keys scales
	// with the map's internal striping rather than a single global lock.
	index *xsync.MapOf[K, *Releaser[K]]

	// pool recycles retired Releasers when cfg.PoolSize > 0. nil when
	// pooling is disabled, in which case every key transition allocates a
	// fresh Releaser.
	pool *pool[K]

	closed atomic.Bool
}

// NewEngine creates an Engine from cfg. Panics if cfg.Validate() reports any
// errors: invalid configuration is a programmer error that should be caught
// at construction time, similar to regexp.MustCompile.
func NewEngine[K comparable](cfg EngineConfig) *Engine[K] {
	if err := cfg.Validate(); err != nil {
		panic("keyedlock: invalid config: " + err.Error())
	}

	var idx *xsync.MapOf[K, *Releaser[K]]
	if cfg.InitialCapacity > 0 {
		idx = xsync.NewMapOf[K, *Releaser[K]](xsync.WithPresize(cfg.InitialCapacity))
	} else {
		idx = xsync.NewMapOf[K, *Releaser[K]]()
	}

	e := &Engine[K]{
		cfg:   cfg,
		index: idx,
	}
	if cfg.PoolSize > 0 {
		e.pool = newPool[K](cfg.PoolSize, cfg.PoolInitialFill, cfg.MaxCount, e)
	}
	return e
}

// GetOrAdd returns a live Releaser for key, creating and installing one if
// none is currently active, and atomically accounting for the caller's
// interest in it via refCount.
//
// Fast path: if key is already present and TryIncrement succeeds, that
// Releaser is reused.
//
// Slow path: a new Releaser is obtained (from the pool, or freshly
// constructed) with refCount already 1 for the installer's own interest,
// and raced into the index via repeated LoadOrStore. If another goroutine's
// Releaser wins the race and is still live, this goroutine discards its own
// and adopts the winner; if the winner is concurrently retiring,
// TryIncrement fails and the loop retries.
func (e *Engine[K]) GetOrAdd(key K) *Releaser[K] {
	if r, ok := e.index.Load(key); ok && r.tryIncrement(key) {
		return r
	}

	rNew := e.newReleaser(key)
	for {
		actual, loaded := e.index.LoadOrStore(key, rNew)
		if !loaded {
			// We installed rNew; its own +1 already accounts for us.
			return rNew
		}
		if actual == rNew {
			// We installed rNew on a later iteration, after the prior
			// occupant retired between our LoadOrStore calls.
			return actual
		}
		if actual.tryIncrement(key) {
			e.discard(rNew)
			return actual
		}
		// actual is concurrently retiring: its monitor reported notInUse
		// or a stale key (a pooled Releaser recycled for a different key
		// between our Load and this TryIncrement). Retry; by the time we
		// loop back, the retiring goroutine's Release has either removed
		// the entry (so our next LoadOrStore installs rNew) or not yet
		// gotten that far (so we spin).
		Logger().Debug("keyedlock: TryIncrement missed a retiring or recycled releaser, retrying", "key", key)
	}
}

// newReleaser obtains a Releaser for key, ready for installation with
// refCount == 1: from the pool if pooling is enabled, otherwise freshly
// constructed.
func (e *Engine[K]) newReleaser(key K) *Releaser[K] {
	if e.pool != nil {
		return e.pool.take(key)
	}
	return &Releaser[K]{
		key:      key,
		sem:      newSemaphore(e.cfg.MaxCount),
		refCount: 1,
		engine:   e,
	}
}

// discard marks r as not-in-use and returns it to the pool, if pooling is
// enabled. r was never published to the index, so no other goroutine holds
// a reference to it; no monitor acquisition is needed here.
func (e *Engine[K]) discard(r *Releaser[K]) {
	r.notInUse = true
	if e.pool != nil {
		e.pool.put(r)
	}
}

// Release is the release path for a successful acquisition: it performs the
// ref-counting bookkeeping and, on the last holder, removes r from the
// index and retires it, before finally returning a permit to r's semaphore.
func (e *Engine[K]) Release(r *Releaser[K]) {
	e.release(r, true)
}

// ReleaseWithoutPermitRelease is the release path for an acquisition that
// failed (timeout or cancellation) before a permit was ever taken. It
// performs the same ref-counting and retirement bookkeeping as Release but
// never calls r.sem.Release, since the caller never acquired a permit to
// return.
func (e *Engine[K]) ReleaseWithoutPermitRelease(r *Releaser[K]) {
	e.release(r, false)
}

// release is the shared implementation of Release and ReleaseWithoutPermitRelease.
//
// Critical ordering rule: on the last-out path, the index removal and
// notInUse=true happen under r's monitor, strictly before the permit is
// released and before r is returned to the pool. This guarantees that any
// racing GetOrAdd either observes the old mapping and fails TryIncrement
// (because notInUse is now true) and retries, or observes the mapping gone
// outright and takes the slow path.
func (e *Engine[K]) release(r *Releaser[K], returnPermit bool) {
	r.mu.Lock()
	// Capture the semaphore before r can reach the pool: once pooled, take
	// may hand r out again and replace r.sem with a fresh one.
	sem := r.sem
	if r.refCount == 1 {
		// r is the only remaining interested party: this Delete is safe
		// unconditionally because no other goroutine can install a
		// competing mapping for r.key while r's monitor is held — see
		// DESIGN.md Open Question 2.
		e.index.Delete(r.key)
		r.notInUse = true
		r.mu.Unlock()

		if e.pool != nil {
			e.pool.put(r)
		}
		if returnPermit {
			sem.Release(1)
		}
		return
	}

	r.refCount--
	r.mu.Unlock()

	if returnPermit {
		sem.Release(1)
	}
}

// IsInUse reports whether key currently has a live Releaser. Advisory: the
// result may be stale by the time the caller observes it.
func (e *Engine[K]) IsInUse(key K) bool {
	r, ok := e.index.Load(key)
	if !ok {
		return false
	}
	return r.inUse(key)
}

// RemainingCount returns the current refCount for key, or 0 if key has no
// live Releaser. Advisory by construction.
func (e *Engine[K]) RemainingCount(key K) int64 {
	r, ok := e.index.Load(key)
	if !ok {
		return 0
	}
	return r.refCountSnapshot(key)
}

// CurrentCount returns MaxCount - RemainingCount(key), floored at 0 when
// RemainingCount exceeds MaxCount (waiters beyond the holders). Advisory: like
// RemainingCount, this approximates interested-party count, not the
// semaphore's exact available-permit count.
func (e *Engine[K]) CurrentCount(key K) int64 {
	remaining := e.RemainingCount(key)
	if remaining > e.cfg.MaxCount {
		remaining = e.cfg.MaxCount
	}
	return e.cfg.MaxCount - remaining
}

// Len returns the number of currently active keys in the index.
func (e *Engine[K]) Len() int {
	return e.index.Size()
}

// PoolLen returns the number of Releasers currently sitting in the free
// list, or 0 if pooling is disabled. Advisory; exposed for introspection
// and tests.
func (e *Engine[K]) PoolLen() int {
	if e.pool == nil {
		return 0
	}
	return e.pool.size()
}

// Snapshot returns a best-effort, read-only view of the index: a copy of
// each live key mapped to its advisory refCount. Racy by construction — the
// index may change between Range iterations and the caller observing the
// result.
func (e *Engine[K]) Snapshot() map[K]int64 {
	out := make(map[K]int64, e.index.Size())
	e.index.Range(func(key K, r *Releaser[K]) bool {
		out[key] = r.refCountSnapshot(key)
		return true
	})
	return out
}

// Close releases all Releasers (best-effort), clears the index, and
// disposes the pool. Close does not wait for in-flight acquisitions to
// complete: disposal with acquisitions still in flight is best-effort, with
// no guarantee that in-flight waiters receive a coherent error.
func (e *Engine[K]) Close() {
	if e.index.Size() > 0 {
		Logger().Warn("keyedlock: Close called with active keys still in the index", "count", e.index.Size())
	}
	e.index.Clear()
	if e.pool != nil {
		e.pool.clear()
	}
	e.closed.Store(true)
}

// Closed reports whether Close has been called.
func (e *Engine[K]) Closed() bool {
	return e.closed.Load()
}
