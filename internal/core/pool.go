package core

import "sync"

// pool is a bounded free list of reusable Releasers, amortizing Releaser
// allocation under hot-key churn. A pool has a capacity N >= 0 and an
// initial fill F <= N, preallocated at construction.
//
// take pops from the end of free, put pushes to the end: a plain LIFO free
// stack. This pool never blocks — take always succeeds (constructing fresh
// when the free list is empty) and put silently drops the Releaser when the
// free list is already at capacity. Concurrency bounding for a key lives in
// the Releaser's own semaphore (capacity MaxCount), not in this pool.
//
// Safe for concurrent take/put.
type pool[K comparable] struct {
	mu       sync.Mutex
	free     []*Releaser[K]
	capacity int
	maxCount int64
	engine   *Engine[K]
}

// newPool creates a pool with the given capacity, preallocating
// initialFill Releasers via newReleaser. The key used for preallocation is
// irrelevant: take always rewrites it before the Releaser becomes visible
// to any other goroutine.
func newPool[K comparable](capacity, initialFill int, maxCount int64, engine *Engine[K]) *pool[K] {
	p := &pool[K]{
		capacity: capacity,
		maxCount: maxCount,
		engine:   engine,
	}
	if capacity > 0 {
		p.free = make([]*Releaser[K], 0, capacity)
	}

	var zero K
	for range initialFill {
		p.free = append(p.free, p.newReleaser(zero))
	}
	return p
}

// newReleaser constructs a fresh Releaser for key with refCount 1,
// notInUse false, and a full-capacity semaphore.
func (p *pool[K]) newReleaser(key K) *Releaser[K] {
	return &Releaser[K]{
		key:      key,
		sem:      newSemaphore(p.maxCount),
		refCount: 1,
		notInUse: false,
		engine:   p.engine,
	}
}

// take returns a Releaser with its key field set to key, refCount 1,
// notInUse false, and its semaphore reset to full capacity. If the free
// list is non-empty it pops and rewrites the most recently freed entry;
// otherwise it constructs a fresh one via newReleaser.
//
// The popped Releaser is not reachable from the index or from the free list
// at the point its fields are rewritten below, so the rewrite is safe
// without taking the Releaser's own monitor (mu): no other goroutine holds
// a reference to it yet.
func (p *pool[K]) take(key K) *Releaser[K] {
	p.mu.Lock()
	n := len(p.free)
	if n == 0 {
		p.mu.Unlock()
		return p.newReleaser(key)
	}
	r := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	p.mu.Unlock()

	r.key = key
	r.refCount = 1
	r.notInUse = false
	// semaphore.Weighted exposes no reset/peek API, and the last holder's
	// permit-release can still be in flight when a Releaser is handed to
	// the pool (the releasing side pools before releasing its last permit).
	// Minting a fresh semaphore sidesteps that hazard entirely; see
	// DESIGN.md Open Question 1.
	r.sem = newSemaphore(p.maxCount)
	return r
}

// put returns r to the free list if it has room; otherwise r is dropped.
// Precondition: r.notInUse == true and no external reference is about to
// acquire r's semaphore.
func (p *pool[K]) put(r *Releaser[K]) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) >= p.capacity {
		Logger().Debug("keyedlock: pool full, dropping releaser", "capacity", p.capacity)
		return
	}
	p.free = append(p.free, r)
}

// clear empties the free list, dropping every pooled Releaser.
func (p *pool[K]) clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.free = nil
}

// size returns the number of Releasers currently held in the free list.
// Advisory; exposed for tests and introspection.
func (p *pool[K]) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
