package keyedlock

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sturdycloud/keyedlock/internal/core"
)

// Locker multiplexes a family of independent bounded semaphores, one per
// key drawn from K. Acquiring the lock for key k admits up to MaxCount
// concurrent holders of that key while remaining independent of
// acquisitions on any other key k' != k.
//
// Safe for concurrent use by multiple goroutines.
type Locker[K comparable] struct {
	engine *core.Engine[K]
	closed atomic.Bool
}

// unsetPoolInitialFill marks that the caller never called
// WithPoolInitialFill, so New should default it to the resolved PoolSize
// once all options have run. WithPoolInitialFill panics on negative input,
// so -1 can never be a caller-supplied value.
const unsetPoolInitialFill = -1

// New creates a Locker from the given options. Panics if the resulting
// configuration is invalid (e.g. MaxCount < 1) — invalid option values are
// a programmer error, not a runtime condition worth returning as an error.
func New[K comparable](opts ...Option) *Locker[K] {
	cfg := core.EngineConfig{
		MaxCount:         DefaultMaxCount,
		PoolSize:         DefaultPoolSize,
		PoolInitialFill:  unsetPoolInitialFill,
		ConcurrencyLevel: DefaultConcurrencyLevel,
		InitialCapacity:  DefaultInitialCapacity,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.PoolInitialFill == unsetPoolInitialFill {
		// No explicit WithPoolInitialFill: a caller who only set a pool
		// size expects a fully pre-filled pool.
		cfg.PoolInitialFill = cfg.PoolSize
	}
	return &Locker[K]{engine: core.NewEngine[K](cfg)}
}

// Handle is a scoped acquisition token for a single key. Its Release method
// invokes the underlying engine release exactly once, even if called more
// than once.
type Handle[K comparable] struct {
	releaser *core.Releaser[K]
	once     sync.Once
}

// Release returns the permit and retires the handle's interest in its key,
// via the releaser's own owning engine. Safe to call multiple times; only
// the first call has an effect. Intended to be called via defer immediately
// after a successful acquisition.
func (h *Handle[K]) Release() {
	h.once.Do(func() {
		h.releaser.Engine().Release(h.releaser)
	})
}

// Lock blocks until a permit for key is available or ctx is done, whichever
// comes first. On success it returns a Handle whose Release must be called
// exactly once (typically via defer) to return the permit. On ctx
// cancellation or deadline, it returns an error wrapping ctx.Err(); the
// engine-side bookkeeping for the failed attempt has already been
// performed.
func (l *Locker[K]) Lock(ctx context.Context, key K) (*Handle[K], error) {
	if l.closed.Load() {
		return nil, ErrClosed
	}

	r := l.engine.GetOrAdd(key)
	if err := r.Sem().Acquire(ctx, 1); err != nil {
		l.engine.ReleaseWithoutPermitRelease(r)
		return nil, fmt.Errorf("keyedlock: context done while waiting for key: %w", err)
	}
	return &Handle[K]{releaser: r}, nil
}

// TryLock attempts to acquire a permit for key without blocking. It reports
// entered = false, with a nil Handle, if no permit was immediately
// available. On entered = true the returned Handle's Release must be called
// exactly once.
func (l *Locker[K]) TryLock(key K) (handle *Handle[K], entered bool) {
	if l.closed.Load() {
		return nil, false
	}

	r := l.engine.GetOrAdd(key)
	if !r.Sem().TryAcquire(1) {
		l.engine.ReleaseWithoutPermitRelease(r)
		return nil, false
	}
	return &Handle[K]{releaser: r}, true
}

// TryLockTimeout attempts to acquire a permit for key, waiting up to the
// deadline carried by ctx (typically created via context.WithTimeout). It
// reports entered = false if the deadline elapsed before a permit became
// available; a timeout is not an error. Any other ctx error (e.g.
// cancellation) is returned as an error, matching Lock's behavior.
func (l *Locker[K]) TryLockTimeout(ctx context.Context, key K) (handle *Handle[K], entered bool, err error) {
	if l.closed.Load() {
		return nil, false, ErrClosed
	}

	r := l.engine.GetOrAdd(key)
	acqErr := r.Sem().Acquire(ctx, 1)
	if acqErr == nil {
		return &Handle[K]{releaser: r}, true, nil
	}

	l.engine.ReleaseWithoutPermitRelease(r)
	if ctx.Err() == context.DeadlineExceeded {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("keyedlock: context done while waiting for key: %w", acqErr)
}

// WithLock acquires key, runs body while holding it, and guarantees
// Release runs on every exit path from body — including a panic or an
// error return. The body's error, if any, is returned unchanged.
func (l *Locker[K]) WithLock(ctx context.Context, key K, body func() error) error {
	h, err := l.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer h.Release()
	return body()
}

// IsInUse reports whether key currently has an active holder or waiter.
// Advisory: the result may be stale by the time the caller observes it.
func (l *Locker[K]) IsInUse(key K) bool {
	return l.engine.IsInUse(key)
}

// RemainingCount returns the number of parties currently interested in key
// (holders, waiters, and an installer mid-insertion), or 0 if key has no
// active Releaser. Advisory by construction.
func (l *Locker[K]) RemainingCount(key K) int64 {
	return l.engine.RemainingCount(key)
}

// CurrentCount returns MaxCount - RemainingCount(key), floored at 0.
// Advisory.
func (l *Locker[K]) CurrentCount(key K) int64 {
	return l.engine.CurrentCount(key)
}

// Len returns the number of currently active keys.
func (l *Locker[K]) Len() int {
	return l.engine.Len()
}

// Snapshot returns a best-effort, read-only view of active keys mapped to
// their advisory RemainingCount. Racy by construction.
func (l *Locker[K]) Snapshot() map[K]int64 {
	return l.engine.Snapshot()
}

// Close disposes the Locker: it releases all Releasers best-effort, clears
// the index, and disposes the pool. Close does not wait for in-flight
// acquisitions to complete. After Close, Lock and TryLockTimeout return
// ErrClosed, and TryLock reports entered = false.
func (l *Locker[K]) Close() {
	l.closed.Store(true)
	l.engine.Close()
}
