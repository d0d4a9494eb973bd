package keyedlock

import (
	"fmt"

	"github.com/sturdycloud/keyedlock/internal/core"
)

// requireNonNegative panics if v < 0 with a descriptive message.
func requireNonNegative(name string, v int) {
	if v < 0 {
		panic(fmt.Sprintf("keyedlock: %s must not be negative, got %d", name, v))
	}
}

// Option configures a Locker during construction via New.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (negative sizes). These
// panics are intentional: option values are typically compile-time
// constants or package-level variables, so an invalid value indicates a
// programmer error rather than a runtime condition. The pattern mirrors
// [regexp.MustCompile] — fail fast during initialization instead of
// returning errors that would be universally fatal anyway.
type Option func(*core.EngineConfig)

// WithMaxCount sets the number of concurrent holders admitted per key.
//
// Default: [DefaultMaxCount].
//
// Panics if n < 1.
func WithMaxCount(n int64) Option {
	if n < 1 {
		panic(fmt.Sprintf("keyedlock: MaxCount must be >= 1, got %d", n))
	}
	return func(c *core.EngineConfig) {
		c.MaxCount = n
	}
}

// WithPoolSize sets the capacity of the Releaser free list. A positive
// value enables pooling of retired per-key records, amortizing allocation
// under hot-key churn. A value of 0 disables pooling entirely.
//
// Default: [DefaultPoolSize].
//
// Panics if size < 0.
func WithPoolSize(size int) Option {
	requireNonNegative("pool size", size)
	return func(c *core.EngineConfig) {
		c.PoolSize = size
	}
}

// WithPoolInitialFill sets the number of Releasers preallocated into the
// pool at construction time. Must be <= the configured pool size.
//
// Default: the resolved pool size, so the pool starts completely filled.
//
// Panics if fill < 0.
func WithPoolInitialFill(fill int) Option {
	requireNonNegative("pool initial fill", fill)
	return func(c *core.EngineConfig) {
		c.PoolInitialFill = fill
	}
}

// WithConcurrencyLevel hints the expected number of goroutines that will
// operate on the lock concurrently. The value is validated and stored in the
// configuration, but it is not passed to the underlying concurrent map and
// has no effect on its sizing.
//
// Default: [DefaultConcurrencyLevel].
//
// Panics if level < 0.
func WithConcurrencyLevel(level int) Option {
	requireNonNegative("concurrency level", level)
	return func(c *core.EngineConfig) {
		c.ConcurrencyLevel = level
	}
}

// WithInitialCapacity hints the expected number of distinct live keys,
// passed through to the underlying concurrent map as a presize hint.
//
// Default: [DefaultInitialCapacity].
//
// Panics if capacity < 0.
func WithInitialCapacity(capacity int) Option {
	requireNonNegative("initial capacity", capacity)
	return func(c *core.EngineConfig) {
		c.InitialCapacity = capacity
	}
}
