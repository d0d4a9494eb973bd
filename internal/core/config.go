package core

import (
	"errors"
	"fmt"
)

// EngineConfig holds configuration for an Engine. All fields are immutable
// after construction via NewEngine.
type EngineConfig struct {
	// MaxCount is the number of concurrent holders admitted per key.
	// Must be >= 1.
	MaxCount int64

	// PoolSize is the capacity of the Releaser free list. 0 disables
	// pooling: every key transition allocates a fresh Releaser.
	PoolSize int

	// PoolInitialFill is the number of Releasers preallocated into the
	// pool at construction time. Must be <= PoolSize.
	PoolInitialFill int

	// ConcurrencyLevel hints the expected number of goroutines that will
	// operate on the index concurrently. Reserved for a future concurrent
	// map constructor option; 0 lets the map pick its own default shard
	// count. See DESIGN.md for why it is currently accepted but unused.
	ConcurrencyLevel int

	// InitialCapacity hints the expected number of distinct live keys.
	// Passed through to the underlying concurrent map as a presize hint;
	// 0 lets the map pick its own default.
	InitialCapacity int
}

// Validate checks all EngineConfig invariants and returns an error
// describing every violation found. It uses errors.Join to report multiple
// issues at once, allowing callers to fix all problems in a single pass
// rather than playing whack-a-mole with one error at a time.
//
// Validate is called by NewEngine (which panics on error, since invalid
// config is a programmer error) and is exported so callers constructing an
// EngineConfig literal directly get the same defense in depth.
func (c EngineConfig) Validate() error {
	var errs []error

	if c.MaxCount < 1 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidMaxCount, c.MaxCount))
	}
	if c.PoolSize < 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrNegativePoolSize, c.PoolSize))
	}
	if c.PoolInitialFill < 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrNegativePoolInitialFill, c.PoolInitialFill))
	}
	if c.PoolInitialFill > c.PoolSize {
		errs = append(errs, fmt.Errorf("%w: got PoolInitialFill=%d, PoolSize=%d",
			ErrPoolInitialFillExceedsPoolSize, c.PoolInitialFill, c.PoolSize))
	}
	if c.ConcurrencyLevel < 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrNegativeConcurrencyLevel, c.ConcurrencyLevel))
	}
	if c.InitialCapacity < 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrNegativeInitialCapacity, c.InitialCapacity))
	}

	return errors.Join(errs...)
}
