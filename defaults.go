package keyedlock

// Default configuration values for New.
// These constants are exported so callers can reference the defaults
// when building custom configurations relative to them.
const (
	// DefaultMaxCount is the number of concurrent holders admitted per key
	// when WithMaxCount is not supplied. A value of 1 gives ordinary mutual
	// exclusion per key.
	DefaultMaxCount = 1

	// DefaultPoolSize is the capacity of the Releaser free list when
	// WithPoolSize is not supplied. 0 disables pooling: every key
	// transition allocates a fresh Releaser.
	DefaultPoolSize = 0

	// DefaultConcurrencyLevel hints the expected number of goroutines
	// operating on the index concurrently when WithConcurrencyLevel is not
	// supplied. 0 lets the underlying concurrent map pick its own default.
	DefaultConcurrencyLevel = 0

	// DefaultInitialCapacity hints the expected number of distinct live
	// keys when WithInitialCapacity is not supplied. 0 lets the underlying
	// concurrent map pick its own default.
	DefaultInitialCapacity = 0
)

// There is no DefaultPoolInitialFill constant: when WithPoolInitialFill is
// not supplied, New fills the pool completely by defaulting
// PoolInitialFill to the resolved PoolSize (0 when pooling is disabled, in
// which case the fill is also 0). No single number holds across
// configurations, so the rule is documented here instead of as a constant.
