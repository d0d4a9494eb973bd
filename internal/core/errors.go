package core

import "github.com/sturdycloud/keyedlock/internal/sentinel"

// Sentinel errors for error inspection with errors.Is.
//
// These use the sentinel.Error const pattern instead of errors.New vars.
// sentinel.Error is a string type implementing error, allowing errors to be
// declared as const. This prevents accidental reassignment and enables
// compile-time immutability, while remaining compatible with errors.Is
// through Go's default == comparison on comparable types.
const (
	// ErrInvalidMaxCount is returned by EngineConfig.Validate when MaxCount < 1.
	ErrInvalidMaxCount = sentinel.Error("keyedlock: MaxCount must be >= 1")

	// ErrPoolInitialFillExceedsPoolSize is returned by EngineConfig.Validate when
	// PoolInitialFill > PoolSize.
	ErrPoolInitialFillExceedsPoolSize = sentinel.Error("keyedlock: PoolInitialFill must not exceed PoolSize")

	// ErrNegativePoolSize is returned by EngineConfig.Validate when PoolSize < 0.
	ErrNegativePoolSize = sentinel.Error("keyedlock: PoolSize must not be negative")

	// ErrNegativePoolInitialFill is returned by EngineConfig.Validate when
	// PoolInitialFill < 0.
	ErrNegativePoolInitialFill = sentinel.Error("keyedlock: PoolInitialFill must not be negative")

	// ErrNegativeConcurrencyLevel is returned by EngineConfig.Validate when
	// ConcurrencyLevel < 0.
	ErrNegativeConcurrencyLevel = sentinel.Error("keyedlock: ConcurrencyLevel must not be negative")

	// ErrNegativeInitialCapacity is returned by EngineConfig.Validate when
	// InitialCapacity < 0.
	ErrNegativeInitialCapacity = sentinel.Error("keyedlock: InitialCapacity must not be negative")

	// ErrClosed is returned by acquisition entry points once Close has run.
	ErrClosed = sentinel.Error("keyedlock: engine is closed")
)
