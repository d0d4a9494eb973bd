package keyedlock

import "github.com/sturdycloud/keyedlock/internal/core"

// Sentinel errors for error inspection with errors.Is.
//
// These use the sentinel.Error const pattern instead of errors.New vars.
// sentinel.Error is a string type implementing error, allowing errors to be
// declared as const. This prevents accidental reassignment and enables
// compile-time immutability, while remaining compatible with errors.Is
// through Go's default == comparison on comparable types.
const (
	// ErrInvalidMaxCount is returned by EngineConfig.Validate when MaxCount < 1.
	ErrInvalidMaxCount = core.ErrInvalidMaxCount

	// ErrPoolInitialFillExceedsPoolSize is returned by EngineConfig.Validate when
	// PoolInitialFill exceeds PoolSize.
	ErrPoolInitialFillExceedsPoolSize = core.ErrPoolInitialFillExceedsPoolSize

	// ErrNegativePoolSize is returned by EngineConfig.Validate when PoolSize < 0.
	ErrNegativePoolSize = core.ErrNegativePoolSize

	// ErrNegativePoolInitialFill is returned by EngineConfig.Validate when
	// PoolInitialFill < 0.
	ErrNegativePoolInitialFill = core.ErrNegativePoolInitialFill

	// ErrNegativeConcurrencyLevel is returned by EngineConfig.Validate when
	// ConcurrencyLevel < 0.
	ErrNegativeConcurrencyLevel = core.ErrNegativeConcurrencyLevel

	// ErrNegativeInitialCapacity is returned by EngineConfig.Validate when
	// InitialCapacity < 0.
	ErrNegativeInitialCapacity = core.ErrNegativeInitialCapacity

	// ErrClosed is returned by acquisition entry points once Close has run.
	ErrClosed = core.ErrClosed
)
