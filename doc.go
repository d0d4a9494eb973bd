// Package keyedlock provides a keyed asynchronous lock: a concurrency
// primitive that multiplexes a family of independent bounded semaphores,
// one per key drawn from a user-supplied comparable key type.
//
// Acquiring the lock for key k admits up to a configured MaxCount
// concurrent holders of that key while remaining independent of
// acquisitions on any other key k' != k. This serializes critical sections
// on logical entities (account IDs, file paths, tenant IDs) without
// serializing unrelated work.
//
// # Basic Usage
//
//	import "github.com/sturdycloud/keyedlock"
//
//	locker := keyedlock.New[string](keyedlock.WithMaxCount(1))
//	defer locker.Close()
//
//	ctx := context.Background()
//	h, err := locker.Lock(ctx, "account-42")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Release()
//
//	// critical section for "account-42"
//
// # WithLock
//
// WithLock bundles acquire/release around a callback, guaranteeing release
// runs on every exit path including an error return:
//
//	err := locker.WithLock(ctx, "account-42", func() error {
//	    return doWork()
//	})
//
// # Non-blocking and timed acquisition
//
//	h, entered := locker.TryLock("account-42")
//	if !entered {
//	    // permit unavailable; no Handle to release
//	}
//
//	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
//	defer cancel()
//	h, entered, err := locker.TryLockTimeout(ctx, "account-42")
//	if err != nil {
//	    log.Fatal(err) // cancellation, not a timeout
//	}
//	if !entered {
//	    // deadline elapsed before a permit became available
//	}
//
// # Pooling
//
// By default every key transition allocates a fresh per-key record.
// WithPoolSize enables recycling of retired records under hot-key churn:
//
//	locker := keyedlock.New[string](
//	    keyedlock.WithMaxCount(1),
//	    keyedlock.WithPoolSize(32),
//	)
//
// # Reentrancy
//
// keyedlock does not support reentrancy. A goroutine that acquires the same
// key twice consumes two permits and will deadlock if MaxCount is 1.
//
// # Fairness
//
// Fairness across keys is intentionally undefined. Within a single key,
// admission order follows the underlying semaphore's policy.
package keyedlock
