package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func newTestEngine[K comparable](maxCount int64) *Engine[K] {
	return NewEngine[K](EngineConfig{MaxCount: maxCount})
}

func TestEngine_GetOrAdd_FastPath(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](2)
	r1 := e.GetOrAdd("a")
	r2 := e.GetOrAdd("a")

	if r1 != r2 {
		t.Fatal("GetOrAdd on a still-live key returned different Releasers")
	}
	if got := r1.refCountSnapshot("a"); got != 2 {
		t.Errorf("refCount = %d, want 2", got)
	}
}

func TestEngine_GetOrAdd_InstallsNewKey(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](1)
	r := e.GetOrAdd("a")
	if r == nil {
		t.Fatal("GetOrAdd = nil")
	}
	if !e.IsInUse("a") {
		t.Error("IsInUse(a) = false after GetOrAdd")
	}
	if e.IsInUse("b") {
		t.Error("IsInUse(b) = true, want false (never added)")
	}
}

func TestEngine_GetOrAdd_AdoptsExistingAfterRace(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](5)
	var wg sync.WaitGroup
	releasers := make([]*Releaser[string], 20)
	for i := range releasers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			releasers[i] = e.GetOrAdd("shared")
		}(i)
	}
	wg.Wait()

	first := releasers[0]
	for i, r := range releasers {
		if r != first {
			t.Fatalf("releaser %d differs from releaser 0: exactly one Releaser per key is violated", i)
		}
	}
	if got := first.refCountSnapshot("shared"); got != int64(len(releasers)) {
		t.Errorf("refCount = %d, want %d", got, len(releasers))
	}
}

func TestEngine_Release_RemovesFromIndexOnLastHolder(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](1)
	r := e.GetOrAdd("a")
	if !e.IsInUse("a") {
		t.Fatal("expected key to be in use immediately after GetOrAdd")
	}

	e.Release(r)
	if e.IsInUse("a") {
		t.Error("IsInUse(a) = true after releasing the only holder")
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d, want 0", e.Len())
	}
}

func TestEngine_Release_KeepsEntryWhileOtherHoldersRemain(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](5)
	r1 := e.GetOrAdd("a")
	r2 := e.GetOrAdd("a")

	e.Release(r1)
	if !e.IsInUse("a") {
		t.Fatal("IsInUse(a) = false after releasing only one of two holders")
	}
	if got := r2.refCountSnapshot("a"); got != 1 {
		t.Errorf("refCount = %d, want 1", got)
	}

	e.Release(r2)
	if e.IsInUse("a") {
		t.Error("IsInUse(a) = true after releasing all holders")
	}
}

func TestEngine_Release_ReturnsPermit(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](1)
	r := e.GetOrAdd("a")

	ctx := context.Background()
	if err := r.Sem().Acquire(ctx, 1); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	if r.Sem().TryAcquire(1) {
		t.Fatal("TryAcquire succeeded before the permit was released")
	}

	e.Release(r)

	// Release put r back in the index-free state and released the permit;
	// a fresh acquisition on a newly installed Releaser for the same key
	// should succeed immediately.
	r2 := e.GetOrAdd("a")
	if !r2.Sem().TryAcquire(1) {
		t.Fatal("TryAcquire failed on a fresh Releaser after the prior one was released")
	}
}

func TestEngine_ReleaseWithoutPermitRelease_LeavesSemaphoreUntouched(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](1)
	r := e.GetOrAdd("a")

	if !r.Sem().TryAcquire(1) {
		t.Fatal("expected the first TryAcquire to succeed against a fresh semaphore")
	}

	e.ReleaseWithoutPermitRelease(r)

	if e.IsInUse("a") {
		t.Error("IsInUse(a) = true after releasing the only holder")
	}
	if r.Sem().TryAcquire(1) {
		t.Error("TryAcquire succeeded: ReleaseWithoutPermitRelease returned a permit")
	}
}

func TestEngine_MutualExclusion_MaxCountOne(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](1)
	const n = 100
	var inside int32
	var maxObserved int32
	var mu sync.Mutex

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			r := e.GetOrAdd("k")
			defer e.Release(r)

			ctx := context.Background()
			if err := r.Sem().Acquire(ctx, 1); err != nil {
				return err
			}
			defer r.Sem().Release(1)

			cur := atomic.AddInt32(&inside, 1)
			mu.Lock()
			if cur > maxObserved {
				maxObserved = cur
			}
			mu.Unlock()
			atomic.AddInt32(&inside, -1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxObserved != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxObserved)
	}
}

func TestEngine_MutualExclusion_MaxCountThree(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](3)
	const n = 60
	var inside int32
	var maxObserved int32
	var mu sync.Mutex

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			r := e.GetOrAdd("k")
			defer e.Release(r)

			ctx := context.Background()
			if err := r.Sem().Acquire(ctx, 1); err != nil {
				return err
			}
			defer r.Sem().Release(1)

			cur := atomic.AddInt32(&inside, 1)
			mu.Lock()
			if cur > maxObserved {
				maxObserved = cur
			}
			mu.Unlock()
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if maxObserved != 3 {
		t.Errorf("max concurrent holders = %d, want 3", maxObserved)
	}
}

func TestEngine_IndependentKeysDoNotContend(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](1)
	rA := e.GetOrAdd("a")
	rB := e.GetOrAdd("b")

	ctx := context.Background()
	if err := rA.Sem().Acquire(ctx, 1); err != nil {
		t.Fatalf("Acquire(a) failed: %v", err)
	}
	defer rA.Sem().Release(1)

	acquired := make(chan struct{})
	go func() {
		if err := rB.Sem().Acquire(ctx, 1); err == nil {
			close(acquired)
		}
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("key b was blocked by a held lock on key a")
	}
}

func TestEngine_RemainingAndCurrentCount(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](3)
	if got := e.RemainingCount("a"); got != 0 {
		t.Errorf("RemainingCount(unknown key) = %d, want 0", got)
	}

	r1 := e.GetOrAdd("a")
	_ = e.GetOrAdd("a")

	if got := e.RemainingCount("a"); got != 2 {
		t.Errorf("RemainingCount = %d, want 2", got)
	}
	if got := e.CurrentCount("a"); got != 1 {
		t.Errorf("CurrentCount = %d, want 1", got)
	}

	e.Release(r1)
	if got := e.RemainingCount("a"); got != 1 {
		t.Errorf("RemainingCount after one release = %d, want 1", got)
	}
}

func TestEngine_LenAndSnapshot(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](1)
	if e.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", e.Len())
	}

	rA := e.GetOrAdd("a")
	e.GetOrAdd("b")

	if e.Len() != 2 {
		t.Errorf("Len() = %d, want 2", e.Len())
	}

	snap := e.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}
	if snap["a"] != 1 || snap["b"] != 1 {
		t.Errorf("Snapshot() = %v, want both keys at refCount 1", snap)
	}

	e.Release(rA)
	snap = e.Snapshot()
	if _, ok := snap["a"]; ok {
		t.Error("Snapshot() still contains a released key")
	}
}

func TestEngine_Close(t *testing.T) {
	t.Parallel()

	e := newTestEngine[string](1)
	e.GetOrAdd("a")

	if e.Closed() {
		t.Fatal("Closed() = true before Close")
	}

	e.Close()

	if !e.Closed() {
		t.Error("Closed() = false after Close")
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d after Close, want 0", e.Len())
	}
}

func TestEngine_Pooling_RecyclesReleasersAcrossKeyChurn(t *testing.T) {
	t.Parallel()

	e := NewEngine[string](EngineConfig{MaxCount: 1, PoolSize: 4})
	const rounds = 200
	for i := 0; i < rounds; i++ {
		r := e.GetOrAdd("rotating")
		e.Release(r)
	}
	if e.Len() != 0 {
		t.Errorf("Len() = %d after churn, want 0", e.Len())
	}
}

func TestEngine_Pooling_SurvivesConcurrentChurnAcrossManyKeys(t *testing.T) {
	t.Parallel()

	e := NewEngine[int](EngineConfig{MaxCount: 2, PoolSize: 8, PoolInitialFill: 4})
	const keys = 16
	const itersPerKey = 50

	var g errgroup.Group
	for k := 0; k < keys; k++ {
		k := k
		g.Go(func() error {
			for i := 0; i < itersPerKey; i++ {
				r := e.GetOrAdd(k % 4)
				ctx := context.Background()
				if err := r.Sem().Acquire(ctx, 1); err != nil {
					return err
				}
				r.Sem().Release(1)
				e.Release(r)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEngine_NewEngine_PanicsOnInvalidConfig(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatal("NewEngine did not panic on invalid config")
		}
	}()
	NewEngine[string](EngineConfig{MaxCount: 0})
}
