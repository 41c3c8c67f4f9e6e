package parallel

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// WorkerPool Creation Tests
// =============================================================================

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("Pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefaultWorkers(t *testing.T) {
	for _, n := range []int{0, -5} {
		pool := NewWorkerPool(n)
		if pool.Workers() != runtime.GOMAXPROCS(0) {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want GOMAXPROCS", n, pool.Workers())
		}
		pool.Close()
	}
}

// =============================================================================
// ExecuteAll Tests
// =============================================================================

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		work[i] = func() { counter.Add(1) }
	}

	if !pool.ExecuteAll(work) {
		t.Fatal("ExecuteAll reported a closed pool")
	}
	if counter.Load() != 100 {
		t.Errorf("counter = %d, want 100", counter.Load())
	}
}

func TestWorkerPool_ExecuteAll_Empty(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if !pool.ExecuteAll(nil) {
		t.Error("ExecuteAll(nil) on a running pool should report true")
	}
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(4)
	pool.Close()

	var executed atomic.Bool
	if pool.ExecuteAll([]func(){func() { executed.Store(true) }}) {
		t.Error("ExecuteAll on closed pool should report false")
	}

	time.Sleep(20 * time.Millisecond)
	if executed.Load() {
		t.Error("Work was executed on closed pool")
	}
}

// =============================================================================
// For Tests
// =============================================================================

func TestWorkerPool_ForVisitsEveryRowOnce(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	for _, n := range []int{1, 2, 7, 12, 1080} {
		hits := make([]atomic.Int32, n)
		if err := pool.For(n, func(row int) { hits[row].Add(1) }); err != nil {
			t.Fatalf("For(%d): %v", n, err)
		}
		for row := range hits {
			if got := hits[row].Load(); got != 1 {
				t.Fatalf("For(%d): row %d visited %d times", n, row, got)
			}
		}
	}
}

func TestWorkerPool_ForZeroRows(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	called := false
	if err := pool.For(0, func(int) { called = true }); err != nil {
		t.Fatalf("For(0): %v", err)
	}
	if called {
		t.Error("kernel called for an empty grid")
	}
}

func TestWorkerPool_ForRecoversPanic(t *testing.T) {
	pool := NewWorkerPool(2)
	defer pool.Close()

	err := pool.For(64, func(row int) {
		if row == 40 {
			var s []byte
			_ = s[row]
		}
	})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("For error = %v, want *PanicError", err)
	}
	if pe.Row != 40 {
		t.Errorf("PanicError.Row = %d, want 40", pe.Row)
	}

	// The pool must survive a kernel panic.
	if err := pool.For(8, func(int) {}); err != nil {
		t.Errorf("For after panic: %v", err)
	}
}

func TestWorkerPool_ForClosed(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()

	if err := pool.For(4, func(int) {}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("For on closed pool = %v, want ErrPoolClosed", err)
	}
}

// =============================================================================
// Close Tests
// =============================================================================

func TestWorkerPool_CloseIdempotent(t *testing.T) {
	pool := NewWorkerPool(4)

	pool.Close()
	pool.Close()
	pool.Close()

	if pool.IsRunning() {
		t.Error("Pool should not be running after close")
	}
	if pool.QueuedWork() != 0 {
		t.Errorf("QueuedWork() = %d after close, want 0", pool.QueuedWork())
	}
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestWorkerPool_ConcurrentGrids(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var counter atomic.Int64
	const grids, rows = 10, 50

	var wg sync.WaitGroup
	wg.Add(grids)
	for g := 0; g < grids; g++ {
		go func() {
			defer wg.Done()
			if err := pool.For(rows, func(int) { counter.Add(1) }); err != nil {
				t.Errorf("For: %v", err)
			}
		}()
	}
	wg.Wait()

	if counter.Load() != grids*rows {
		t.Errorf("counter = %d, want %d", counter.Load(), grids*rows)
	}
}

func TestWorkerPool_CloseDuringExecuteAll(t *testing.T) {
	for round := 0; round < 50; round++ {
		pool := NewWorkerPool(2)

		const callers, items = 8, 64
		var ran, queued atomic.Int64
		var wg sync.WaitGroup
		wg.Add(callers)
		for c := 0; c < callers; c++ {
			go func() {
				defer wg.Done()
				work := make([]func(), items)
				for i := range work {
					work[i] = func() { ran.Add(1) }
				}
				if pool.ExecuteAll(work) {
					queued.Add(items)
				}
			}()
		}
		pool.Close()

		finished := make(chan struct{})
		go func() {
			wg.Wait()
			close(finished)
		}()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Fatalf("round %d: ExecuteAll did not return after Close", round)
		}
		if ran.Load() != queued.Load() {
			t.Fatalf("round %d: ran %d items, %d were accepted", round, ran.Load(), queued.Load())
		}
	}
}

func TestWorkerPool_WorkStealing(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	var slow, fast atomic.Int64
	work := make([]func(), 100)
	for i := range work {
		if i%10 == 0 {
			work[i] = func() {
				time.Sleep(5 * time.Millisecond)
				slow.Add(1)
			}
		} else {
			work[i] = func() { fast.Add(1) }
		}
	}

	start := time.Now()
	pool.ExecuteAll(work)
	t.Logf("Elapsed time: %v", time.Since(start))

	if slow.Load() != 10 || fast.Load() != 90 {
		t.Errorf("slow = %d, fast = %d, want 10 and 90", slow.Load(), fast.Load())
	}
}

func TestWorkerPool_NoGoroutineLeak(t *testing.T) {
	runtime.GC()
	time.Sleep(50 * time.Millisecond)
	baseline := runtime.NumGoroutine()

	for i := 0; i < 5; i++ {
		pool := NewWorkerPool(4)
		_ = pool.For(100, func(int) {})
		pool.Close()
	}

	runtime.GC()
	time.Sleep(100 * time.Millisecond)

	if final := runtime.NumGoroutine(); final > baseline+2 {
		t.Errorf("goroutine count: baseline=%d, final=%d (leak detected)", baseline, final)
	}
}
