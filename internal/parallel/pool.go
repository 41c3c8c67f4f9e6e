// Package parallel runs kernel grids on a fixed set of worker goroutines.
//
// A grid of n rows is cut into chunks and spread over per-worker queues.
// Idle workers steal chunks from busy ones, so uneven rows (edge clamping,
// skipped regions) do not leave workers idle.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// WorkerPool is a pool of goroutines executing grid chunks.
//
// Thread safety: WorkerPool is safe for concurrent use. Several dispatches
// may share one pool; their chunks interleave in the queues.
type WorkerPool struct {
	workers int

	// queues holds one buffered channel per worker.
	queues []chan func()

	// sending is held for reading while items are queued and for writing
	// while Close stops the workers, so no item lands after the drain.
	sending sync.RWMutex

	done    chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool
}

// NewWorkerPool starts a pool with the given number of workers.
// If workers is 0 or negative, GOMAXPROCS is used.
func NewWorkerPool(workers int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	depth := workers * 4
	if depth < 8 {
		depth = 8
	}

	p := &WorkerPool{
		workers: workers,
		queues:  make([]chan func(), workers),
		done:    make(chan struct{}),
	}
	for i := range workers {
		p.queues[i] = make(chan func(), depth)
	}
	p.running.Store(true)

	p.wg.Add(workers)
	for i := range workers {
		go p.worker(i)
	}
	return p
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	own := p.queues[id]
	for {
		select {
		case <-p.done:
			p.drain(own)
			return
		case fn := <-own:
			run(fn)
		default:
			if fn := p.steal(id); fn != nil {
				run(fn)
				continue
			}
			select {
			case <-p.done:
				p.drain(own)
				return
			case fn := <-own:
				run(fn)
			}
		}
	}
}

func run(fn func()) {
	if fn != nil {
		fn()
	}
}

// drain executes what is left in a queue after Close.
func (p *WorkerPool) drain(q chan func()) {
	for {
		select {
		case fn := <-q:
			run(fn)
		default:
			return
		}
	}
}

// steal takes one chunk from another worker's queue, or returns nil.
func (p *WorkerPool) steal(id int) func() {
	for i := range p.workers {
		if i == id {
			continue
		}
		select {
		case fn := <-p.queues[i]:
			return fn
		default:
		}
	}
	return nil
}

// ExecuteAll runs every work item and waits for all of them.
// It reports false, running nothing, if the pool is closed.
func (p *WorkerPool) ExecuteAll(work []func()) bool {
	p.sending.RLock()
	if !p.running.Load() {
		p.sending.RUnlock()
		return false
	}
	if len(work) == 0 {
		p.sending.RUnlock()
		return true
	}

	var wg sync.WaitGroup
	wg.Add(len(work))
	for i, fn := range work {
		p.queues[i%p.workers] <- func() {
			defer wg.Done()
			fn()
		}
	}
	p.sending.RUnlock()

	wg.Wait()
	return true
}

// Close stops accepting work, runs everything already queued and stops the
// workers. Close is safe to call multiple times.
func (p *WorkerPool) Close() {
	p.sending.Lock()
	if !p.running.CompareAndSwap(true, false) {
		p.sending.Unlock()
		return
	}
	close(p.done)
	p.sending.Unlock()
	p.wg.Wait()
}

// Workers returns the number of workers in the pool.
func (p *WorkerPool) Workers() int {
	return p.workers
}

// IsRunning reports whether the pool is accepting work.
func (p *WorkerPool) IsRunning() bool {
	return p.running.Load()
}

// QueuedWork returns an approximate count of queued chunks.
func (p *WorkerPool) QueuedWork() int {
	total := 0
	for _, q := range p.queues {
		total += len(q)
	}
	return total
}
