package parallel

import (
	"errors"
	"fmt"
	"sync"
)

// ErrPoolClosed is returned when a grid is dispatched on a closed pool.
var ErrPoolClosed = errors.New("parallel: pool closed")

// PanicError carries a panic raised by a grid chunk.
type PanicError struct {
	Row   int
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parallel: kernel panic at row %d: %v", e.Row, e.Value)
}

// chunksPerWorker bounds scheduling overhead while leaving room for stealing.
const chunksPerWorker = 4

// For runs kernel(row) for every row in [0, n) and waits for completion.
//
// Rows are grouped into contiguous chunks. A panic inside a chunk stops that
// chunk and is returned as a *PanicError; the first one wins. Other chunks
// still run to completion.
func (p *WorkerPool) For(n int, kernel func(row int)) error {
	if n <= 0 {
		return nil
	}
	if !p.running.Load() {
		return ErrPoolClosed
	}

	chunks := p.workers * chunksPerWorker
	if chunks > n {
		chunks = n
	}
	size := (n + chunks - 1) / chunks

	var (
		once  sync.Once
		first error
	)
	work := make([]func(), 0, chunks)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		work = append(work, func() {
			row := lo
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() { first = &PanicError{Row: row, Value: r} })
				}
			}()
			for ; row < hi; row++ {
				kernel(row)
			}
		})
	}

	if !p.ExecuteAll(work) {
		return ErrPoolClosed
	}
	return first
}
