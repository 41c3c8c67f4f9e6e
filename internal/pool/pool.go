// Package pool recycles frame buffers.
package pool

import "sync"

// Pool is a thread-safe pool of byte buffers grouped by length.
//
// Frame pipelines allocate the same few sizes over and over; returning a
// buffer with Put lets the next Get of that length reuse it.
type Pool struct {
	mu      sync.Mutex
	buckets map[int][][]byte
	maxSize int // max buffers per bucket
}

// New creates a pool retaining at most maxPerBucket buffers of each length.
// Zero or negative means unlimited.
func New(maxPerBucket int) *Pool {
	return &Pool{
		buckets: make(map[int][][]byte),
		maxSize: maxPerBucket,
	}
}

// Get returns a zeroed buffer of n bytes, reusing a pooled one if any.
func (p *Pool) Get(n int) []byte {
	p.mu.Lock()
	bucket := p.buckets[n]
	if len(bucket) == 0 {
		p.mu.Unlock()
		return make([]byte, n)
	}
	buf := bucket[len(bucket)-1]
	bucket[len(bucket)-1] = nil
	p.buckets[n] = bucket[:len(bucket)-1]
	p.mu.Unlock()

	clear(buf)
	return buf
}

// Put returns buf to the pool. Buffers are keyed by len(buf); a full bucket
// drops the buffer.
func (p *Pool) Put(buf []byte) {
	if len(buf) == 0 {
		return
	}
	buf = buf[:len(buf):len(buf)]

	p.mu.Lock()
	defer p.mu.Unlock()
	bucket := p.buckets[len(buf)]
	if p.maxSize > 0 && len(bucket) >= p.maxSize {
		return
	}
	p.buckets[len(buf)] = append(bucket, buf)
}

// Len returns the number of pooled buffers of n bytes.
func (p *Pool) Len(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buckets[n])
}

// Drain drops every pooled buffer.
func (p *Pool) Drain() {
	p.mu.Lock()
	p.buckets = make(map[int][][]byte)
	p.mu.Unlock()
}
