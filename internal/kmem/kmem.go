// Package kmem accounts for kernel heap usage.
//
// The kernel charges every open file object and every syscall bounce buffer
// against a fixed budget. Allocation never blocks: when the budget cannot
// cover a request the caller gets an OUT_OF_MEMORY error and must unwind.
package kmem

import (
	"slices"
	"sync/atomic"

	"github.com/valyala/bytebufferpool"
	"golang.org/x/sync/semaphore"

	"github.com/jmgilman/go/filetable/errors"
)

// Heap is a weighted kernel memory budget. A nil *Heap is unlimited.
type Heap struct {
	limit int64
	sem   *semaphore.Weighted // nil if unlimited
	used  atomic.Int64
}

// New creates a heap with the given limit in bytes. A limit of 0 tracks
// usage without enforcing a ceiling.
func New(limit int64) *Heap {
	h := &Heap{limit: limit}
	if limit > 0 {
		h.sem = semaphore.NewWeighted(limit)
	}
	return h
}

// Alloc charges n bytes against the budget.
func (h *Heap) Alloc(n int64) error {
	if h == nil || n <= 0 {
		return nil
	}
	if h.sem != nil && !h.sem.TryAcquire(n) {
		return errors.WithContextMap(
			errors.New(errors.CodeOutOfMemory, "kernel heap exhausted"),
			map[string]interface{}{"requested": n, "used": h.used.Load(), "limit": h.limit},
		)
	}
	h.used.Add(n)
	return nil
}

// Free returns n bytes to the budget.
func (h *Heap) Free(n int64) {
	if h == nil || n <= 0 {
		return
	}
	if h.sem != nil {
		h.sem.Release(n)
	}
	h.used.Add(-n)
}

// Used returns the bytes currently charged.
func (h *Heap) Used() int64 {
	if h == nil {
		return 0
	}
	return h.used.Load()
}

// Limit returns the configured ceiling, or 0 when unlimited.
func (h *Heap) Limit() int64 {
	if h == nil {
		return 0
	}
	return h.limit
}

// Buffer is a charged bounce buffer taken from a shared pool.
type Buffer struct {
	heap *Heap
	bb   *bytebufferpool.ByteBuffer
	size int64
}

// Bounce returns a buffer of exactly n bytes, charged against the heap.
// The contents are unspecified. Callers must Release it.
func (h *Heap) Bounce(n int) (*Buffer, error) {
	if n < 0 {
		return nil, errors.Newf(errors.CodeInvalidArgument, "negative buffer length %d", n)
	}
	if err := h.Alloc(int64(n)); err != nil {
		return nil, err
	}
	bb := bytebufferpool.Get()
	bb.B = slices.Grow(bb.B[:0], n)[:n]
	return &Buffer{heap: h, bb: bb, size: int64(n)}, nil
}

// Bytes returns the buffer contents.
func (b *Buffer) Bytes() []byte {
	return b.bb.B
}

// Release returns the buffer to the pool and uncharges it. Release is
// idempotent.
func (b *Buffer) Release() {
	if b == nil || b.bb == nil {
		return
	}
	bytebufferpool.Put(b.bb)
	b.bb = nil
	b.heap.Free(b.size)
}
