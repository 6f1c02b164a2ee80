package filetable

import (
	"sync"

	"github.com/jmgilman/go/filetable/fs/core"
)

// ObjectSize is the kernel heap charge for one open file object.
const ObjectSize int64 = 96

// OpenFile is one successfully opened file.
type OpenFile struct {
	vnode core.Vnode
	mode  core.AccessMode
	flags int
	slot  int

	// seq orders transfers and seeks on the object. It is held across vnode
	// I/O, so it is never taken under a process or table lock.
	seq sync.Mutex

	mu     sync.Mutex
	offset int64

	// Guarded by Table.mu.
	refs     int
	pins     int
	detached bool
}

// Vnode returns the underlying vnode.
func (of *OpenFile) Vnode() core.Vnode {
	return of.vnode
}

// Mode returns the access mode the object was opened with.
func (of *OpenFile) Mode() core.AccessMode {
	return of.mode
}

// Flags returns the open flags.
func (of *OpenFile) Flags() int {
	return of.flags
}

// Append reports whether writes go to end of file.
func (of *OpenFile) Append() bool {
	return of.flags&core.O_APPEND != 0
}

// Slot returns the table slot the object was installed in.
func (of *OpenFile) Slot() int {
	return of.slot
}

// Offset returns the current offset.
func (of *OpenFile) Offset() int64 {
	of.mu.Lock()
	defer of.mu.Unlock()
	return of.offset
}

// SetOffset stores a new offset.
func (of *OpenFile) SetOffset(off int64) {
	of.mu.Lock()
	defer of.mu.Unlock()
	of.offset = off
}

// UpdateOffset computes a new offset from the current one. Transfers and
// other updates on the object wait until fn returns. If fn fails the offset
// is unchanged.
func (of *OpenFile) UpdateOffset(fn func(cur int64) (int64, error)) (int64, error) {
	of.seq.Lock()
	defer of.seq.Unlock()

	cur := of.Offset()
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	of.SetOffset(next)
	return next, nil
}

// Transfer runs one read or write against the object. fn receives the
// current offset and returns the position it transferred at and the byte
// count; the offset then moves to start+n. Transfers, seeks and offset
// updates on the same object never interleave. If fn fails the offset is
// unchanged.
func (of *OpenFile) Transfer(fn func(cur int64) (start int64, n int, err error)) (int, error) {
	of.seq.Lock()
	defer of.seq.Unlock()

	start, n, err := fn(of.Offset())
	if err != nil {
		return 0, err
	}
	of.SetOffset(start + int64(n))
	return n, nil
}
