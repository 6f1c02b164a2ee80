package filetable

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
	"golang.org/x/sync/errgroup"

	"github.com/jmgilman/go/filetable/errors"
	"github.com/jmgilman/go/filetable/fs/core"
	"github.com/jmgilman/go/filetable/internal/kmem"
	"github.com/jmgilman/go/filetable/internal/metrics"
)

// shutdownParallelism bounds concurrent vnode closes during Shutdown.
const shutdownParallelism = 8

// Table is the system-wide open file table. It is safe for concurrent use.
type Table struct {
	mu    sync.Mutex
	slots []*OpenFile
	free  *roaring.Bitmap // empty slots

	heap     *kmem.Heap
	recorder *metrics.Recorder
}

// Option configures a Table.
type Option func(*Table)

// WithHeap charges every installed object against h.
func WithHeap(h *kmem.Heap) Option {
	return func(t *Table) {
		t.heap = h
	}
}

// WithRecorder reports installs and reclaims to r.
func WithRecorder(r *metrics.Recorder) Option {
	return func(t *Table) {
		t.recorder = r
	}
}

// New creates a table with capacity empty slots. No per-slot memory is
// allocated until an object is installed.
func New(capacity int, opts ...Option) *Table {
	free := roaring.New()
	if capacity > 0 {
		free.AddRange(0, uint64(capacity))
	}
	t := &Table{
		slots: make([]*OpenFile, capacity),
		free:  free,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Cap returns the table capacity.
func (t *Table) Cap() int {
	return len(t.slots)
}

// Len returns the number of occupied slots.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots) - int(t.free.GetCardinality())
}

// Install places a new object for vn in the lowest empty slot with one
// reference and offset zero. On error nothing is consumed and vn is still
// owned by the caller.
func (t *Table) Install(vn core.Vnode, mode core.AccessMode, flags int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.free.IsEmpty() {
		return -1, errors.WithContext(
			errors.New(errors.CodeTooManyOpenFilesSystem, "open file table full"),
			"capacity", len(t.slots),
		)
	}
	if err := t.heap.Alloc(ObjectSize); err != nil {
		return -1, err
	}

	slot := int(t.free.Minimum())
	t.free.Remove(uint32(slot))
	t.slots[slot] = &OpenFile{
		vnode: vn,
		mode:  mode,
		flags: flags,
		slot:  slot,
		refs:  1,
	}
	if t.recorder != nil {
		t.recorder.RecordInstall()
	}
	return slot, nil
}

// Retain adds a reference to the object in slot.
func (t *Table) Retain(slot int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	of, err := t.lookupLocked(slot)
	if err != nil {
		return err
	}
	of.refs++
	return nil
}

// Release drops a reference to the object in slot. When the last reference
// goes the object is detached from its slot and the returned Reclaim closes
// its vnode. Callers must call Close on the Reclaim after dropping their own
// locks.
func (t *Table) Release(slot int) (Reclaim, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	of, err := t.lookupLocked(slot)
	if err != nil {
		return Reclaim{}, err
	}

	of.refs--
	if of.refs > 0 {
		return Reclaim{}, nil
	}
	return t.detachLocked(of), nil
}

// detachLocked empties the object's slot. The returned Reclaim is empty when
// pins are outstanding; the last Unpin closes the vnode instead.
func (t *Table) detachLocked(of *OpenFile) Reclaim {
	t.slots[of.slot] = nil
	t.free.Add(uint32(of.slot))
	of.refs = 0
	of.detached = true
	t.heap.Free(ObjectSize)
	if t.recorder != nil {
		t.recorder.RecordReclaim()
	}

	if of.pins > 0 {
		return Reclaim{slot: of.slot}
	}
	return Reclaim{of: of, slot: of.slot}
}

// Pin returns the object in slot and keeps its vnode open until Unpin, even
// if every reference is released meanwhile. Pins are not references.
func (t *Table) Pin(slot int) (*OpenFile, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	of, err := t.lookupLocked(slot)
	if err != nil {
		return nil, err
	}
	of.pins++
	return of, nil
}

// Unpin releases a pin taken by Pin. If the object was detached while pinned
// and this was the last pin, the vnode is closed.
func (t *Table) Unpin(of *OpenFile) error {
	t.mu.Lock()
	if of.pins <= 0 {
		t.mu.Unlock()
		return errors.WithContext(errors.New(errors.CodeInternal, "unpin without pin"), "slot", of.slot)
	}
	of.pins--
	closeNow := of.detached && of.pins == 0
	t.mu.Unlock()

	if closeNow {
		return of.vnode.Close()
	}
	return nil
}

// Refs returns the reference count of slot, or 0 if it is empty.
func (t *Table) Refs(slot int) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot < 0 || slot >= len(t.slots) || t.slots[slot] == nil {
		return 0
	}
	return t.slots[slot].refs
}

// Get returns the object in slot.
func (t *Table) Get(slot int) (*OpenFile, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	of, err := t.lookupLocked(slot)
	return of, err == nil
}

// Occupied returns every occupied slot mapped to its reference count.
func (t *Table) Occupied() map[int]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make(map[int]int)
	for slot, of := range t.slots {
		if of != nil {
			out[slot] = of.refs
		}
	}
	return out
}

// Shutdown force-releases every occupied slot regardless of its reference
// count and closes each vnode exactly once. Pinned vnodes are closed by their
// last Unpin. Close errors are joined.
func (t *Table) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	var reclaims []Reclaim
	for _, of := range t.slots {
		if of != nil {
			reclaims = append(reclaims, t.detachLocked(of))
		}
	}
	t.mu.Unlock()

	var (
		mu   sync.Mutex
		errs []error
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(shutdownParallelism)
	for _, rec := range reclaims {
		g.Go(func() error {
			if err := rec.Close(); err != nil {
				mu.Lock()
				errs = append(errs, errors.WrapWithContext(err, errors.CodeIO, "vnode close failed",
					map[string]interface{}{"slot": rec.Slot()}))
				mu.Unlock()
			}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	return stderrors.Join(errs...)
}

func (t *Table) lookupLocked(slot int) (*OpenFile, error) {
	if slot < 0 || slot >= len(t.slots) || t.slots[slot] == nil {
		return nil, errors.WithContext(
			errors.New(errors.CodeInvalidDescriptor, "open file slot is empty"),
			"slot", slot,
		)
	}
	return t.slots[slot], nil
}
