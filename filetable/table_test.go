package filetable

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/filetable/errors"
	"github.com/jmgilman/go/filetable/fs/core"
	"github.com/jmgilman/go/filetable/internal/kmem"
	"github.com/jmgilman/go/filetable/internal/metrics"
)

type fakeVnode struct {
	closes   atomic.Int32
	closeErr error
}

func (v *fakeVnode) ReadAt(p []byte, off int64) (int, error)  { return 0, nil }
func (v *fakeVnode) WriteAt(p []byte, off int64) (int, error) { return len(p), nil }
func (v *fakeVnode) Size() (int64, error)                     { return 0, nil }
func (v *fakeVnode) IsSeekable() bool                         { return true }
func (v *fakeVnode) Close() error {
	v.closes.Add(1)
	return v.closeErr
}

func install(t *testing.T, tbl *Table) (int, *fakeVnode) {
	t.Helper()
	vn := &fakeVnode{}
	slot, err := tbl.Install(vn, core.ReadWrite, core.O_RDWR)
	require.NoError(t, err)
	return slot, vn
}

func TestInstall_LowestSlot(t *testing.T) {
	tbl := New(3)

	for want := 0; want < 3; want++ {
		slot, _ := install(t, tbl)
		assert.Equal(t, want, slot)
		assert.Equal(t, 1, tbl.Refs(slot))
	}
	assert.Equal(t, 3, tbl.Len())

	_, err := tbl.Install(&fakeVnode{}, core.ReadOnly, core.O_RDONLY)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeTooManyOpenFilesSystem))
	assert.Equal(t, errors.ENFILE, errors.ErrnoOf(err))
	assert.Equal(t, 3, tbl.Len(), "failed install must not consume a slot")

	rec, err := tbl.Release(1)
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	slot, _ := install(t, tbl)
	assert.Equal(t, 1, slot)
}

func TestInstall_FreshObject(t *testing.T) {
	tbl := New(2)
	vn := &fakeVnode{}
	slot, err := tbl.Install(vn, core.WriteOnly, core.O_WRONLY|core.O_APPEND)
	require.NoError(t, err)

	of, ok := tbl.Get(slot)
	require.True(t, ok)
	assert.Equal(t, int64(0), of.Offset())
	assert.Equal(t, core.WriteOnly, of.Mode())
	assert.True(t, of.Append())
	assert.Equal(t, slot, of.Slot())
	assert.Same(t, vn, of.Vnode().(*fakeVnode))
}

func TestRelease_LastReferenceCloses(t *testing.T) {
	tbl := New(2)
	slot, vn := install(t, tbl)
	require.NoError(t, tbl.Retain(slot))
	assert.Equal(t, 2, tbl.Refs(slot))

	rec, err := tbl.Release(slot)
	require.NoError(t, err)
	assert.False(t, rec.Pending())
	require.NoError(t, rec.Close())
	assert.Equal(t, int32(0), vn.closes.Load())
	assert.Equal(t, 1, tbl.Refs(slot))

	rec, err = tbl.Release(slot)
	require.NoError(t, err)
	assert.True(t, rec.Pending())
	assert.Equal(t, slot, rec.Slot())
	assert.Equal(t, int32(0), vn.closes.Load(), "close is deferred to Reclaim")

	_, ok := tbl.Get(slot)
	assert.False(t, ok)
	assert.Equal(t, 0, tbl.Len())

	require.NoError(t, rec.Close())
	assert.Equal(t, int32(1), vn.closes.Load())
}

func TestRelease_EmptySlot(t *testing.T) {
	tbl := New(2)

	for _, slot := range []int{-1, 0, 2} {
		_, err := tbl.Release(slot)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidDescriptor))
		assert.Error(t, tbl.Retain(slot))
	}
}

func TestPin_DefersClose(t *testing.T) {
	tbl := New(2)
	slot, vn := install(t, tbl)

	of, err := tbl.Pin(slot)
	require.NoError(t, err)

	rec, err := tbl.Release(slot)
	require.NoError(t, err)
	assert.False(t, rec.Pending(), "pinned object closes on last unpin")
	require.NoError(t, rec.Close())
	assert.Equal(t, 0, tbl.Len(), "slot is freed immediately")

	require.NoError(t, tbl.Unpin(of))
	assert.Equal(t, int32(1), vn.closes.Load())

	err = tbl.Unpin(of)
	assert.True(t, errors.HasCode(err, errors.CodeInternal))
}

func TestPin_UnpinWithoutRelease(t *testing.T) {
	tbl := New(1)
	slot, vn := install(t, tbl)

	of, err := tbl.Pin(slot)
	require.NoError(t, err)
	require.NoError(t, tbl.Unpin(of))
	assert.Equal(t, int32(0), vn.closes.Load())
	assert.Equal(t, 1, tbl.Refs(slot))
}

func TestHeapCharge(t *testing.T) {
	heap := kmem.New(ObjectSize * 2)
	tbl := New(4, WithHeap(heap))

	install(t, tbl)
	slot, _ := install(t, tbl)
	assert.Equal(t, ObjectSize*2, heap.Used())

	_, err := tbl.Install(&fakeVnode{}, core.ReadOnly, core.O_RDONLY)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeOutOfMemory))
	assert.Equal(t, 2, tbl.Len(), "no slot consumed on allocation failure")

	rec, err := tbl.Release(slot)
	require.NoError(t, err)
	require.NoError(t, rec.Close())
	assert.Equal(t, ObjectSize, heap.Used())
}

func TestRecorder(t *testing.T) {
	rec := metrics.NewRecorder()
	tbl := New(4, WithRecorder(rec))

	a, _ := install(t, tbl)
	install(t, tbl)
	r, err := tbl.Release(a)
	require.NoError(t, err)
	require.NoError(t, r.Close())

	snap := rec.GetSnapshot()
	assert.Equal(t, int64(1), snap.OpenObjects)
	assert.Equal(t, int64(2), snap.PeakObjects)
	assert.Equal(t, int64(1), snap.Reclaims)
}

func TestUpdateOffset(t *testing.T) {
	tbl := New(1)
	slot, _ := install(t, tbl)
	of, _ := tbl.Get(slot)

	of.SetOffset(10)
	pos, err := of.UpdateOffset(func(cur int64) (int64, error) { return cur + 5, nil })
	require.NoError(t, err)
	assert.Equal(t, int64(15), pos)

	boom := stderrors.New("negative")
	pos, err = of.UpdateOffset(func(cur int64) (int64, error) { return -1, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(15), pos)
	assert.Equal(t, int64(15), of.Offset())
}

func TestTransfer(t *testing.T) {
	tbl := New(1)
	slot, _ := install(t, tbl)
	of, _ := tbl.Get(slot)

	of.SetOffset(4)
	n, err := of.Transfer(func(cur int64) (int64, int, error) {
		assert.Equal(t, int64(4), cur)
		return cur, 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(7), of.Offset())

	// The transfer may land elsewhere, as appends do.
	_, err = of.Transfer(func(int64) (int64, int, error) { return 20, 2, nil })
	require.NoError(t, err)
	assert.Equal(t, int64(22), of.Offset())

	boom := stderrors.New("io")
	n, err = of.Transfer(func(cur int64) (int64, int, error) { return cur, 5, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, n)
	assert.Equal(t, int64(22), of.Offset())
}

func TestTransfer_Serialized(t *testing.T) {
	tbl := New(1)
	slot, _ := install(t, tbl)
	of, _ := tbl.Get(slot)

	var (
		wg     sync.WaitGroup
		active atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = of.Transfer(func(cur int64) (int64, int, error) {
				assert.Equal(t, int32(1), active.Add(1), "transfers overlap")
				time.Sleep(10 * time.Microsecond)
				active.Add(-1)
				return cur, 1, nil
			})
		}()
		go func() {
			defer wg.Done()
			_, _ = of.UpdateOffset(func(cur int64) (int64, error) {
				assert.Equal(t, int32(1), active.Add(1), "seek overlaps a transfer")
				active.Add(-1)
				return cur + 1, nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(100), of.Offset())
}

func TestOccupied(t *testing.T) {
	tbl := New(4)
	a, _ := install(t, tbl)
	b, _ := install(t, tbl)
	require.NoError(t, tbl.Retain(b))

	assert.Equal(t, map[int]int{a: 1, b: 2}, tbl.Occupied())
}

func TestShutdown(t *testing.T) {
	tbl := New(8)

	var vnodes []*fakeVnode
	for i := 0; i < 5; i++ {
		slot, vn := install(t, tbl)
		vnodes = append(vnodes, vn)
		if i%2 == 0 {
			require.NoError(t, tbl.Retain(slot))
		}
	}
	failing := &fakeVnode{closeErr: stderrors.New("flush failed")}
	_, err := tbl.Install(failing, core.WriteOnly, core.O_WRONLY)
	require.NoError(t, err)

	err = tbl.Shutdown(context.Background())
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeIO))
	assert.Equal(t, 0, tbl.Len())

	for _, vn := range vnodes {
		assert.Equal(t, int32(1), vn.closes.Load())
	}
	assert.Equal(t, int32(1), failing.closes.Load())

	require.NoError(t, tbl.Shutdown(context.Background()), "second shutdown has nothing to do")
}

func TestShutdown_PinnedObject(t *testing.T) {
	tbl := New(2)
	slot, vn := install(t, tbl)
	of, err := tbl.Pin(slot)
	require.NoError(t, err)

	require.NoError(t, tbl.Shutdown(context.Background()))
	assert.Equal(t, int32(0), vn.closes.Load())

	require.NoError(t, tbl.Unpin(of))
	assert.Equal(t, int32(1), vn.closes.Load())
}

func TestConcurrentRetainRelease(t *testing.T) {
	tbl := New(4)
	slot, vn := install(t, tbl)

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if err := tbl.Retain(slot); err != nil {
					t.Error(err)
					return
				}
				rec, err := tbl.Release(slot)
				if err != nil {
					t.Error(err)
					return
				}
				if rec.Pending() {
					t.Error("object reclaimed while a reference was held")
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, tbl.Refs(slot))
	rec, err := tbl.Release(slot)
	require.NoError(t, err)
	require.NoError(t, rec.Close())
	assert.Equal(t, int32(1), vn.closes.Load())
}

func TestConcurrentInstall(t *testing.T) {
	const capacity = 64
	tbl := New(capacity)

	slots := make(chan int, capacity*2)
	var wg sync.WaitGroup
	for i := 0; i < capacity*2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			slot, err := tbl.Install(&fakeVnode{}, core.ReadOnly, core.O_RDONLY)
			if err == nil {
				slots <- slot
			}
		}()
	}
	wg.Wait()
	close(slots)

	seen := make(map[int]bool)
	for slot := range slots {
		assert.False(t, seen[slot], "slot %d handed out twice", slot)
		seen[slot] = true
	}
	assert.Len(t, seen, capacity)
}
