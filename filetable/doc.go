// Package filetable implements the system-wide open file table.
//
// The table is a fixed-capacity arena of reference-counted OpenFile objects.
// Each object wraps one core.Vnode, the current offset and the access mode it
// was opened with. Descriptor tables in every process refer to objects by
// slot index; the object's reference count is the number of such
// descriptors.
//
// # Lifetime
//
// Install places a new object with one reference. Retain adds a reference.
// Release drops one and, when it was the last, detaches the object and hands
// back a Reclaim. Decrement, test and detach happen under a single lock. The
// vnode itself is closed by Reclaim.Close after the caller has dropped its own
// locks, so no provider call ever runs under table bookkeeping.
//
// I/O paths Pin an object for the duration of a call. A pinned object whose
// last reference is released stays open until the final Unpin closes it.
//
//	slot, err := tbl.Install(vn, core.ReadWrite, flags)
//	...
//	rec, err := tbl.Release(slot)
//	if err != nil {
//	    return err
//	}
//	return rec.Close()
package filetable
