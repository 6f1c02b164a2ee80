package filetable

// Reclaim is the deferred close of an object whose last reference was
// released. The zero value does nothing.
type Reclaim struct {
	of   *OpenFile
	slot int
}

// Pending reports whether Close will close a vnode.
func (r Reclaim) Pending() bool {
	return r.of != nil
}

// Slot returns the slot the reclaimed object occupied.
func (r Reclaim) Slot() int {
	return r.slot
}

// Close closes the vnode. It must be called at most once and never while
// holding a process or table lock.
func (r Reclaim) Close() error {
	if r.of == nil {
		return nil
	}
	return r.of.vnode.Close()
}
