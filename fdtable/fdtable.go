// Package fdtable implements the per-process descriptor table.
//
// A Table maps small integer descriptors to slot indices in the system-wide
// open file table. It has a fixed capacity and always hands out the lowest
// free descriptor. A Table is owned by one process and is not safe for
// concurrent use; the process serializes access to it.
package fdtable

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/jmgilman/go/filetable/errors"
)

type state uint8

const (
	unused state = iota
	reserved
	bound
)

type entry struct {
	state state
	slot  int
}

// Binding is one bound descriptor.
type Binding struct {
	Fd   int `json:"fd"`
	Slot int `json:"slot"`
}

// Table is a fixed-capacity descriptor table.
type Table struct {
	entries []entry
	free    *roaring.Bitmap // descriptors in the unused state
}

// New creates a table with capacity descriptors, all unused.
func New(capacity int) *Table {
	free := roaring.New()
	if capacity > 0 {
		free.AddRange(0, uint64(capacity))
	}
	return &Table{
		entries: make([]entry, capacity),
		free:    free,
	}
}

// Cap returns the table capacity.
func (t *Table) Cap() int {
	return len(t.entries)
}

// Len returns the number of bound descriptors.
func (t *Table) Len() int {
	n := 0
	for _, e := range t.entries {
		if e.state == bound {
			n++
		}
	}
	return n
}

// InRange reports whether fd is a valid index into the table.
func (t *Table) InRange(fd int) bool {
	return fd >= 0 && fd < len(t.entries)
}

// Reserve claims the lowest unused descriptor. The descriptor stays
// reserved until Bind or Cancel.
func (t *Table) Reserve() (int, error) {
	if t.free.IsEmpty() {
		return -1, errors.WithContext(
			errors.New(errors.CodeTooManyOpenFilesProcess, "descriptor table full"),
			"capacity", len(t.entries),
		)
	}
	fd := int(t.free.Minimum())
	t.free.Remove(uint32(fd))
	t.entries[fd] = entry{state: reserved}
	return fd, nil
}

// Bind attaches a reserved descriptor to slot.
func (t *Table) Bind(fd, slot int) error {
	if !t.InRange(fd) || t.entries[fd].state != reserved {
		return errors.WithContext(
			errors.New(errors.CodeInternal, "bind of unreserved descriptor"),
			"fd", fd,
		)
	}
	t.entries[fd] = entry{state: bound, slot: slot}
	return nil
}

// Cancel returns a reserved descriptor to the unused state. Other states are
// left untouched.
func (t *Table) Cancel(fd int) {
	if !t.InRange(fd) || t.entries[fd].state != reserved {
		return
	}
	t.entries[fd] = entry{}
	t.free.Add(uint32(fd))
}

// Lookup returns the slot bound to fd.
func (t *Table) Lookup(fd int) (int, bool) {
	if !t.InRange(fd) || t.entries[fd].state != bound {
		return -1, false
	}
	return t.entries[fd].slot, true
}

// Unbind detaches fd and returns the slot it was bound to.
func (t *Table) Unbind(fd int) (int, bool) {
	slot, ok := t.Lookup(fd)
	if !ok {
		return -1, false
	}
	t.entries[fd] = entry{}
	t.free.Add(uint32(fd))
	return slot, true
}

// Swap binds fd to slot in one step and returns the previous binding, if
// any. fd must be in range.
func (t *Table) Swap(fd, slot int) (int, bool) {
	prev, had := t.Lookup(fd)
	if t.entries[fd].state == unused {
		t.free.Remove(uint32(fd))
	}
	t.entries[fd] = entry{state: bound, slot: slot}
	return prev, had
}

// Bound returns every bound descriptor in ascending order.
func (t *Table) Bound() []Binding {
	var out []Binding
	for fd, e := range t.entries {
		if e.state == bound {
			out = append(out, Binding{Fd: fd, Slot: e.slot})
		}
	}
	return out
}

// Clear unbinds every descriptor and returns the slots that were bound, in
// descriptor order. Reservations are cancelled.
func (t *Table) Clear() []int {
	var slots []int
	for fd, e := range t.entries {
		if e.state == bound {
			slots = append(slots, e.slot)
		}
		t.entries[fd] = entry{}
	}
	t.free.Clear()
	if len(t.entries) > 0 {
		t.free.AddRange(0, uint64(len(t.entries)))
	}
	return slots
}

// Clone returns a table of the same capacity with the same bindings.
// Reservations are not copied.
func (t *Table) Clone() *Table {
	c := New(len(t.entries))
	for fd, e := range t.entries {
		if e.state == bound {
			c.entries[fd] = e
			c.free.Remove(uint32(fd))
		}
	}
	return c
}
