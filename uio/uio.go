// Package uio moves data between user address spaces and kernel buffers.
//
// Every copy is bounds-checked against the address space. A copy that would
// touch an address outside the space fails with BAD_ADDRESS and transfers
// nothing.
package uio

import (
	"bytes"
	"sync"

	"github.com/jmgilman/go/filetable/errors"
)

// UserPtr is an address in a user address space.
type UserPtr uint64

// AddressSpace is the user memory of one process.
type AddressSpace interface {
	// CopyIn copies len(dst) bytes starting at src into dst.
	CopyIn(dst []byte, src UserPtr) error

	// CopyOut copies src into user memory starting at dst.
	CopyOut(dst UserPtr, src []byte) error

	// CopyInStr copies a NUL-terminated string starting at src. The string,
	// terminator included, must fit in max bytes.
	CopyInStr(src UserPtr, max int) (string, error)
}

// Memory is a flat user segment starting at Base. It is safe for concurrent
// use.
type Memory struct {
	mu   sync.RWMutex
	base UserPtr
	data []byte
}

// NewMemory creates a zeroed segment of size bytes mapped at base.
func NewMemory(base UserPtr, size int) *Memory {
	return &Memory{base: base, data: make([]byte, size)}
}

// Base returns the lowest mapped address.
func (m *Memory) Base() UserPtr {
	return m.base
}

// Size returns the segment length in bytes.
func (m *Memory) Size() int {
	return len(m.data)
}

// span returns the offset of [addr, addr+n) within the segment.
func (m *Memory) span(addr UserPtr, n int) (int, error) {
	if n < 0 || addr < m.base {
		return 0, fault(addr, n)
	}
	off := uint64(addr - m.base)
	if off > uint64(len(m.data)) || uint64(n) > uint64(len(m.data))-off {
		return 0, fault(addr, n)
	}
	return int(off), nil
}

// CopyIn implements AddressSpace.
func (m *Memory) CopyIn(dst []byte, src UserPtr) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	off, err := m.span(src, len(dst))
	if err != nil {
		return err
	}
	copy(dst, m.data[off:])
	return nil
}

// CopyOut implements AddressSpace.
func (m *Memory) CopyOut(dst UserPtr, src []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	off, err := m.span(dst, len(src))
	if err != nil {
		return err
	}
	copy(m.data[off:], src)
	return nil
}

// CopyInStr implements AddressSpace.
func (m *Memory) CopyInStr(src UserPtr, max int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	off, err := m.span(src, 1)
	if err != nil {
		return "", err
	}
	window := m.data[off:]
	if len(window) > max {
		window = window[:max]
	}
	if i := bytes.IndexByte(window, 0); i >= 0 {
		return string(window[:i]), nil
	}
	if len(window) == max {
		return "", errors.WithContextMap(
			errors.New(errors.CodeNameTooLong, "string not terminated within limit"),
			map[string]interface{}{"addr": uint64(src), "max": max},
		)
	}
	// Ran off the end of the segment before the limit.
	return "", fault(src, max)
}

// Clone returns an independent copy of the segment.
func (m *Memory) Clone() *Memory {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data := make([]byte, len(m.data))
	copy(data, m.data)
	return &Memory{base: m.base, data: data}
}

func fault(addr UserPtr, n int) error {
	return errors.WithContextMap(
		errors.New(errors.CodeBadAddress, "user address out of range"),
		map[string]interface{}{"addr": uint64(addr), "len": n},
	)
}
