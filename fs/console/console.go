// Package console provides the console device.
//
// Every open of the console yields a fresh vnode over the same input and
// output streams. Console vnodes have no random access: offsets are ignored,
// Size reports zero and IsSeekable reports false.
package console

import (
	"context"
	"io"
	"io/fs"
	"sync"

	"github.com/jmgilman/go/filetable/fs/core"
)

// Device is the console. Writes from every vnode are serialized onto one
// output stream.
type Device struct {
	mu  sync.Mutex
	out io.Writer

	inMu sync.Mutex
	in   io.Reader
}

// New creates a console reading from in and writing to out. A nil in reads
// as end of file; a nil out discards output.
func New(in io.Reader, out io.Writer) *Device {
	if out == nil {
		out = io.Discard
	}
	return &Device{in: in, out: out}
}

// Resolve implements core.Resolver. The path is ignored.
func (d *Device) Resolve(ctx context.Context, _ string, flags int, _ fs.FileMode) (core.Vnode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := core.AccessModeOf(flags); !ok {
		return nil, &fs.PathError{Op: "open", Path: "con:", Err: fs.ErrInvalid}
	}
	return &vnode{dev: d}, nil
}

// Type implements core.Typed.
func (d *Device) Type() core.FSType {
	return core.FSTypeDevice
}

type vnode struct {
	dev *Device
}

func (v *vnode) ReadAt(p []byte, _ int64) (int, error) {
	v.dev.inMu.Lock()
	defer v.dev.inMu.Unlock()

	if v.dev.in == nil || len(p) == 0 {
		return 0, nil
	}
	n, err := v.dev.in.Read(p)
	if err == io.EOF {
		return n, nil
	}
	return n, err
}

func (v *vnode) WriteAt(p []byte, _ int64) (int, error) {
	v.dev.mu.Lock()
	defer v.dev.mu.Unlock()
	return v.dev.out.Write(p)
}

func (v *vnode) Size() (int64, error) {
	return 0, nil
}

func (v *vnode) IsSeekable() bool {
	return false
}

func (v *vnode) Close() error {
	return nil
}

// Compile-time interface checks.
var (
	_ core.Resolver = (*Device)(nil)
	_ core.Typed    = (*Device)(nil)
	_ core.Vnode    = (*vnode)(nil)
)
