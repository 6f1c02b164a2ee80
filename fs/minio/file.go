package minio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"sync"

	"github.com/valyala/bytebufferpool"

	"github.com/jmgilman/go/filetable/fs/core"
	"github.com/jmgilman/go/filetable/fs/minio/internal/errs"
)

// readVnode serves positional reads from a downloaded object.
type readVnode struct {
	name   string
	reader *bytes.Reader

	mu     sync.Mutex
	closed bool
}

func newReadVnode(name string, data []byte) *readVnode {
	return &readVnode{name: name, reader: bytes.NewReader(data)}
}

// ReadAt implements core.Vnode.
func (v *readVnode) ReadAt(p []byte, off int64) (int, error) {
	n, err := v.reader.ReadAt(p, off)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, errs.PathError("read", v.name, err)
	}
	return n, err
}

// WriteAt implements core.Vnode. Read vnodes refuse writes.
func (v *readVnode) WriteAt([]byte, int64) (int, error) {
	return 0, errs.PathError("write", v.name, core.ErrUnsupported)
}

// Size implements core.Vnode.
func (v *readVnode) Size() (int64, error) {
	return v.reader.Size(), nil
}

// IsSeekable implements core.Vnode.
func (v *readVnode) IsSeekable() bool {
	return true
}

// Close implements core.Vnode.
func (v *readVnode) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return errs.PathError("close", v.name, fs.ErrClosed)
	}
	v.closed = true
	return nil
}

// writeVnode builds a new object version from sequential writes.
type writeVnode struct {
	fs   *FS
	key  string // Full object key (including prefix)
	name string // Normalized kernel path

	mu      sync.Mutex
	buffer  *bytebufferpool.ByteBuffer // Accumulates writes below the threshold
	pipeW   *io.PipeWriter             // Streaming writer once threshold exceeded
	putRes  chan error                 // Result from background upload when streaming
	written int64
	closed  bool
}

func newWriteVnode(m *FS, key, name string) *writeVnode {
	return &writeVnode{
		fs:     m,
		key:    key,
		name:   name,
		buffer: bytebufferpool.Get(),
	}
}

// ReadAt implements core.Vnode. Write vnodes refuse reads.
func (v *writeVnode) ReadAt([]byte, int64) (int, error) {
	return 0, errs.PathError("read", v.name, core.ErrUnsupported)
}

// WriteAt implements core.Vnode. The offset is ignored; bytes are appended
// to the object being built.
func (v *writeVnode) WriteAt(p []byte, _ int64) (int, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return 0, errs.PathError("write", v.name, fs.ErrClosed)
	}

	if v.pipeW != nil {
		n, err := v.pipeW.Write(p)
		v.written += int64(n)
		if err != nil {
			return n, errs.PathError("write", v.name, err)
		}
		return n, nil
	}

	if int64(v.buffer.Len()+len(p)) <= v.fs.multipartThreshold {
		n, _ := v.buffer.Write(p)
		v.written += int64(n)
		return n, nil
	}

	return v.startStreaming(p)
}

// startStreaming moves the upload to a background PutObject fed by a pipe,
// flushes the buffered prefix into it, then writes p.
// nolint:contextcheck // Vnode.WriteAt cannot accept a context
func (v *writeVnode) startStreaming(p []byte) (int, error) {
	pr, pw := io.Pipe()
	v.pipeW = pw
	v.putRes = make(chan error, 1)

	go func() {
		err := v.fs.store.Put(context.Background(), v.fs.bucket, v.key, pr, -1)
		_ = pr.CloseWithError(err)
		v.putRes <- err
		close(v.putRes)
	}()

	if v.buffer.Len() > 0 {
		if _, err := v.pipeW.Write(v.buffer.B); err != nil {
			return 0, errs.PathError("write", v.name, err)
		}
	}
	bytebufferpool.Put(v.buffer)
	v.buffer = nil

	n, err := v.pipeW.Write(p)
	v.written += int64(n)
	if err != nil {
		return n, errs.PathError("write", v.name, err)
	}
	return n, nil
}

// Size implements core.Vnode. It reports the bytes written so far.
func (v *writeVnode) Size() (int64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.written, nil
}

// IsSeekable implements core.Vnode.
func (v *writeVnode) IsSeekable() bool {
	return false
}

// Close implements core.Vnode. It completes the upload; the object is
// visible once Close returns nil.
// nolint:contextcheck // Vnode.Close cannot accept a context
func (v *writeVnode) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return errs.PathError("close", v.name, fs.ErrClosed)
	}
	v.closed = true

	if v.pipeW != nil {
		_ = v.pipeW.Close()
		if err := <-v.putRes; err != nil {
			return errs.PathError("close", v.name, err)
		}
		return nil
	}

	defer func() {
		bytebufferpool.Put(v.buffer)
		v.buffer = nil
	}()
	err := v.fs.store.Put(context.Background(), v.fs.bucket, v.key, bytes.NewReader(v.buffer.B), int64(v.buffer.Len()))
	if err != nil {
		return errs.PathError("close", v.name, err)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ core.Vnode = (*readVnode)(nil)
	_ core.Vnode = (*writeVnode)(nil)
)
