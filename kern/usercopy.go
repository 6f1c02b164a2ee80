package kern

import (
	"context"
	"io/fs"
	"time"

	"github.com/jmgilman/go/filetable/errors"
	"github.com/jmgilman/go/filetable/internal/logging"
	"github.com/jmgilman/go/filetable/uio"
)

// The Sys* methods are the user-pointer forms of the file syscalls. Paths
// and buffers live in the process's address space and are copied through a
// bounce buffer charged against the kernel heap. Each returns the syscall's
// return value, or -1 and an error.

// maxTransfer caps one read or write. Larger requests move at most this
// many bytes and report a short count.
const maxTransfer = 1 << 20

// SysOpen copies a NUL-terminated path from user memory and opens it.
func (p *Process) SysOpen(ctx context.Context, pathPtr uio.UserPtr, flags int, mode fs.FileMode) (ret int64, err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpOpen, start, ret, err) }()

	path, err := p.as.CopyInStr(pathPtr, p.k.cfg.PathMax)
	if err != nil {
		return -1, err
	}
	fd, err := p.open(ctx, path, flags, mode)
	if err != nil {
		return -1, err
	}
	return int64(fd), nil
}

// SysRead reads up to n bytes from fd into user memory at bufPtr. A fault
// on the destination fails the call and leaves the offset unchanged.
func (p *Process) SysRead(ctx context.Context, fd int, bufPtr uio.UserPtr, n int) (ret int64, err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpRead, start, ret, err) }()

	of, err := p.pin(fd)
	if err != nil {
		return -1, err
	}
	defer p.unpin(ctx, of)

	if !of.Mode().CanRead() {
		return -1, errors.BadDescriptor(fd, "descriptor not open for reading")
	}
	buf, err := p.k.heap.Bounce(min(n, maxTransfer))
	if err != nil {
		return -1, err
	}
	defer buf.Release()

	got, err := p.readPinned(fd, of, buf.Bytes(), func(b []byte) error {
		return p.as.CopyOut(bufPtr, b)
	})
	if err != nil {
		return -1, err
	}
	return int64(got), nil
}

// SysWrite writes n bytes from user memory at bufPtr to fd. The source is
// copied in before any I/O, so a fault leaves the file untouched.
func (p *Process) SysWrite(ctx context.Context, fd int, bufPtr uio.UserPtr, n int) (ret int64, err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpWrite, start, ret, err) }()

	of, err := p.pin(fd)
	if err != nil {
		return -1, err
	}
	defer p.unpin(ctx, of)

	if !of.Mode().CanWrite() {
		return -1, errors.BadDescriptor(fd, "descriptor not open for writing")
	}
	buf, err := p.k.heap.Bounce(min(n, maxTransfer))
	if err != nil {
		return -1, err
	}
	defer buf.Release()

	if err := p.as.CopyIn(buf.Bytes(), bufPtr); err != nil {
		return -1, err
	}
	put, err := p.writePinned(fd, of, buf.Bytes())
	if err != nil {
		return -1, err
	}
	return int64(put), nil
}

// SysClose closes fd.
func (p *Process) SysClose(ctx context.Context, fd int) (int64, error) {
	if err := p.Close(ctx, fd); err != nil {
		return -1, err
	}
	return 0, nil
}

// SysLseek repositions fd and returns the new offset.
func (p *Process) SysLseek(ctx context.Context, fd int, offset int64, whence int) (int64, error) {
	return p.Lseek(ctx, fd, offset, whence)
}

// SysDup2 duplicates oldFd onto newFd.
func (p *Process) SysDup2(ctx context.Context, oldFd, newFd int) (int64, error) {
	fd, err := p.Dup2(ctx, oldFd, newFd)
	return int64(fd), err
}
