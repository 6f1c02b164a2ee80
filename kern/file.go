package kern

import (
	"context"
	stderrors "errors"
	"io"
	"io/fs"
	"math"
	"time"

	"github.com/jmgilman/go/filetable/errors"
	"github.com/jmgilman/go/filetable/filetable"
	"github.com/jmgilman/go/filetable/fs/core"
	"github.com/jmgilman/go/filetable/internal/logging"
)

// Open resolves path and binds the lowest free descriptor to a new open
// file object. mode is the permission used when O_CREAT creates the file.
//
// Failures leave nothing behind: a resolved vnode that cannot be installed
// is closed and the reserved descriptor is returned to the table.
func (p *Process) Open(ctx context.Context, path string, flags int, mode fs.FileMode) (fd int, err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpOpen, start, int64(fd), err) }()
	return p.open(ctx, path, flags, mode)
}

func (p *Process) open(ctx context.Context, path string, flags int, mode fs.FileMode) (int, error) {
	access, err := p.checkOpen(path, flags)
	if err != nil {
		return -1, err
	}

	vn, err := p.k.resolver.Resolve(ctx, path, flags, mode)
	if err != nil {
		return -1, errors.FromFS(err, "open", path)
	}

	p.mu.Lock()
	fd, err := p.installLocked(vn, access, flags)
	p.mu.Unlock()
	if err != nil {
		p.closeVnode(ctx, vn)
		return -1, errors.WithContext(err, "path", path)
	}
	return fd, nil
}

// checkOpen validates open arguments before anything is resolved.
func (p *Process) checkOpen(path string, flags int) (core.AccessMode, error) {
	access, ok := core.AccessModeOf(flags)
	if !ok {
		return 0, errors.WithContextMap(
			errors.New(errors.CodeInvalidArgument, "invalid open flags"),
			map[string]interface{}{"flags": flags, "path": path},
		)
	}
	if path == "" {
		return 0, errors.New(errors.CodeInvalidArgument, "empty path")
	}
	if len(path) >= p.k.cfg.PathMax {
		return 0, errors.WithContextMap(
			errors.New(errors.CodeNameTooLong, "path exceeds limit"),
			map[string]interface{}{"path_len": len(path), "max": p.k.cfg.PathMax},
		)
	}
	return access, nil
}

// installLocked reserves a descriptor, installs vn and binds the two. On
// error the reservation is cancelled and vn still belongs to the caller.
func (p *Process) installLocked(vn core.Vnode, access core.AccessMode, flags int) (int, error) {
	if err := p.aliveLocked(); err != nil {
		return -1, err
	}

	fd, err := p.fds.Reserve()
	if err != nil {
		return -1, err
	}
	slot, err := p.k.table.Install(vn, access, flags)
	if err != nil {
		p.fds.Cancel(fd)
		return -1, err
	}
	if err := p.fds.Bind(fd, slot); err != nil {
		p.fds.Cancel(fd)
		// Never visible to anyone; the caller closes vn.
		_, _ = p.k.table.Release(slot)
		return -1, err
	}
	return fd, nil
}

// openAt opens path onto a specific descriptor, replacing whatever was
// bound there.
func (p *Process) openAt(ctx context.Context, fd int, path string, flags int, mode fs.FileMode) error {
	access, err := p.checkOpen(path, flags)
	if err != nil {
		return err
	}

	vn, err := p.k.resolver.Resolve(ctx, path, flags, mode)
	if err != nil {
		return errors.FromFS(err, "open", path)
	}

	p.mu.Lock()
	rec, err := p.bindAtLocked(fd, vn, access, flags)
	p.mu.Unlock()
	if err != nil {
		p.closeVnode(ctx, vn)
		return err
	}
	return p.reclaim(ctx, rec)
}

func (p *Process) bindAtLocked(fd int, vn core.Vnode, access core.AccessMode, flags int) (filetable.Reclaim, error) {
	if err := p.descriptorLocked(fd); err != nil {
		return filetable.Reclaim{}, err
	}
	if !p.fds.InRange(fd) {
		return filetable.Reclaim{}, errors.BadDescriptor(fd, "descriptor out of range")
	}

	slot, err := p.k.table.Install(vn, access, flags)
	if err != nil {
		return filetable.Reclaim{}, err
	}
	prev, had := p.fds.Swap(fd, slot)
	if !had {
		return filetable.Reclaim{}, nil
	}
	// A bound descriptor always holds a reference, so this cannot fail.
	rec, _ := p.k.table.Release(prev)
	return rec, nil
}

// BindStdin opens path read-only onto descriptor 0, replacing any previous
// binding.
func (p *Process) BindStdin(ctx context.Context, path string) (err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpOpen, start, 0, err) }()
	return p.openAt(ctx, 0, path, core.O_RDONLY, 0)
}

// Close unbinds fd and drops its reference. The vnode is closed when this
// was the last reference; a close failure at that point is logged but does
// not fail the call, since the descriptor is already gone.
func (p *Process) Close(ctx context.Context, fd int) (err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpClose, start, 0, err) }()

	p.mu.Lock()
	rec, err := p.closeLocked(fd)
	p.mu.Unlock()
	if err != nil {
		return err
	}
	_ = p.reclaim(ctx, rec)
	return nil
}

func (p *Process) closeLocked(fd int) (filetable.Reclaim, error) {
	if err := p.descriptorLocked(fd); err != nil {
		return filetable.Reclaim{}, err
	}
	if !p.fds.InRange(fd) {
		return filetable.Reclaim{}, errors.BadDescriptor(fd, "descriptor out of range")
	}
	slot, ok := p.fds.Unbind(fd)
	if !ok {
		return filetable.Reclaim{}, errors.BadDescriptor(fd, "descriptor not open")
	}
	rec, err := p.k.table.Release(slot)
	if err != nil {
		return filetable.Reclaim{}, errors.Wrap(err, errors.CodeInternal, "descriptor bound to empty slot")
	}
	return rec, nil
}

// pin looks up fd and pins its object for the duration of an I/O call.
func (p *Process) pin(fd int) (*filetable.OpenFile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.descriptorLocked(fd); err != nil {
		return nil, err
	}
	if !p.fds.InRange(fd) {
		return nil, errors.BadDescriptor(fd, "descriptor out of range")
	}
	slot, ok := p.fds.Lookup(fd)
	if !ok {
		return nil, errors.BadDescriptor(fd, "descriptor not open")
	}
	return p.k.table.Pin(slot)
}

// Read reads up to len(buf) bytes at the descriptor's offset and advances
// the offset by the count read. A count of 0 with a nil error is end of
// file.
func (p *Process) Read(ctx context.Context, fd int, buf []byte) (n int, err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpRead, start, int64(n), err) }()

	of, err := p.pin(fd)
	if err != nil {
		return 0, err
	}
	defer p.unpin(ctx, of)

	if !of.Mode().CanRead() {
		return 0, errors.BadDescriptor(fd, "descriptor not open for reading")
	}
	return p.readPinned(fd, of, buf, nil)
}

// readPinned reads into buf at the object's offset. If deliver is set it
// receives the bytes read before the offset moves; a deliver error fails the
// call with the offset unchanged. A vnode error after a partial read returns
// the partial count and surfaces on the next call.
func (p *Process) readPinned(fd int, of *filetable.OpenFile, buf []byte, deliver func([]byte) error) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	n, err := of.Transfer(func(cur int64) (int64, int, error) {
		n, err := of.Vnode().ReadAt(buf, cur)
		if err != nil && !stderrors.Is(err, io.EOF) && n == 0 {
			return cur, 0, errors.WithContext(errors.FromFS(err, "read", ""), "fd", fd)
		}
		if deliver != nil {
			if err := deliver(buf[:n]); err != nil {
				return cur, 0, err
			}
		}
		return cur, n, nil
	})
	if err != nil {
		return 0, err
	}
	p.k.recorder.RecordRead(n)
	return n, nil
}

// Write writes buf at the descriptor's offset, or at end of file for
// O_APPEND objects, and advances the offset by the count written.
func (p *Process) Write(ctx context.Context, fd int, buf []byte) (n int, err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpWrite, start, int64(n), err) }()

	of, err := p.pin(fd)
	if err != nil {
		return 0, err
	}
	defer p.unpin(ctx, of)

	if !of.Mode().CanWrite() {
		return 0, errors.BadDescriptor(fd, "descriptor not open for writing")
	}
	return p.writePinned(fd, of, buf)
}

// writePinned writes buf at the object's offset, or at end of file for
// O_APPEND objects. The end of file is read under the same ordering as the
// write, so appends through aliased descriptors never overlap. A vnode error
// after a partial write returns the partial count.
func (p *Process) writePinned(fd int, of *filetable.OpenFile, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	n, err := of.Transfer(func(cur int64) (int64, int, error) {
		off := cur
		if of.Append() {
			size, err := of.Vnode().Size()
			if err != nil {
				return cur, 0, errors.WithContext(errors.FromFS(err, "stat", ""), "fd", fd)
			}
			off = size
		}

		n, err := of.Vnode().WriteAt(buf, off)
		if err != nil && n == 0 {
			return cur, 0, errors.WithContext(errors.FromFS(err, "write", ""), "fd", fd)
		}
		return off, n, nil
	})
	if err != nil {
		return 0, err
	}
	p.k.recorder.RecordWrite(n)
	return n, nil
}

// Lseek repositions the descriptor's offset. Positions past end of file are
// allowed; negative or overflowing positions fail and leave the offset
// unchanged. The end of file is queried only for SEEK_END, and a seek waits
// for any transfer in flight on the same object.
func (p *Process) Lseek(ctx context.Context, fd int, offset int64, whence int) (pos int64, err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpLseek, start, pos, err) }()

	of, err := p.pin(fd)
	if err != nil {
		return -1, err
	}
	defer p.unpin(ctx, of)

	switch whence {
	case core.SEEK_SET, core.SEEK_CUR, core.SEEK_END:
	default:
		return -1, errors.WithContextMap(
			errors.New(errors.CodeInvalidArgument, "invalid whence"),
			map[string]interface{}{"fd": fd, "whence": whence},
		)
	}

	vn := of.Vnode()
	if !vn.IsSeekable() {
		return -1, errors.WithContext(errors.New(errors.CodeNotSeekable, "object is not seekable"), "fd", fd)
	}

	pos, err = of.UpdateOffset(func(cur int64) (int64, error) {
		base := int64(0)
		switch whence {
		case core.SEEK_CUR:
			base = cur
		case core.SEEK_END:
			size, err := vn.Size()
			if err != nil {
				return 0, errors.WithContext(errors.FromFS(err, "stat", ""), "fd", fd)
			}
			base = size
		}
		if (offset > 0 && base > math.MaxInt64-offset) || base+offset < 0 {
			return 0, errors.WithContextMap(
				errors.New(errors.CodeInvalidArgument, "resulting offset out of range"),
				map[string]interface{}{"fd": fd, "offset": offset, "whence": whence},
			)
		}
		return base + offset, nil
	})
	if err != nil {
		return -1, err
	}
	return pos, nil
}

// Dup2 makes newFd refer to the same open file as oldFd and returns newFd.
// If newFd was open its previous object loses a reference first, so a
// sole reference is destroyed. newFd is never observed unbound. Dup2 of a
// descriptor onto itself does nothing.
func (p *Process) Dup2(ctx context.Context, oldFd, newFd int) (fd int, err error) {
	start := time.Now()
	defer func() { p.finish(ctx, logging.OpDup2, start, int64(fd), err) }()

	p.mu.Lock()
	rec, err := p.dup2Locked(oldFd, newFd)
	p.mu.Unlock()
	if err != nil {
		return -1, err
	}
	_ = p.reclaim(ctx, rec)
	return newFd, nil
}

func (p *Process) dup2Locked(oldFd, newFd int) (filetable.Reclaim, error) {
	if err := p.descriptorLocked(oldFd); err != nil {
		return filetable.Reclaim{}, err
	}
	if !p.fds.InRange(oldFd) {
		return filetable.Reclaim{}, errors.BadDescriptor(oldFd, "descriptor out of range")
	}
	slot, ok := p.fds.Lookup(oldFd)
	if !ok {
		return filetable.Reclaim{}, errors.BadDescriptor(oldFd, "descriptor not open")
	}
	if !p.fds.InRange(newFd) {
		return filetable.Reclaim{}, errors.BadDescriptor(newFd, "descriptor out of range")
	}
	if oldFd == newFd {
		return filetable.Reclaim{}, nil
	}

	if err := p.k.table.Retain(slot); err != nil {
		return filetable.Reclaim{}, errors.Wrap(err, errors.CodeInternal, "descriptor bound to empty slot")
	}
	prev, had := p.fds.Swap(newFd, slot)
	if !had {
		return filetable.Reclaim{}, nil
	}
	rec, _ := p.k.table.Release(prev)
	return rec, nil
}
