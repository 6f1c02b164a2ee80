package billy

import (
	"io"
	"io/fs"
	"sync"

	"github.com/go-git/go-billy/v5"

	"github.com/jmgilman/go/filetable/fs/core"
)

// vnode is an open billy file. name is the resolved path, which is what
// errors and Size fall back on.
type vnode struct {
	// mu serializes the seek+write fallback.
	mu   sync.Mutex
	file billy.File
	fs   billy.Basic
	name string
}

// ReadAt implements core.Vnode.
func (v *vnode) ReadAt(p []byte, off int64) (int, error) {
	n, err := v.file.ReadAt(p, off)
	if err != nil && err != io.EOF {
		return n, pathError("read", v.name, err)
	}
	return n, err
}

// WriteAt implements core.Vnode.
// Backends without io.WriterAt fall back to seek and write under a lock.
func (v *vnode) WriteAt(p []byte, off int64) (int, error) {
	if wa, ok := v.file.(io.WriterAt); ok {
		n, err := wa.WriteAt(p, off)
		if err != nil {
			return n, pathError("write", v.name, err)
		}
		return n, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, err := v.file.Seek(off, io.SeekStart); err != nil {
		return 0, pathError("seek", v.name, err)
	}
	n, err := v.file.Write(p)
	if err != nil {
		return n, pathError("write", v.name, err)
	}
	return n, nil
}

// Size implements core.Vnode.
// Files that can stat themselves are asked directly; otherwise the
// filesystem is asked by name.
func (v *vnode) Size() (int64, error) {
	var (
		info fs.FileInfo
		err  error
	)
	if s, ok := v.file.(interface{ Stat() (fs.FileInfo, error) }); ok {
		info, err = s.Stat()
	} else {
		info, err = v.fs.Stat(v.name)
	}
	if err != nil {
		return 0, pathError("stat", v.name, err)
	}
	return info.Size(), nil
}

// IsSeekable implements core.Vnode. Billy files always support random access.
func (v *vnode) IsSeekable() bool {
	return true
}

// Close implements core.Vnode.
func (v *vnode) Close() error {
	if err := v.file.Close(); err != nil {
		return pathError("close", v.name, err)
	}
	return nil
}

// Name returns the normalized path the vnode was resolved from.
func (v *vnode) Name() string {
	return v.name
}

// Compile-time interface checks.
var _ core.Vnode = (*vnode)(nil)
