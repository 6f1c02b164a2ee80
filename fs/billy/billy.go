package billy

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/jmgilman/go/filetable/fs/core"
)

// FS resolves paths against a billy.Filesystem.
type FS struct {
	bfs billy.Filesystem
	typ core.FSType
}

// NewLocal resolves paths under the host directory root.
func NewLocal(root string) *FS {
	return &FS{
		bfs: osfs.New(root),
		typ: core.FSTypeLocal,
	}
}

// NewMemory resolves paths in a new, empty in-memory filesystem.
func NewMemory() *FS {
	return &FS{
		bfs: memfs.New(),
		typ: core.FSTypeMemory,
	}
}

// New wraps an existing billy.Filesystem.
func New(bfs billy.Filesystem, typ core.FSType) *FS {
	return &FS{bfs: bfs, typ: typ}
}

// Unwrap returns the underlying billy.Filesystem.
// Callers use it to seed or inspect files outside the kernel.
func (f *FS) Unwrap() billy.Filesystem {
	return f.bfs
}

// Type implements core.Typed.
func (f *FS) Type() core.FSType {
	return f.typ
}

// normalize converts paths to use forward slashes consistently.
// This is a simplified path normalization since billy handles security.
func normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

// hostFlags translates kernel open flags to os flags.
func hostFlags(flags int) int {
	var out int
	switch flags & core.O_ACCMODE {
	case core.O_WRONLY:
		out = os.O_WRONLY
	case core.O_RDWR:
		out = os.O_RDWR
	default:
		out = os.O_RDONLY
	}
	if flags&core.O_CREAT != 0 {
		out |= os.O_CREATE
	}
	if flags&core.O_EXCL != 0 {
		out |= os.O_EXCL
	}
	if flags&core.O_TRUNC != 0 {
		out |= os.O_TRUNC
	}
	return out
}

// Resolve implements core.Resolver.
func (f *FS) Resolve(ctx context.Context, path string, flags int, perm fs.FileMode) (core.Vnode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := core.AccessModeOf(flags); !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrInvalid}
	}

	name := normalize(path)
	if info, err := f.bfs.Stat(name); err == nil && info.IsDir() {
		return nil, &fs.PathError{Op: "open", Path: name, Err: syscall.EISDIR}
	}

	file, err := f.bfs.OpenFile(name, hostFlags(flags), perm)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	return &vnode{file: file, fs: f.bfs, name: name}, nil
}

// pathError wraps err in *fs.PathError unless it already is one.
func pathError(op, path string, err error) error {
	if _, ok := err.(*fs.PathError); ok {
		return err
	}
	return &fs.PathError{Op: op, Path: path, Err: err}
}

// Compile-time interface checks.
var (
	_ core.Resolver = (*FS)(nil)
	_ core.Typed    = (*FS)(nil)
)
