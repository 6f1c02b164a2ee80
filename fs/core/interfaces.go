package core

import (
	"context"
	"io/fs"
)

// FSType represents the underlying type of a provider.
type FSType int

const (
	// FSTypeUnknown indicates the provider type is unknown or unspecified.
	FSTypeUnknown FSType = iota
	// FSTypeLocal indicates a local filesystem (e.g., disk-backed).
	FSTypeLocal
	// FSTypeMemory indicates an in-memory filesystem.
	FSTypeMemory
	// FSTypeRemote indicates a remote store (e.g., S3, cloud storage).
	FSTypeRemote
	// FSTypeDevice indicates a character device such as the console.
	FSTypeDevice
)

// String returns a string representation of the FSType.
func (t FSType) String() string {
	switch t {
	case FSTypeLocal:
		return "local"
	case FSTypeMemory:
		return "memory"
	case FSTypeRemote:
		return "remote"
	case FSTypeDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Vnode is an open file as seen by the kernel.
//
// All I/O is positional: the kernel owns the file offset and passes it on
// every call. A Vnode may be used from several goroutines at once; providers
// serialize internally where the backing store requires it.
type Vnode interface {
	// ReadAt reads up to len(p) bytes starting at off.
	// A short count is not an error. At end of file ReadAt returns 0 and
	// either nil or io.EOF.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt writes p starting at off and returns the number of bytes
	// written. Non-seekable vnodes ignore off.
	WriteAt(p []byte, off int64) (int, error)

	// Size returns the current length of the file in bytes.
	Size() (int64, error)

	// IsSeekable reports whether the vnode supports random access.
	IsSeekable() bool

	// Close releases the vnode. The kernel calls it exactly once.
	Close() error
}

// Resolver turns a path into an open Vnode.
type Resolver interface {
	// Resolve opens path with the given O_* flags. perm is used when
	// O_CREAT creates the file.
	//
	// Errors should wrap ErrNotExist, ErrExist, ErrPermission or
	// ErrUnsupported where those apply.
	Resolve(ctx context.Context, path string, flags int, perm fs.FileMode) (Vnode, error)
}

// ResolverFunc adapts an ordinary function to the Resolver interface.
type ResolverFunc func(ctx context.Context, path string, flags int, perm fs.FileMode) (Vnode, error)

// Resolve calls f(ctx, path, flags, perm).
func (f ResolverFunc) Resolve(ctx context.Context, path string, flags int, perm fs.FileMode) (Vnode, error) {
	return f(ctx, path, flags, perm)
}

// Typed is implemented by resolvers that can report their provider type.
//
//	if t, ok := resolver.(core.Typed); ok {
//	    log.Info("root filesystem", "type", t.Type())
//	}
type Typed interface {
	Type() FSType
}

// TypeOf returns r's provider type, or FSTypeUnknown when r does not
// implement Typed.
func TypeOf(r Resolver) FSType {
	if t, ok := r.(Typed); ok {
		return t.Type()
	}
	return FSTypeUnknown
}
