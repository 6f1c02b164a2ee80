// Package billy provides go-billy-backed file providers for the kernel.
//
// This package wraps go-billy's osfs (local) and memfs (in-memory)
// implementations behind core.Resolver. Vnodes are backed by billy.File and
// are seekable; reads use ReadAt and writes use WriteAt when the backend
// offers it, or a seek followed by a write otherwise.
//
// Usage:
//
//	// Create an in-memory root filesystem
//	root := billy.NewMemory()
//
//	vn, err := root.Resolve(ctx, "notes.txt", core.O_RDWR|core.O_CREAT, 0o644)
//
//	// Serve a host directory instead
//	root = billy.NewLocal("/srv/kernel-root")
//
// # Flags
//
// O_CREAT, O_EXCL and O_TRUNC are passed through to the backend. O_APPEND is
// handled by the kernel, which positions each append write at the current
// size, so it is not passed down. Directories cannot be opened.
//
// # Thread Safety
//
// FS and vnodes are safe for concurrent use by multiple goroutines.
package billy
