// Package core defines the contract between the descriptor layer and the
// file providers that sit underneath it.
//
// The kernel never touches bytes or paths itself. It asks a Resolver to turn
// a path and open flags into a Vnode, then drives positional I/O through the
// Vnode for as long as any descriptor refers to it, and closes it exactly
// once when the last reference goes away.
//
// # Interfaces
//
//   - Resolver: path resolution (Resolve)
//   - Vnode: positional I/O (ReadAt, WriteAt), size and seekability queries,
//     and Close
//
// # Flags
//
// Open flags use the kernel ABI numbering rather than the host's:
//
//	O_RDONLY = 0, O_WRONLY = 1, O_RDWR = 2, O_ACCMODE = 3
//	O_CREAT = 4, O_EXCL = 8, O_TRUNC = 16, O_APPEND = 32
//
// AccessModeOf extracts and validates the access mode. Providers translate
// the remaining bits into their own open calls.
//
// # Errors
//
// Providers report failures with the sentinel errors in this package (which
// are the io/fs sentinels) so the kernel can classify them.
//
// # Provider Implementations
//
//   - github.com/jmgilman/go/filetable/fs/billy - go-billy-backed providers
//   - github.com/jmgilman/go/filetable/fs/console - the console device
//   - github.com/jmgilman/go/filetable/fs/devfs - device name multiplexer
//   - github.com/jmgilman/go/filetable/fs/minio - MinIO object storage
package core
