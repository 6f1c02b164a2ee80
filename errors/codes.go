package errors

import "strconv"

// ErrorCode represents a specific error condition.
// Error codes are string-based for debuggability and natural JSON serialization.
type ErrorCode string

const (
	// Descriptor and argument errors.

	// CodeInvalidDescriptor indicates a descriptor is out of range, unbound,
	// or not open in the direction requested.
	CodeInvalidDescriptor ErrorCode = "INVALID_DESCRIPTOR"

	// CodeInvalidArgument indicates an argument is malformed or would produce
	// an invalid result (bad whence, negative seek position, bad open flags).
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// CodeNotSeekable indicates the underlying object has no random access.
	CodeNotSeekable ErrorCode = "NOT_SEEKABLE"

	// Exhaustion errors.

	// CodeTooManyOpenFilesProcess indicates the calling process has no free
	// descriptor.
	CodeTooManyOpenFilesProcess ErrorCode = "TOO_MANY_OPEN_FILES_PROCESS"

	// CodeTooManyOpenFilesSystem indicates the system-wide open file table is
	// full.
	CodeTooManyOpenFilesSystem ErrorCode = "TOO_MANY_OPEN_FILES_SYSTEM"

	// CodeOutOfMemory indicates the kernel heap budget could not cover an
	// allocation.
	CodeOutOfMemory ErrorCode = "OUT_OF_MEMORY"

	// User memory errors.

	// CodeBadAddress indicates a user pointer outside the address space.
	CodeBadAddress ErrorCode = "BAD_ADDRESS"

	// CodeNameTooLong indicates a path string is longer than the path limit
	// or is not terminated within it.
	CodeNameTooLong ErrorCode = "NAME_TOO_LONG"

	// Provider errors.

	// CodeNotFound indicates the named file does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeAlreadyExists indicates an exclusive create found an existing file.
	CodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// CodePermissionDenied indicates the provider refused access.
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"

	// CodeIsDirectory indicates the path names a directory.
	CodeIsDirectory ErrorCode = "IS_DIRECTORY"

	// CodeNotSupported indicates the provider does not support the request.
	CodeNotSupported ErrorCode = "NOT_SUPPORTED"

	// CodeIO indicates the provider failed while moving bytes.
	CodeIO ErrorCode = "IO_ERROR"

	// CodeInvalidConfig indicates a configuration file or value failed the
	// schema or its bounds.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// System errors.

	// CodeNotImplemented indicates an unknown syscall number.
	CodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// CodeInternal indicates a broken invariant inside the kernel.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeUnknown indicates an unclassified error.
	CodeUnknown ErrorCode = "UNKNOWN"
)

// Errno is a syscall error number. The values follow the OS/161
// kern/errno.h numbering.
type Errno int

// Errno values returned through the syscall dispatcher.
const (
	ENOSYS       Errno = 1
	EUNIMP       Errno = 2
	ENOMEM       Errno = 3
	EFAULT       Errno = 6
	ENAMETOOLONG Errno = 7
	EINVAL       Errno = 8
	EACCES       Errno = 10
	EISDIR       Errno = 18
	ENOENT       Errno = 19
	EEXIST       Errno = 22
	EMFILE       Errno = 28
	ENFILE       Errno = 29
	EBADF        Errno = 30
	EIO          Errno = 32
	ESPIPE       Errno = 33
)

var errnoNames = map[Errno]string{
	ENOSYS:       "ENOSYS",
	EUNIMP:       "EUNIMP",
	ENOMEM:       "ENOMEM",
	EFAULT:       "EFAULT",
	ENAMETOOLONG: "ENAMETOOLONG",
	EINVAL:       "EINVAL",
	EACCES:       "EACCES",
	EISDIR:       "EISDIR",
	ENOENT:       "ENOENT",
	EEXIST:       "EEXIST",
	EMFILE:       "EMFILE",
	ENFILE:       "ENFILE",
	EBADF:        "EBADF",
	EIO:          "EIO",
	ESPIPE:       "ESPIPE",
}

// String returns the symbolic name of the errno, e.g. "EBADF".
func (e Errno) String() string {
	if name, ok := errnoNames[e]; ok {
		return name
	}
	if e == 0 {
		return "OK"
	}
	return "ERRNO(" + strconv.Itoa(int(e)) + ")"
}

// codeErrno maps every code to its syscall error number.
var codeErrno = map[ErrorCode]Errno{
	CodeInvalidDescriptor:       EBADF,
	CodeInvalidArgument:         EINVAL,
	CodeNotSeekable:             ESPIPE,
	CodeTooManyOpenFilesProcess: EMFILE,
	CodeTooManyOpenFilesSystem:  ENFILE,
	CodeOutOfMemory:             ENOMEM,
	CodeBadAddress:              EFAULT,
	CodeNameTooLong:             ENAMETOOLONG,
	CodeNotFound:                ENOENT,
	CodeAlreadyExists:           EEXIST,
	CodePermissionDenied:        EACCES,
	CodeIsDirectory:             EISDIR,
	CodeNotSupported:            EUNIMP,
	CodeIO:                      EIO,
	CodeInvalidConfig:           EINVAL,
	CodeNotImplemented:          ENOSYS,
	CodeInternal:                EIO,
	CodeUnknown:                 EIO,
}

// ErrnoForCode returns the syscall error number for code.
// Unknown codes map to EIO.
func ErrnoForCode(code ErrorCode) Errno {
	if errno, ok := codeErrno[code]; ok {
		return errno
	}
	return EIO
}
