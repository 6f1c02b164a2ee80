// Package errors provides the structured error values returned by the
// descriptor and open-file layers.
//
// Every failure the kernel reports is a KernelError: a string Code that
// names the condition, a Classification that tells callers whether the same
// call can succeed later, free-form context metadata, an optional wrapped
// cause, and the Errno the condition maps to at the syscall boundary. Values
// remain compatible with the standard library (errors.Is, errors.As,
// errors.Unwrap).
//
// # Codes
//
// Descriptor and argument errors:
//
//   - CodeInvalidDescriptor (EBADF): out-of-range or unbound descriptor, or a
//     descriptor whose access mode forbids the requested direction
//   - CodeInvalidArgument (EINVAL): bad whence, negative seek result, bad flags
//   - CodeNotSeekable (ESPIPE): seek on an object without random access
//   - CodeBadAddress (EFAULT), CodeNameTooLong (ENAMETOOLONG): user memory
//
// Exhaustion errors (retryable):
//
//   - CodeTooManyOpenFilesProcess (EMFILE): the descriptor table is full
//   - CodeTooManyOpenFilesSystem (ENFILE): the open file table is full
//   - CodeOutOfMemory (ENOMEM): the kernel heap budget is spent
//
// Errors surfaced from the file providers are translated by FromFS into
// CodeNotFound, CodeAlreadyExists, CodePermissionDenied, CodeIsDirectory or
// CodeIO, keeping the provider error as the cause. Configuration that fails
// its schema is reported as CodeInvalidConfig (EINVAL).
//
// # Quick Start
//
//	err := errors.New(errors.CodeInvalidDescriptor, "descriptor not open")
//	err = errors.WithContext(err, "fd", 7)
//
//	if errors.GetCode(err) == errors.CodeInvalidDescriptor {
//	    // ...
//	}
//
//	errno := errors.ErrnoOf(err) // EBADF
//
// # JSON
//
// ToJSON flattens any error into an ErrorResponse (code, errno, message,
// classification, context) without exposing the wrapped chain.
package errors
