package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with a code and message while preserving the original
// error as the cause.
//
// If err is already a KernelError, its classification is preserved.
// Returns nil if err is nil.
//
// Example:
//
//	vn, err := resolver.Resolve(ctx, path, flags, perm)
//	if err != nil {
//	    return errors.Wrap(err, errors.CodeIO, "failed to resolve path")
//	}
func Wrap(err error, code ErrorCode, message string) KernelError {
	return WrapWithContext(err, code, message, nil)
}

// Wrapf wraps an error with a formatted message.
// Returns nil if err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) KernelError {
	if err == nil {
		return nil
	}
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// WrapWithContext wraps an error and attaches context metadata in a single
// operation. The context map is copied.
// Returns nil if err is nil.
func WrapWithContext(err error, code ErrorCode, message string, ctx map[string]interface{}) KernelError {
	if err == nil {
		return nil
	}

	classification := getDefaultClassification(code)
	var kerr KernelError
	if errors.As(err, &kerr) {
		classification = kerr.Classification()
	}

	return &kernelError{
		code:           code,
		classification: classification,
		message:        message,
		context:        copyContext(ctx),
		cause:          err,
	}
}
