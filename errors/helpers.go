package errors

import (
	stderrors "errors"
)

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around the standard library errors.Is.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around the standard library errors.As.
func As(err error, target interface{}) bool {
	return stderrors.As(err, target)
}

// GetCode extracts the ErrorCode from the outermost KernelError in err's
// chain. Returns CodeUnknown if err is nil or carries no KernelError.
//
// Example:
//
//	if errors.GetCode(err) == errors.CodeTooManyOpenFilesProcess {
//	    // close something and try again
//	}
func GetCode(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var kerr KernelError
	if stderrors.As(err, &kerr) {
		return kerr.Code()
	}
	return CodeUnknown
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	return err != nil && GetCode(err) == code
}

// GetClassification extracts the ErrorClassification from an error.
// Returns ClassificationPermanent if the error is nil or not a KernelError.
func GetClassification(err error) ErrorClassification {
	if err == nil {
		return ClassificationPermanent
	}

	var kerr KernelError
	if stderrors.As(err, &kerr) {
		return kerr.Classification()
	}
	return ClassificationPermanent
}

// IsRetryable returns true if the error is classified as retryable.
// Returns false if the error is nil or not a KernelError.
func IsRetryable(err error) bool {
	return GetClassification(err).IsRetryable()
}

// ErrnoOf returns the syscall error number for err: 0 for nil, the code's
// errno for a KernelError, and EIO for anything else.
func ErrnoOf(err error) Errno {
	if err == nil {
		return 0
	}
	var kerr KernelError
	if stderrors.As(err, &kerr) {
		return kerr.Errno()
	}
	return EIO
}
