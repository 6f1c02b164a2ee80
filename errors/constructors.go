package errors

import "fmt"

// New creates a new KernelError with the given code and message.
// The classification is the code's default.
//
// Example:
//
//	err := errors.New(errors.CodeNotSeekable, "console does not support seeking")
func New(code ErrorCode, message string) KernelError {
	return &kernelError{
		code:           code,
		classification: getDefaultClassification(code),
		message:        message,
	}
}

// Newf creates a new KernelError with a formatted message.
//
// Example:
//
//	err := errors.Newf(errors.CodeInvalidArgument, "invalid whence %d", whence)
func Newf(code ErrorCode, format string, args ...interface{}) KernelError {
	return New(code, fmt.Sprintf(format, args...))
}

// BadDescriptor returns a CodeInvalidDescriptor error carrying the descriptor
// number in its context.
func BadDescriptor(fd int, reason string) KernelError {
	return &kernelError{
		code:           CodeInvalidDescriptor,
		classification: getDefaultClassification(CodeInvalidDescriptor),
		message:        reason,
		context:        map[string]interface{}{"fd": fd},
	}
}
