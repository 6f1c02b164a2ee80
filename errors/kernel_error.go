package errors

import "fmt"

// kernelError is the concrete implementation of KernelError.
// It is private to enforce construction through package functions.
type kernelError struct {
	code           ErrorCode
	classification ErrorClassification
	message        string
	context        map[string]interface{}
	cause          error
}

// Error returns "[CODE] message" or "[CODE] message: cause".
func (e *kernelError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.code, e.message)
}

// Code returns the error code.
func (e *kernelError) Code() ErrorCode {
	return e.code
}

// Classification returns the error classification.
func (e *kernelError) Classification() ErrorClassification {
	return e.classification
}

// Message returns the error message.
func (e *kernelError) Message() string {
	return e.message
}

// Context returns a copy of the context map, or nil.
func (e *kernelError) Context() map[string]interface{} {
	return copyContext(e.context)
}

// Errno returns the syscall error number for the code.
func (e *kernelError) Errno() Errno {
	return ErrnoForCode(e.code)
}

// Unwrap returns the wrapped error for standard library compatibility.
func (e *kernelError) Unwrap() error {
	return e.cause
}

func copyContext(ctx map[string]interface{}) map[string]interface{} {
	if ctx == nil {
		return nil
	}
	out := make(map[string]interface{}, len(ctx))
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
