package errors

// KernelError extends the standard error interface with the structured
// information the syscall layer reports.
//
// KernelError provides a code for categorization, a classification for retry
// decisions, contextual metadata, the errno used at the syscall boundary,
// and compatibility with standard library error handling.
type KernelError interface {
	error

	// Code returns the error code identifying the condition.
	Code() ErrorCode

	// Classification returns whether the error is retryable or permanent.
	Classification() ErrorClassification

	// Message returns the human-readable error message.
	Message() string

	// Context returns attached metadata as a read-only map.
	// Returns nil if no context has been attached.
	Context() map[string]interface{}

	// Errno returns the syscall error number for the code.
	Errno() Errno

	// Unwrap returns the wrapped error, or nil.
	Unwrap() error
}
