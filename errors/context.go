package errors

import "errors"

// WithContext adds a single context field to an error.
// Returns a new KernelError; existing fields are preserved.
//
// If err is not a KernelError, it is converted to one with CodeUnknown.
// Returns nil if err is nil.
//
// Example:
//
//	err := errors.New(errors.CodeInvalidDescriptor, "descriptor not open")
//	err = errors.WithContext(err, "fd", fd)
func WithContext(err error, key string, value interface{}) KernelError {
	if err == nil {
		return nil
	}
	return WithContextMap(err, map[string]interface{}{key: value})
}

// WithContextMap adds multiple context fields to an error. New fields
// override existing ones with the same key.
//
// If err is not a KernelError, it is converted to one with CodeUnknown.
// Returns nil if err is nil.
func WithContextMap(err error, ctx map[string]interface{}) KernelError {
	if err == nil {
		return nil
	}

	kerr := asKernelError(err)
	merged := make(map[string]interface{}, len(ctx))
	for k, v := range kerr.Context() {
		merged[k] = v
	}
	for k, v := range ctx {
		merged[k] = v
	}

	return &kernelError{
		code:           kerr.Code(),
		classification: kerr.Classification(),
		message:        kerr.Message(),
		context:        merged,
		cause:          kerr.Unwrap(),
	}
}

// WithClassification overrides the classification of an error.
//
// If err is not a KernelError, it is converted to one with CodeUnknown.
// Returns nil if err is nil.
func WithClassification(err error, classification ErrorClassification) KernelError {
	if err == nil {
		return nil
	}

	kerr := asKernelError(err)
	return &kernelError{
		code:           kerr.Code(),
		classification: classification,
		message:        kerr.Message(),
		context:        kerr.Context(),
		cause:          kerr.Unwrap(),
	}
}

// asKernelError returns the first KernelError in err's chain, or wraps err in
// a CodeUnknown error.
func asKernelError(err error) KernelError {
	var kerr KernelError
	if errors.As(err, &kerr) {
		return kerr
	}
	return &kernelError{
		code:           CodeUnknown,
		classification: ClassificationPermanent,
		message:        err.Error(),
		cause:          err,
	}
}
