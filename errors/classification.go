package errors

// ErrorClassification indicates whether the same call can succeed later.
type ErrorClassification string

const (
	// ClassificationRetryable indicates a resource was momentarily exhausted;
	// the call may succeed once other descriptors or objects are released.
	ClassificationRetryable ErrorClassification = "RETRYABLE"

	// ClassificationPermanent indicates the call will fail again with the same
	// arguments.
	ClassificationPermanent ErrorClassification = "PERMANENT"
)

// IsRetryable returns true if the classification indicates retry should be attempted.
func (c ErrorClassification) IsRetryable() bool {
	return c == ClassificationRetryable
}

// defaultClassifications maps error codes to their default classification.
var defaultClassifications = map[ErrorCode]ErrorClassification{
	// Exhaustion clears when other callers release resources.
	CodeTooManyOpenFilesProcess: ClassificationRetryable,
	CodeTooManyOpenFilesSystem:  ClassificationRetryable,
	CodeOutOfMemory:             ClassificationRetryable,

	CodeInvalidDescriptor: ClassificationPermanent,
	CodeInvalidArgument:   ClassificationPermanent,
	CodeNotSeekable:       ClassificationPermanent,
	CodeBadAddress:        ClassificationPermanent,
	CodeNameTooLong:       ClassificationPermanent,
	CodeNotFound:          ClassificationPermanent,
	CodeAlreadyExists:     ClassificationPermanent,
	CodePermissionDenied:  ClassificationPermanent,
	CodeIsDirectory:       ClassificationPermanent,
	CodeNotSupported:      ClassificationPermanent,
	CodeIO:                ClassificationPermanent,
	CodeInvalidConfig:     ClassificationPermanent,
	CodeNotImplemented:    ClassificationPermanent,
	CodeInternal:          ClassificationPermanent,
	CodeUnknown:           ClassificationPermanent,
}

// getDefaultClassification returns the default classification for an error code.
// Returns ClassificationPermanent if the code is not in the map.
func getDefaultClassification(code ErrorCode) ErrorClassification {
	if class, ok := defaultClassifications[code]; ok {
		return class
	}
	return ClassificationPermanent
}
