package errors

import (
	"encoding/json"
)

// ErrorResponse is the flat JSON form of an error. The wrapped chain is
// excluded; Code, Errno, Message and Context carry what a caller needs.
type ErrorResponse struct {
	// Code is the error code identifying the condition.
	Code string `json:"code"`

	// Errno is the symbolic syscall error number, e.g. "EBADF".
	Errno string `json:"errno"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Classification indicates whether the error is retryable or permanent.
	Classification string `json:"classification"`

	// Context contains optional metadata about the error.
	Context map[string]interface{} `json:"context,omitempty"`
}

// ToJSON converts any error to an ErrorResponse suitable for JSON serialization.
// Returns nil if err is nil.
//
// For standard errors, uses CodeUnknown, EIO, ClassificationPermanent and
// the error's text.
func ToJSON(err error) *ErrorResponse {
	if err == nil {
		return nil
	}

	message := err.Error()
	var context map[string]interface{}

	var kerr KernelError
	if As(err, &kerr) {
		message = kerr.Message()
		context = kerr.Context()
	}

	return &ErrorResponse{
		Code:           string(GetCode(err)),
		Errno:          ErrnoOf(err).String(),
		Message:        message,
		Classification: string(GetClassification(err)),
		Context:        context,
	}
}

// MarshalJSON implements json.Marshaler for kernelError.
func (e *kernelError) MarshalJSON() ([]byte, error) {
	response := &ErrorResponse{
		Code:           string(e.code),
		Errno:          e.Errno().String(),
		Message:        e.message,
		Classification: string(e.classification),
		Context:        e.context,
	}
	data, err := json.Marshal(response)
	if err != nil {
		return nil, &kernelError{
			code:           CodeInternal,
			classification: ClassificationPermanent,
			message:        "failed to marshal error response",
			cause:          err,
		}
	}
	return data, nil
}
