package errors

import "fmt"

// UpstreamError reports a failed call to an external LMS endpoint
type UpstreamError struct {
	Operation  string `json:"operation"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed (status %d): %s", e.Operation, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// NewUpstreamError creates a new upstream error
func NewUpstreamError(operation string, statusCode int, message string) *UpstreamError {
	return &UpstreamError{
		Operation:  operation,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Rejected reports whether the LMS answered with a client error, which a
// retry with the same payload will not fix.
func (e *UpstreamError) Rejected() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}
