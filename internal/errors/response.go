package errors

import (
	"fmt"
	"maps"
	"slices"
)

// ErrorResponse is the JSON envelope of every API error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	TraceID string   `json:"trace_id"`
}

type ErrorOption func(*ErrorDetail)

// WithDetails sets the detail list, replacing any set earlier.
func WithDetails(details ...string) ErrorOption {
	return func(d *ErrorDetail) { d.Details = details }
}

// WithMessage replaces the catalog message.
func WithMessage(message string) ErrorOption {
	return func(d *ErrorDetail) { d.Message = message }
}

func NewErrorResponse(code ErrorCode, traceID string, opts ...ErrorOption) *ErrorResponse {
	detail := ErrorDetail{
		Code:    string(code),
		Message: GetErrorMessage(code),
		TraceID: traceID,
	}
	for _, opt := range opts {
		opt(&detail)
	}
	return &ErrorResponse{Error: detail}
}

// NewValidationError lists one "field: message" detail per field, ordered by field name.
func NewValidationError(fieldErrors map[string]string, traceID string) *ErrorResponse {
	details := make([]string, 0, len(fieldErrors))
	for _, field := range slices.Sorted(maps.Keys(fieldErrors)) {
		details = append(details, field+": "+fieldErrors[field])
	}
	return NewErrorResponse(ValidationGeneral, traceID, WithDetails(details...))
}

// NewSystemError hides the cause; clients get only the trace ID to report.
func NewSystemError(traceID string) *ErrorResponse {
	return NewErrorResponse(SystemInternalError, traceID)
}

func (er *ErrorResponse) GetHTTPStatus() int {
	return GetHTTPStatus(ErrorCode(er.Error.Code))
}

func (er *ErrorResponse) String() string {
	return fmt.Sprintf("[%s] %s (trace: %s)", er.Error.Code, er.Error.Message, er.Error.TraceID)
}
