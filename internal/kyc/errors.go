package kyc

import (
	"fmt"
	"sort"
	"strings"

	"launchkart/pkg/errors"
)

// FallbackMessage is shown when the backend gives no usable message.
const FallbackMessage = "Something went wrong. Please try again."

// APIError is a transport or server failure of a backend call.
type APIError struct {
	Op         string
	StatusCode int // 0 when no response was received
	Detail     string
	RequestID  string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == 0 && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Detail)
	default:
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// Message is what the user sees: the server detail verbatim when present.
func (e *APIError) Message() string {
	if strings.TrimSpace(e.Detail) != "" {
		return e.Detail
	}
	return FallbackMessage
}

// Temporary reports whether the failure happened below the HTTP layer or was a 5xx.
func (e *APIError) Temporary() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// ValidationError is a local input problem caught before any request is made.
type ValidationError struct {
	Message string
	Fields  map[string]string
	Cause   error
}

func newValidationError(message string, cause error, fields map[string]string) *ValidationError {
	return &ValidationError{Message: message, Fields: fields, Cause: cause}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() []error {
	if e.Cause != nil {
		return []error{errors.ErrValidation, e.Cause}
	}
	return []error{errors.ErrValidation}
}

// RejectedError is a 2xx verification response with success=false.
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string { return e.Op + ": " + e.Message }

func (e *RejectedError) Unwrap() error { return errors.ErrVerificationRejected }

// UserMessage picks the text to display for any error returned by this package.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message()
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	var rErr *RejectedError
	if errors.As(err, &rErr) {
		return rErr.Message
	}
	return FallbackMessage
}
