package errors

import (
	"context"
	"errors"
	"fmt"
)

// ErrorType classifies pipeline failures
type ErrorType string

const (
	// ErrorTypeNoContent means the page exposed zero matching media items
	ErrorTypeNoContent ErrorType = "no_content"
	// ErrorTypeRateLimit is an HTTP 429 from the media host
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeNetwork covers transport failures and non-429 bad statuses
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeCancelled marks a user-initiated abort, never a failure
	ErrorTypeCancelled ErrorType = "cancelled"
	// ErrorTypeEmbed is a metadata-embedding failure, recovered by pass-through
	ErrorTypeEmbed ErrorType = "embed"
	// ErrorTypeArchive is a fatal archive-assembly failure
	ErrorTypeArchive ErrorType = "archive"
	ErrorTypeUnknown ErrorType = "unknown"
)

// Error represents a typed pipeline error
type Error struct {
	Type    ErrorType
	Message string
	Code    int
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// New creates a typed error
func New(t ErrorType, msg string) *Error {
	return &Error{Type: t, Message: msg}
}

// Newf creates a typed error with a formatted message
func Newf(t ErrorType, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

// WithCode creates a typed error carrying an HTTP status code
func WithCode(t ErrorType, code int, msg string) *Error {
	return &Error{Type: t, Message: msg, Code: code}
}

// TypeOf extracts the error type from an error chain
func TypeOf(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	if errors.Is(err, context.Canceled) {
		return ErrorTypeCancelled
	}
	return ErrorTypeUnknown
}

// IsRateLimit reports whether err is a rate-limit error
func IsRateLimit(err error) bool {
	return TypeOf(err) == ErrorTypeRateLimit
}

// IsCancelled reports whether err is a cancellation, including a bare
// context.Canceled leaking out of net/http
func IsCancelled(err error) bool {
	return TypeOf(err) == ErrorTypeCancelled
}

// IsNoContent reports whether err is a no-content failure
func IsNoContent(err error) bool {
	return TypeOf(err) == ErrorTypeNoContent
}

// IsFatal reports whether err must be escalated to the top-level caller.
// Only no-content and archive failures end a run; everything else is
// absorbed with a status update.
func IsFatal(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeNoContent, ErrorTypeArchive:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether an error type is worth another attempt
func IsRetryable(t ErrorType) bool {
	return t == ErrorTypeRateLimit
}
