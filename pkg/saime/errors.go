package saime

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies upstream failures.
type ErrorCategory string

const (
	// ErrorTimeout indicates the registry took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorOutage indicates the registry could not be reached or failed
	ErrorOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates the registry refused the request rate
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorBadStatus indicates an unexpected non-success status
	ErrorBadStatus ErrorCategory = "bad_status"

	// ErrorInternal indicates the request could not be built or read
	ErrorInternal ErrorCategory = "internal"
)

// FetchError wraps an upstream failure with its category.
type FetchError struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
	Underlying error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("saime [%s]: %s", e.Category, e.Message)
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Underlying != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

func (e *FetchError) Unwrap() error {
	return e.Underlying
}

// Category extracts the category of err, ErrorInternal when it carries none.
func Category(err error) ErrorCategory {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Category
	}
	return ErrorInternal
}

// IsTimeout reports whether err is an upstream timeout.
func IsTimeout(err error) bool {
	return Category(err) == ErrorTimeout
}
