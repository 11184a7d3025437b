package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorClass represents a classification of Notion API failures.
type ErrorClass string

const (
	// ErrorClassAuth represents 401/403: invalid token or missing integration access.
	ErrorClassAuth ErrorClass = "auth"

	// ErrorClassNotFound represents 404 object_not_found.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassRateLimit represents 429 rate_limited.
	ErrorClassRateLimit ErrorClass = "rate_limit"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassClient represents any other 4xx error (validation, conflict).
	ErrorClassClient ErrorClass = "client"

	// ErrorClassNetwork represents transport failures (dial, timeout, reset).
	ErrorClassNetwork ErrorClass = "network"
)

// NotionError is the error returned for every failed Notion API call.
type NotionError struct {
	StatusCode int
	Class      ErrorClass
	Code       string // Notion error code, e.g. "object_not_found"
	Message    string
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *NotionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "notion %s error", e.Class)
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Code != "" {
		fmt.Fprintf(&b, " %s", e.Code)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *NotionError) Unwrap() error {
	return e.Err
}

// ClassifyStatus maps an HTTP status code to an ErrorClass.
func ClassifyStatus(status int) ErrorClass {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrorClassAuth
	case status == http.StatusNotFound:
		return ErrorClassNotFound
	case status == http.StatusTooManyRequests:
		return ErrorClassRateLimit
	case status >= 500:
		return ErrorClassServer
	case status >= 400:
		return ErrorClassClient
	default:
		return ""
	}
}

// ClassOf returns the class of a NotionError anywhere in err's chain, or "".
func ClassOf(err error) ErrorClass {
	var ne *NotionError
	if errors.As(err, &ne) {
		return ne.Class
	}
	return ""
}

// IsAuth reports whether err is an authentication-class failure.
func IsAuth(err error) bool { return ClassOf(err) == ErrorClassAuth }

// IsNotFound reports whether err is a not-found-class failure.
func IsNotFound(err error) bool { return ClassOf(err) == ErrorClassNotFound }

// IsRetryable is the default retry predicate: rate limits, server errors and
// transport failures.
func IsRetryable(err error) bool {
	return shouldRetry(ClassOf(err))
}

func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassRateLimit, ErrorClassServer, ErrorClassNetwork:
		return true
	default:
		// auth, not_found and other 4xx fail the same way on every attempt
		return false
	}
}

// retryAfterOf extracts the server-requested delay from err, if any.
func retryAfterOf(err error) time.Duration {
	var ne *NotionError
	if errors.As(err, &ne) {
		return ne.RetryAfter
	}
	return 0
}
