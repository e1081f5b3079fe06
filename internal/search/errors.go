package search

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorClass represents a classification of page fetch failures.
type ErrorClass string

const (
	// ClassAuth is a rejected credential or exhausted quota (HTTP 403).
	ClassAuth ErrorClass = "auth"

	// ClassClient represents other 4xx responses.
	ClassClient ErrorClass = "client"

	// ClassRateLimit represents 429 responses.
	ClassRateLimit ErrorClass = "rate_limit"

	// ClassServer represents 5xx responses.
	ClassServer ErrorClass = "server"

	// ClassNetwork represents transport failures and timeouts.
	ClassNetwork ErrorClass = "network"

	// ClassDecode represents a 200 response whose body could not be read.
	ClassDecode ErrorClass = "decode"
)

// ErrAuth is matched by any fetch error of class ClassAuth.
var ErrAuth = errors.New("registry rejected the credential")

// FetchError describes a failed page fetch.
type FetchError struct {
	Page       int
	StatusCode int
	Class      ErrorClass
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("page %d: %s error (status %d): %s: %v", e.Page, e.Class, e.StatusCode, e.Message, e.Err)
	}
	return fmt.Sprintf("page %d: %s error (status %d): %s", e.Page, e.Class, e.StatusCode, e.Message)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is reports auth-class errors as ErrAuth.
func (e *FetchError) Is(target error) bool {
	return target == ErrAuth && e.Class == ClassAuth
}

// IsRecoverable reports whether a fetch failure can be absorbed by the
// run (the page contributes nothing) rather than ending it.
func IsRecoverable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	return fe.Class != ClassAuth
}

// classifyStatus maps a non-200 status code to an error class.
func classifyStatus(code int) ErrorClass {
	switch {
	case code == http.StatusForbidden:
		return ClassAuth
	case code == http.StatusTooManyRequests:
		return ClassRateLimit
	case code >= 400 && code < 500:
		return ClassClient
	case code >= 500:
		return ClassServer
	default:
		// 1xx/3xx that the client did not follow
		return ClassClient
	}
}

// shouldRetry determines if an error class is worth another attempt.
func shouldRetry(class ErrorClass) bool {
	switch class {
	case ClassServer, ClassRateLimit, ClassNetwork:
		return true
	default:
		return false
	}
}
