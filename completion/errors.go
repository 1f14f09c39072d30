package completion

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrExhausted marks a completion call that failed on every retry attempt.
// Callers branch on it with errors.Is to distinguish a worn-out transient
// failure from a fatal one.
var ErrExhausted = errors.New("completion retries exhausted")

// TransientError wraps a failure worth retrying: network errors, rate
// limiting, server errors, malformed or empty service replies.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string {
	return e.err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.err
}

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError wraps a failure retrying cannot help: auth rejections, bad
// requests, unusable prompt keys.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string {
	return e.err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.err
}

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if the error is transient and should be retried.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal returns true if the error is fatal and should not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// maxErrorBody bounds how much response body an error message carries.
const maxErrorBody = 200

// classifyStatus maps a non-200 completion response onto the transient/fatal
// split: rate limiting and server errors retry, everything else does not.
func classifyStatus(statusCode int, body []byte) error {
	snippet := string(body)
	if len(snippet) > maxErrorBody {
		snippet = snippet[:maxErrorBody] + "..."
	}

	err := fmt.Errorf("completion service status %d: %s", statusCode, snippet)
	if statusCode == http.StatusTooManyRequests || statusCode >= 500 {
		return NewTransientError(err)
	}
	return NewFatalError(err)
}
