// Copyright © 2025 jackelyj <dreamerlyj@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
//

package lra

import (
	"errors"
	"fmt"
	"time"
)

// predefined error codes
const (
	ErrCodeNotFound           = "LRA_NOT_FOUND"
	ErrCodeGone               = "LRA_GONE"
	ErrCodePreconditionFailed = "LRA_PRECONDITION_FAILED"
	ErrCodeBadRequest         = "LRA_BAD_REQUEST"
	ErrCodeStoreFailed        = "LOG_STORE_FAILED"
	ErrCodeCoordinatorStopped = "COORDINATOR_STOPPED"
)

// Diagnostic codes carried by ErrCodeStoreFailed errors. They let a caller
// distinguish a write that failed before any state changed (safe to retry)
// from a write that failed mid-termination (recovery redrive applies,
// blind client retry does not).
const (
	DiagEnlistRolledBack    = "enlist_rolled_back"
	DiagTerminationPending  = "termination_pending_recovery"
	DiagStartNothingChanged = "start_nothing_persisted"
)

// Error is the coded error type returned by coordinator operations.
// The Code field is stable across releases; callers should switch on it
// (or use the IsXxx predicates) rather than on message text.
type Error struct {
	Code       string
	Message    string
	Diagnostic string
	Retryable  bool
	Timestamp  time.Time
	Cause      error
}

// NewError creates a new coordinator error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// WrapError wraps an underlying error into a coordinator error.
func WrapError(err error, code, message string) *Error {
	e := NewError(code, message)
	e.Cause = err
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %s)", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.Cause }

// WithDiagnostic attaches a stable diagnostic sub-code to the error.
func (e *Error) WithDiagnostic(diag string) *Error {
	e.Diagnostic = diag
	return e
}

// WithRetryable marks whether the caller may safely retry the operation.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// Common error constructors

// NewNotFoundError creates an error for an unknown LRA id. A NotFound may
// legitimately mean "already finished and forgotten", so callers must not
// treat it as a hard failure on termination or status calls.
func NewNotFoundError(id ActionID) *Error {
	return NewError(ErrCodeNotFound, fmt.Sprintf("LRA %q not found", id))
}

// NewGoneError creates an error for a join against an LRA the coordinator no
// longer recognizes.
func NewGoneError(id ActionID) *Error {
	return NewError(ErrCodeGone, fmt.Sprintf("LRA %q is gone", id))
}

// NewTooLateToJoinError creates an error for a join attempted after the LRA
// began terminating.
func NewTooLateToJoinError(id ActionID, status Status) *Error {
	return NewError(ErrCodePreconditionFailed,
		fmt.Sprintf("too late to join LRA %q: status is %s", id, status))
}

// NewBadRequestError creates an error for malformed input.
func NewBadRequestError(message string) *Error {
	return NewError(ErrCodeBadRequest, message)
}

// NewStoreError creates an error for a durable log failure during the given
// operation.
func NewStoreError(operation string, err error) *Error {
	return WrapError(err, ErrCodeStoreFailed,
		fmt.Sprintf("log store operation %q failed", operation))
}

// NewCoordinatorStoppedError creates an error for operations attempted after
// shutdown.
func NewCoordinatorStoppedError() *Error {
	return NewError(ErrCodeCoordinatorStopped, "coordinator is stopped")
}

func hasCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsNotFound checks whether err reports an unknown LRA id.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsGone checks whether err reports an LRA the coordinator no longer knows.
func IsGone(err error) bool { return hasCode(err, ErrCodeGone) }

// IsPreconditionFailed checks whether err reports a too-late-to-join rejection.
func IsPreconditionFailed(err error) bool { return hasCode(err, ErrCodePreconditionFailed) }

// IsBadRequest checks whether err reports malformed input.
func IsBadRequest(err error) bool { return hasCode(err, ErrCodeBadRequest) }

// IsStoreFailed checks whether err reports a durable log failure.
func IsStoreFailed(err error) bool { return hasCode(err, ErrCodeStoreFailed) }

// Diagnostic extracts the diagnostic sub-code from err, or "" if none.
func Diagnostic(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Diagnostic
	}
	return ""
}
