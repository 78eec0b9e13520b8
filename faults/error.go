// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package faults

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a category of failure.
type ErrorCode int

// These constants identify the category carried by an Error.
const (
	// ErrValidation indicates malformed caller input such as a bad
	// address, date, or amount.  Validation failures are never
	// retryable since retrying cannot fix the input.
	ErrValidation ErrorCode = iota

	// ErrNetwork indicates a transport failure or a non-2xx HTTP
	// response from an upstream service.
	ErrNetwork

	// ErrDataProcessing indicates a malformed upstream response, a
	// JSON decode failure, or an internal computation fault.  These
	// point at a bug or an incompatible upstream format change and
	// are never retryable.
	ErrDataProcessing

	// ErrPartialData indicates a non-essential enrichment failed
	// while the essential data was produced.  Callers may proceed
	// with the degraded result or retry the enrichment.
	ErrPartialData

	// ErrCancelled indicates the caller cancelled the operation.  It
	// distinguishes "user cancelled" from "operation failed" and is
	// never retryable.
	ErrCancelled
)

// Map of ErrorCode values back to their constant names for pretty
// printing.
var errorCodeStrings = map[ErrorCode]string{
	ErrValidation:     "ErrValidation",
	ErrNetwork:        "ErrNetwork",
	ErrDataProcessing: "ErrDataProcessing",
	ErrPartialData:    "ErrPartialData",
	ErrCancelled:      "ErrCancelled",
}

// String returns the ErrorCode as a human readable name.
func (e ErrorCode) String() string {
	if s, ok := errorCodeStrings[e]; ok {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// retryableStatus is the set of HTTP status codes treated as transient.
var retryableStatus = map[int]struct{}{
	408: {}, 429: {}, 500: {}, 502: {}, 503: {}, 504: {},
}

// Error is the typed error shared by all pipeline components.  It
// carries the failure category, a human readable description, guidance
// the user can act on, the HTTP status when one is known, and the
// underlying cause when one exists.
type Error struct {
	Code        ErrorCode
	Description string
	Guidance    string

	// Status is the HTTP status associated with a network failure, or
	// 0 when no status is known.
	Status int

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Description, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether retrying the failed operation could
// plausibly succeed.  Network failures are retryable when the status is
// transient or unknown; partial data failures are always retryable;
// everything else is not.
func (e *Error) Retryable() bool {
	switch e.Code {
	case ErrNetwork:
		if e.Status == 0 {
			return true
		}
		_, ok := retryableStatus[e.Status]
		return ok

	case ErrPartialData:
		return true

	default:
		return false
	}
}

// Validation returns a non-retryable input validation error.
func Validation(desc, guidance string) *Error {
	return &Error{Code: ErrValidation, Description: desc, Guidance: guidance}
}

// Network returns a network error for the given HTTP status.  A status
// of 0 means the failure happened below HTTP (DNS, TCP, timeout) and is
// assumed transient.
func Network(status int, desc string, err error) *Error {
	return &Error{
		Code:        ErrNetwork,
		Description: desc,
		Guidance:    "Check your connection and try again in a moment.",
		Status:      status,
		Err:         err,
	}
}

// DataProcessing returns a non-retryable data fault.
func DataProcessing(desc string, err error) *Error {
	return &Error{
		Code:        ErrDataProcessing,
		Description: desc,
		Guidance: "This usually indicates an upstream format change. " +
			"Retrying will not help; please report the problem.",
		Err: err,
	}
}

// Cancelled returns the error surfaced when the caller aborts an
// operation.
func Cancelled(err error) *Error {
	return &Error{
		Code:        ErrCancelled,
		Description: "the operation was cancelled",
		Err:         err,
	}
}

// IsCode reports whether err is or wraps an Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var ferr *Error
	return errors.As(err, &ferr) && ferr.Code == code
}

// UserMessage is the renderable form of an Error.  CanRetry tells the
// caller whether offering a retry affordance makes sense.
type UserMessage struct {
	Title      string
	Message    string
	Actionable string
	CanRetry   bool
}

// Map of ErrorCode values to user facing titles.
var errorTitles = map[ErrorCode]string{
	ErrValidation:     "Invalid Input",
	ErrNetwork:        "Network Problem",
	ErrDataProcessing: "Unexpected Data",
	ErrPartialData:    "Incomplete Data",
	ErrCancelled:      "Cancelled",
}

// UserFacing converts the error into a UserMessage suitable for direct
// display.  Guidance falls back to a per-category default when the
// error carries none.
func (e *Error) UserFacing() UserMessage {
	guidance := e.Guidance
	if guidance == "" {
		switch e.Code {
		case ErrValidation:
			guidance = "Correct the highlighted input and try again."
		case ErrNetwork:
			guidance = "Check your connection and try again in a moment."
		case ErrPartialData:
			guidance = "Some details are missing; retry to fill them in."
		case ErrCancelled:
			guidance = "Run the operation again when ready."
		default:
			guidance = "Please report the problem if it persists."
		}
	}

	return UserMessage{
		Title:      errorTitles[e.Code],
		Message:    e.Description,
		Actionable: guidance,
		CanRetry:   e.Retryable(),
	}
}
