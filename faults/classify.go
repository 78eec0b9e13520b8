// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package faults

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
)

// Classify converts an arbitrary fault raised during the named
// operation into a typed *Error.  An error that already is (or wraps) a
// typed *Error passes through unchanged so classification is idempotent
// across layers.
func Classify(err error, operation string) *Error {
	var ferr *Error
	if errors.As(err, &ferr) {
		return ferr
	}

	switch {
	// Caller-driven aborts are surfaced as a distinct signal and must
	// never be retried.
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):

		return Cancelled(err)

	// Transport-level failures with no HTTP status are assumed
	// transient.
	case isTransportError(err):
		return Network(0, fmt.Sprintf("%s failed: network error",
			operation), err)

	// Decode failures mean the upstream sent something we do not
	// understand.  Retrying would fetch the same bytes again.
	case isDecodeError(err):
		return DataProcessing(fmt.Sprintf("%s returned data in an "+
			"unexpected format", operation), err)
	}

	// Anything else raised locally is a bug, not weather.
	return DataProcessing(fmt.Sprintf("%s failed unexpectedly",
		operation), err)
}

// isTransportError reports whether err is a network transport failure.
func isTransportError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr)
}

// isDecodeError reports whether err came from decoding a malformed
// payload.
func isDecodeError(err error) bool {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
