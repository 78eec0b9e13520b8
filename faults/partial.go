// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package faults

import "fmt"

// PartialResult pairs data that is usable on its own with the
// non-fatal fault describing what is missing from it.
type PartialResult[T any] struct {
	Data T
	Err  *Error
}

// Partial records that a non-essential enrichment failed while the
// essential data succeeded, letting callers proceed with a degraded
// result instead of failing the whole pipeline.  The returned fault is
// retryable so the caller may offer to fill in the gap later.
func Partial[T any](data T, missing string, cause error) PartialResult[T] {
	perr := &Error{
		Code: ErrPartialData,
		Description: fmt.Sprintf("results are incomplete: %s could "+
			"not be loaded", missing),
		Guidance: fmt.Sprintf("The analysis is usable without %s; "+
			"retry to include it.", missing),
		Err: cause,
	}

	log.Warnf("proceeding with partial data: %v", perr)

	return PartialResult[T]{Data: data, Err: perr}
}
