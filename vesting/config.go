// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vesting

import (
	"fmt"
	"math"

	"github.com/vestscan/vestscan/faults"
)

// weightSumEpsilon is the slack allowed when checking that the score
// weights sum to one.
const weightSumEpsilon = 1e-9

// Config tunes the matching engine.  It is passed by value and never
// mutated; changing a Config for one request does not affect schedules
// or results produced earlier.
type Config struct {
	// DateWeight and AmountWeight blend the two proximity sub-scores
	// into the combined match score.  They must sum to 1 so the
	// combined score stays within [0, 1].
	DateWeight   float64
	AmountWeight float64

	// MatchThreshold is the minimum combined score for a
	// (transaction, grant) pair to be considered a match candidate.
	MatchThreshold float64

	// MaxDateToleranceDays is the widest acceptable gap between a
	// transaction date and the expected grant date.
	MaxDateToleranceDays int

	// MaxAmountTolerancePercent is the widest acceptable percentage
	// gap between a received amount and the expected grant amount.
	MaxAmountTolerancePercent float64
}

// DefaultConfig returns the tuning used when the caller provides none.
func DefaultConfig() Config {
	return Config{
		DateWeight:                0.5,
		AmountWeight:              0.5,
		MatchThreshold:            0.7,
		MaxDateToleranceDays:      90,
		MaxAmountTolerancePercent: 10,
	}
}

// Validate checks the configuration for values the scorer cannot work
// with and returns a validation fault describing the first problem.
func (c Config) Validate() error {
	if math.Abs(c.DateWeight+c.AmountWeight-1) > weightSumEpsilon {
		return faults.Validation(
			fmt.Sprintf("date weight %v and amount weight %v "+
				"must sum to 1", c.DateWeight, c.AmountWeight),
			"Adjust the score weights so they total 1.0.",
		)
	}
	if c.DateWeight < 0 || c.AmountWeight < 0 {
		return faults.Validation(
			"score weights must not be negative",
			"Use weights between 0.0 and 1.0.",
		)
	}
	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return faults.Validation(
			fmt.Sprintf("match threshold %v is outside [0, 1]",
				c.MatchThreshold),
			"Use a match threshold between 0.0 and 1.0.",
		)
	}
	if c.MaxDateToleranceDays <= 0 {
		return faults.Validation(
			"date tolerance must be at least one day",
			"Use a positive date tolerance.",
		)
	}
	if c.MaxAmountTolerancePercent <= 0 {
		return faults.Validation(
			"amount tolerance must be a positive percentage",
			"Use a positive amount tolerance.",
		)
	}
	return nil
}
