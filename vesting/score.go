// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vesting

import (
	"math"
	"time"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/vestscan/vestscan/esplora"
)

// Score computes the 0..1 compatibility between a transaction and an
// expected grant for the tracked address.  The date and amount
// proximity sub-scores each decay linearly to zero at the grant's
// tolerance boundary and are blended with the config weights.  A
// transaction that paid nothing to the address scores 0.
func Score(tx *esplora.Transaction, grant *Grant, addr string,
	cfg Config) float64 {

	received := esplora.ReceivedAmount(tx, addr)
	if received == 0 {
		return 0
	}

	ds := dateScore(tx.BlockTime, grant.ExpectedDate,
		grant.Tolerance.DateRangeDays)
	as := amountScore(received, grant.ExpectedAmount,
		grant.Tolerance.AmountPercent)

	return ds*cfg.DateWeight + as*cfg.AmountWeight
}

// dateScore returns 1 at an exact date hit, decaying linearly to 0 at
// a gap of toleranceDays.  Gaps are measured in fractional days.
func dateScore(txTime, expected time.Time, toleranceDays int) float64 {
	if toleranceDays <= 0 {
		return 0
	}

	gapDays := math.Abs(txTime.Sub(expected).Hours()) / 24
	if gapDays > float64(toleranceDays) {
		return 0
	}

	return 1 - gapDays/float64(toleranceDays)
}

// amountScore returns 1 at an exact amount hit, decaying linearly to 0
// at a percentage gap of tolerancePercent.  A zero expected amount
// scores 0 to guard the division.
func amountScore(actual, expected btcutil.Amount,
	tolerancePercent float64) float64 {

	if expected == 0 || tolerancePercent <= 0 {
		return 0
	}

	gapPercent := math.Abs(float64(actual-expected)) /
		float64(expected) * 100
	if gapPercent > tolerancePercent {
		return 0
	}

	return 1 - gapPercent/tolerancePercent
}
