// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vesting

import (
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/vestscan/vestscan/faults"
)

const (
	// MinGrantPeriods is the smallest schedule that can be generated.
	MinGrantPeriods = 1

	// MaxGrantPeriods caps schedule generation to keep pathological
	// period counts from producing absurd schedules.
	MaxGrantPeriods = 20
)

// Tolerance is the deviation window within which a transaction is
// still a plausible match for a grant.
type Tolerance struct {
	DateRangeDays int
	AmountPercent float64
}

// Grant is one expected vesting payment.  Years are 1-indexed and
// contiguous within a schedule.  IsMatched and MatchedTxID are derived
// state, overwritten by matching and again by override application.
type Grant struct {
	Year           int
	ExpectedDate   time.Time
	ExpectedAmount btcutil.Amount
	IsMatched      bool
	MatchedTxID    fn.Option[string]

	// Tolerance is snapshotted from the active Config at generation
	// time so later config changes cannot retroactively widen or
	// narrow an existing schedule.
	Tolerance Tolerance
}

// ExpectedBTC returns the expected amount in whole BTC.
func (g *Grant) ExpectedBTC() float64 {
	return g.ExpectedAmount.ToBTC()
}

// GenerateSchedule produces the expected grant list for a vesting
// position: periods grants of perPeriodBTC each, the first on start
// and each subsequent one a calendar year later (time.AddDate
// semantics, so leap-day starts shift per the standard library).  The
// period count is clamped to [MinGrantPeriods, MaxGrantPeriods].
func GenerateSchedule(start time.Time, perPeriodBTC float64,
	periods int, cfg Config) ([]Grant, error) {

	if perPeriodBTC <= 0 {
		return nil, faults.Validation(
			fmt.Sprintf("per-period amount %v BTC must be "+
				"positive", perPeriodBTC),
			"Enter the BTC amount expected for each period.",
		)
	}
	amount, err := btcutil.NewAmount(perPeriodBTC)
	if err != nil {
		return nil, faults.Validation(
			fmt.Sprintf("per-period amount %v BTC is not "+
				"representable", perPeriodBTC),
			"Enter a finite BTC amount.",
		)
	}

	if periods < MinGrantPeriods {
		periods = MinGrantPeriods
	}
	if periods > MaxGrantPeriods {
		log.Warnf("Clamping %d grant periods to %d", periods,
			MaxGrantPeriods)
		periods = MaxGrantPeriods
	}

	base := time.Date(start.Year(), start.Month(), start.Day(),
		0, 0, 0, 0, time.UTC)

	grants := make([]Grant, 0, periods)
	for n := 1; n <= periods; n++ {
		grants = append(grants, Grant{
			Year:           n,
			ExpectedDate:   base.AddDate(n-1, 0, 0),
			ExpectedAmount: amount,
			MatchedTxID:    fn.None[string](),
			Tolerance: Tolerance{
				DateRangeDays: cfg.MaxDateToleranceDays,
				AmountPercent: cfg.MaxAmountTolerancePercent,
			},
		})
	}

	return grants, nil
}
