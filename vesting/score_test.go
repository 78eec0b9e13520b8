// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vesting

import (
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/vestscan/vestscan/esplora"
)

const (
	scoreAddr = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"
	oneBTC    = btcutil.Amount(100_000_000)
)

// makeTx builds an incoming transaction fixture paying sats to addr at
// the given time.
func makeTx(txid string, at time.Time, sats btcutil.Amount,
	addr string) esplora.Transaction {

	return esplora.Transaction{
		TxID:        txid,
		Confirmed:   true,
		BlockHeight: 800_000,
		BlockTime:   at,
		Outputs: []esplora.TxOutput{
			{ToAddress: addr, Value: sats},
		},
	}
}

// makeGrant builds a grant fixture with the default tolerances.
func makeGrant(year int, at time.Time, sats btcutil.Amount) Grant {
	cfg := DefaultConfig()
	return Grant{
		Year:           year,
		ExpectedDate:   at,
		ExpectedAmount: sats,
		Tolerance: Tolerance{
			DateRangeDays: cfg.MaxDateToleranceDays,
			AmountPercent: cfg.MaxAmountTolerancePercent,
		},
	}
}

// TestScoreExactMatch checks that a transaction hitting the expected
// date and amount exactly scores 1.
func TestScoreExactMatch(t *testing.T) {
	t.Parallel()

	when := date(2023, 1, 1)
	tx := makeTx("tx1", when, oneBTC, scoreAddr)
	grant := makeGrant(1, when, oneBTC)

	score := Score(&tx, &grant, scoreAddr, DefaultConfig())
	require.InDelta(t, 1.0, score, 1e-9)
}

// TestScoreZeroReceived checks that a transaction paying nothing to
// the tracked address scores 0 regardless of proximity.
func TestScoreZeroReceived(t *testing.T) {
	t.Parallel()

	when := date(2023, 1, 1)
	tx := makeTx("tx1", when, oneBTC, "1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2")
	grant := makeGrant(1, when, oneBTC)

	require.Zero(t, Score(&tx, &grant, scoreAddr, DefaultConfig()))
}

// TestScoreBoundaries checks the linear decay and the hard zero beyond
// each tolerance.
func TestScoreBoundaries(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	expected := date(2023, 1, 1)

	tests := []struct {
		name  string
		tx    esplora.Transaction
		score float64
	}{
		{
			name: "date at half tolerance, exact amount",
			tx: makeTx("tx1", expected.AddDate(0, 0, 45), oneBTC,
				scoreAddr),
			// date sub-score 0.5 weighted 0.5, amount 1.0
			// weighted 0.5.
			score: 0.75,
		},
		{
			name: "date just past tolerance, exact amount",
			tx: makeTx("tx1", expected.AddDate(0, 0, 91), oneBTC,
				scoreAddr),
			score: 0.5,
		},
		{
			name: "exact date, amount at half tolerance",
			tx: makeTx("tx1", expected, 105_000_000, scoreAddr),
			// amount gap 5% of a 10% tolerance.
			score: 0.75,
		},
		{
			name: "exact date, amount past tolerance",
			tx: makeTx("tx1", expected, 111_000_000, scoreAddr),
			score: 0.5,
		},
		{
			name: "both past tolerance",
			tx: makeTx("tx1", expected.AddDate(0, 0, 120),
				70_000_000, scoreAddr),
			score: 0,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			grant := makeGrant(1, expected, oneBTC)
			got := Score(&tc.tx, &grant, scoreAddr, cfg)
			require.InDelta(t, tc.score, got, 1e-9)
		})
	}
}

// TestScoreZeroExpectedAmount checks the divide-by-zero guard.
func TestScoreZeroExpectedAmount(t *testing.T) {
	t.Parallel()

	when := date(2023, 1, 1)
	tx := makeTx("tx1", when, oneBTC, scoreAddr)
	grant := makeGrant(1, when, 0)

	// The amount sub-score is 0, so only the date half remains.
	score := Score(&tx, &grant, scoreAddr, DefaultConfig())
	require.InDelta(t, 0.5, score, 1e-9)
}

// TestScoreStaysInUnitInterval checks the combined score bound over a
// spread of gaps.
func TestScoreStaysInUnitInterval(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	expected := date(2023, 1, 1)
	grant := makeGrant(1, expected, oneBTC)

	for days := -120; days <= 120; days += 7 {
		for _, sats := range []btcutil.Amount{
			1, 80_000_000, 100_000_000, 109_999_999, 200_000_000,
		} {
			tx := makeTx("tx1", expected.AddDate(0, 0, days),
				sats, scoreAddr)
			score := Score(&tx, &grant, scoreAddr, cfg)
			require.GreaterOrEqual(t, score, 0.0)
			require.LessOrEqual(t, score, 1.0)
		}
	}
}
