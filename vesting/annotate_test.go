// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vesting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/stretchr/testify/require"

	"github.com/vestscan/vestscan/esplora"
)

// annotate runs the pipeline with default config and no cache.
func annotate(t *testing.T, txs []esplora.Transaction,
	prices PriceMap) *Result {

	t.Helper()

	res, err := Annotate(context.Background(), txs, scoreAddr,
		date(2023, 1, 1), 1.0, 3, prices, DefaultConfig())
	require.NoError(t, err)
	return res
}

// findTx returns the annotated transaction with the given txid.
func findTx(t *testing.T, res *Result, txid string) *AnnotatedTransaction {
	t.Helper()

	for i := range res.Transactions {
		if res.Transactions[i].TxID == txid {
			return &res.Transactions[i]
		}
	}
	t.Fatalf("tx %s not in result", txid)
	return nil
}

// TestAnnotateBasicScenario checks the canonical outcome: an exact hit
// becomes year 1, an off-schedule payment stays unmatched.
func TestAnnotateBasicScenario(t *testing.T) {
	t.Parallel()

	txs := []esplora.Transaction{
		makeTx("grant1", date(2023, 1, 1), 100_000_000, scoreAddr),
		makeTx("other", date(2023, 6, 1), 70_000_000, scoreAddr),
	}

	res := annotate(t, txs, nil)

	grant1 := findTx(t, res, "grant1")
	require.Equal(t, 1, grant1.GrantYear.UnwrapOr(0))
	require.Equal(t, TxTypeAnnualGrant, grant1.Type)
	require.InDelta(t, 1.0, grant1.MatchScore.UnwrapOr(0), 1e-9)
	require.False(t, grant1.IsManuallyAnnotated)

	other := findTx(t, res, "other")
	require.True(t, other.GrantYear.IsNone())
	require.Equal(t, TxTypeOther, other.Type)
	require.True(t, other.MatchScore.IsNone())

	require.Equal(t, Summary{
		TotalTransactions:     2,
		MatchedTransactions:   1,
		UnmatchedTransactions: 1,
		ExpectedGrants:        3,
		MatchedGrants:         1,
	}, res.Summary)

	require.True(t, res.Grants[0].IsMatched)
	require.Equal(t, "grant1", res.Grants[0].MatchedTxID.UnwrapOr(""))
	require.False(t, res.Grants[1].IsMatched)
	require.False(t, res.Grants[2].IsMatched)
}

// TestAnnotateExcludesZeroReceive checks that transactions paying
// nothing to the tracked address never appear in the result.
func TestAnnotateExcludesZeroReceive(t *testing.T) {
	t.Parallel()

	txs := []esplora.Transaction{
		makeTx("in", date(2023, 1, 1), 100_000_000, scoreAddr),
		makeTx("out", date(2023, 1, 2), 50_000_000,
			"1BvBMSEYstWetqTFn5Au4m4GFg7xJaNVN2"),
	}

	res := annotate(t, txs, nil)
	require.Len(t, res.Transactions, 1)
	require.Equal(t, "in", res.Transactions[0].TxID)
}

// TestAnnotateDuplicatePayments checks the one-to-one constraint when
// two identical transactions both fit the same grant.
func TestAnnotateDuplicatePayments(t *testing.T) {
	t.Parallel()

	txs := []esplora.Transaction{
		makeTx("dup1", date(2023, 1, 1), 100_000_000, scoreAddr),
		makeTx("dup2", date(2023, 1, 1), 100_000_000, scoreAddr),
	}

	res := annotate(t, txs, nil)

	matched := 0
	for i := range res.Transactions {
		if res.Transactions[i].GrantYear.IsSome() {
			matched++
			require.Equal(t, 1,
				res.Transactions[i].GrantYear.UnwrapOr(0))
		}
	}
	require.Equal(t, 1, matched)

	// Ties break on input order.
	require.Equal(t, 1, findTx(t, res, "dup1").GrantYear.UnwrapOr(0))
	require.True(t, findTx(t, res, "dup2").GrantYear.IsNone())
}

// TestAnnotateMultiYear checks assignment across several grant years
// with realistic jitter and variance.
func TestAnnotateMultiYear(t *testing.T) {
	t.Parallel()

	txs := []esplora.Transaction{
		makeTx("y1", date(2023, 1, 3), 99_500_000, scoreAddr),
		makeTx("y2", date(2024, 1, 10), 101_000_000, scoreAddr),
		makeTx("y3", date(2025, 2, 1), 98_000_000, scoreAddr),
		makeTx("noise", date(2023, 7, 1), 12_345_678, scoreAddr),
	}

	res := annotate(t, txs, nil)

	require.Equal(t, 1, findTx(t, res, "y1").GrantYear.UnwrapOr(0))
	require.Equal(t, 2, findTx(t, res, "y2").GrantYear.UnwrapOr(0))
	require.Equal(t, 3, findTx(t, res, "y3").GrantYear.UnwrapOr(0))
	require.True(t, findTx(t, res, "noise").GrantYear.IsNone())
	require.Equal(t, 3, res.Summary.MatchedGrants)
}

// TestAnnotateNoGrantYearCollisions fuzzes input layouts and asserts
// no two transactions ever share a grant year.
func TestAnnotateNoGrantYearCollisions(t *testing.T) {
	t.Parallel()

	var txs []esplora.Transaction
	for i := 0; i < 40; i++ {
		txs = append(txs, makeTx(fmt.Sprintf("tx%02d", i),
			date(2023, 1, 1).AddDate(0, 0, i*13-60),
			btcutil.Amount(90_000_000+i*500_000), scoreAddr))
	}

	res := annotate(t, txs, nil)

	seen := make(map[int]string)
	for i := range res.Transactions {
		tx := &res.Transactions[i]
		tx.GrantYear.WhenSome(func(year int) {
			holder, dup := seen[year]
			require.False(t, dup, "year %d held by %s and %s",
				year, holder, tx.TxID)
			seen[year] = tx.TxID
		})
	}
}

// TestAnnotateDeterministic checks that identical inputs give
// identical results across runs, including runs that partition the
// scoring across goroutines.
func TestAnnotateDeterministic(t *testing.T) {
	t.Parallel()

	var txs []esplora.Transaction
	for i := 0; i < 3*scoreBatchSize; i++ {
		txs = append(txs, makeTx(fmt.Sprintf("tx%03d", i),
			date(2023, 1, 1).AddDate(0, 0, i%200),
			btcutil.Amount(50_000_000+i*250_000), scoreAddr))
	}

	first := annotate(t, txs, nil)
	for run := 0; run < 3; run++ {
		again := annotate(t, txs, nil)
		require.Equal(t, first.Transactions, again.Transactions)
		require.Equal(t, first.Grants, again.Grants)
	}
}

// TestAnnotatePriceEnrichment checks USD valuation lookup and its
// absence for unknown dates.
func TestAnnotatePriceEnrichment(t *testing.T) {
	t.Parallel()

	prices := PriceMap{"2023-01-01": 16541.31}
	txs := []esplora.Transaction{
		makeTx("priced", date(2023, 1, 1), 100_000_000, scoreAddr),
		makeTx("unpriced", date(2023, 6, 1), 70_000_000, scoreAddr),
	}

	res := annotate(t, txs, prices)

	require.InDelta(t, 16541.31,
		findTx(t, res, "priced").ValueAtTimeOfTx.UnwrapOr(0), 1e-9)
	require.True(t,
		findTx(t, res, "unpriced").ValueAtTimeOfTx.IsNone())
}

// TestAnnotateUnconfirmed checks the status mapping for mempool
// transactions.
func TestAnnotateUnconfirmed(t *testing.T) {
	t.Parallel()

	tx := makeTx("mempool", time.Time{}, 100_000_000, scoreAddr)
	tx.Confirmed = false
	tx.BlockHeight = 0

	res := annotate(t, []esplora.Transaction{tx}, nil)

	got := findTx(t, res, "mempool")
	require.Equal(t, StatusUnconfirmed, got.Status)
	require.True(t, got.ValueAtTimeOfTx.IsNone())
	// With no block time there is no date proximity, so it stays
	// unmatched.
	require.True(t, got.GrantYear.IsNone())
}

// TestAnnotateRejectsBadConfig checks config validation at the entry
// point.
func TestAnnotateRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.DateWeight = 0.9

	_, err := Annotate(context.Background(), nil, scoreAddr,
		date(2023, 1, 1), 1.0, 3, nil, cfg)
	require.Error(t, err)

	_, err = NewAnnotator(cfg, nil)
	require.Error(t, err)
}
