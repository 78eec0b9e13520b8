// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vesting

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/vestscan/vestscan/esplora"
	"github.com/vestscan/vestscan/faults"
)

// TxType labels what an annotated transaction represents.
type TxType string

const (
	// TxTypeAnnualGrant marks a transaction reconciled against an
	// expected grant.
	TxTypeAnnualGrant TxType = "Annual Grant"

	// TxTypeOther marks any other incoming transaction.
	TxTypeOther TxType = "Other Transaction"
)

// TxStatus labels the confirmation state reported by the indexer.
type TxStatus string

const (
	// StatusConfirmed marks a transaction included in a block.
	StatusConfirmed TxStatus = "Confirmed"

	// StatusUnconfirmed marks a mempool transaction.
	StatusUnconfirmed TxStatus = "Unconfirmed"
)

// PriceMap is the opaque date-to-USD lookup supplied by the price
// collaborator.  Keys are YYYY-MM-DD dates.  The pipeline only ever
// reads from it; absent dates simply yield no valuation.
type PriceMap map[string]float64

// Lookup returns the USD price for the given moment's date, if known.
func (m PriceMap) Lookup(t time.Time) fn.Option[float64] {
	if m == nil || t.IsZero() {
		return fn.None[float64]()
	}
	price, ok := m[t.UTC().Format("2006-01-02")]
	if !ok {
		return fn.None[float64]()
	}
	return fn.Some(price)
}

// AnnotatedTransaction is one incoming transaction enriched with its
// reconciliation outcome.  GrantYear, Type, and IsManuallyAnnotated
// are the only fields override application may later rewrite.
type AnnotatedTransaction struct {
	TxID        string
	GrantYear   fn.Option[int]
	Type        TxType
	IsIncoming  bool
	Amount      btcutil.Amount
	Date        time.Time
	BlockHeight int32

	// ValueAtTimeOfTx is the USD valuation from the price
	// collaborator, absent when no price is known for the date.
	ValueAtTimeOfTx fn.Option[float64]

	Status              TxStatus
	MatchScore          fn.Option[float64]
	IsManuallyAnnotated bool
}

// AmountBTC returns the received amount in whole BTC.
func (a *AnnotatedTransaction) AmountBTC() float64 {
	return a.Amount.ToBTC()
}

// Summary aggregates the reconciliation outcome.
type Summary struct {
	TotalTransactions     int
	MatchedTransactions   int
	UnmatchedTransactions int
	ExpectedGrants        int
	MatchedGrants         int
}

// Result is the full output of one annotation run.
type Result struct {
	Transactions []AnnotatedTransaction
	Grants       []Grant
	Summary      Summary
}

// Annotator runs the reconciliation pipeline.  It holds only the
// injected configuration and optional score cache; every run re-derives
// its result from scratch, so a single Annotator may serve concurrent
// independent calls.
type Annotator struct {
	cfg   Config
	cache ScoreCache
}

// NewAnnotator validates the configuration and returns an Annotator.
// The cache may be nil to score without memoization.
func NewAnnotator(cfg Config, cache ScoreCache) (*Annotator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Annotator{cfg: cfg, cache: cache}, nil
}

// Annotate reconciles the fetched transactions of addr against the
// vesting schedule described by start, perPeriodBTC, and periods.
// Transactions that paid nothing to addr are excluded entirely.  The
// prices map may be nil, in which case no USD valuations are attached.
func (a *Annotator) Annotate(ctx context.Context,
	txs []esplora.Transaction, addr string, start time.Time,
	perPeriodBTC float64, periods int,
	prices PriceMap) (*Result, error) {

	grants, err := GenerateSchedule(start, perPeriodBTC, periods, a.cfg)
	if err != nil {
		return nil, err
	}

	incoming := esplora.FilterIncoming(txs, addr)
	log.Debugf("Annotating %d incoming of %d fetched transactions "+
		"against %d expected grants", len(incoming), len(txs),
		len(grants))

	matches, err := matchAll(ctx, incoming, grants, addr, a.cfg, a.cache)
	if err != nil {
		return nil, faults.Classify(err, faults.OpAnnotation.String())
	}

	annotated := make([]AnnotatedTransaction, 0, len(incoming))
	for i := range incoming {
		tx := &incoming[i]

		at := AnnotatedTransaction{
			TxID:            tx.TxID,
			GrantYear:       fn.None[int](),
			Type:            TxTypeOther,
			IsIncoming:      true,
			Amount:          esplora.ReceivedAmount(tx, addr),
			Date:            tx.BlockTime,
			BlockHeight:     tx.BlockHeight,
			ValueAtTimeOfTx: prices.Lookup(tx.BlockTime),
			Status:          StatusUnconfirmed,
			MatchScore:      fn.None[float64](),
		}
		if tx.Confirmed {
			at.Status = StatusConfirmed
		}

		if m, ok := matches[tx.TxID]; ok {
			at.GrantYear = fn.Some(m.grantYear)
			at.Type = TxTypeAnnualGrant
			at.MatchScore = fn.Some(m.score)
		}

		annotated = append(annotated, at)
	}

	relinkGrants(annotated, grants)

	result := &Result{
		Transactions: annotated,
		Grants:       grants,
		Summary:      Summarize(annotated, grants),
	}

	log.Infof("Annotation complete: %d/%d transactions matched, %d/%d "+
		"grants covered", result.Summary.MatchedTransactions,
		result.Summary.TotalTransactions,
		result.Summary.MatchedGrants, result.Summary.ExpectedGrants)

	return result, nil
}

// Annotate is a convenience wrapper running the pipeline once with the
// given config and no score cache.
func Annotate(ctx context.Context, txs []esplora.Transaction,
	addr string, start time.Time, perPeriodBTC float64, periods int,
	prices PriceMap, cfg Config) (*Result, error) {

	annotator, err := NewAnnotator(cfg, nil)
	if err != nil {
		return nil, err
	}
	return annotator.Annotate(ctx, txs, addr, start, perPeriodBTC,
		periods, prices)
}

// relinkGrants rewrites every grant's IsMatched and MatchedTxID from
// the transaction set.  It is a full re-derivation: stale links from a
// previous pass are cleared, not patched.
func relinkGrants(annotated []AnnotatedTransaction, grants []Grant) {
	byYear := make(map[int]string, len(annotated))
	for i := range annotated {
		tx := &annotated[i]
		tx.GrantYear.WhenSome(func(year int) {
			byYear[year] = tx.TxID
		})
	}

	for i := range grants {
		txid, ok := byYear[grants[i].Year]
		if !ok {
			grants[i].IsMatched = false
			grants[i].MatchedTxID = fn.None[string]()
			continue
		}
		grants[i].IsMatched = true
		grants[i].MatchedTxID = fn.Some(txid)
	}
}

// Summarize tallies the reconciliation outcome of an annotated
// transaction set, for example after override application changed the
// grant assignments.
func Summarize(annotated []AnnotatedTransaction, grants []Grant) Summary {
	s := Summary{
		TotalTransactions: len(annotated),
		ExpectedGrants:    len(grants),
	}
	for i := range annotated {
		if annotated[i].GrantYear.IsSome() {
			s.MatchedTransactions++
		}
	}
	s.UnmatchedTransactions = s.TotalTransactions - s.MatchedTransactions
	for i := range grants {
		if grants[i].IsMatched {
			s.MatchedGrants++
		}
	}
	return s
}
