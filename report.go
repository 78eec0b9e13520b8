// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/vestscan/vestscan/vesting"
)

// optionPtr converts an Option into the pointer shape JSON needs for
// nullable fields.
func optionPtr[T any](o fn.Option[T]) *T {
	if o.IsNone() {
		return nil
	}
	var v T
	v = o.UnwrapOr(v)
	return &v
}

// jsonTransaction is the wire form of one annotated transaction.
type jsonTransaction struct {
	Txid                string   `json:"txid"`
	GrantYear           *int     `json:"grantYear"`
	Type                string   `json:"type"`
	IsIncoming          bool     `json:"isIncoming"`
	AmountSats          int64    `json:"amountSats"`
	AmountBTC           float64  `json:"amountBTC"`
	Date                string   `json:"date"`
	BlockHeight         int32    `json:"blockHeight"`
	ValueAtTimeOfTx     *float64 `json:"valueAtTimeOfTx"`
	Status              string   `json:"status"`
	MatchScore          *float64 `json:"matchScore,omitempty"`
	IsManuallyAnnotated bool     `json:"isManuallyAnnotated"`
}

// jsonGrant is the wire form of one expected grant.
type jsonGrant struct {
	Year          int     `json:"year"`
	ExpectedDate  string  `json:"expectedDate"`
	ExpectedSats  int64   `json:"expectedAmountSats"`
	ExpectedBTC   float64 `json:"expectedAmountBTC"`
	IsMatched     bool    `json:"isMatched"`
	MatchedTxid   *string `json:"matchedTxid"`
	DateTolerance int     `json:"dateToleranceDays"`
	AmountPercent float64 `json:"amountTolerancePercent"`
}

// jsonSummary is the wire form of the matching summary.
type jsonSummary struct {
	TotalTransactions     int `json:"totalTransactions"`
	MatchedTransactions   int `json:"matchedTransactions"`
	UnmatchedTransactions int `json:"unmatchedTransactions"`
	ExpectedGrants        int `json:"expectedGrants"`
	MatchedGrants         int `json:"matchedGrants"`
}

// jsonReport is the top-level JSON output document.
type jsonReport struct {
	Transactions []jsonTransaction `json:"annotatedTransactions"`
	Grants       []jsonGrant       `json:"expectedGrants"`
	Summary      jsonSummary       `json:"matchingSummary"`
}

const dateFormat = "2006-01-02"

// renderJSON writes the result as indented JSON to stdout.
func renderJSON(res *vesting.Result) error {
	report := jsonReport{
		Transactions: make([]jsonTransaction, 0, len(res.Transactions)),
		Grants:       make([]jsonGrant, 0, len(res.Grants)),
		Summary: jsonSummary{
			TotalTransactions:     res.Summary.TotalTransactions,
			MatchedTransactions:   res.Summary.MatchedTransactions,
			UnmatchedTransactions: res.Summary.UnmatchedTransactions,
			ExpectedGrants:        res.Summary.ExpectedGrants,
			MatchedGrants:         res.Summary.MatchedGrants,
		},
	}

	for i := range res.Transactions {
		tx := &res.Transactions[i]
		report.Transactions = append(report.Transactions, jsonTransaction{
			Txid:                tx.TxID,
			GrantYear:           optionPtr(tx.GrantYear),
			Type:                string(tx.Type),
			IsIncoming:          tx.IsIncoming,
			AmountSats:          int64(tx.Amount),
			AmountBTC:           tx.AmountBTC(),
			Date:                tx.Date.Format(dateFormat),
			BlockHeight:         tx.BlockHeight,
			ValueAtTimeOfTx:     optionPtr(tx.ValueAtTimeOfTx),
			Status:              string(tx.Status),
			MatchScore:          optionPtr(tx.MatchScore),
			IsManuallyAnnotated: tx.IsManuallyAnnotated,
		})
	}
	for i := range res.Grants {
		g := &res.Grants[i]
		report.Grants = append(report.Grants, jsonGrant{
			Year:          g.Year,
			ExpectedDate:  g.ExpectedDate.Format(dateFormat),
			ExpectedSats:  int64(g.ExpectedAmount),
			ExpectedBTC:   g.ExpectedBTC(),
			IsMatched:     g.IsMatched,
			MatchedTxid:   optionPtr(g.MatchedTxID),
			DateTolerance: g.Tolerance.DateRangeDays,
			AmountPercent: g.Tolerance.AmountPercent,
		})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(&report)
}

// renderText writes a human readable report to stdout.
func renderText(res *vesting.Result) error {
	s := res.Summary
	fmt.Printf("Matched %d of %d expected grants across %d incoming "+
		"transactions\n\n", s.MatchedGrants, s.ExpectedGrants,
		s.TotalTransactions)

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)

	fmt.Fprintln(w, "YEAR\tEXPECTED DATE\tEXPECTED BTC\tSTATUS\tTXID")
	for i := range res.Grants {
		g := &res.Grants[i]
		status := "MISSING"
		if g.IsMatched {
			status = "paid"
		}
		fmt.Fprintf(w, "%d\t%s\t%.8f\t%s\t%s\n", g.Year,
			g.ExpectedDate.Format(dateFormat), g.ExpectedBTC(),
			status, g.MatchedTxID.UnwrapOr("-"))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "DATE\tAMOUNT BTC\tTYPE\tSCORE\tSTATUS\tTXID")
	for i := range res.Transactions {
		tx := &res.Transactions[i]
		score := "-"
		tx.MatchScore.WhenSome(func(v float64) {
			score = fmt.Sprintf("%.3f", v)
		})
		kind := string(tx.Type)
		if tx.IsManuallyAnnotated {
			kind += " (manual)"
		}
		fmt.Fprintf(w, "%s\t%.8f\t%s\t%s\t%s\t%s\n",
			tx.Date.Format(dateFormat), tx.AmountBTC(), kind,
			score, tx.Status, tx.TxID)
	}

	return w.Flush()
}
