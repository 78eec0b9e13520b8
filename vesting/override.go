// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vesting

import (
	"sort"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Overrides maps a txid to the grant year the user assigned it, or to
// an explicit none to pin the transaction as an ordinary one.
type Overrides map[string]fn.Option[int]

// ApplyOverrides re-applies user overrides on top of automatic
// matching results and returns updated copies of both inputs; the
// originals are not mutated.
//
// An override naming an unknown grant year, an unknown txid, or a
// grant year already held by a different manual override is logged and
// skipped, keeping the prior annotation.  Accepted overrides mark the
// transaction manually annotated; manual assignments always win, so an
// automatic match whose grant year was claimed manually is demoted to
// an ordinary transaction.  The grant list is then fully re-derived
// from the updated transactions, making the whole pass idempotent:
// applying the same override map twice yields identical output.
func ApplyOverrides(annotated []AnnotatedTransaction, grants []Grant,
	overrides Overrides) ([]AnnotatedTransaction, []Grant) {

	outTxs := make([]AnnotatedTransaction, len(annotated))
	copy(outTxs, annotated)
	outGrants := make([]Grant, len(grants))
	copy(outGrants, grants)

	byTxid := make(map[string]int, len(outTxs))
	for i := range outTxs {
		byTxid[outTxs[i].TxID] = i
	}
	knownYears := make(map[int]struct{}, len(outGrants))
	for i := range outGrants {
		knownYears[outGrants[i].Year] = struct{}{}
	}

	// Grant years already held manually by transactions that this
	// override map does not touch keep their claims.
	claims := make(map[int]string)
	for i := range outTxs {
		tx := &outTxs[i]
		if !tx.IsManuallyAnnotated {
			continue
		}
		if _, overridden := overrides[tx.TxID]; overridden {
			continue
		}
		tx.GrantYear.WhenSome(func(year int) {
			claims[year] = tx.TxID
		})
	}

	// Map iteration order is random; process overrides in sorted
	// txid order so conflicting entries resolve the same way every
	// time.
	txids := make([]string, 0, len(overrides))
	for txid := range overrides {
		txids = append(txids, txid)
	}
	sort.Strings(txids)

	for _, txid := range txids {
		idx, ok := byTxid[txid]
		if !ok {
			log.Warnf("Ignoring override for unknown tx %s", txid)
			continue
		}
		tx := &outTxs[idx]
		target := overrides[txid]

		if target.IsNone() {
			releaseClaim(claims, txid)
			tx.GrantYear = fn.None[int]()
			tx.Type = TxTypeOther
			tx.IsManuallyAnnotated = true

			log.Debugf("Manually marked tx %s as %s", txid,
				TxTypeOther)
			continue
		}

		year := target.UnwrapOr(0)
		if _, ok := knownYears[year]; !ok {
			log.Warnf("Ignoring override for tx %s: grant year "+
				"%d does not exist", txid, year)
			continue
		}
		if holder, ok := claims[year]; ok && holder != txid {
			log.Warnf("Ignoring override for tx %s: grant year "+
				"%d is already manually assigned to tx %s",
				txid, year, holder)
			continue
		}

		releaseClaim(claims, txid)
		claims[year] = txid
		tx.GrantYear = fn.Some(year)
		tx.Type = TxTypeAnnualGrant
		tx.IsManuallyAnnotated = true

		log.Debugf("Manually assigned tx %s to grant year %d", txid,
			year)
	}

	// Manual assignments take precedence: demote any automatic match
	// whose grant year was just claimed.
	for i := range outTxs {
		tx := &outTxs[i]
		if tx.IsManuallyAnnotated {
			continue
		}
		if tx.GrantYear.IsNone() {
			continue
		}
		year := tx.GrantYear.UnwrapOr(0)
		if holder, claimed := claims[year]; claimed {
			log.Infof("Demoting automatic match of tx %s: grant "+
				"year %d is now manually assigned to tx %s",
				tx.TxID, year, holder)
			tx.GrantYear = fn.None[int]()
			tx.Type = TxTypeOther
		}
	}

	relinkGrants(outTxs, outGrants)

	return outTxs, outGrants
}

// releaseClaim removes the claim held by txid, if any.
func releaseClaim(claims map[int]string, txid string) {
	for year, holder := range claims {
		if holder == txid {
			delete(claims, year)
			return
		}
	}
}
