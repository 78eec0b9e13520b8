// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vesting

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vestscan/vestscan/esplora"
)

// scoreBatchSize is the number of transactions scored per goroutine
// when the transaction set is large enough to partition.
const scoreBatchSize = 64

// matchResult records the assignment of one transaction to one grant
// year.
type matchResult struct {
	grantYear int
	score     float64
}

// candidate is one thresholded (transaction, grant) pair.
type candidate struct {
	txIdx    int
	grantIdx int
	score    float64
}

// matchAll scores every (transaction, grant) pair, keeps the pairs at
// or above the match threshold, and greedily claims them in descending
// score order under a one-to-one constraint: each transaction takes at
// most one grant year and each grant year at most one transaction.
//
// The greedy walk approximates maximum-weight bipartite matching; it
// can leave a grant uncovered that a different assignment would have
// covered.  Candidates are generated transaction-major in input order
// and the sort is stable, so equal scores resolve to the earlier
// transaction, then the earlier grant year, and the whole assignment
// is deterministic for identical inputs.
func matchAll(ctx context.Context, txs []esplora.Transaction,
	grants []Grant, addr string, cfg Config,
	cache ScoreCache) (map[string]matchResult, error) {

	scores, err := scoreAll(ctx, txs, grants, addr, cfg, cache)
	if err != nil {
		return nil, err
	}

	var candidates []candidate
	for i := range txs {
		for j := range grants {
			if s := scores[i][j]; s >= cfg.MatchThreshold {
				candidates = append(candidates,
					candidate{txIdx: i, grantIdx: j, score: s})
			}
		}
	}

	sort.SliceStable(candidates, func(a, b int) bool {
		return candidates[a].score > candidates[b].score
	})

	usedTx := make(map[int]struct{}, len(candidates))
	usedGrant := make(map[int]struct{}, len(candidates))
	matches := make(map[string]matchResult, len(candidates))

	for _, c := range candidates {
		if _, ok := usedTx[c.txIdx]; ok {
			continue
		}
		if _, ok := usedGrant[c.grantIdx]; ok {
			continue
		}
		usedTx[c.txIdx] = struct{}{}
		usedGrant[c.grantIdx] = struct{}{}

		txid := txs[c.txIdx].TxID
		matches[txid] = matchResult{
			grantYear: grants[c.grantIdx].Year,
			score:     c.score,
		}

		log.Debugf("Matched tx %s to grant year %d (score %.4f)",
			txid, grants[c.grantIdx].Year, c.score)
	}

	return matches, nil
}

// scoreAll computes the full score matrix.  Large transaction sets are
// partitioned into batches scored concurrently; each batch writes only
// its own rows, so execution order cannot change the result.
func scoreAll(ctx context.Context, txs []esplora.Transaction,
	grants []Grant, addr string, cfg Config,
	cache ScoreCache) ([][]float64, error) {

	scores := make([][]float64, len(txs))
	for i := range scores {
		scores[i] = make([]float64, len(grants))
	}

	scoreRows := func(ctx context.Context, start, end int) error {
		for i := start; i < end; i++ {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			for j := range grants {
				scores[i][j] = scorePair(&txs[i], &grants[j],
					addr, cfg, cache)
			}
		}
		return nil
	}

	if len(txs) <= scoreBatchSize {
		if err := scoreRows(ctx, 0, len(txs)); err != nil {
			return nil, err
		}
		return scores, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < len(txs); start += scoreBatchSize {
		start := start
		end := min(start+scoreBatchSize, len(txs))
		g.Go(func() error {
			return scoreRows(gctx, start, end)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return scores, nil
}

// scorePair computes one pair score through the cache when one is
// present.  The cache is a pure lookup table; a miss always falls back
// to the same computation a cacheless run performs.
func scorePair(tx *esplora.Transaction, grant *Grant, addr string,
	cfg Config, cache ScoreCache) float64 {

	if cache == nil {
		return Score(tx, grant, addr, cfg)
	}

	key := scoreKey(tx.TxID, grant.Year, addr, cfg)
	if score, ok := cache.Get(key); ok {
		return score
	}

	score := Score(tx, grant, addr, cfg)
	cache.Put(key, score)

	return score
}
