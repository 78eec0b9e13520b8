// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vesting

import (
	"fmt"
	"hash/fnv"

	"github.com/lightninglabs/neutrino/cache/lru"
)

// ScoreCache is an optional lookup table for previously computed pair
// scores.  Keys are deterministic over (txid, grant year, address,
// config), so a cache may be shared, cleared, or omitted entirely
// without changing results; it is purely a performance optimization.
type ScoreCache interface {
	Get(key string) (float64, bool)
	Put(key string, score float64)
}

// scoreKey builds the deterministic composite cache key for one
// (transaction, grant) scoring.
func scoreKey(txid string, year int, addr string, cfg Config) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%v|%v|%v|%v|%v", cfg.DateWeight, cfg.AmountWeight,
		cfg.MatchThreshold, cfg.MaxDateToleranceDays,
		cfg.MaxAmountTolerancePercent)

	return fmt.Sprintf("%s|%d|%s|%x", txid, year, addr, h.Sum64())
}

// cachedScore adapts a float64 to the cache.Value contract.
type cachedScore float64

// Size returns the size of a cached score in cache units.
func (s cachedScore) Size() (uint64, error) {
	return 1, nil
}

// LRUScoreCache is a bounded ScoreCache backed by an LRU cache.  The
// zero value is not usable; construct with NewLRUScoreCache.
type LRUScoreCache struct {
	cache *lru.Cache[string, cachedScore]
}

// NewLRUScoreCache returns a ScoreCache holding at most capacity
// scores.
func NewLRUScoreCache(capacity uint64) *LRUScoreCache {
	return &LRUScoreCache{
		cache: lru.NewCache[string, cachedScore](capacity),
	}
}

// Get returns the cached score for key, if present.
func (c *LRUScoreCache) Get(key string) (float64, bool) {
	score, err := c.cache.Get(key)
	if err != nil {
		return 0, false
	}
	return float64(score), true
}

// Put stores the score for key, evicting the least recently used entry
// when full.
func (c *LRUScoreCache) Put(key string, score float64) {
	// Put only fails when the value exceeds the cache capacity, which
	// a single score cannot.
	_, _ = c.cache.Put(key, cachedScore(score))
}
