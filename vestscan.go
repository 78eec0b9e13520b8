// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// vestscan verifies, from public blockchain data alone, that the
// periodic payments of a Bitcoin vesting grant actually arrived on
// schedule.  It fetches the address history from an esplora-compatible
// indexer, reconciles it against the expected schedule, and prints the
// outcome.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/davecgh/go-spew/spew"

	"github.com/vestscan/vestscan/esplora"
	"github.com/vestscan/vestscan/faults"
	"github.com/vestscan/vestscan/vesting"
)

const (
	appName = "vestscan"
	version = "0.2.0"

	// scoreCacheCapacity bounds the per-run score memoization cache.
	scoreCacheCapacity = 8192
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run parses the configuration and executes the reconciliation
// pipeline end to end.
func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.ShowVersion {
		return nil
	}

	if cfg.LogDir != "" {
		logFile := filepath.Join(cfg.LogDir, appName+".log")
		if err := initLogRotator(logFile); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return err
		}
		defer logRotator.Close()
	}
	if err := setLogLevels(cfg.DebugLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	ctx := shutdownListener(context.Background())

	params := &chaincfg.MainNetParams
	if cfg.TestNet {
		params = &chaincfg.TestNet3Params
	}
	client := esplora.New(cfg.Esplora, params)

	txs, err := faults.Do(ctx, faults.OpTransactionFetch,
		func(ctx context.Context) ([]esplora.Transaction, error) {
			return client.FetchTransactions(ctx, cfg.Address)
		},
	)
	if err != nil {
		return renderFault(err)
	}

	prices := loadPrices(cfg.PricesFile)

	annotator, err := vesting.NewAnnotator(cfg.matchConfig,
		vesting.NewLRUScoreCache(scoreCacheCapacity))
	if err != nil {
		return renderFault(err)
	}

	result, err := annotator.Annotate(ctx, txs, cfg.Address,
		cfg.startDate, cfg.perBTC, cfg.Periods, prices)
	if err != nil {
		return renderFault(err)
	}

	if len(cfg.overrides) > 0 {
		result.Transactions, result.Grants = vesting.ApplyOverrides(
			result.Transactions, result.Grants, cfg.overrides,
		)
		result.Summary = vesting.Summarize(result.Transactions,
			result.Grants)
	}

	log.Debugf("Reconciliation summary: %v", newLogClosure(func() string {
		return spew.Sdump(result.Summary)
	}))

	if cfg.JSON {
		return renderJSON(result)
	}
	return renderText(result)
}

// loadPrices reads the optional date-to-USD price map.  A missing or
// unreadable file degrades to running without valuations rather than
// failing the run.
func loadPrices(path string) vesting.PriceMap {
	if path == "" {
		return nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		partial := faults.Partial(vesting.PriceMap(nil),
			"historical prices", err)
		fmt.Fprintln(os.Stderr, partial.Err.UserFacing().Message)
		return partial.Data
	}

	var prices vesting.PriceMap
	if err := json.Unmarshal(raw, &prices); err != nil {
		partial := faults.Partial(vesting.PriceMap(nil),
			"historical prices", err)
		fmt.Fprintln(os.Stderr, partial.Err.UserFacing().Message)
		return partial.Data
	}

	return prices
}

// renderFault converts any pipeline failure into its user facing form
// on stderr and returns the typed error for the exit path.
func renderFault(err error) error {
	ferr := faults.Classify(err, appName)
	msg := ferr.UserFacing()

	fmt.Fprintf(os.Stderr, "%s: %s\n", msg.Title, msg.Message)
	if msg.Actionable != "" {
		fmt.Fprintln(os.Stderr, msg.Actionable)
	}
	if msg.CanRetry {
		fmt.Fprintln(os.Stderr, "This looks temporary; running the "+
			"command again may succeed.")
	}

	return ferr
}
