// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	flags "github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/vestscan/vestscan/internal/cfgutil"
	"github.com/vestscan/vestscan/vesting"
)

const (
	defaultLogLevel  = "info"
	defaultPeriods   = 4
	defaultStartDate = ""
)

// config defines the configuration options for vestscan.
type config struct {
	ShowVersion bool   `short:"V" long:"version" description:"Display version information and exit"`
	DebugLevel  string `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}"`
	LogDir      string `long:"logdir" description:"Directory to write the rotated log file to (no file logging when unset)"`

	// Vesting position.
	Address   string              `short:"a" long:"address" description:"Bitcoin address the grants are paid to"`
	StartDate string              `short:"s" long:"startdate" description:"Vesting start date (YYYY-MM-DD)"`
	Amount    *cfgutil.AmountFlag `short:"m" long:"amount" description:"Expected BTC amount per period"`
	Periods   int                 `short:"p" long:"periods" description:"Number of vesting periods"`

	// Collaborators.
	Esplora    string `long:"esplora" description:"Base URL of an esplora-compatible indexer (defaults to blockstream.info)"`
	TestNet    bool   `long:"testnet" description:"Use the test network (default mainnet)"`
	PricesFile string `long:"prices" description:"JSON file mapping YYYY-MM-DD dates to USD prices for valuation"`

	// Matching.
	MatchThreshold  float64  `long:"threshold" description:"Minimum match score in [0,1]"`
	DateTolerance   int      `long:"datetolerance" description:"Maximum date gap in days"`
	AmountTolerance float64  `long:"amounttolerance" description:"Maximum amount gap in percent"`
	Overrides       []string `short:"o" long:"override" description:"Manual override txid:year, or txid:none to unassign (may be repeated)"`

	JSON bool `long:"json" description:"Emit the report as JSON instead of text"`
}

// parsedConfig is the validated form of the raw flag values.
type parsedConfig struct {
	config

	startDate   time.Time
	perBTC      float64
	matchConfig vesting.Config
	overrides   vesting.Overrides
}

// loadConfig initializes and parses the config using command line
// options, then validates the cross-field constraints the flags
// package cannot express.
func loadConfig() (*parsedConfig, error) {
	defaultAmount, _ := btcutil.NewAmount(1.0)
	cfg := config{
		DebugLevel: defaultLogLevel,
		StartDate:  defaultStartDate,
		Amount:     cfgutil.NewAmountFlag(defaultAmount),
		Periods:    defaultPeriods,
	}

	parser := flags.NewParser(&cfg, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		return nil, err
	}

	if cfg.ShowVersion {
		fmt.Println(appName, "version", version)
		return &parsedConfig{config: cfg}, nil
	}

	if cfg.Address == "" {
		return nil, fmt.Errorf("the --address option is required")
	}
	if cfg.StartDate == "" {
		return nil, fmt.Errorf("the --startdate option is required")
	}

	startDate, err := time.Parse("2006-01-02", cfg.StartDate)
	if err != nil {
		return nil, fmt.Errorf("invalid start date %q, expected "+
			"YYYY-MM-DD", cfg.StartDate)
	}

	if cfg.PricesFile != "" {
		exists, err := cfgutil.FileExists(cfg.PricesFile)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("prices file %q does not "+
				"exist", cfg.PricesFile)
		}
	}

	matchConfig := vesting.DefaultConfig()
	if cfg.MatchThreshold != 0 {
		matchConfig.MatchThreshold = cfg.MatchThreshold
	}
	if cfg.DateTolerance != 0 {
		matchConfig.MaxDateToleranceDays = cfg.DateTolerance
	}
	if cfg.AmountTolerance != 0 {
		matchConfig.MaxAmountTolerancePercent = cfg.AmountTolerance
	}

	overrides, err := parseOverrides(cfg.Overrides)
	if err != nil {
		return nil, err
	}

	return &parsedConfig{
		config:      cfg,
		startDate:   startDate,
		perBTC:      cfg.Amount.ToBTC(),
		matchConfig: matchConfig,
		overrides:   overrides,
	}, nil
}

// parseOverrides converts repeated txid:year (or txid:none) flag
// values into an override map.
func parseOverrides(raw []string) (vesting.Overrides, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	overrides := make(vesting.Overrides, len(raw))
	for _, entry := range raw {
		txid, value, found := strings.Cut(entry, ":")
		if !found || txid == "" {
			return nil, fmt.Errorf("invalid override %q, "+
				"expected txid:year or txid:none", entry)
		}

		if value == "none" {
			overrides[txid] = fn.None[int]()
			continue
		}

		year, err := strconv.Atoi(value)
		if err != nil || year < 1 {
			return nil, fmt.Errorf("invalid override year in %q",
				entry)
		}
		overrides[txid] = fn.Some(year)
	}

	return overrides, nil
}
