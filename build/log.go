// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package build

import (
	"os"

	"github.com/btcsuite/btclog"
)

// LogType indicates how a sublogger should emit its output.
type LogType byte

const (
	// LogTypeNone indicates no logging.
	LogTypeNone LogType = iota

	// LogTypeStdOut indicates all logging is written directly to
	// stdout.  This is intended for unit tests.
	LogTypeStdOut

	// LogTypeDefault indicates logging goes through the backend shared
	// with the rest of the process.
	LogTypeDefault
)

// String returns a human readable identifier for the logging type.
func (t LogType) String() string {
	switch t {
	case LogTypeNone:
		return "none"
	case LogTypeStdOut:
		return "stdout"
	case LogTypeDefault:
		return "default"
	default:
		return "unknown"
	}
}

// LoggingType is the log type used when constructing subloggers.  Unit
// tests may set this to LogTypeStdOut to see package output without
// wiring up a shared backend.
var LoggingType = LogTypeDefault

// LogLevel is the level applied to stdout subloggers.
var LogLevel = "info"

// NewSubLogger constructs a new subsystem logger.  When a sublogger
// constructor is provided it is used so all subsystems share a single
// backend; otherwise the behavior depends on the configured LoggingType.
func NewSubLogger(subsystem string,
	genSubLogger func(string) btclog.Logger) btclog.Logger {

	switch LoggingType {
	case LogTypeDefault:
		if genSubLogger != nil {
			return genSubLogger(subsystem)
		}

	case LogTypeStdOut:
		backend := btclog.NewBackend(os.Stdout)
		logger := backend.Logger(subsystem)

		level, _ := btclog.LevelFromString(LogLevel)
		logger.SetLevel(level)

		return logger
	}

	return btclog.Disabled
}
