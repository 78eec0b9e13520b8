// Copyright (c) 2024-2026 The vestscan developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// interruptSignals defines the signals that request a clean shutdown.
var interruptSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}

// shutdownListener returns a context that is cancelled the first time
// an interrupt signal arrives.  Work in flight observes the
// cancellation cooperatively; a second signal is not treated specially
// since the process exits once the pipeline unwinds.
func shutdownListener(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	c := make(chan os.Signal, 1)
	signal.Notify(c, interruptSignals...)

	go func() {
		defer signal.Stop(c)

		select {
		case sig := <-c:
			log.Infof("Received signal (%s).  Shutting down...",
				sig)
			cancel()

		case <-ctx.Done():
		}
	}()

	return ctx
}
