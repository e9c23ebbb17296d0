// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package signal

import (
	"os"
	"os/signal"
)

// interruptSignals defines the default signals to catch in order to abort
// the handshake.
var interruptSignals = []os.Signal{os.Interrupt}

// InterruptListener listens for OS Signals such as SIGINT (Ctrl+C). It
// returns a channel that is closed when the first one is received. The
// signals are caught from the moment InterruptListener returns.
func InterruptListener() <-chan struct{} {
	c := make(chan struct{})
	interruptChannel := make(chan os.Signal, 1)
	signal.Notify(interruptChannel, interruptSignals...)

	spawn(func() {
		sig := <-interruptChannel
		log.Infof("Received signal (%s). Aborting the handshake...", sig)
		close(c)

		// Keep consuming so that later signals don't kill the process
		// while the connection is being torn down.
		for sig := range interruptChannel {
			log.Infof("Received signal (%s). Already aborting...", sig)
		}
	})

	return c
}

// InterruptRequested returns true when the channel returned by
// InterruptListener was closed. This simplifies early shutdown slightly since
// the caller can just use an if statement instead of a select.
func InterruptRequested(interrupted <-chan struct{}) bool {
	select {
	case <-interrupted:
		return true
	default:
	}

	return false
}
