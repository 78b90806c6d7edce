//go:build unix

package main

import (
	"os"
	"os/signal"
	"syscall"
)

// pauseSignals delivers SIGUSR1, which toggles pause on a running CLI.
func pauseSignals() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	return ch, func() { signal.Stop(ch) }
}
