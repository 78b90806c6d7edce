//go:build !unix

package main

import "os"

// pauseSignals returns a channel that never fires where SIGUSR1 is unavailable.
func pauseSignals() (<-chan os.Signal, func()) {
	return make(chan os.Signal), func() {}
}
