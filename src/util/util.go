package util

// These are misc. utility functions that didn't really fit anywhere else

import "github.com/benbjohnson/clock"

// This is a workaround to go's broken timer implementation
func TimerStop(t *clock.Timer) bool {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	return true
}
