//go:build !linux && !darwin && !netbsd && !freebsd && !openbsd && !dragonfly && !windows
// +build !linux,!darwin,!netbsd,!freebsd,!openbsd,!dragonfly,!windows

package core

import "syscall"

func socketControl(reuse bool) func(network, address string, c syscall.RawConn) error {
	return nil
}

func transientReadError(err error) bool {
	return false
}
