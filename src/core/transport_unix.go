//go:build linux || darwin || netbsd || freebsd || openbsd || dragonfly
// +build linux darwin netbsd freebsd openbsd dragonfly

package core

import (
	"errors"
	"syscall"

	"golang.org/x/sys/unix"
)

// socketControl enables broadcasting on a socket and, if reuse is set,
// lets several nodes of one host bind the same broadcast port.
func socketControl(reuse bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var control error
		var opt error

		control = c.Control(func(fd uintptr) {
			if reuse {
				opt = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}
			if opt == nil {
				opt = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
			}
		})

		switch {
		case opt != nil:
			return opt
		default:
			return control
		}
	}
}

// transientReadError reports errors that say something about an earlier
// send rather than about the socket.
func transientReadError(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED)
}
