//go:build windows
// +build windows

package core

import (
	"errors"
	"syscall"

	"golang.org/x/sys/windows"
)

func socketControl(reuse bool) func(network, address string, c syscall.RawConn) error {
	return func(network, address string, c syscall.RawConn) error {
		var control error
		var opt error

		control = c.Control(func(fd uintptr) {
			if reuse {
				opt = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_REUSEADDR, 1)
			}
			if opt == nil {
				opt = windows.SetsockoptInt(windows.Handle(fd), windows.SOL_SOCKET, windows.SO_BROADCAST, 1)
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

// Windows reports ICMP port unreachable replies to earlier sends as a reset
// on the next receive.
func transientReadError(err error) bool {
	return errors.Is(err, windows.WSAECONNRESET)
}
