package core

import (
	"errors"

	"github.com/uccn-net/uccn-go/src/wire"
)

var (
	// ErrResource is returned when a resource cannot be registered, most
	// commonly because its hash collides with one already registered.
	ErrResource = errors.New("resource error")
	// ErrCapacityExceeded is returned when a fixed-size table or buffer is full.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrMalformedPacket is returned for datagrams that cannot be decoded.
	ErrMalformedPacket = wire.ErrMalformed
	// ErrTransport is returned for socket failures.
	ErrTransport = errors.New("transport error")
	// ErrClosed is returned by operations on a closed node.
	ErrClosed = errors.New("node closed")
)
