package core

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"

	"github.com/uccn-net/uccn-go/src/wire"
)

// socket is one of the two UDP sockets of a node. Each has a reader
// goroutine that owns its receive buffer: it reads a datagram, hands it to
// Spin and waits for Spin to release the buffer before reading again.
type socket struct {
	kind    string
	conn    *net.UDPConn
	pconn   *ipv4.PacketConn
	buf     *wire.Buffer
	release chan struct{}
}

// datagram is a received datagram waiting to be processed. Its payload
// lives in the buffer of the socket it came from until it is released.
type datagram struct {
	sock    *socket
	payload []byte
	from    netip.AddrPort
	dst     netip.Addr
}

func (n *Node) listen(kind string, address string, reuse bool) (*socket, error) {
	lc := net.ListenConfig{
		Control: socketControl(reuse),
	}
	pc, err := lc.ListenPacket(context.Background(), "udp4", address)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to bind node %s socket to %s: %v", ErrTransport, kind, address, err)
	}
	s := &socket{
		kind:    kind,
		conn:    pc.(*net.UDPConn),
		buf:     wire.NewBuffer(PacketBufferSize),
		release: make(chan struct{}, 1),
	}
	s.pconn = ipv4.NewPacketConn(s.conn)
	if err := s.pconn.SetControlMessage(ipv4.FlagDst, true); err != nil {
		// Windows can't set this flag, so destinations are just not logged
		n.log.Debugf("Destination addresses unavailable on %s socket: %s\n", kind, err)
	}
	return s, nil
}

func (s *socket) localAddr() netip.AddrPort {
	ap := s.conn.LocalAddr().(*net.UDPAddr).AddrPort()
	return netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
}

func (s *socket) close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("error closing %s socket: %w", s.kind, err)
	}
	return nil
}

func (n *Node) openSockets() error {
	var err error
	unicast := netip.AddrPortFrom(n.network.Address, 0)
	if n.unicast, err = n.listen("unicast", unicast.String(), false); err != nil {
		return err
	}
	broadcast := fmt.Sprintf("0.0.0.0:%d", n.config.broadcastPort)
	if n.broadcast, err = n.listen("broadcast", broadcast, true); err != nil {
		_ = n.unicast.close()
		return err
	}
	n.addr = n.unicast.localAddr()
	port := n.config.broadcastPort
	if port == 0 {
		port = n.broadcast.localAddr().Port()
	}
	n.broadcastAddr = netip.AddrPortFrom(n.network.BroadcastAddress(), port)
	n.readers.Add(2)
	go n.readLoop(n.unicast)
	go n.readLoop(n.broadcast)
	return nil
}

func (n *Node) readLoop(s *socket) {
	defer n.readers.Done()
	for {
		nbytes, cm, src, err := s.pconn.ReadFrom(s.buf.Storage())
		if err != nil {
			if n.closedErr() != nil {
				return
			}
			if transientReadError(err) {
				n.log.Debugf("Ignoring %s socket error: %s\n", s.kind, err)
				continue
			}
			_ = n.cancel.Cancel(fmt.Errorf("%w: failed to receive on %s socket: %v", ErrTransport, s.kind, err))
			return
		}
		udp, ok := src.(*net.UDPAddr)
		if !ok {
			continue
		}
		s.buf.SetLen(nbytes)
		ap := udp.AddrPort()
		dg := &datagram{
			sock:    s,
			payload: s.buf.Bytes(),
			from:    netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()),
		}
		if cm != nil {
			if dst, ok := netip.AddrFromSlice(cm.Dst); ok {
				dg.dst = dst.Unmap()
			}
		}
		select {
		case n.rx <- dg:
		case <-n.cancel.Finished():
			return
		}
		select {
		case <-s.release:
		case <-n.cancel.Finished():
			return
		}
	}
}

func (n *Node) sendTo(addr netip.AddrPort, b []byte) error {
	if _, err := n.unicast.conn.WriteToUDPAddrPort(b, addr); err != nil {
		n.stats.sendErrors.Add(1)
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
	n.stats.sent.Add(1)
	return nil
}
