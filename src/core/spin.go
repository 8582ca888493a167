package core

import (
	"errors"
	"time"

	"github.com/uccn-net/uccn-go/src/timing"
	"github.com/uccn-net/uccn-go/src/util"
	"github.com/uccn-net/uccn-go/src/wire"
)

// schedule holds when each periodic duty of Spin is next due.
type schedule struct {
	nextAssert     timing.Deadline
	nextProbe      timing.Deadline
	nextDiscovery  timing.Deadline
	activeTrackers int
}

// Spin runs the node for timeout, or until Stop is called if timeout is
// NoTimeout. See SpinUntil.
func (n *Node) Spin(timeout time.Duration) error {
	if timeout < 0 {
		return n.SpinUntil(timing.Infinite)
	}
	return n.SpinUntil(n.now().Add(timeout))
}

// SpinUntil runs the node until deadline passes or Stop is called,
// whichever comes first. Received datagrams are processed and replied to,
// keepalives are sent, endpoints are probed and discovery is broadcast
// while some tracker has no provider. Track functions are called from
// within SpinUntil.
//
// SpinUntil only fails if the node can no longer run: it was closed, or
// one of its sockets failed.
func (n *Node) SpinUntil(deadline timing.Deadline) error {
	n.lock.Lock()
	if err := n.closedErr(); err != nil {
		n.lock.Unlock()
		return err
	}
	if n.spinning {
		n.lock.Unlock()
		return errors.New("node is already spinning")
	}
	n.spinning = true
	defer func() {
		n.lock.Lock()
		n.spinning = false
		n.lock.Unlock()
	}()
	now := n.now()
	n.sched = schedule{nextAssert: now, nextProbe: now, nextDiscovery: now}
	woken := false
	for {
		if woken && n.stop.Clear() {
			n.lock.Unlock()
			return nil
		}
		if dg := n.pending; dg != nil {
			n.pending = nil
			n.handleDatagram(dg)
			dg.sock.release <- struct{}{}
		}
		n.runDuties(n.now())
		wake := timing.Min(deadline, n.sched.nextAssert, n.sched.nextProbe)
		if n.discovering() {
			wake = timing.Min(wake, n.sched.nextDiscovery)
		}
		n.lock.Unlock()

		now = n.now()
		if deadline.Reached(now) {
			return nil
		}
		wait, _ := wake.Until(now)
		timer := n.clock.Timer(wait)
		select {
		case <-n.stop.C():
			util.TimerStop(timer)
			return nil
		case dg := <-n.rx:
			n.lock.Lock()
			n.pending = dg
		case <-timer.C:
			n.lock.Lock()
		case <-n.cancel.Finished():
			util.TimerStop(timer)
			return n.cancel.Error()
		}
		util.TimerStop(timer)
		woken = true
	}
}

// runDuties sends keepalives, probes endpoints and broadcasts discovery,
// each if it is due.
func (n *Node) runDuties(now timing.Deadline) {
	var err error
	if n.sched.nextAssert.Reached(now) {
		if n.sched.nextAssert, err = n.assertLiveliness(now); err != nil {
			n.log.Errorln("Failed to assert liveliness:", err)
		}
	}
	if n.sched.nextProbe.Reached(now) {
		res := n.probe(now)
		n.sched.nextProbe = res.next
		n.sched.activeTrackers = res.activeTrackers
	}
	if n.discovering() && n.sched.nextDiscovery.Reached(now) {
		if err = n.discover(); err != nil {
			n.log.Errorln("Failed to discover peers:", err)
		}
		n.sched.nextDiscovery = n.sched.nextDiscovery.Add(n.config.discoveryPeriod)
		if n.sched.nextDiscovery.Reached(now) {
			n.sched.nextDiscovery = now.Add(n.config.discoveryPeriod)
		}
	}
}

// discovering reports whether some tracker had no provider at the last
// probe. It reads the tracker table, so the node lock must be held.
func (n *Node) discovering() bool {
	return n.sched.activeTrackers < len(n.trackers)
}

// handleDatagram processes one received datagram. Nothing that goes wrong
// with a single datagram stops the node; it is logged and dropped.
func (n *Node) handleDatagram(dg *datagram) {
	n.stats.received.Add(1)
	broadcast := dg.sock == n.broadcast
	if dg.from == n.addr {
		if !broadcast {
			n.log.Warnln("Port reuse is not supported, dropping datagram from self")
		}
		return
	}
	p, err := n.registerPeer(dg.from, n.now())
	if err != nil {
		n.log.Errorln("Failed to register peer:", err)
		return
	}
	n.sched.nextAssert = timing.Min(n.sched.nextAssert, p.nextLocalDeadline)
	if dg.dst.IsValid() {
		n.log.Debugf("Received %d bytes from %s on %s\n", len(dg.payload), p, dg.dst)
	}
	n.reader.Reset(dg.payload)
	h := packetHandler{node: n, peer: p, broadcast: broadcast}
	if err := wire.DecodePacket(n.reader, &h); err != nil {
		if errors.Is(err, ErrMalformedPacket) {
			n.stats.malformed.Add(1)
		}
		n.log.Warnf("Failed to process packet from %s: %s\n", p, err)
	}
}

type packetHandler struct {
	node      *Node
	peer      *Peer
	broadcast bool
}

func (h *packetHandler) HandleContent(c wire.Content) error {
	return h.node.handleContent(h.peer, c)
}

func (h *packetHandler) HandleLink(l *wire.Link) error {
	if err := h.node.handleLink(h.peer, l, h.broadcast); err != nil {
		// A lost reply is recovered by the next discovery round.
		h.node.log.Warnf("Failed to reply to %s: %s\n", h.peer, err)
	}
	return nil
}
