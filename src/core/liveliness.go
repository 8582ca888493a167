package core

import (
	"fmt"

	"github.com/uccn-net/uccn-go/src/timing"
	"github.com/uccn-net/uccn-go/src/wire"
)

// assertLiveliness sends a keepalive to every peer whose local deadline has
// passed and moves that deadline one assert interval on, or past now if the
// peer fell further behind. It returns the earliest local deadline left, or
// Infinite if there are no peers.
func (n *Node) assertLiveliness(now timing.Deadline) (timing.Deadline, error) {
	next := timing.Infinite
	if len(n.peers.peers) == 0 {
		return next, nil
	}
	n.writer.Reset(n.out)
	wire.EncodeKeepalive(n.writer)
	if _, err := n.writer.Finish(); err != nil {
		return now.Add(n.config.assertInterval), fmt.Errorf("error building keepalive packet: %w", err)
	}
	for _, p := range n.peers.peers {
		if p.nextLocalDeadline.Reached(now) {
			if err := n.sendTo(p.addr, n.out.Bytes()); err != nil {
				n.log.Warnf("Failed to send keepalive to %s: %s\n", p, err)
			} else {
				n.stats.keepalives.Add(1)
			}
			p.nextLocalDeadline = p.nextLocalDeadline.Add(n.config.assertInterval)
			if p.nextLocalDeadline.Reached(now) {
				p.nextLocalDeadline = now.Add(n.config.assertInterval)
			}
		}
		next = timing.Min(next, p.nextLocalDeadline)
	}
	return next, nil
}
