package core

import "github.com/uccn-net/uccn-go/src/timing"

// probeResult is what a probe learns about the endpoints.
type probeResult struct {
	activeTrackers  int
	activeProviders int
	next            timing.Deadline
}

// probe refreshes the aliveness of every peer, unlinks dead peers from all
// endpoints and drops peers that are dead and unlinked. The next probe is
// due after the probe period or when a remaining peer's remote deadline
// passes, whichever is first.
func (n *Node) probe(now timing.Deadline) probeResult {
	for _, p := range n.peers.peers {
		p.alive = !p.nextRemoteDeadline.Before(now)
	}
	var res probeResult
	for i := range n.trackers {
		t := &n.trackers[i]
		t.unlinkDead()
		if len(t.peers) > 0 {
			res.activeTrackers++
		}
	}
	for i := range n.providers {
		p := &n.providers[i]
		p.unlinkDead()
		if len(p.peers) > 0 {
			res.activeProviders++
		}
	}
	res.next = now.Add(n.config.probePeriod)
	for i := 0; i < len(n.peers.peers); {
		p := n.peers.peers[i]
		if !p.alive && p.numLinks == 0 {
			n.log.Debugln("Peer", p, "is gone")
			n.peers.remove(i)
			continue
		}
		res.next = timing.Min(res.next, p.nextRemoteDeadline)
		i++
	}
	return res
}
