package core

import (
	"fmt"
	"net/netip"

	"github.com/uccn-net/uccn-go/src/wire"
)

// each calls fn for every provider endpoint if providers is set, or for
// every tracker endpoint otherwise.
func (n *Node) each(providers bool, fn func(e *endpoint)) {
	if providers {
		for i := range n.providers {
			fn(&n.providers[i].endpoint)
		}
		return
	}
	for i := range n.trackers {
		fn(&n.trackers[i].endpoint)
	}
}

func (n *Node) linkMatching(providers bool, p *Peer, hash uint32) (links int, err error) {
	n.each(providers, func(e *endpoint) {
		if err != nil || e.resource.hash != hash {
			return
		}
		var linked bool
		if linked, err = e.link(p); linked {
			links++
		}
	})
	return links, err
}

func (n *Node) unlinkAll(providers bool, p *Peer) (unlinks int) {
	n.each(providers, func(e *endpoint) {
		if e.unlink(p) {
			unlinks++
		}
	})
	return unlinks
}

// linkTrackers links p to the trackers of hash and returns the number of
// new links.
func (n *Node) linkTrackers(p *Peer, hash uint32) (int, error) {
	return n.linkMatching(false, p, hash)
}

// linkProviders links p to the providers of hash and returns the number of
// new links.
func (n *Node) linkProviders(p *Peer, hash uint32) (int, error) {
	return n.linkMatching(true, p, hash)
}

func (n *Node) unlinkTrackers(p *Peer) int  { return n.unlinkAll(false, p) }
func (n *Node) unlinkProviders(p *Peer) int { return n.unlinkAll(true, p) }

// linkedHashes appends to dst the hashes of the trackers, or providers,
// linked to p.
func (n *Node) linkedHashes(providers bool, p *Peer, dst []uint32) []uint32 {
	n.each(providers, func(e *endpoint) {
		if e.linked(p) {
			dst = append(dst, e.resource.hash)
		}
	})
	return dst
}

// relink applies a hash list announced by p to the local trackers, if the
// peer announced what it provides, or to the local providers, if it
// announced what it tracks. Unless additive is set the list supersedes the
// previous announcement, so links to endpoints not in it are dropped. It
// reports whether an endpoint that did not link p before now does.
func (n *Node) relink(providers bool, p *Peer, hashes []uint32, additive bool) bool {
	if hashes == nil {
		return false
	}
	var before [MaxResources]*endpoint
	nb := 0
	n.each(providers, func(e *endpoint) {
		if e.linked(p) {
			before[nb] = e
			nb++
		}
	})
	if !additive {
		n.unlinkAll(providers, p)
	}
	fresh := false
	for _, hash := range hashes {
		n.each(providers, func(e *endpoint) {
			if e.resource.hash != hash {
				return
			}
			linked, err := e.link(p)
			if err != nil {
				n.log.Warnf("Failed to link %s to %s: %s\n", p, e.resource, err)
				return
			}
			if !linked {
				return
			}
			for _, b := range before[:nb] {
				if b == e {
					return
				}
			}
			n.log.Debugf("Linked %s to %s\n", p, e.resource)
			fresh = true
		})
	}
	return fresh
}

// handleLink processes a link group received from p. Link groups that
// arrive by broadcast are discovery requests and only ever add links; link
// groups sent to us directly replace what the peer announced before.
//
// If the group created a link that did not exist, p is sent a reply
// listing, for each direction that gained a link, every hash now linked to
// it in that direction. The exchange stops once neither side learns
// anything new.
func (n *Node) handleLink(p *Peer, l *wire.Link, broadcast bool) error {
	if l.HasName {
		p.name = l.Name
	}
	newTracked := n.relink(false, p, l.Provided, broadcast)
	newProvided := n.relink(true, p, l.Tracked, broadcast)
	if !newTracked && !newProvided {
		return nil
	}
	reply := wire.Link{Name: n.name, HasName: true}
	if newTracked {
		reply.Tracked = n.linkedHashes(false, p, n.scratch.tracked[:0])
	}
	if newProvided {
		reply.Provided = n.linkedHashes(true, p, n.scratch.provided[:0])
	}
	return n.sendLink(p.addr, &reply)
}

func (n *Node) sendLink(to netip.AddrPort, l *wire.Link) error {
	n.writer.Reset(n.out)
	wire.EncodeLink(n.writer, l)
	if _, err := n.writer.Finish(); err != nil {
		return fmt.Errorf("error building link packet: %w", err)
	}
	if err := n.sendTo(to, n.out.Bytes()); err != nil {
		return fmt.Errorf("error sending link packet: %w", err)
	}
	return nil
}

// discover broadcasts the hashes of the trackers nobody provides for.
func (n *Node) discover() error {
	hashes := n.scratch.tracked[:0]
	for i := range n.trackers {
		if t := &n.trackers[i]; len(t.peers) == 0 {
			hashes = append(hashes, t.resource.hash)
		}
	}
	n.writer.Reset(n.out)
	wire.EncodeLink(n.writer, &wire.Link{Name: n.name, HasName: true, Tracked: hashes})
	if _, err := n.writer.Finish(); err != nil {
		return fmt.Errorf("error building discovery packet: %w", err)
	}
	n.log.Debugln("Attempting to discover peers for", len(hashes), "resource(s)")
	n.stats.discoveries.Add(1)
	if err := n.sendTo(n.broadcastAddr, n.out.Bytes()); err != nil {
		return fmt.Errorf("error sending discovery packet: %w", err)
	}
	return nil
}
