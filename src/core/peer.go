package core

import (
	"fmt"
	"net/netip"

	"github.com/uccn-net/uccn-go/src/timing"
)

// Peer is a remote node, identified by the address it sends from. Peers
// live in a fixed arena owned by the node; endpoints refer to them by
// pointer, which stays valid until the peer is dropped from the table, and
// a peer is only dropped once no endpoint links it.
type Peer struct {
	addr               netip.AddrPort
	name               string
	alive              bool
	nextLocalDeadline  timing.Deadline
	nextRemoteDeadline timing.Deadline
	numLinks           int
}

// Location is the ip:port the peer sends from.
func (p *Peer) Location() string { return p.addr.String() }

func (p *Peer) String() string {
	return fmt.Sprintf("%s@%s", p.name, p.addr)
}

type peerTable struct {
	arena [MaxPeers]Peer
	free  []*Peer
	peers []*Peer
}

func (t *peerTable) init() {
	t.free = make([]*Peer, 0, MaxPeers)
	t.peers = make([]*Peer, 0, MaxPeers)
	for i := len(t.arena) - 1; i >= 0; i-- {
		t.free = append(t.free, &t.arena[i])
	}
}

func (t *peerTable) find(addr netip.AddrPort) *Peer {
	for _, p := range t.peers {
		if p.addr == addr {
			return p
		}
	}
	return nil
}

func (t *peerTable) add(addr netip.AddrPort) (*Peer, error) {
	if len(t.free) == 0 {
		return nil, fmt.Errorf("%w: too many peers, ignoring %s", ErrCapacityExceeded, addr)
	}
	p := t.free[len(t.free)-1]
	t.free = t.free[:len(t.free)-1]
	*p = Peer{addr: addr, name: anonymous}
	t.peers = append(t.peers, p)
	return p, nil
}

// remove drops the peer at index i, moving the last peer into its place.
func (t *peerTable) remove(i int) {
	p := t.peers[i]
	last := len(t.peers) - 1
	t.peers[i] = t.peers[last]
	t.peers[last] = nil
	t.peers = t.peers[:last]
	*p = Peer{}
	t.free = append(t.free, p)
}

// registerPeer returns the peer sending from addr, creating it if needed.
// Either way, hearing from the peer pushes its remote deadline back.
func (n *Node) registerPeer(addr netip.AddrPort, now timing.Deadline) (*Peer, error) {
	remote := now.Add(n.config.livelinessTimeout)
	if p := n.peers.find(addr); p != nil {
		p.nextRemoteDeadline = remote
		return p, nil
	}
	p, err := n.peers.add(addr)
	if err != nil {
		return nil, err
	}
	p.alive = true
	p.nextLocalDeadline = now
	p.nextRemoteDeadline = remote
	n.log.Debugln("Peer", p, "registered")
	return p, nil
}
