package core

import (
	"time"
)

type SelfInfo struct {
	Name      string
	Location  string
	Network   string
	Broadcast string
	Peers     int
	Trackers  int
	Providers int
}

type PeerInfo struct {
	Name     string
	Location string
	Alive    bool
	Links    int
	// Time left until a keepalive is due, and until the peer is considered
	// dead if it stays silent.
	KeepaliveIn time.Duration
	ExpiresIn   time.Duration
}

type EndpointInfo struct {
	Path   string
	Hash   uint32
	Record bool
	Peers  []string
}

type Stats struct {
	DatagramsReceived uint64
	DatagramsSent     uint64
	SendErrors        uint64
	MalformedPackets  uint64
	Deliveries        uint64
	Keepalives        uint64
	Discoveries       uint64
}

func (n *Node) GetSelf() SelfInfo {
	n.lock.Lock()
	defer n.lock.Unlock()
	return SelfInfo{
		Name:      n.name,
		Location:  n.addr.String(),
		Network:   n.network.String(),
		Broadcast: n.broadcastAddr.String(),
		Peers:     len(n.peers.peers),
		Trackers:  len(n.trackers),
		Providers: len(n.providers),
	}
}

func (n *Node) GetPeers() []PeerInfo {
	n.lock.Lock()
	defer n.lock.Unlock()
	now := n.now()
	peers := make([]PeerInfo, 0, len(n.peers.peers))
	for _, p := range n.peers.peers {
		keepalive, _ := p.nextLocalDeadline.Until(now)
		expires, _ := p.nextRemoteDeadline.Until(now)
		peers = append(peers, PeerInfo{
			Name:        p.name,
			Location:    p.Location(),
			Alive:       p.alive,
			Links:       p.numLinks,
			KeepaliveIn: keepalive,
			ExpiresIn:   expires,
		})
	}
	return peers
}

func endpointInfo(e *endpoint) EndpointInfo {
	info := EndpointInfo{
		Path:   e.resource.path,
		Hash:   e.resource.hash,
		Record: e.resource.IsRecord(),
		Peers:  make([]string, 0, len(e.peers)),
	}
	for _, p := range e.peers {
		info.Peers = append(info.Peers, p.String())
	}
	return info
}

func (n *Node) GetTrackers() []EndpointInfo {
	n.lock.Lock()
	defer n.lock.Unlock()
	trackers := make([]EndpointInfo, 0, len(n.trackers))
	for i := range n.trackers {
		trackers = append(trackers, endpointInfo(&n.trackers[i].endpoint))
	}
	return trackers
}

func (n *Node) GetProviders() []EndpointInfo {
	n.lock.Lock()
	defer n.lock.Unlock()
	providers := make([]EndpointInfo, 0, len(n.providers))
	for i := range n.providers {
		providers = append(providers, endpointInfo(&n.providers[i].endpoint))
	}
	return providers
}

// Stats returns the node's traffic counters. It does not take the node
// lock, so it is safe to call at any time.
func (n *Node) Stats() Stats {
	return Stats{
		DatagramsReceived: n.stats.received.Load(),
		DatagramsSent:     n.stats.sent.Load(),
		SendErrors:        n.stats.sendErrors.Load(),
		MalformedPackets:  n.stats.malformed.Load(),
		Deliveries:        n.stats.deliveries.Load(),
		Keepalives:        n.stats.keepalives.Load(),
		Discoveries:       n.stats.discoveries.Load(),
	}
}
