package core

import "fmt"

// endpoint binds a resource to the peers linked to it.
type endpoint struct {
	node     *Node
	resource *Resource
	peers    []*Peer
}

func (e *endpoint) init(n *Node, r *Resource) {
	e.node = n
	e.resource = r
	e.peers = make([]*Peer, 0, MaxPeers)
}

func (e *endpoint) linked(p *Peer) bool {
	for _, q := range e.peers {
		if q == p {
			return true
		}
	}
	return false
}

// link adds p to the endpoint, reporting whether it was not already there.
func (e *endpoint) link(p *Peer) (bool, error) {
	if e.linked(p) {
		return false, nil
	}
	if len(e.peers) >= MaxPeers {
		return false, fmt.Errorf("%w: too many peers linked to %s", ErrCapacityExceeded, e.resource)
	}
	e.peers = append(e.peers, p)
	p.numLinks++
	return true, nil
}

// unlink removes p from the endpoint, reporting whether it was there.
func (e *endpoint) unlink(p *Peer) bool {
	for i, q := range e.peers {
		if q == p {
			e.drop(i)
			return true
		}
	}
	return false
}

func (e *endpoint) drop(i int) {
	p := e.peers[i]
	copy(e.peers[i:], e.peers[i+1:])
	e.peers[len(e.peers)-1] = nil
	e.peers = e.peers[:len(e.peers)-1]
	p.numLinks--
}

// unlinkDead removes every peer that is no longer alive.
func (e *endpoint) unlinkDead() {
	for i := 0; i < len(e.peers); {
		if !e.peers[i].alive {
			e.drop(i)
			continue
		}
		i++
	}
}

func (e *endpoint) Resource() *Resource { return e.resource }

// TrackFunc receives content delivered to a tracker. For raw resources
// content is a []byte that aliases the receive buffer, and for records it
// is the tracker's cached instance; either way it is only valid until the
// function returns, so keep a copy if it is needed afterwards.
type TrackFunc func(t *Tracker, content interface{})

// Tracker is a resource a node wants content for.
type Tracker struct {
	endpoint
	track    TrackFunc
	instance interface{}
}

// Provider is a resource a node supplies content for.
type Provider struct {
	endpoint
}

// registerCheck validates r against every resource already registered.
// Hashes are unique across trackers and providers together.
func (n *Node) registerCheck(r *Resource) error {
	if r.hash == 0 {
		return fmt.Errorf("%w: %s hashes to zero", ErrResource, r)
	}
	check := func(e *endpoint) error {
		if e.resource.hash == r.hash {
			return fmt.Errorf("%w: '%s' resource hash collides with '%s's", ErrResource, r.path, e.resource.path)
		}
		return nil
	}
	for i := range n.trackers {
		if err := check(&n.trackers[i].endpoint); err != nil {
			return err
		}
	}
	for i := range n.providers {
		if err := check(&n.providers[i].endpoint); err != nil {
			return err
		}
	}
	return nil
}

// Track registers interest in r. Content posted to r by linked peers is
// handed to fn from within Spin. Tracking a resource again replaces its
// function and returns the same tracker.
func (n *Node) Track(r *Resource, fn TrackFunc) (*Tracker, error) {
	if r == nil || fn == nil {
		return nil, fmt.Errorf("%w: nil resource or track function", ErrResource)
	}
	n.lock.Lock()
	defer n.lock.Unlock()
	if err := n.closedErr(); err != nil {
		return nil, err
	}
	for i := range n.trackers {
		if t := &n.trackers[i]; t.resource == r {
			n.log.Debugf("Updating existing tracker for '%s' resource\n", r.path)
			t.track = fn
			return t, nil
		}
	}
	if err := n.registerCheck(r); err != nil {
		return nil, err
	}
	if len(n.trackers) >= MaxTrackers {
		return nil, fmt.Errorf("%w: too many trackers", ErrCapacityExceeded)
	}
	n.trackers = append(n.trackers, Tracker{track: fn})
	t := &n.trackers[len(n.trackers)-1]
	t.init(n, r)
	n.log.Debugln("Tracking", r)
	return t, nil
}

// Advertise registers r as provided by this node. Advertising a resource
// again returns the same provider.
func (n *Node) Advertise(r *Resource) (*Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil resource", ErrResource)
	}
	n.lock.Lock()
	defer n.lock.Unlock()
	if err := n.closedErr(); err != nil {
		return nil, err
	}
	for i := range n.providers {
		if p := &n.providers[i]; p.resource == r {
			n.log.Debugf("Provider for '%s' resource already registered\n", r.path)
			return p, nil
		}
	}
	if err := n.registerCheck(r); err != nil {
		return nil, err
	}
	if len(n.providers) >= MaxProviders {
		return nil, fmt.Errorf("%w: too many providers", ErrCapacityExceeded)
	}
	n.providers = append(n.providers, Provider{})
	p := &n.providers[len(n.providers)-1]
	p.init(n, r)
	n.log.Debugln("Advertising", r)
	return p, nil
}
