package core

import (
	"errors"
	"fmt"

	"github.com/uccn-net/uccn-go/src/wire"
)

// Post sends content to every peer linked to the provider and returns how
// many it was sent to. Content nobody is linked for is dropped: Post then
// returns 0 and sends nothing. A failed send to one peer is logged and
// does not stop delivery to the others.
func (p *Provider) Post(content interface{}) (int, error) {
	n := p.node
	n.lock.Lock()
	defer n.lock.Unlock()
	if err := n.closedErr(); err != nil {
		return 0, err
	}
	if len(p.peers) == 0 {
		return 0, nil
	}
	blob, err := p.resource.codec.pack(content, n.staging)
	if err != nil {
		return 0, fmt.Errorf("error packing '%s' content: %w", p.resource.path, err)
	}
	n.writer.Reset(n.out)
	wire.EncodeContent(n.writer, p.resource.hash, blob)
	if _, err := n.writer.Finish(); err != nil {
		if errors.Is(err, wire.ErrBufferFull) {
			err = fmt.Errorf("%w: %v", ErrCapacityExceeded, err)
		}
		return 0, fmt.Errorf("error building '%s' content packet: %w", p.resource.path, err)
	}
	deadline := n.now().Add(n.config.assertInterval)
	sent := 0
	for _, peer := range p.peers {
		if err := n.sendTo(peer.addr, n.out.Bytes()); err != nil {
			n.log.Warnf("Failed to send '%s' content to %s: %s\n", p.resource.path, peer, err)
			continue
		}
		// Content proves liveliness as well as a keepalive does.
		peer.nextLocalDeadline = deadline
		sent++
	}
	return sent, nil
}

func (n *Node) findTracker(hash uint32) *Tracker {
	for i := range n.trackers {
		if t := &n.trackers[i]; t.resource.hash == hash {
			return t
		}
	}
	return nil
}

// handleContent delivers one content entry sent by p to the matching
// tracker, if any, and links p to it. The track function runs without the
// node lock held so that it may call Post.
func (n *Node) handleContent(p *Peer, c wire.Content) error {
	t := n.findTracker(c.Hash)
	if t == nil {
		n.log.Debugf("Ignoring content for unknown resource %08x from %s\n", c.Hash, p)
		return nil
	}
	content, err := t.resource.codec.unpack(c.Blob, &t.instance)
	if err != nil {
		return fmt.Errorf("%w: '%s' content from %s: %w", ErrMalformedPacket, t.resource.path, p, err)
	}
	n.stats.deliveries.Add(1)
	fn := t.track
	n.lock.Unlock()
	fn(t, content)
	n.lock.Lock()
	if _, err := t.link(p); err != nil {
		n.log.Warnf("Failed to link %s to %s: %s\n", p, t.resource, err)
	}
	return nil
}
