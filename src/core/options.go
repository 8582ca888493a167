package core

import (
	"time"

	"github.com/benbjohnson/clock"
)

func (n *Node) _applyOption(opt SetupOption) {
	switch v := opt.(type) {
	case Multithreaded:
		n.config.multithreaded = bool(v)
	case BroadcastPort:
		n.config.broadcastPort = uint16(v)
	case LivelinessTimeout:
		n.config.livelinessTimeout = time.Duration(v)
	case LivelinessAssertInterval:
		n.config.assertInterval = time.Duration(v)
	case DiscoveryPeriod:
		n.config.discoveryPeriod = time.Duration(v)
	case ProbePeriod:
		n.config.probePeriod = time.Duration(v)
	case Clock:
		if v.Clock != nil {
			n.clock = v.Clock
		}
	}
}

type SetupOption interface {
	isSetupOption()
}

// Multithreaded guards the node with a mutex so that Post, Track and
// Advertise may be called from other goroutines while Spin runs.
type Multithreaded bool

// BroadcastPort is the UDP port discovery is broadcast to and received on.
// Every node of a network must use the same one.
type BroadcastPort uint16

// LivelinessTimeout is how long a peer may stay silent before it is
// considered dead.
type LivelinessTimeout time.Duration

// LivelinessAssertInterval is how often a keepalive is sent to a peer that
// has not been sent anything else.
type LivelinessAssertInterval time.Duration

// DiscoveryPeriod is the interval between discovery broadcasts while some
// tracker has no provider.
type DiscoveryPeriod time.Duration

// ProbePeriod is the longest interval between endpoint probes.
type ProbePeriod time.Duration

// Clock replaces the time source, mostly for tests.
type Clock struct {
	clock.Clock
}

func (a Multithreaded) isSetupOption()            {}
func (a BroadcastPort) isSetupOption()            {}
func (a LivelinessTimeout) isSetupOption()        {}
func (a LivelinessAssertInterval) isSetupOption() {}
func (a DiscoveryPeriod) isSetupOption()          {}
func (a ProbePeriod) isSetupOption()              {}
func (a Clock) isSetupOption()                    {}
