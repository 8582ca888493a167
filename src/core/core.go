// Package core implements a uccn node: peer discovery by IPv4 broadcast,
// liveliness tracking, the tracker/provider linking handshake and content
// delivery, all driven by the Spin event loop.
package core

import (
	"fmt"
	"io"
	"net/netip"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/gologme/log"
	"go.uber.org/multierr"

	"github.com/uccn-net/uccn-go/src/timing"
	"github.com/uccn-net/uccn-go/src/util"
	"github.com/uccn-net/uccn-go/src/version"
	"github.com/uccn-net/uccn-go/src/wire"
)

// The Node object represents a uccn node. Everything it owns is sized at
// construction and reused: the peer, tracker and provider tables, and the
// packet buffers.
type Node struct {
	lock    sync.Locker
	clock   clock.Clock
	log     Logger
	network Network
	name    string
	config  struct {
		multithreaded     bool
		broadcastPort     uint16
		livelinessTimeout time.Duration
		assertInterval    time.Duration
		discoveryPeriod   time.Duration
		probePeriod       time.Duration
	}
	unicast       *socket
	broadcast     *socket
	addr          netip.AddrPort // where the unicast socket is bound
	broadcastAddr netip.AddrPort
	peers         peerTable
	trackers      []Tracker  // never reallocated, trackers are referenced by pointer
	providers     []Provider // never reallocated, providers are referenced by pointer
	out           *wire.Buffer
	staging       *wire.Buffer
	writer        *wire.Writer
	reader        *wire.Reader
	scratch       struct {
		tracked  [MaxResources]uint32
		provided [MaxResources]uint32
	}
	sched    schedule
	rx       chan *datagram
	pending  *datagram
	stop     *util.Signal
	cancel   util.Cancellation
	readers  sync.WaitGroup
	spinning bool
	closed   bool
	stats    stats
}

type stats struct {
	received    atomic.Uint64
	sent        atomic.Uint64
	sendErrors  atomic.Uint64
	malformed   atomic.Uint64
	deliveries  atomic.Uint64
	keepalives  atomic.Uint64
	discoveries atomic.Uint64
}

// New creates a node on network and binds its sockets: a unicast socket on
// the network address, used for everything the node sends, and a broadcast
// socket shared with the other nodes of the host, used to hear discovery.
// A nil logger discards all output.
func New(network Network, name string, logger Logger, opts ...SetupOption) (*Node, error) {
	n := &Node{
		log:     logger,
		clock:   clock.New(),
		network: network,
		name:    name,
	}
	n.config.broadcastPort = DefaultBroadcastPort
	n.config.livelinessTimeout = DefaultLivelinessTimeout
	n.config.assertInterval = DefaultLivelinessAssertInterval
	n.config.discoveryPeriod = DefaultDiscoveryPeriod
	n.config.probePeriod = DefaultProbePeriod
	for _, opt := range opts {
		n._applyOption(opt)
	}
	if n.log == nil {
		n.log = log.New(io.Discard, "", 0)
	}
	if name := version.BuildName(); name != "unknown" {
		n.log.Infoln("Build name:", name)
	}
	if version := version.BuildVersion(); version != "unknown" {
		n.log.Infoln("Build version:", version)
	}
	if err := network.validate(); err != nil {
		return nil, err
	}
	if n.name == "" {
		n.name = anonymous
	}
	if len(n.name) > MaxNodeNameSize {
		return nil, fmt.Errorf("node name %q is longer than %d bytes", n.name, MaxNodeNameSize)
	}
	for _, d := range []time.Duration{
		n.config.livelinessTimeout, n.config.assertInterval,
		n.config.discoveryPeriod, n.config.probePeriod,
	} {
		if d <= 0 {
			return nil, fmt.Errorf("liveliness and discovery periods must be positive, got %s", d)
		}
	}
	if n.config.multithreaded {
		n.lock = new(sync.Mutex)
	} else {
		n.lock = noLock{}
	}
	n.peers.init()
	n.trackers = make([]Tracker, 0, MaxTrackers)
	n.providers = make([]Provider, 0, MaxProviders)
	n.out = wire.NewBuffer(PacketBufferSize)
	n.staging = wire.NewBuffer(MaxContentSize)
	n.writer = wire.NewWriter(n.out)
	n.reader = wire.NewReader(nil)
	n.rx = make(chan *datagram)
	n.stop = util.NewSignal()
	n.cancel = util.NewCancellation()
	if err := n.openSockets(); err != nil {
		return nil, err
	}
	n.log.Infof("Node %s@%s started, discovering on %s\n", n.name, n.addr, n.broadcastAddr)
	return n, nil
}

// noLock is the locker of single-threaded nodes.
type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

func (n *Node) now() timing.Deadline {
	return timing.At(n.clock.Now())
}

// closedErr returns why the node can no longer be used, or nil.
func (n *Node) closedErr() error {
	select {
	case <-n.cancel.Finished():
		return n.cancel.Error()
	default:
		return nil
	}
}

// Stop makes the running Spin return, or the next one if none is running.
// It never blocks and may be called from any goroutine, including from a
// track function or a signal handler.
func (n *Node) Stop() error {
	if err := n.closedErr(); err != nil {
		return err
	}
	n.stop.Raise()
	return nil
}

// Close stops the node and releases its sockets. A Spin running in another
// goroutine returns ErrClosed.
func (n *Node) Close() error {
	n.lock.Lock()
	if n.closed {
		n.lock.Unlock()
		return ErrClosed
	}
	n.closed = true
	n.log.Infoln("Stopping...")
	_ = n.cancel.Cancel(ErrClosed)
	var err error
	err = multierr.Append(err, n.unicast.close())
	err = multierr.Append(err, n.broadcast.close())
	n.lock.Unlock()
	n.readers.Wait()
	n.log.Infoln("Stopped")
	return err
}

// Name is the name the node announces itself with.
func (n *Node) Name() string { return n.name }

// Address is where the node sends from and receives unicast datagrams.
func (n *Node) Address() netip.AddrPort { return n.addr }

// BroadcastAddress is where discovery is sent.
func (n *Node) BroadcastAddress() netip.AddrPort { return n.broadcastAddr }

type Logger interface {
	Printf(string, ...interface{})
	Println(...interface{})
	Infof(string, ...interface{})
	Infoln(...interface{})
	Warnf(string, ...interface{})
	Warnln(...interface{})
	Errorf(string, ...interface{})
	Errorln(...interface{})
	Debugf(string, ...interface{})
	Debugln(...interface{})
}
