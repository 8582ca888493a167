package core

import (
	"errors"
	"net"
	"net/netip"
	"os"
	"testing"
	"time"

	"github.com/gologme/log"
	"github.com/stretchr/testify/require"

	"github.com/uccn-net/uccn-go/src/wire"
)

// GetLoggerWithPrefix creates a new logger instance with prefix.
// If verbose is set to true, three log levels are enabled: "info", "warn", "error".
func GetLoggerWithPrefix(prefix string, verbose bool) *log.Logger {
	l := log.New(os.Stderr, prefix, log.Flags())
	if !verbose {
		return l
	}
	l.EnableLevel("info")
	l.EnableLevel("warn")
	l.EnableLevel("error")
	return l
}

func loopback(t testing.TB) Network {
	nw, err := ParseNetwork("127.0.0.1/8")
	require.NoError(t, err)
	return nw
}

// newTestNode creates a node on the loopback network that is closed when
// the test ends. Unless overridden, it listens for broadcasts on a port of
// its own.
func newTestNode(t testing.TB, name string, opts ...SetupOption) *Node {
	opts = append([]SetupOption{BroadcastPort(0)}, opts...)
	n, err := New(loopback(t), name, GetLoggerWithPrefix(name+": ", false), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = n.Close() })
	return n
}

func mustResource(t testing.TB, path string) *Resource {
	r, err := NewResource(path)
	require.NoError(t, err)
	return r
}

// fakePeer is a bare UDP socket standing in for a remote node. Datagrams
// it "sends" are handed to the node directly, as Spin would; datagrams the
// node sends to it arrive on its socket.
type fakePeer struct {
	t    testing.TB
	conn *net.UDPConn
	addr netip.AddrPort
	buf  *wire.Buffer
}

func newFakePeer(t testing.TB) *fakePeer {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	ap := conn.LocalAddr().(*net.UDPAddr).AddrPort()
	return &fakePeer{
		t:    t,
		conn: conn,
		addr: netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port()),
		buf:  wire.NewBuffer(PacketBufferSize),
	}
}

func (f *fakePeer) inject(n *Node, broadcast bool, encode func(w *wire.Writer)) {
	w := wire.NewWriter(f.buf)
	encode(w)
	_, err := w.Finish()
	require.NoError(f.t, err)
	sock := n.unicast
	if broadcast {
		sock = n.broadcast
	}
	payload := append([]byte(nil), f.buf.Bytes()...)
	n.handleDatagram(&datagram{sock: sock, payload: payload, from: f.addr})
}

func (f *fakePeer) injectLink(n *Node, broadcast bool, l wire.Link) {
	f.inject(n, broadcast, func(w *wire.Writer) { wire.EncodeLink(w, &l) })
}

func (f *fakePeer) injectContent(n *Node, hash uint32, blob []byte) {
	f.inject(n, false, func(w *wire.Writer) { wire.EncodeContent(w, hash, blob) })
}

type packet struct {
	raw      []byte
	contents []wire.Content
	links    []wire.Link
}

func (p *packet) HandleContent(c wire.Content) error {
	c.Blob = append([]byte(nil), c.Blob...)
	p.contents = append(p.contents, c)
	return nil
}

func (p *packet) HandleLink(l *wire.Link) error {
	p.links = append(p.links, *l)
	return nil
}

func (f *fakePeer) receive() *packet {
	require.NoError(f.t, f.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	b := make([]byte, PacketBufferSize)
	nb, err := f.conn.Read(b)
	require.NoError(f.t, err)
	p := &packet{raw: b[:nb]}
	require.NoError(f.t, wire.DecodePacket(wire.NewReader(p.raw), p))
	return p
}

func (f *fakePeer) expectSilence() {
	require.NoError(f.t, f.conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, err := f.conn.Read(make([]byte, PacketBufferSize))
	var ne net.Error
	require.True(f.t, errors.As(err, &ne) && ne.Timeout(), "expected no datagram, got err=%v", err)
}

func TestParseNetwork(t *testing.T) {
	nw, err := ParseNetwork("192.168.1.10/24")
	require.NoError(t, err)
	require.Equal(t, "192.168.1.10", nw.Address.String())
	require.Equal(t, "255.255.255.0", nw.Netmask.String())
	require.Equal(t, "192.168.1.255", nw.BroadcastAddress().String())
	require.Equal(t, "192.168.1.10/24", nw.String())

	_, err = ParseNetwork("fd00::1/64")
	require.Error(t, err)
	_, err = ParseNetwork("10.0.0.1")
	require.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	_, err := New(Network{}, "x", nil)
	require.Error(t, err)
	_, err = New(loopback(t), string(make([]byte, MaxNodeNameSize+1)), nil, BroadcastPort(0))
	require.Error(t, err)
	_, err = New(loopback(t), "x", nil, BroadcastPort(0), ProbePeriod(0))
	require.Error(t, err)

	n := newTestNode(t, "")
	require.Equal(t, "anon", n.Name())
	require.True(t, n.Address().Addr().IsLoopback())
	require.NotZero(t, n.Address().Port())
	require.Equal(t, "127.255.255.255", n.BroadcastAddress().Addr().String())
}

func TestClosedNode(t *testing.T) {
	n := newTestNode(t, "x")
	r := mustResource(t, "/test")
	require.NoError(t, n.Close())
	require.ErrorIs(t, n.Close(), ErrClosed)
	require.ErrorIs(t, n.Spin(0), ErrClosed)
	require.ErrorIs(t, n.Stop(), ErrClosed)
	_, err := n.Track(r, func(*Tracker, interface{}) {})
	require.ErrorIs(t, err, ErrClosed)
	_, err = n.Advertise(r)
	require.ErrorIs(t, err, ErrClosed)
}

func TestSelfDatagramsDropped(t *testing.T) {
	n := newTestNode(t, "x")
	keepalive := []byte{0xc0}
	n.handleDatagram(&datagram{sock: n.broadcast, payload: keepalive, from: n.addr})
	n.handleDatagram(&datagram{sock: n.unicast, payload: keepalive, from: n.addr})
	require.Empty(t, n.GetPeers())
}
