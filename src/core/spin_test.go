package core

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSpinTimeout(t *testing.T) {
	n := newTestNode(t, "x")
	start := time.Now()
	require.NoError(t, n.Spin(50*time.Millisecond))
	require.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestStopBeforeSpin(t *testing.T) {
	n := newTestNode(t, "x")
	require.NoError(t, n.Stop())
	require.NoError(t, n.Spin(NoTimeout))
	// The stop was consumed.
	require.NoError(t, n.Spin(10*time.Millisecond))
}

func TestStopFromGoroutine(t *testing.T) {
	n := newTestNode(t, "x")
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = n.Stop()
	}()
	require.NoError(t, n.Spin(NoTimeout))
}

func TestSpinIsExclusive(t *testing.T) {
	n := newTestNode(t, "x", Multithreaded(true))
	errc := make(chan error, 1)
	go func() { errc <- n.Spin(NoTimeout) }()
	require.Eventually(t, func() bool {
		n.lock.Lock()
		defer n.lock.Unlock()
		return n.spinning
	}, 2*time.Second, 10*time.Millisecond)
	require.Error(t, n.Spin(0))
	require.NoError(t, n.Stop())
	require.NoError(t, <-errc)
}

func TestTrackWhileSpinning(t *testing.T) {
	n := newTestNode(t, "x", fastOptions(freePort(t), Multithreaded(true))...)
	errc := make(chan error, 1)
	go func() { errc <- n.Spin(NoTimeout) }()
	for i := 0; i < MaxTrackers; i++ {
		r := mustResource(t, fmt.Sprintf("/sensor/%d", i))
		_, err := n.Track(r, func(*Tracker, interface{}) {})
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, n.Stop())
	require.NoError(t, <-errc)
	require.Len(t, n.GetTrackers(), MaxTrackers)
}

func TestCloseEndsSpin(t *testing.T) {
	n := newTestNode(t, "x", Multithreaded(true))
	errc := make(chan error, 1)
	go func() { errc <- n.Spin(NoTimeout) }()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, n.Close())
	select {
	case err := <-errc:
		require.ErrorIs(t, err, ErrClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("Spin did not return after Close")
	}
}

// freePort returns a UDP port nothing is bound to, for nodes that have to
// share a broadcast port.
func freePort(t *testing.T) BroadcastPort {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero})
	require.NoError(t, err)
	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, conn.Close())
	return BroadcastPort(port)
}

func fastOptions(port BroadcastPort, extra ...SetupOption) []SetupOption {
	return append([]SetupOption{
		port,
		LivelinessTimeout(300 * time.Millisecond),
		LivelinessAssertInterval(50 * time.Millisecond),
		DiscoveryPeriod(50 * time.Millisecond),
		ProbePeriod(50 * time.Millisecond),
	}, extra...)
}

// spinBoth alternates between the nodes until cond holds.
func spinBoth(t *testing.T, cond func() bool, nodes ...*Node) {
	t.Helper()
	for i := 0; i < 200; i++ {
		for _, n := range nodes {
			require.NoError(t, n.Spin(10*time.Millisecond))
		}
		if cond() {
			return
		}
	}
	t.Fatal("nodes did not converge")
}

func TestTrackerFindsProvider(t *testing.T) {
	port := freePort(t)
	x := newTestNode(t, "x", fastOptions(port)...)
	y := newTestNode(t, "y", fastOptions(port)...)
	r := mustResource(t, "/test")

	var got []string
	tr, err := x.Track(r, func(_ *Tracker, content interface{}) {
		got = append(got, string(content.([]byte)))
	})
	require.NoError(t, err)
	pr, err := y.Advertise(r)
	require.NoError(t, err)

	spinBoth(t, func() bool { return len(tr.peers) == 1 && len(pr.peers) == 1 }, x, y)
	require.Equal(t, "y", tr.peers[0].name)
	require.Equal(t, "x", pr.peers[0].name)

	sent, err := pr.Post([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	spinBoth(t, func() bool { return len(got) == 1 }, x)
	require.Equal(t, []string{"hello"}, got)
}

func TestProviderLoss(t *testing.T) {
	port := freePort(t)
	x := newTestNode(t, "x", fastOptions(port)...)
	y := newTestNode(t, "y", fastOptions(port)...)
	r := mustResource(t, "/test")
	tr, err := x.Track(r, func(*Tracker, interface{}) {})
	require.NoError(t, err)
	_, err = y.Advertise(r)
	require.NoError(t, err)

	spinBoth(t, func() bool { return len(tr.peers) == 1 }, x, y)
	require.NoError(t, y.Close())

	spinBoth(t, func() bool { return len(x.GetPeers()) == 0 }, x)
	require.Empty(t, tr.peers)
	discoveries := x.Stats().Discoveries
	require.NoError(t, x.Spin(200*time.Millisecond))
	require.Greater(t, x.Stats().Discoveries, discoveries)
}

func TestMultithreadedNodes(t *testing.T) {
	port := freePort(t)
	x := newTestNode(t, "x", fastOptions(port, Multithreaded(true))...)
	y := newTestNode(t, "y", fastOptions(port, Multithreaded(true))...)
	r := mustResource(t, "/test")

	delivered := make(chan string, 16)
	_, err := x.Track(r, func(_ *Tracker, content interface{}) {
		delivered <- string(content.([]byte))
	})
	require.NoError(t, err)
	pr, err := y.Advertise(r)
	require.NoError(t, err)

	errc := make(chan error, 2)
	for _, n := range []*Node{x, y} {
		n := n
		go func() { errc <- n.Spin(NoTimeout) }()
	}
	require.Eventually(t, func() bool {
		providers := y.GetProviders()
		return len(providers) == 1 && len(providers[0].Peers) == 1
	}, 5*time.Second, 10*time.Millisecond)

	sent, err := pr.Post([]byte("from another goroutine"))
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	select {
	case content := <-delivered:
		require.Equal(t, "from another goroutine", content)
	case <-time.After(5 * time.Second):
		t.Fatal("content was not delivered")
	}

	require.NoError(t, x.Stop())
	require.NoError(t, y.Stop())
	require.NoError(t, <-errc)
	require.NoError(t, <-errc)
}
