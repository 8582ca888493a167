package core

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestProbe(t *testing.T) {
	mock := clock.NewMock()
	n := newTestNode(t, "x", Clock{mock}, LivelinessTimeout(time.Second), ProbePeriod(10*time.Second))
	tr, err := n.Track(mustResource(t, "/test"), func(*Tracker, interface{}) {})
	require.NoError(t, err)

	start := n.now()
	linked, err := n.registerPeer(testAddr(9000), start)
	require.NoError(t, err)
	_, err = tr.link(linked)
	require.NoError(t, err)
	_, err = n.registerPeer(testAddr(9001), start)
	require.NoError(t, err)

	res := n.probe(start)
	require.Equal(t, 1, res.activeTrackers)
	require.Zero(t, res.activeProviders)
	require.Equal(t, 0, res.next.Cmp(start.Add(time.Second)))
	require.Len(t, n.peers.peers, 2)

	mock.Add(500 * time.Millisecond)
	_, err = n.registerPeer(testAddr(9001), n.now())
	require.NoError(t, err)

	mock.Add(time.Second)
	now := n.now()
	res = n.probe(now)
	require.Zero(t, res.activeTrackers)
	require.Empty(t, tr.peers)
	require.Len(t, n.peers.peers, 1)
	require.Equal(t, testAddr(9001), n.peers.peers[0].addr)
	require.True(t, n.peers.peers[0].alive)
	require.Equal(t, 0, res.next.Cmp(start.Add(1500*time.Millisecond)))

	mock.Add(time.Second)
	res = n.probe(n.now())
	require.Empty(t, n.peers.peers)
	require.Equal(t, 0, res.next.Cmp(n.now().Add(10*time.Second)))

	// The freed slots are reused.
	for i := 0; i < MaxPeers; i++ {
		_, err := n.registerPeer(testAddr(uint16(10000+i)), n.now())
		require.NoError(t, err)
	}
}

func TestKeepalive(t *testing.T) {
	mock := clock.NewMock()
	n := newTestNode(t, "x", Clock{mock})

	next, err := n.assertLiveliness(n.now())
	require.NoError(t, err)
	require.True(t, next.IsInfinite())

	f := newFakePeer(t)
	_, err = n.registerPeer(f.addr, n.now())
	require.NoError(t, err)

	next, err = n.assertLiveliness(n.now())
	require.NoError(t, err)
	require.Equal(t, 0, next.Cmp(n.now().Add(DefaultLivelinessAssertInterval)))
	p := f.receive()
	require.Equal(t, []byte{0xc0}, p.raw)
	require.Empty(t, p.links)
	require.Empty(t, p.contents)

	_, err = n.assertLiveliness(n.now())
	require.NoError(t, err)
	f.expectSilence()

	// A late keepalive keeps the peer on its cadence.
	start := n.now()
	mock.Add(DefaultLivelinessAssertInterval * 3 / 2)
	next, err = n.assertLiveliness(n.now())
	require.NoError(t, err)
	require.Equal(t, []byte{0xc0}, f.receive().raw)
	require.Equal(t, 0, next.Cmp(start.Add(2*DefaultLivelinessAssertInterval)))
	require.Equal(t, uint64(2), n.Stats().Keepalives)

	// A peer far behind is not sent a burst of keepalives.
	mock.Add(5 * DefaultLivelinessAssertInterval)
	next, err = n.assertLiveliness(n.now())
	require.NoError(t, err)
	require.Equal(t, []byte{0xc0}, f.receive().raw)
	require.Equal(t, 0, next.Cmp(n.now().Add(DefaultLivelinessAssertInterval)))
	_, err = n.assertLiveliness(n.now())
	require.NoError(t, err)
	f.expectSilence()
	require.Equal(t, uint64(3), n.Stats().Keepalives)
}

func TestPostDefersKeepalive(t *testing.T) {
	mock := clock.NewMock()
	n := newTestNode(t, "provider", Clock{mock})
	pr, f := linkedProvider(t, n, "/test")

	mock.Add(DefaultLivelinessAssertInterval)
	sent, err := pr.Post([]byte("data"))
	require.NoError(t, err)
	require.Equal(t, 1, sent)
	f.receive()

	next, err := n.assertLiveliness(n.now())
	require.NoError(t, err)
	require.Equal(t, 0, next.Cmp(n.now().Add(DefaultLivelinessAssertInterval)))
	f.expectSilence()
	require.Zero(t, n.Stats().Keepalives)
}
