// Package monitoring watches a running node: it logs peers as they come and
// go, and exports the node's counters and table sizes as Prometheus
// metrics.
package monitoring

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/uccn-net/uccn-go/src/core"
)

const namespace = "uccn"

type Metrics struct {
	Peers           prometheus.Gauge
	AlivePeers      prometheus.Gauge
	ActiveTrackers  prometheus.Gauge
	ActiveProviders prometheus.Gauge
	PeerArrivals    prometheus.Counter
	PeerDepartures  prometheus.Counter
}

// NewMetrics registers the node's metrics with reg. Traffic counters are
// read from the node on every scrape; table sizes are set by the poller.
func NewMetrics(n *core.Node, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	counter := func(name, help string, value func(core.Stats) uint64) {
		factory.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(value(n.Stats())) })
	}
	counter("datagrams_received_total", "Total datagrams received",
		func(s core.Stats) uint64 { return s.DatagramsReceived })
	counter("datagrams_sent_total", "Total datagrams sent",
		func(s core.Stats) uint64 { return s.DatagramsSent })
	counter("send_errors_total", "Total datagrams that failed to send",
		func(s core.Stats) uint64 { return s.SendErrors })
	counter("malformed_packets_total", "Total received packets that failed to decode",
		func(s core.Stats) uint64 { return s.MalformedPackets })
	counter("deliveries_total", "Total content entries delivered to trackers",
		func(s core.Stats) uint64 { return s.Deliveries })
	counter("keepalives_total", "Total keepalives sent",
		func(s core.Stats) uint64 { return s.Keepalives })
	counter("discoveries_total", "Total discovery broadcasts",
		func(s core.Stats) uint64 { return s.Discoveries })

	return &Metrics{
		Peers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peers",
			Help:      "Current number of known peers",
		}),
		AlivePeers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alive_peers",
			Help:      "Current number of peers heard from within the liveliness timeout",
		}),
		ActiveTrackers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_trackers",
			Help:      "Tracked resources with at least one provider",
		}),
		ActiveProviders: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_providers",
			Help:      "Provided resources with at least one tracker",
		}),
		PeerArrivals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_arrivals_total",
			Help:      "Total peers seen for the first time",
		}),
		PeerDepartures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_departures_total",
			Help:      "Total peers dropped from the peer table",
		}),
	}
}

type Monitoring struct {
	node     *core.Node
	log      core.Logger
	registry *prometheus.Registry
	metrics  *Metrics
	peers    map[string]core.PeerInfo
	done     chan struct{}
	stopped  sync.WaitGroup
	once     sync.Once
	server   *http.Server
	config   struct {
		pollInterval  time.Duration
		metricsListen MetricsListen
	}
}

// New starts monitoring n. The node's getters take its lock, so n must be
// multithreaded if it spins while being monitored.
func New(n *core.Node, log core.Logger, opts ...SetupOption) (*Monitoring, error) {
	m := &Monitoring{
		node:     n,
		log:      log,
		registry: prometheus.NewRegistry(),
		peers:    make(map[string]core.PeerInfo),
		done:     make(chan struct{}),
	}
	m.config.pollInterval = time.Second
	for _, opt := range opts {
		m._applyOption(opt)
	}
	m.metrics = NewMetrics(n, m.registry)
	if m.config.metricsListen != "" {
		if err := m.serve(string(m.config.metricsListen)); err != nil {
			return nil, err
		}
	}
	m.Poll()
	m.stopped.Add(1)
	go m.monitor()
	return m, nil
}

// Handler serves the metrics in the Prometheus text format.
func (m *Monitoring) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Monitoring) serve(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	m.server = &http.Server{Handler: mux}
	m.log.Infoln("Metrics available on", listener.Addr())
	go func() {
		if err := m.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			m.log.Errorln("Metrics server failed:", err)
		}
	}()
	return nil
}

func (m *Monitoring) Stop() error {
	if m == nil {
		return nil
	}
	var err error
	m.once.Do(func() {
		close(m.done)
		m.stopped.Wait()
		if m.server != nil {
			err = m.server.Close()
		}
	})
	return err
}

func (m *Monitoring) monitor() {
	defer m.stopped.Done()
	ticker := time.NewTicker(m.config.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.Poll()
		}
	}
}

// Poll takes a snapshot of the node, logs peers that appeared or went away
// since the last one and updates the gauges.
func (m *Monitoring) Poll() {
	current := m.node.GetPeers()
	seen := make(map[string]struct{}, len(current))
	alive := 0
	for _, peer := range current {
		seen[peer.Location] = struct{}{}
		if peer.Alive {
			alive++
		}
		if _, exist := m.peers[peer.Location]; !exist {
			m.log.Infof("Peer %s@%s appeared\n", peer.Name, peer.Location)
			m.metrics.PeerArrivals.Inc()
		}
		m.peers[peer.Location] = peer
	}
	for location, peer := range m.peers {
		if _, exist := seen[location]; !exist {
			m.log.Infof("Peer %s@%s went away\n", peer.Name, location)
			m.metrics.PeerDepartures.Inc()
			delete(m.peers, location)
		}
	}
	m.metrics.Peers.Set(float64(len(current)))
	m.metrics.AlivePeers.Set(float64(alive))
	m.metrics.ActiveTrackers.Set(float64(active(m.node.GetTrackers())))
	m.metrics.ActiveProviders.Set(float64(active(m.node.GetProviders())))
}

func active(endpoints []core.EndpointInfo) (n int) {
	for _, e := range endpoints {
		if len(e.Peers) > 0 {
			n++
		}
	}
	return n
}
