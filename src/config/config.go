/*
Package config defines the configuration of a uccn node.

The configuration is read as HJSON or JSON and decoded into NodeConfig. Field
comments are written out by -genconf, so a generated file documents itself.
*/
package config

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/hjson/hjson-go/v4"
	"github.com/mitchellh/mapstructure"
	"golang.org/x/text/encoding/unicode"

	"github.com/uccn-net/uccn-go/src/core"
)

// NodeConfig defines all configuration values needed to run a single uccn node
type NodeConfig struct {
	Network                    string   `comment:"Address of this node and the subnet it discovers peers on, in CIDR\nnotation, e.g. 192.168.1.10/24. Discovery is broadcast to the\nsubnet's broadcast address, so every node of the network must use\nthe same subnet."`
	NodeName                   string   `comment:"Name this node announces to its peers. At most 32 bytes. Left empty,\nthe node is called \"anon\"."`
	BroadcastPort              uint16   `comment:"UDP port discovery is broadcast to and heard on. Every node of the\nnetwork must use the same port."`
	Multithreaded              bool     `comment:"Guard the node with a lock so that content can be posted while the\nnode runs. Forced on when the admin socket or metrics are enabled."`
	LivelinessTimeoutMS        uint64   `comment:"How long a peer may stay silent, in milliseconds, before it is\nconsidered gone."`
	LivelinessAssertIntervalMS uint64   `comment:"How often, in milliseconds, a keepalive is sent to peers that have\nnot been sent anything else."`
	PeerDiscoveryPeriodMS      uint64   `comment:"Interval between discovery broadcasts, in milliseconds, while some\ntracked resource has no provider."`
	EndpointProbePeriodMS      uint64   `comment:"Longest interval between liveliness probes of linked peers, in\nmilliseconds."`
	Track                      []string `comment:"Resource paths to track. Content received for them is logged."`
	Advertise                  []string `comment:"Resource paths to provide. Lines read from stdin in the form\n\"/path content\" are posted to them."`
	AdminListen                string   `comment:"Listen address for admin connections. Default is to listen for local\nconnections either on TCP/9003 or a UNIX socket depending on your\nplatform. Use this value for uccnctl -endpoint=X. To disable\nthe admin socket, use the value \"none\" instead."`
	MetricsListen              string   `comment:"Listen address of the Prometheus metrics endpoint, e.g.\nlocalhost:9433. Leave empty to disable metrics."`
}

// GenerateConfig returns the default configuration. This is what -genconf
// outputs and what a configuration file is read on top of.
func GenerateConfig() *NodeConfig {
	defaults := GetDefaults()
	cfg := NodeConfig{}
	cfg.Network = "127.0.0.1/8"
	cfg.NodeName = ""
	cfg.BroadcastPort = core.DefaultBroadcastPort
	cfg.LivelinessTimeoutMS = uint64(core.DefaultLivelinessTimeout / time.Millisecond)
	cfg.LivelinessAssertIntervalMS = uint64(core.DefaultLivelinessAssertInterval / time.Millisecond)
	cfg.PeerDiscoveryPeriodMS = uint64(core.DefaultDiscoveryPeriod / time.Millisecond)
	cfg.EndpointProbePeriodMS = uint64(core.DefaultProbePeriod / time.Millisecond)
	cfg.Track = []string{}
	cfg.Advertise = []string{}
	cfg.AdminListen = defaults.DefaultAdminListen
	cfg.MetricsListen = ""
	return &cfg
}

// ReadFrom reads an HJSON or JSON configuration and applies it on top of
// cfg. Keys that are not part of NodeConfig are an error.
func (cfg *NodeConfig) ReadFrom(r io.Reader) (int64, error) {
	conf, err := io.ReadAll(r)
	if err != nil {
		return 0, err
	}
	n := int64(len(conf))
	// If there's a byte order mark - which Windows 10 is now incredibly fond of
	// throwing everywhere when it's converting things into UTF-16 for the hell
	// of it - remove it and decode back down into UTF-8. This is necessary
	// because hjson doesn't know what to do with UTF-16 and will panic
	if len(conf) >= 2 && (bytes.Equal(conf[0:2], []byte{0xFF, 0xFE}) ||
		bytes.Equal(conf[0:2], []byte{0xFE, 0xFF})) {
		utf := unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
		decoder := utf.NewDecoder()
		conf, err = decoder.Bytes(conf)
		if err != nil {
			return n, fmt.Errorf("error decoding UTF-16 configuration: %w", err)
		}
	}
	var dat map[string]interface{}
	if err := hjson.Unmarshal(conf, &dat); err != nil {
		return n, fmt.Errorf("error parsing configuration: %w", err)
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      cfg,
		ErrorUnused: true,
	})
	if err != nil {
		return n, err
	}
	if err := decoder.Decode(dat); err != nil {
		return n, fmt.Errorf("error decoding configuration: %w", err)
	}
	return n, nil
}

// SetupOptions returns the network and the node options cfg describes.
func (cfg *NodeConfig) SetupOptions() (core.Network, []core.SetupOption, error) {
	network, err := core.ParseNetwork(cfg.Network)
	if err != nil {
		return core.Network{}, nil, err
	}
	ms := func(v uint64) time.Duration { return time.Duration(v) * time.Millisecond }
	options := []core.SetupOption{
		core.BroadcastPort(cfg.BroadcastPort),
		core.Multithreaded(cfg.Multithreaded),
		core.LivelinessTimeout(ms(cfg.LivelinessTimeoutMS)),
		core.LivelinessAssertInterval(ms(cfg.LivelinessAssertIntervalMS)),
		core.DiscoveryPeriod(ms(cfg.PeerDiscoveryPeriodMS)),
		core.ProbePeriod(ms(cfg.EndpointProbePeriodMS)),
	}
	return network, options, nil
}
