package core

import (
	"time"

	"github.com/uccn-net/uccn-go/src/wire"
)

// Table and buffer limits. Every table a node keeps is allocated up front
// with these capacities.
const (
	MaxPeers            = 16
	MaxTrackers         = 16
	MaxProviders        = 16
	MaxResources        = wire.MaxHashes
	MaxNodeNameSize     = wire.MaxNameSize
	MaxResourcePathSize = 64
	MaxContentSize      = 1024
	PacketBufferSize    = 2048
)

const (
	DefaultBroadcastPort            = 7433
	DefaultLivelinessTimeout        = 5 * time.Second
	DefaultLivelinessAssertInterval = time.Second
	DefaultDiscoveryPeriod          = time.Second
	DefaultProbePeriod              = 2 * time.Second
)

// NoTimeout makes Spin run until Stop is called.
const NoTimeout time.Duration = -1

const anonymous = "anon"
