package core

import (
	"fmt"
	"net/netip"
)

// Network is the IPv4 subnet a node lives on. Address is the local address
// the node binds to and, with Netmask, determines where discovery is
// broadcast.
type Network struct {
	Address netip.Addr
	Netmask netip.Addr
}

// ParseNetwork parses an IPv4 network in CIDR notation, such as
// "192.168.1.10/24". The address part is kept as is, not masked.
func ParseNetwork(s string) (Network, error) {
	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return Network{}, fmt.Errorf("error parsing network %q: %w", s, err)
	}
	addr := prefix.Addr().Unmap()
	if !addr.Is4() {
		return Network{}, fmt.Errorf("network %q is not IPv4", s)
	}
	bits := prefix.Bits()
	var mask [4]byte
	for i := 0; i < bits; i++ {
		mask[i/8] |= 0x80 >> (i % 8)
	}
	return Network{Address: addr, Netmask: netip.AddrFrom4(mask)}, nil
}

// BroadcastAddress is the address with every host bit set.
func (nw Network) BroadcastAddress() netip.Addr {
	a, m := nw.Address.As4(), nw.Netmask.As4()
	for i := range a {
		a[i] |= ^m[i]
	}
	return netip.AddrFrom4(a)
}

func (nw Network) validate() error {
	if !nw.Address.Is4() || !nw.Netmask.Is4() {
		return fmt.Errorf("network %s is not IPv4", nw)
	}
	return nil
}

func (nw Network) String() string {
	if !nw.Netmask.Is4() {
		return nw.Address.String()
	}
	m := nw.Netmask.As4()
	ones := 0
	for _, b := range m {
		for ; b&0x80 != 0; b <<= 1 {
			ones++
		}
	}
	return fmt.Sprintf("%s/%d", nw.Address, ones)
}
