// Package ndstack implements the neighbor/ARP cache maintenance core, the
// ICMPv6 Neighbor Discovery protocol handler, and the host-address registry
// of a userspace TCP/IP stack (spec.md §1-§4).
package ndstack

import (
	"net"
	"sync"

	"inet.af/netaddr"
)

// AllNodesMulticast is the IPv6 all-nodes link-local multicast group
// (spec.md §3, HostAddress.multicast_addresses).
var AllNodesMulticast = netaddr.MustParseIP("ff02::1")

// HostAddress is one assigned IPv6 host address, its network, and an
// optional gateway learned from a Router Advertisement (spec.md §3).
type HostAddress struct {
	Address netaddr.IP
	Network netaddr.IPPrefix
	Gateway netaddr.IP // IsZero() if none
}

// SolicitedNodeMulticast derives the solicited-node multicast address for a
// unicast target, per spec.md §6: ff02::1:ff00:0/104 with the low 24 bits of
// the target.
func SolicitedNodeMulticast(target netaddr.IP) netaddr.IP {
	b := target.As16()
	snm := [16]byte{0xff, 0x02, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 0xff, b[13], b[14], b[15]}
	return netaddr.IPFrom16(snm)
}

// MulticastMAC maps an IPv6 multicast address onto its Ethernet multicast
// MAC, per spec.md §6: 33:33:xx:xx:xx:xx using the low 32 bits of the IPv6
// address.
func MulticastMAC(ip netaddr.IP) net.HardwareAddr {
	b := ip.As16()
	return net.HardwareAddr{0x33, 0x33, b[12], b[13], b[14], b[15]}
}

// Registry is the per-interface set of assigned IPv6 host addresses, the
// joined multicast groups they imply, and the DAD candidate currently in
// flight (spec.md §3's HostAddress set). It is mostly-read; writes happen
// only during SLAAC and admin configuration (spec.md §5), so it is guarded
// by a single RWMutex.
type Registry struct {
	mu        sync.RWMutex
	primary   net.HardwareAddr
	hosts     []HostAddress
	candidate *netaddr.IP
}

// NewRegistry creates a registry for the interface whose primary link-layer
// address is mac.
func NewRegistry(mac net.HardwareAddr) *Registry {
	return &Registry{primary: mac}
}

// PrimaryMAC returns the stack's own link-layer address.
func (r *Registry) PrimaryMAC() net.HardwareAddr {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.primary
}

// AddHost installs ha as one of ours, promoting it into unicast_addresses.
// Used by SLAAC on DAD success and by admin configuration.
func (r *Registry) AddHost(ha HostAddress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, h := range r.hosts {
		if h.Address == ha.Address {
			r.hosts[i] = ha
			return
		}
	}
	r.hosts = append(r.hosts, ha)
}

// RemoveHost drops addr from unicast_addresses if present.
func (r *Registry) RemoveHost(addr netaddr.IP) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, h := range r.hosts {
		if h.Address == addr {
			r.hosts = append(r.hosts[:i], r.hosts[i+1:]...)
			return
		}
	}
}

// UnicastAddresses returns the set of addresses considered "ours".
func (r *Registry) UnicastAddresses() []netaddr.IP {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]netaddr.IP, len(r.hosts))
	for i, h := range r.hosts {
		out[i] = h.Address
	}
	return out
}

// IsUnicast reports whether addr is one of ours.
func (r *Registry) IsUnicast(addr netaddr.IP) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.hosts {
		if h.Address == addr {
			return true
		}
	}
	return false
}

// MulticastAddresses returns the solicited-node multicast address for each
// unicast host, plus the all-nodes group (spec.md §3).
func (r *Registry) MulticastAddresses() []netaddr.IP {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]netaddr.IP, 0, len(r.hosts)+1)
	out = append(out, AllNodesMulticast)
	for _, h := range r.hosts {
		out = append(out, SolicitedNodeMulticast(h.Address))
	}
	return out
}

// SetCandidate registers addr as the address currently undergoing DAD.
func (r *Registry) SetCandidate(addr netaddr.IP) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := addr
	r.candidate = &c
}

// Candidate returns the in-flight DAD candidate, if any.
func (r *Registry) Candidate() (netaddr.IP, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.candidate == nil {
		return netaddr.IP{}, false
	}
	return *r.candidate, true
}

// ClearCandidate drops the in-flight DAD candidate without promoting it,
// used on collision abort.
func (r *Registry) ClearCandidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidate = nil
}

// PromoteCandidate installs the current DAD candidate as a unicast host
// address with the given network/gateway and clears the candidate slot.
// It is a no-op if there is no candidate.
func (r *Registry) PromoteCandidate(network netaddr.IPPrefix, gateway netaddr.IP) {
	r.mu.Lock()
	c := r.candidate
	r.candidate = nil
	r.mu.Unlock()
	if c == nil {
		return
	}
	r.AddHost(HostAddress{Address: *c, Network: network, Gateway: gateway})
}

// SourceFor selects the source address to use when soliciting target,
// matching the longest-prefix HostAddress.Network containing target. It
// returns the unspecified address and false if no network matches.
//
// The source (and spec.md's recorded observation of it) picks the LAST
// matching network rather than the best one; Design Note §9 names
// longest-prefix match as "the obvious correct choice", and this
// implementation makes that choice (see DESIGN.md).
func (r *Registry) SourceFor(target netaddr.IP) (netaddr.IP, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := -1
	var bestAddr netaddr.IP
	for _, h := range r.hosts {
		if !h.Network.IsValid() || !h.Network.Contains(target) {
			continue
		}
		if bits := int(h.Network.Bits()); bits > best {
			best = bits
			bestAddr = h.Address
		}
	}
	if best < 0 {
		return netaddr.IP{}, false
	}
	return bestAddr, true
}
