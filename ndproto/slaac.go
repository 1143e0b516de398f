package ndproto

import (
	"context"
	"net"
	"time"

	"inet.af/netaddr"

	"github.com/irai/ndstack/internal/fastlog"
	"github.com/irai/ndstack/internal/onceevent"
	"github.com/irai/ndstack/ndwire"
)

// DefaultRAWaitTimeout is the wait spec.md §4.4 imposes on the Router
// Solicitation/Advertisement handshake.
const DefaultRAWaitTimeout = 2 * time.Second

// RaPrefix pairs one advertised PrefixInformation with the router that sent
// it (spec.md §3's RaState: "prefixes: list of (PrefixInfoOption, router_ip6)").
type RaPrefix struct {
	Info     *ndwire.PrefixInformation
	RouterIP netaddr.IP
}

// raState is the single in-flight RA wait (spec.md §3's RaState).
type raState struct {
	event *onceevent.Event[[]RaPrefix]
}

// raSignal releases the in-flight RA event, if any (called from RA
// handling in handler.go).
func (h *Handler) raSignal(prefixes []RaPrefix) {
	h.mu.Lock()
	r := h.ra
	h.mu.Unlock()
	if r == nil {
		return
	}
	r.event.Release(prefixes)
}

// SlaacResult reports what stateless autoconfiguration accomplished for one
// router wait (spec.md §4.4/§6).
type SlaacResult struct {
	NoRouter  bool
	Installed []netaddr.IP
}

// RunSLAAC implements spec.md §4.4: solicit a router, wait for its
// advertisement, then run DAD (4.3) on the EUI-64 address derived from each
// autoconfigurable /64 prefix, installing each that survives DAD.
func (h *Handler) RunSLAAC(ctx context.Context, raTimeout, dadTimeout time.Duration) SlaacResult {
	if raTimeout <= 0 {
		raTimeout = DefaultRAWaitTimeout
	}

	ev := onceevent.New[[]RaPrefix]()
	h.mu.Lock()
	h.ra = &raState{event: ev}
	h.mu.Unlock()

	out := ndwire.RouterSolicitationOut{
		Common: ndwire.Common{Src: unspecified, Dst: allRouters, HopLimit: 255},
		SLLA:   h.ctx.Registry.PrimaryMAC(),
	}
	if err := h.send(out); err != nil {
		fastlog.NewLine(module, "slaac: failed to send router solicitation").Error(err).Write()
	}

	waitCtx, cancel := context.WithTimeout(ctx, raTimeout)
	defer cancel()
	prefixes, released := ev.Wait(waitCtx)

	h.mu.Lock()
	h.ra = nil
	h.mu.Unlock()

	if !released {
		return SlaacResult{NoRouter: true}
	}

	var installed []netaddr.IP
	for _, p := range prefixes {
		if !p.Info.AutonomousAddressConfiguration || p.Info.PrefixLength != 64 {
			continue
		}
		addr, ok := eui64Address(p.Info.Prefix, h.ctx.Registry.PrimaryMAC())
		if !ok {
			continue
		}
		result := h.RunDAD(ctx, addr, dadTimeout)
		if result.Duplicate {
			fastlog.NewLine(module, "slaac: dad collision, skipping address").IPAddr("addr", addr).Write()
			continue
		}
		network := netaddr.IPPrefixFrom(prefixNetworkBase(p.Info.Prefix), 64)
		h.ctx.Registry.PromoteCandidate(network, p.RouterIP)
		installed = append(installed, addr)
	}
	return SlaacResult{Installed: installed}
}

var allRouters = netaddr.MustParseIP("ff02::2")

// eui64Address derives a /64 host address from prefix and mac, per the
// modified-EUI-64 interface identifier construction (RFC 4291 appendix A):
// split the 48-bit MAC around ff:fe and flip the universal/local bit.
func eui64Address(prefix net.IP, mac net.HardwareAddr) (netaddr.IP, bool) {
	if len(mac) != 6 || prefix == nil {
		return netaddr.IP{}, false
	}
	var iid [8]byte
	iid[0] = mac[0] ^ 0x02
	iid[1] = mac[1]
	iid[2] = mac[2]
	iid[3] = 0xff
	iid[4] = 0xfe
	iid[5] = mac[3]
	iid[6] = mac[4]
	iid[7] = mac[5]

	p16 := prefix.To16()
	if p16 == nil {
		return netaddr.IP{}, false
	}
	var out [16]byte
	copy(out[:8], p16[:8])
	copy(out[8:], iid[:])
	return netaddr.IPFrom16(out), true
}

// prefixNetworkBase returns prefix truncated to its 16-byte network form,
// for constructing the installed HostAddress.Network.
func prefixNetworkBase(prefix net.IP) netaddr.IP {
	p16 := prefix.To16()
	var out [16]byte
	copy(out[:8], p16[:8])
	return netaddr.IPFrom16(out)
}
