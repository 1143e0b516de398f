// Package ndproto is the ICMPv6 Neighbor Discovery protocol handler of
// spec.md §4.2: it parses inbound NS/NA/RS/RA/Echo/Unreachable messages
// (via ndwire), updates the neighbor cache and host registry, and
// emits replies through the stack's TX dispatcher. DAD (§4.3) and SLAAC
// (§4.4) build on top of it in dad.go and slaac.go.
//
// Grounded in the teacher's icmp/icmp6.go ProcessPacket switch on
// ipv6.ICMPType, adapted from a single-process handle pulling tables off a
// shared packet.Session into the Context-based dependency injection of
// Design Note §9.
package ndproto

import (
	"context"
	"net"
	"sync"

	"inet.af/netaddr"

	"github.com/irai/ndstack"
	"github.com/irai/ndstack/internal/fastlog"
	"github.com/irai/ndstack/ndwire"
	"github.com/irai/ndstack/sockets"
)

const module = "ndproto"

// Debug gates verbose per-message logging, mirroring the teacher's
// package-level Debug bool rather than a runtime if __debug__ check
// (Design Note §9).
var Debug bool

// NeighborCache is the subset of neigh6.Cache the handler needs: updating
// bindings learned from NS/NA traffic. Declared here as an interface rather
// than importing neigh6.Cache, so the handler depends only on Add and tests
// can supply a fake cache.
type NeighborCache interface {
	Add(key netaddr.IP, linkAddr [6]byte)
}

// Handler is the ICMPv6 ND protocol handler bound to a stack Context and
// neighbor cache.
type Handler struct {
	ctx   *ndstack.Context
	cache NeighborCache

	mu      sync.Mutex
	dad     *dadState
	ra      *raState
	sockets *sockets.Registry
}

// New creates a handler. cache receives bindings learned from inbound
// NS/NA traffic (spec.md §4.2 steps 2 and NA-handling step 2).
func New(ctx *ndstack.Context, cache NeighborCache) *Handler {
	return &Handler{ctx: ctx, cache: cache}
}

// HandleInbound parses and dispatches one ICMPv6 ND message. hopLimit is
// the IPv6 header's hop limit; per RFC 4861 §6.1.1/6.1.2/7.1.1/7.1.2, NS,
// NA, RS, and RA must arrive with a hop limit of 255 (nothing off-link can
// spoof a packet into looking like it came from a one-hop neighbor) and
// are policy-dropped otherwise (spec.md §7). Echo and Destination
// Unreachable carry no such restriction.
func (h *Handler) HandleInbound(src, dst netaddr.IP, hopLimit uint8, raw []byte) error {
	msg, err := ndwire.Parse(raw, src, dst)
	if err != nil {
		fastlog.NewLine(module, "drop malformed icmp6 message").IPAddr("src", src).Error(err).Write()
		return ndstack.ErrWireFormat
	}

	switch m := msg.(type) {
	case *ndwire.NeighborSolicitation:
		if !h.checkHopLimit(src, hopLimit) {
			return ndstack.ErrPolicyDrop
		}
		return h.handleNS(src, dst, m)
	case *ndwire.NeighborAdvertisement:
		if !h.checkHopLimit(src, hopLimit) {
			return ndstack.ErrPolicyDrop
		}
		return h.handleNA(src, m)
	case *ndwire.RouterSolicitation:
		if !h.checkHopLimit(src, hopLimit) {
			return ndstack.ErrPolicyDrop
		}
		return h.handleRS(src, m)
	case *ndwire.RouterAdvertisement:
		if !h.checkHopLimit(src, hopLimit) {
			return ndstack.ErrPolicyDrop
		}
		return h.handleRA(src, m)
	case *ndwire.Echo:
		return h.handleEcho(src, dst, hopLimit, m)
	case *ndwire.DestinationUnreachable:
		return h.handleUnreachable(src, m)
	default:
		fastlog.NewLine(module, "unhandled icmp6 message type").IPAddr("src", src).Sprintf("msg", msg).Write()
		return nil
	}
}

// checkHopLimit enforces the hop-limit-255 requirement NS/NA/RS/RA share.
func (h *Handler) checkHopLimit(src netaddr.IP, hopLimit uint8) bool {
	if hopLimit == 255 {
		return true
	}
	fastlog.NewLine(module, "drop nd message with non-255 hop limit").IPAddr("src", src).Int("hopLimit", int(hopLimit)).Write()
	return false
}

// handleNS implements spec.md §4.2's Neighbor Solicitation handling.
func (h *Handler) handleNS(src, dst netaddr.IP, ns *ndwire.NeighborSolicitation) error {
	if Debug {
		fastlog.NewLine(module, "neighbor solicitation").IPAddr("src", src).IPAddr("target", ns.TargetAddress).Write()
	}

	target := ns.TargetAddress
	if !h.ctx.Registry.IsUnicast(target) {
		return nil // not addressed to us: drop (step 1)
	}

	dadRequest := src == unspecified
	if !dadRequest && !src.IsMulticast() {
		if slla, ok := ndwire.FirstLinkLayerAddress(ns.Options, ndwire.OptionSourceLLA); ok {
			h.cache.Add(src, macArray(slla))
		}
	}

	naDst := src
	if dadRequest {
		naDst = ndstack.AllNodesMulticast
	}

	out := ndwire.NeighborAdvertisementOut{
		Common:    ndwire.Common{Src: target, Dst: naDst, HopLimit: 255},
		Target:    target,
		Solicited: !dadRequest,
		Override:  dadRequest,
		TLLA:      h.ctx.Registry.PrimaryMAC(),
	}
	return h.send(out)
}

// handleNA implements spec.md §4.2's Neighbor Advertisement handling,
// correlating with an in-flight DAD attempt first.
func (h *Handler) handleNA(src netaddr.IP, na *ndwire.NeighborAdvertisement) error {
	if Debug {
		fastlog.NewLine(module, "neighbor advertisement").IPAddr("src", src).IPAddr("target", na.TargetAddress).Write()
	}

	tlla, hasTLLA := ndwire.FirstLinkLayerAddress(na.Options, ndwire.OptionTargetLLA)

	if h.dadMatches(na.TargetAddress) {
		var mac net.HardwareAddr
		if hasTLLA {
			mac = tlla
		}
		h.dadSignal(mac, true)
		return nil
	}

	if hasTLLA {
		h.cache.Add(na.TargetAddress, macArray(tlla))
	}
	return nil
}

// handleRS implements spec.md §4.2: log and ignore (router election is
// out of scope).
func (h *Handler) handleRS(src netaddr.IP, rs *ndwire.RouterSolicitation) error {
	fastlog.NewLine(module, "router solicitation received, ignoring").IPAddr("src", src).Write()
	return nil
}

// handleRA implements spec.md §4.2: snapshot PrefixInformation options
// into RaState and release its signal for the SLAAC driver.
func (h *Handler) handleRA(src netaddr.IP, ra *ndwire.RouterAdvertisement) error {
	if Debug {
		fastlog.NewLine(module, "router advertisement").IPAddr("src", src).Write()
	}
	prefixes := ndwire.Prefixes(ra.Options)
	snapshot := make([]RaPrefix, 0, len(prefixes))
	for _, p := range prefixes {
		snapshot = append(snapshot, RaPrefix{Info: p, RouterIP: src})
	}
	h.raSignal(snapshot)
	return nil
}

// handleEcho implements spec.md §4.2's Echo Request handling; Echo Reply
// inbound (a ping response) is not otherwise actionable by this handler.
func (h *Handler) handleEcho(src, dst netaddr.IP, hopLimit uint8, echo *ndwire.Echo) error {
	if !echo.IsRequest() {
		return nil
	}
	out := ndwire.EchoReplyOut{
		Common: ndwire.Common{Src: dst, Dst: src, HopLimit: 255},
		ID:     echo.ID,
		Seq:    echo.Seq,
		Data:   echo.Data,
	}
	return h.send(out)
}

func (h *Handler) send(msg ndwire.OutboundMessage) error {
	if h.ctx.Tx == nil {
		return nil
	}
	if err := h.ctx.Tx.Send(context.Background(), msg); err != nil {
		fastlog.NewLine(module, "failed to send icmp6 message").Error(err).Write()
		return err
	}
	return nil
}

var unspecified = netaddr.MustParseIP("::")

func macArray(mac net.HardwareAddr) (out [6]byte) {
	copy(out[:], mac)
	return out
}
