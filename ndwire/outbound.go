package ndwire

import (
	"context"
	"net"

	"inet.af/netaddr"
)

// OutboundMessage is the sum type of fully-specified outbound ICMPv6
// messages the ND handler and caches can ask a Dispatcher to send. Design
// Note §9 calls for "a sum type of outbound ICMPv6 messages; each variant
// carries exactly its required fields, and the TX dispatcher exhaustively
// matches" in place of the source's dynamically-named keyword arguments
// (icmp6_ns_target_address=..., icmp6_na_flag_s=..., etc.)
type OutboundMessage interface {
	// isOutbound seals the sum type to this package's variants.
	isOutbound()
}

// Common addressing every outbound ND message carries.
type Common struct {
	Src      netaddr.IP
	Dst      netaddr.IP
	HopLimit uint8 // NS/NA/RS/RA MUST be 255 (spec.md §6)
}

// NeighborSolicitationOut requests resolution of Target. SLLA is nil when
// the message is a DAD probe (source is the unspecified address).
type NeighborSolicitationOut struct {
	Common
	Target netaddr.IP
	SLLA   net.HardwareAddr
}

func (NeighborSolicitationOut) isOutbound() {}

// NeighborAdvertisementOut answers a Neighbor Solicitation or announces an
// address change.
type NeighborAdvertisementOut struct {
	Common
	Target    netaddr.IP
	Solicited bool
	Override  bool
	TLLA      net.HardwareAddr
}

func (NeighborAdvertisementOut) isOutbound() {}

// RouterSolicitationOut kicks off SLAAC (spec.md §4.4).
type RouterSolicitationOut struct {
	Common
	SLLA net.HardwareAddr
}

func (RouterSolicitationOut) isOutbound() {}

// RouterAdvertisementOut is used only by the test RADVS responder
// (SPEC_FULL.md §4.4 expansion), never by the core SLAAC client path.
type RouterAdvertisementOut struct {
	Common
	ManagedConfiguration bool
	OtherConfiguration   bool
	RouterLifetimeSec    uint16
	ReachableTimeMillis  uint32
	RetransTimerMillis   uint32
	Prefixes             []*PrefixInformation
	SLLA                 net.HardwareAddr
	MTU                  uint32
}

func (RouterAdvertisementOut) isOutbound() {}

// EchoRequestOut/EchoReplyOut implement spec.md §4.2's Echo handling.
type EchoRequestOut struct {
	Common
	ID, Seq uint16
	Data    []byte
}

func (EchoRequestOut) isOutbound() {}

type EchoReplyOut struct {
	Common
	ID, Seq uint16
	Data    []byte
}

func (EchoReplyOut) isOutbound() {}

// Dispatcher is the TX dispatcher contract of spec.md §4.5: a single
// outbound entry point that takes a strongly-typed variant per message, not
// a stringly-typed dispatch. Implementations must frame, checksum, and
// transmit synchronously; spec.md §5 says NS/NA emission blocks only on the
// egress queue if full, which a Dispatcher.Send implementation achieves by
// blocking on its own send channel/socket write inside Send.
type Dispatcher interface {
	Send(ctx context.Context, msg OutboundMessage) error
}

// Assemble converts an OutboundMessage into the Message plus pseudo-header
// addresses that Marshal needs, exhaustively matching every variant (Design
// Note §9). It panics on an unrecognized variant, which can only happen if
// this package grows a new variant without updating Assemble - a programmer
// error, not a runtime condition callers must handle.
func Assemble(msg OutboundMessage) (body Message, src, dst netaddr.IP, hop uint8) {
	switch m := msg.(type) {
	case NeighborSolicitationOut:
		opts := []Option{}
		if m.SLLA != nil {
			opts = append(opts, &LinkLayerAddress{Direction: OptionSourceLLA, Addr: m.SLLA})
		}
		return &NeighborSolicitation{TargetAddress: m.Target, Options: opts}, m.Src, m.Dst, m.HopLimit

	case NeighborAdvertisementOut:
		opts := []Option{}
		if m.TLLA != nil {
			opts = append(opts, &LinkLayerAddress{Direction: OptionTargetLLA, Addr: m.TLLA})
		}
		return &NeighborAdvertisement{Solicited: m.Solicited, Override: m.Override, TargetAddress: m.Target, Options: opts}, m.Src, m.Dst, m.HopLimit

	case RouterSolicitationOut:
		opts := []Option{}
		if m.SLLA != nil {
			opts = append(opts, &LinkLayerAddress{Direction: OptionSourceLLA, Addr: m.SLLA})
		}
		return &RouterSolicitation{Options: opts}, m.Src, m.Dst, m.HopLimit

	case RouterAdvertisementOut:
		var opts []Option
		if m.SLLA != nil {
			opts = append(opts, &LinkLayerAddress{Direction: OptionSourceLLA, Addr: m.SLLA})
		}
		if m.MTU != 0 {
			opts = append(opts, &MTUOption{MTU: m.MTU})
		}
		for _, p := range m.Prefixes {
			opts = append(opts, p)
		}
		return &RouterAdvertisement{
			ManagedConfiguration: m.ManagedConfiguration,
			OtherConfiguration:   m.OtherConfiguration,
			RouterLifetimeSec:    m.RouterLifetimeSec,
			ReachableTimeMillis:  m.ReachableTimeMillis,
			RetransTimerMillis:   m.RetransTimerMillis,
			Options:              opts,
		}, m.Src, m.Dst, m.HopLimit

	case EchoRequestOut:
		return NewEchoRequest(m.ID, m.Seq, m.Data), m.Src, m.Dst, m.HopLimit

	case EchoReplyOut:
		return NewEchoReply(m.ID, m.Seq, m.Data), m.Src, m.Dst, m.HopLimit

	default:
		panic("ndwire: Assemble: unreachable - unhandled OutboundMessage variant")
	}
}
