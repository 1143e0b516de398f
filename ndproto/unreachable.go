package ndproto

import (
	"encoding/binary"

	"inet.af/netaddr"

	"github.com/irai/ndstack/internal/fastlog"
	"github.com/irai/ndstack/ndwire"
	"github.com/irai/ndstack/sockets"
)

// ip6HeaderLen and udpHeaderLen are the fixed-length headers the embedded
// datagram is assumed to carry with no IPv6 extension headers in between
// (spec.md §4.2/§9: "a TODO in the source... the spec preserves the
// limitation").
const (
	ip6HeaderLen = 40
	udpHeaderLen = 8
	nextHeaderUDP = 17
)

// Sockets, if set, receives Unreachable notifications for UDP datagrams
// this stack sent (spec.md §4.2). Nil means Unreachable handling is a
// no-op beyond logging, which is valid when no socket layer is attached.
func (h *Handler) SetSocketRegistry(reg *sockets.Registry) { h.sockets = reg }

// handleUnreachable implements spec.md §4.2's Destination Unreachable
// handling: extract the embedded offending datagram, and if it looks like
// an IPv6+UDP header with no extension headers, notify the matching UDP
// socket via pattern lookup. Anything else is silently dropped, per the
// documented limitation.
func (h *Handler) handleUnreachable(src netaddr.IP, msg *ndwire.DestinationUnreachable) error {
	frame := msg.Payload
	if len(frame) < ip6HeaderLen+udpHeaderLen {
		fastlog.NewLine(module, "unreachable: embedded datagram too short").IPAddr("src", src).Write()
		return nil
	}
	if frame[0]>>4 != 6 || frame[6] != nextHeaderUDP {
		fastlog.NewLine(module, "unreachable: embedded datagram not IPv6+UDP, dropping").IPAddr("src", src).Write()
		return nil
	}

	localIP := ipFromBytes(frame[8:24])
	remoteIP := ipFromBytes(frame[24:40])
	localPort := binary.BigEndian.Uint16(frame[ip6HeaderLen : ip6HeaderLen+2])
	remotePort := binary.BigEndian.Uint16(frame[ip6HeaderLen+2 : ip6HeaderLen+4])

	key := sockets.Key{
		Local:  sockets.Endpoint{IP: localIP, Port: localPort},
		Remote: sockets.Endpoint{IP: remoteIP, Port: remotePort},
	}

	if h.sockets == nil {
		fastlog.NewLine(module, "unreachable: no socket registry attached").Sprintf("key", key).Write()
		return nil
	}
	if !h.sockets.Notify(key) {
		fastlog.NewLine(module, "unreachable: no matching socket").Sprintf("key", key).Write()
	}
	return nil
}

func ipFromBytes(b []byte) netaddr.IP {
	var a [16]byte
	copy(a[:], b)
	return netaddr.IPFrom16(a)
}
