package ndwire

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/net/ipv6"
	"inet.af/netaddr"
)

var errParse = errors.New("ndwire: failed to parse message")

// ErrParse is the sentinel wrapped by every parse failure; callers match it
// with errors.Is to map onto spec.md §7's WireFormat error kind.
var ErrParse = errParse

// Minimum byte lengths for each ND message body, excluding the 4-byte
// type/code/checksum header and any trailing options (spec.md §6).
const (
	nsBodyLen    = 20 // reserved(4) + target(16)
	naBodyLen    = 20 // flags(4) + target(16)
	rsBodyLen    = 4  // reserved(4)
	raBodyLen    = 12
	echoBodyLen  = 4 // id(2) + seq(2)
)

// Message is one parsed or to-be-assembled ICMPv6 ND/Echo/Unreachable
// message body (the header's type/code/checksum are handled by Marshal and
// Parse, not by implementations of this interface).
type Message interface {
	Type() ipv6.ICMPType
	marshalBody() ([]byte, error)
}

// NeighborSolicitation - RFC 4861 §4.3.
type NeighborSolicitation struct {
	TargetAddress netaddr.IP
	Options       []Option
}

func (m *NeighborSolicitation) Type() ipv6.ICMPType { return ipv6.ICMPTypeNeighborSolicitation }

func (m *NeighborSolicitation) marshalBody() ([]byte, error) {
	b := make([]byte, nsBodyLen)
	target := m.TargetAddress.As16()
	copy(b[4:20], target[:])
	opts, err := marshalOptions(m.Options)
	if err != nil {
		return nil, err
	}
	return append(b, opts...), nil
}

func parseNeighborSolicitation(b []byte) (*NeighborSolicitation, error) {
	if len(b) < nsBodyLen {
		return nil, fmt.Errorf("%w: short neighbor solicitation", errParse)
	}
	opts, err := parseOptions(b[nsBodyLen:])
	if err != nil {
		return nil, err
	}
	var target [16]byte
	copy(target[:], b[4:20])
	return &NeighborSolicitation{TargetAddress: netaddr.IPFrom16(target), Options: opts}, nil
}

// NeighborAdvertisement - RFC 4861 §4.4.
type NeighborAdvertisement struct {
	Router        bool
	Solicited     bool
	Override      bool
	TargetAddress netaddr.IP
	Options       []Option
}

func (m *NeighborAdvertisement) Type() ipv6.ICMPType { return ipv6.ICMPTypeNeighborAdvertisement }

func (m *NeighborAdvertisement) marshalBody() ([]byte, error) {
	b := make([]byte, naBodyLen)
	if m.Router {
		b[0] |= 1 << 7
	}
	if m.Solicited {
		b[0] |= 1 << 6
	}
	if m.Override {
		b[0] |= 1 << 5
	}
	target := m.TargetAddress.As16()
	copy(b[4:20], target[:])
	opts, err := marshalOptions(m.Options)
	if err != nil {
		return nil, err
	}
	return append(b, opts...), nil
}

func parseNeighborAdvertisement(b []byte) (*NeighborAdvertisement, error) {
	if len(b) < naBodyLen {
		return nil, fmt.Errorf("%w: short neighbor advertisement", errParse)
	}
	opts, err := parseOptions(b[naBodyLen:])
	if err != nil {
		return nil, err
	}
	var target [16]byte
	copy(target[:], b[4:20])
	return &NeighborAdvertisement{
		Router:        b[0]&(1<<7) != 0,
		Solicited:     b[0]&(1<<6) != 0,
		Override:      b[0]&(1<<5) != 0,
		TargetAddress: netaddr.IPFrom16(target),
		Options:       opts,
	}, nil
}

// RouterSolicitation - RFC 4861 §4.1.
type RouterSolicitation struct {
	Options []Option
}

func (m *RouterSolicitation) Type() ipv6.ICMPType { return ipv6.ICMPTypeRouterSolicitation }

func (m *RouterSolicitation) marshalBody() ([]byte, error) {
	b := make([]byte, rsBodyLen)
	opts, err := marshalOptions(m.Options)
	if err != nil {
		return nil, err
	}
	return append(b, opts...), nil
}

func parseRouterSolicitation(b []byte) (*RouterSolicitation, error) {
	if len(b) < rsBodyLen {
		return nil, fmt.Errorf("%w: short router solicitation", errParse)
	}
	opts, err := parseOptions(b[rsBodyLen:])
	if err != nil {
		return nil, err
	}
	return &RouterSolicitation{Options: opts}, nil
}

// RouterAdvertisement - RFC 4861 §4.2.
type RouterAdvertisement struct {
	CurrentHopLimit      uint8
	ManagedConfiguration bool
	OtherConfiguration   bool
	RouterLifetimeSec    uint16
	ReachableTimeMillis  uint32
	RetransTimerMillis   uint32
	Options              []Option
}

func (m *RouterAdvertisement) Type() ipv6.ICMPType { return ipv6.ICMPTypeRouterAdvertisement }

func (m *RouterAdvertisement) marshalBody() ([]byte, error) {
	b := make([]byte, raBodyLen)
	b[0] = m.CurrentHopLimit
	if m.ManagedConfiguration {
		b[1] |= 1 << 7
	}
	if m.OtherConfiguration {
		b[1] |= 1 << 6
	}
	binary.BigEndian.PutUint16(b[2:4], m.RouterLifetimeSec)
	binary.BigEndian.PutUint32(b[4:8], m.ReachableTimeMillis)
	binary.BigEndian.PutUint32(b[8:12], m.RetransTimerMillis)
	opts, err := marshalOptions(m.Options)
	if err != nil {
		return nil, err
	}
	return append(b, opts...), nil
}

func parseRouterAdvertisement(b []byte) (*RouterAdvertisement, error) {
	if len(b) < raBodyLen {
		return nil, fmt.Errorf("%w: short router advertisement", errParse)
	}
	opts, err := parseOptions(b[raBodyLen:])
	if err != nil {
		return nil, err
	}
	return &RouterAdvertisement{
		CurrentHopLimit:      b[0],
		ManagedConfiguration: b[1]&(1<<7) != 0,
		OtherConfiguration:   b[1]&(1<<6) != 0,
		RouterLifetimeSec:    binary.BigEndian.Uint16(b[2:4]),
		ReachableTimeMillis:  binary.BigEndian.Uint32(b[4:8]),
		RetransTimerMillis:   binary.BigEndian.Uint32(b[8:12]),
		Options:              opts,
	}, nil
}

// Echo is shared by Echo Request and Echo Reply (spec.md §4.2).
type Echo struct {
	request bool
	ID      uint16
	Seq     uint16
	Data    []byte
}

func NewEchoRequest(id, seq uint16, data []byte) *Echo { return &Echo{request: true, ID: id, Seq: seq, Data: data} }
func NewEchoReply(id, seq uint16, data []byte) *Echo    { return &Echo{request: false, ID: id, Seq: seq, Data: data} }

// IsRequest reports whether this is an Echo Request (vs. a Reply).
func (m *Echo) IsRequest() bool { return m.request }

func (m *Echo) Type() ipv6.ICMPType {
	if m.request {
		return ipv6.ICMPTypeEchoRequest
	}
	return ipv6.ICMPTypeEchoReply
}

func (m *Echo) marshalBody() ([]byte, error) {
	b := make([]byte, echoBodyLen+len(m.Data))
	binary.BigEndian.PutUint16(b[0:2], m.ID)
	binary.BigEndian.PutUint16(b[2:4], m.Seq)
	copy(b[4:], m.Data)
	return b, nil
}

func parseEcho(request bool, b []byte) (*Echo, error) {
	if len(b) < echoBodyLen {
		return nil, fmt.Errorf("%w: short echo message", errParse)
	}
	return &Echo{
		request: request,
		ID:      binary.BigEndian.Uint16(b[0:2]),
		Seq:     binary.BigEndian.Uint16(b[2:4]),
		Data:    append([]byte(nil), b[4:]...),
	}, nil
}

// DestinationUnreachable carries the offending datagram as received, for the
// embedded-4-tuple extraction spec.md §4.2 describes.
type DestinationUnreachable struct {
	Code    uint8
	Payload []byte // the embedded offending IP datagram, as much as fit
}

func (m *DestinationUnreachable) Type() ipv6.ICMPType { return ipv6.ICMPTypeDestinationUnreachable }

func (m *DestinationUnreachable) marshalBody() ([]byte, error) {
	b := make([]byte, 4+len(m.Payload))
	copy(b[4:], m.Payload)
	return b, nil
}

func parseDestinationUnreachable(code uint8, b []byte) (*DestinationUnreachable, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: short destination unreachable", errParse)
	}
	return &DestinationUnreachable{Code: code, Payload: append([]byte(nil), b[4:]...)}, nil
}

// Marshal assembles msg into a checksummed ICMPv6 wire packet ready for an
// IPv6 payload, per spec.md §6 ("ICMPv6 header checksum ... mandatory on
// emit").
func Marshal(msg Message, src, dst netaddr.IP) ([]byte, error) {
	body, err := msg.marshalBody()
	if err != nil {
		return nil, err
	}
	b := make([]byte, 4+len(body))
	b[0] = byte(msg.Type())
	if du, ok := msg.(*DestinationUnreachable); ok {
		b[1] = du.Code
	}
	copy(b[4:], body)
	binary.BigEndian.PutUint16(b[2:4], checksum(pseudoHeader(src, dst, b)))
	return b, nil
}

// Parse decodes a checksummed ICMPv6 wire packet, verifying the checksum
// against the given IPv6 pseudo-header addresses (spec.md §6: "verified on
// receive").
func Parse(b []byte, src, dst netaddr.IP) (Message, error) {
	if len(b) < 4 {
		return nil, fmt.Errorf("%w: truncated icmp6 header", errParse)
	}
	if checksum(pseudoHeader(src, dst, b)) != 0 {
		return nil, fmt.Errorf("%w: bad checksum", errParse)
	}

	typ := ipv6.ICMPType(b[0])
	code := b[1]
	body := b[4:]

	switch typ {
	case ipv6.ICMPTypeNeighborSolicitation:
		return parseNeighborSolicitation(body)
	case ipv6.ICMPTypeNeighborAdvertisement:
		return parseNeighborAdvertisement(body)
	case ipv6.ICMPTypeRouterSolicitation:
		return parseRouterSolicitation(body)
	case ipv6.ICMPTypeRouterAdvertisement:
		return parseRouterAdvertisement(body)
	case ipv6.ICMPTypeEchoRequest:
		return parseEcho(true, body)
	case ipv6.ICMPTypeEchoReply:
		return parseEcho(false, body)
	case ipv6.ICMPTypeDestinationUnreachable:
		return parseDestinationUnreachable(code, body)
	default:
		return nil, fmt.Errorf("%w: unhandled icmp6 type %d", errParse, typ)
	}
}

// pseudoHeader builds the 40-byte IPv6 pseudo-header followed by payload,
// the input to the ICMPv6 checksum (spec.md §6). Adapted from the teacher's
// inline construction in icmp/icmp6.go's sendPacket.
func pseudoHeader(src, dst netaddr.IP, payload []byte) []byte {
	psh := make([]byte, 40+len(payload))
	s := src.As16()
	d := dst.As16()
	copy(psh[0:16], s[:])
	copy(psh[16:32], d[:])
	binary.BigEndian.PutUint32(psh[32:36], uint32(len(payload)))
	psh[39] = 58 // next header = ICMPv6
	copy(psh[40:], payload)
	return psh
}

// checksum computes the standard Internet one's-complement checksum.
func checksum(b []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(b); i += 2 {
		sum += uint32(b[i])<<8 | uint32(b[i+1])
	}
	if len(b)%2 == 1 {
		sum += uint32(b[len(b)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}
	return ^uint16(sum)
}
