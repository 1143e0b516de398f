// Package ndwire implements the bit-exact ICMPv6 Neighbor Discovery wire
// codec (spec.md §6): NS/NA/RS/RA messages and their SLLA/TLLA/PI options.
//
// This is adapted from the teacher's icmp6/message6.go, itself adapted from
// github.com/mdlayher/ndp's message.go - the one piece of "wire codec" scope
// this repository owns directly, since ND option framing is part of the ND
// control-plane contract rather than the generic IPv4/TCP/UDP codecs spec.md
// §1 scopes out as external.
package ndwire

import (
	"encoding/binary"
	"fmt"
	"net"
	"time"
)

// OptionType identifies an ND option per RFC 4861 §4.6.
type OptionType uint8

const (
	OptionSourceLLA        OptionType = 1
	OptionTargetLLA        OptionType = 2
	OptionPrefixInformation OptionType = 3
	OptionMTU              OptionType = 5
)

const optionUnit = 8 // option Length field counts in units of 8 bytes

// Option is one ND option. Unknown option types are skipped on parse, not
// rejected (spec.md §6).
type Option interface {
	Code() OptionType
	marshal() ([]byte, error)
}

// LinkLayerAddress backs both SLLA (type 1) and TLLA (type 2): "type 1,
// length 1 x 8 bytes, MAC in last 6 bytes" (spec.md §6).
type LinkLayerAddress struct {
	Direction OptionType // OptionSourceLLA or OptionTargetLLA
	Addr      net.HardwareAddr
}

func (l *LinkLayerAddress) Code() OptionType { return l.Direction }

func (l *LinkLayerAddress) marshal() ([]byte, error) {
	if len(l.Addr) != 6 {
		return nil, fmt.Errorf("ndwire: invalid link-layer address length %d", len(l.Addr))
	}
	b := make([]byte, optionUnit)
	b[0] = byte(l.Direction)
	b[1] = 1
	copy(b[2:8], l.Addr)
	return b, nil
}

// PrefixInformation is the PI option (type 3, 4x8 bytes) carrying a prefix
// a Router Advertisement offers for SLAAC (spec.md §4.4/§6).
type PrefixInformation struct {
	PrefixLength                   uint8
	OnLink                         bool
	AutonomousAddressConfiguration bool
	ValidLifetime                  time.Duration
	PreferredLifetime              time.Duration
	Prefix                         net.IP // 16-byte IPv6 prefix, low bits zeroed
}

func (p *PrefixInformation) Code() OptionType { return OptionPrefixInformation }

func (p *PrefixInformation) marshal() ([]byte, error) {
	prefix := p.Prefix.To16()
	if prefix == nil {
		return nil, fmt.Errorf("ndwire: invalid prefix address")
	}
	b := make([]byte, 4*optionUnit)
	b[0] = byte(OptionPrefixInformation)
	b[1] = 4
	b[2] = p.PrefixLength
	if p.OnLink {
		b[3] |= 1 << 7
	}
	if p.AutonomousAddressConfiguration {
		b[3] |= 1 << 6
	}
	binary.BigEndian.PutUint32(b[4:8], uint32(p.ValidLifetime/time.Second))
	binary.BigEndian.PutUint32(b[8:12], uint32(p.PreferredLifetime/time.Second))
	// b[12:16] reserved
	copy(b[16:32], prefix)
	return b, nil
}

func parsePrefixInformation(b []byte) (*PrefixInformation, error) {
	if len(b) < 32 {
		return nil, fmt.Errorf("%w: truncated prefix information option", errParse)
	}
	return &PrefixInformation{
		PrefixLength:                   b[2],
		OnLink:                         b[3]&(1<<7) != 0,
		AutonomousAddressConfiguration: b[3]&(1<<6) != 0,
		ValidLifetime:                  time.Duration(binary.BigEndian.Uint32(b[4:8])) * time.Second,
		PreferredLifetime:              time.Duration(binary.BigEndian.Uint32(b[8:12])) * time.Second,
		Prefix:                         net.IP(append([]byte(nil), b[16:32]...)),
	}, nil
}

// MTUOption is the MTU option (type 5), carried by some Router
// Advertisements.
type MTUOption struct {
	MTU uint32
}

func (m *MTUOption) Code() OptionType { return OptionMTU }

func (m *MTUOption) marshal() ([]byte, error) {
	b := make([]byte, optionUnit)
	b[0] = 5
	b[1] = 1
	binary.BigEndian.PutUint32(b[4:8], m.MTU)
	return b, nil
}

// marshalOptions serializes opts in order.
func marshalOptions(opts []Option) ([]byte, error) {
	var out []byte
	for _, o := range opts {
		b, err := o.marshal()
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	return out, nil
}

// parseOptions walks the ND option TLV stream. Unknown option types are
// skipped using their length field rather than rejected, per spec.md §6.
func parseOptions(b []byte) ([]Option, error) {
	var opts []Option
	for len(b) > 0 {
		if len(b) < 2 {
			return nil, fmt.Errorf("%w: truncated option header", errParse)
		}
		typ := OptionType(b[0])
		lengthUnits := int(b[1])
		if lengthUnits == 0 {
			return nil, fmt.Errorf("%w: zero-length option", errParse)
		}
		total := lengthUnits * optionUnit
		if total > len(b) {
			return nil, fmt.Errorf("%w: option length exceeds remaining buffer", errParse)
		}
		raw := b[:total]
		b = b[total:]

		switch typ {
		case OptionSourceLLA, OptionTargetLLA:
			if total < 8 {
				return nil, fmt.Errorf("%w: short link-layer option", errParse)
			}
			opts = append(opts, &LinkLayerAddress{Direction: typ, Addr: net.HardwareAddr(append([]byte(nil), raw[2:8]...))})
		case OptionPrefixInformation:
			pi, err := parsePrefixInformation(raw)
			if err != nil {
				return nil, err
			}
			opts = append(opts, pi)
		case OptionMTU:
			if total < 8 {
				return nil, fmt.Errorf("%w: short MTU option", errParse)
			}
			opts = append(opts, &MTUOption{MTU: binary.BigEndian.Uint32(raw[4:8])})
		default:
			// Unknown options are skipped, not rejected (spec.md §6).
		}
	}
	return opts, nil
}

// FirstLinkLayerAddress returns the MAC carried by the first SLLA or TLLA
// option present, and whether one was found.
func FirstLinkLayerAddress(opts []Option, direction OptionType) (net.HardwareAddr, bool) {
	for _, o := range opts {
		if lla, ok := o.(*LinkLayerAddress); ok && lla.Direction == direction {
			return lla.Addr, true
		}
	}
	return nil, false
}

// Prefixes returns every PrefixInformation option present.
func Prefixes(opts []Option) []*PrefixInformation {
	var out []*PrefixInformation
	for _, o := range opts {
		if pi, ok := o.(*PrefixInformation); ok {
			out = append(out, pi)
		}
	}
	return out
}
