// Package arp4 is the IPv4 ARP cache of spec.md §4.1, sharing the generic
// internal/ndcache engine with neigh6 and supplying its own solicitation:
// a broadcast ARP request (cold miss) or unicast ARP request (opportunistic
// refresh), adapted from the teacher's arp/packet.go wire frame and
// arp/send.go request pattern.
package arp4

import (
	"encoding/binary"
	"fmt"
	"net"

	"inet.af/netaddr"
)

const (
	opRequest uint16 = 1
	opReply   uint16 = 2

	htypeEthernet uint16 = 1
	protoIPv4     uint16 = 0x0800

	frameLen = 8 + 2*6 + 2*4
)

// EthernetBroadcast is the all-ones destination used for ARP requests.
var EthernetBroadcast = net.HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// Frame is a memory-mapped ARP packet, mirroring the teacher's ARP []byte
// accessor type.
type Frame []byte

// IsValid reports whether b looks like a well-formed Ethernet/IPv4 ARP frame.
func (b Frame) IsValid() bool {
	return len(b) >= frameLen &&
		b.HType() == htypeEthernet &&
		b.Proto() == protoIPv4 &&
		b.HLen() == 6 &&
		b.PLen() == 4
}

func (b Frame) HType() uint16       { return binary.BigEndian.Uint16(b[0:2]) }
func (b Frame) Proto() uint16       { return binary.BigEndian.Uint16(b[2:4]) }
func (b Frame) HLen() uint8         { return b[4] }
func (b Frame) PLen() uint8         { return b[5] }
func (b Frame) Operation() uint16   { return binary.BigEndian.Uint16(b[6:8]) }
func (b Frame) IsRequest() bool     { return b.Operation() == opRequest }
func (b Frame) IsReply() bool       { return b.Operation() == opReply }
func (b Frame) SenderMAC() net.HardwareAddr { return net.HardwareAddr(b[8:14]) }
func (b Frame) SenderIP() netaddr.IP        { return mustIPv4(b[14:18]) }
func (b Frame) TargetMAC() net.HardwareAddr { return net.HardwareAddr(b[18:24]) }
func (b Frame) TargetIP() netaddr.IP        { return mustIPv4(b[24:28]) }

func (b Frame) String() string {
	return fmt.Sprintf("op=%d sender=%s/%s target=%s/%s",
		b.Operation(), b.SenderIP(), b.SenderMAC(), b.TargetIP(), b.TargetMAC())
}

func mustIPv4(b []byte) netaddr.IP {
	var a [4]byte
	copy(a[:], b)
	return netaddr.IPFrom4(a)
}

// Marshal builds a wire ARP frame requesting or replying about target,
// mirroring the teacher's ARPMarshalBinary.
func Marshal(operation uint16, senderMAC net.HardwareAddr, senderIP netaddr.IP, targetMAC net.HardwareAddr, targetIP netaddr.IP) (Frame, error) {
	if !senderIP.Is4() || !targetIP.Is4() {
		return nil, fmt.Errorf("arp4: marshal: addresses must be IPv4")
	}
	b := make(Frame, frameLen)
	binary.BigEndian.PutUint16(b[0:2], htypeEthernet)
	binary.BigEndian.PutUint16(b[2:4], protoIPv4)
	b[4] = 6
	b[5] = 4
	binary.BigEndian.PutUint16(b[6:8], operation)
	sip, tip := senderIP.As4(), targetIP.As4()
	copy(b[8:14], senderMAC)
	copy(b[14:18], sip[:])
	copy(b[18:24], targetMAC)
	copy(b[24:28], tip[:])
	return b, nil
}

// Parse validates and wraps a raw ARP frame.
func Parse(b []byte) (Frame, error) {
	f := Frame(b)
	if !f.IsValid() {
		return nil, fmt.Errorf("arp4: parse: malformed frame")
	}
	return f, nil
}
