package arp4

import (
	"context"
	"net"

	"inet.af/netaddr"
)

// RequestOut is the sole outbound ARP message the cache emits: "who has
// TargetIP, tell SenderIP" (spec.md §4.1's v4 solicitation). dstMAC is
// EthernetBroadcast for a cold miss and the cached link address for a
// unicast refresh.
type RequestOut struct {
	SenderMAC net.HardwareAddr
	SenderIP  netaddr.IP
	DstMAC    net.HardwareAddr
	TargetIP  netaddr.IP
}

// Dispatcher is the ARP TX entry point, mirroring ndwire.Dispatcher's
// strongly-typed single-method contract (Design Note §9).
type Dispatcher interface {
	Send(ctx context.Context, msg RequestOut) error
}

// Assemble converts msg into a wire-ready ARP request frame.
func Assemble(msg RequestOut) (Frame, error) {
	return Marshal(opRequest, msg.SenderMAC, msg.SenderIP, msg.DstMAC, msg.TargetIP)
}
