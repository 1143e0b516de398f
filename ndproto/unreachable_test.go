package ndproto

import (
	"encoding/binary"
	"testing"

	"inet.af/netaddr"

	"github.com/irai/ndstack/ndwire"
	"github.com/irai/ndstack/sockets"
)

type fakeSocket struct{ notified bool }

func (s *fakeSocket) NotifyUnreachable() { s.notified = true }

func embeddedIPv6UDPDatagram(localIP, remoteIP netaddr.IP, localPort, remotePort uint16) []byte {
	b := make([]byte, 40+8)
	b[0] = 6 << 4 // version 6
	b[6] = 17     // next header UDP
	l := localIP.As16()
	r := remoteIP.As16()
	copy(b[8:24], l[:])
	copy(b[24:40], r[:])
	binary.BigEndian.PutUint16(b[40:42], localPort)
	binary.BigEndian.PutUint16(b[42:44], remotePort)
	return b
}

func TestUnreachableNotifiesMatchingSocket(t *testing.T) {
	tx := &recordingTx{}
	cache := newFakeCache()
	h, _ := newTestHandler(tx, cache)

	reg := sockets.New()
	h.SetSocketRegistry(reg)

	local := netaddr.MustParseIP("2001:db8::1")
	remote := netaddr.MustParseIP("2001:db8::2")
	key := sockets.Key{
		Local:  sockets.Endpoint{IP: local, Port: 5000},
		Remote: sockets.Endpoint{IP: remote, Port: 53},
	}
	sock := &fakeSocket{}
	reg.Register(key, sock)

	msg := &ndwire.DestinationUnreachable{Payload: embeddedIPv6UDPDatagram(local, remote, 5000, 53)}
	if err := h.handleUnreachable(netaddr.MustParseIP("fe80::face"), msg); err != nil {
		t.Fatalf("handleUnreachable: %v", err)
	}
	if !sock.notified {
		t.Fatal("expected matching socket to be notified")
	}
}

func TestUnreachableWithExtensionHeaderLikePayloadIsDropped(t *testing.T) {
	tx := &recordingTx{}
	cache := newFakeCache()
	h, _ := newTestHandler(tx, cache)

	reg := sockets.New()
	h.SetSocketRegistry(reg)

	// next-header byte set to something other than UDP (e.g. a hop-by-hop
	// extension header, 0), which this handler's documented limitation
	// does not walk past.
	local := netaddr.MustParseIP("2001:db8::1")
	remote := netaddr.MustParseIP("2001:db8::2")
	payload := embeddedIPv6UDPDatagram(local, remote, 1, 2)
	payload[6] = 0

	// Registered under the exact 4-tuple the payload carries, so only the
	// next-header check stands between this payload and a notification.
	sock := &fakeSocket{}
	reg.Register(sockets.Key{
		Local:  sockets.Endpoint{IP: local, Port: 1},
		Remote: sockets.Endpoint{IP: remote, Port: 2},
	}, sock)

	msg := &ndwire.DestinationUnreachable{Payload: payload}
	if err := h.handleUnreachable(netaddr.MustParseIP("fe80::face"), msg); err != nil {
		t.Fatalf("handleUnreachable: %v", err)
	}
	if sock.notified {
		t.Fatal("expected no notification for non-UDP embedded datagram")
	}
}
