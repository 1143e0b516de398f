package ndwire

import (
	"net"
	"testing"
	"time"

	"inet.af/netaddr"
)

var (
	src = netaddr.MustParseIP("fe80::1")
	dst = netaddr.MustParseIP("fe80::2")
	mac = net.HardwareAddr{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
)

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	b, err := Marshal(msg, src, dst)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Parse(b, src, dst)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return got
}

func TestNeighborSolicitationRoundTrip(t *testing.T) {
	target := netaddr.MustParseIP("2001:db8::1")
	in := &NeighborSolicitation{
		TargetAddress: target,
		Options:       []Option{&LinkLayerAddress{Direction: OptionSourceLLA, Addr: mac}},
	}
	got := roundTrip(t, in).(*NeighborSolicitation)
	if got.TargetAddress != target {
		t.Fatalf("target = %v, want %v", got.TargetAddress, target)
	}
	slla, ok := FirstLinkLayerAddress(got.Options, OptionSourceLLA)
	if !ok || slla.String() != mac.String() {
		t.Fatalf("slla = %v, %v", slla, ok)
	}
}

func TestNeighborAdvertisementRoundTrip(t *testing.T) {
	target := netaddr.MustParseIP("2001:db8::1")
	in := &NeighborAdvertisement{
		Solicited:     true,
		Override:      false,
		TargetAddress: target,
		Options:       []Option{&LinkLayerAddress{Direction: OptionTargetLLA, Addr: mac}},
	}
	got := roundTrip(t, in).(*NeighborAdvertisement)
	if got.TargetAddress != target || !got.Solicited || got.Override {
		t.Fatalf("got %+v", got)
	}
	tlla, ok := FirstLinkLayerAddress(got.Options, OptionTargetLLA)
	if !ok || tlla.String() != mac.String() {
		t.Fatalf("tlla = %v, %v", tlla, ok)
	}
}

func TestRouterAdvertisementWithPrefixRoundTrip(t *testing.T) {
	prefix := net.ParseIP("2001:db8::")
	in := &RouterAdvertisement{
		CurrentHopLimit:      64,
		ManagedConfiguration: true,
		RouterLifetimeSec:    1800,
		ReachableTimeMillis:  0,
		RetransTimerMillis:   0,
		Options: []Option{
			&PrefixInformation{
				PrefixLength:                   64,
				OnLink:                         true,
				AutonomousAddressConfiguration: true,
				ValidLifetime:                  30 * time.Minute,
				PreferredLifetime:              10 * time.Minute,
				Prefix:                         prefix,
			},
		},
	}
	got := roundTrip(t, in).(*RouterAdvertisement)
	if got.CurrentHopLimit != 64 || !got.ManagedConfiguration || got.RouterLifetimeSec != 1800 {
		t.Fatalf("got %+v", got)
	}
	pis := Prefixes(got.Options)
	if len(pis) != 1 || pis[0].PrefixLength != 64 || !pis[0].AutonomousAddressConfiguration {
		t.Fatalf("prefixes = %+v", pis)
	}
	if !pis[0].Prefix.Equal(prefix) {
		t.Fatalf("prefix = %v, want %v", pis[0].Prefix, prefix)
	}
}

func TestRouterSolicitationRoundTrip(t *testing.T) {
	in := &RouterSolicitation{Options: []Option{&LinkLayerAddress{Direction: OptionSourceLLA, Addr: mac}}}
	got := roundTrip(t, in).(*RouterSolicitation)
	if slla, ok := FirstLinkLayerAddress(got.Options, OptionSourceLLA); !ok || slla.String() != mac.String() {
		t.Fatalf("slla = %v, %v", slla, ok)
	}
}

func TestEchoRoundTrip(t *testing.T) {
	data := []byte("ping")
	in := NewEchoRequest(7, 1, data)
	got := roundTrip(t, in).(*Echo)
	if got.ID != 7 || got.Seq != 1 || string(got.Data) != "ping" {
		t.Fatalf("got %+v", got)
	}
}

func TestUnknownOptionIsSkippedNotRejected(t *testing.T) {
	target := netaddr.MustParseIP("2001:db8::1")
	in := &NeighborSolicitation{TargetAddress: target}
	b, err := Marshal(in, src, dst)
	if err != nil {
		t.Fatal(err)
	}
	// Append one unknown-type, one-unit option after the NS body.
	unknown := []byte{200, 1, 0, 0, 0, 0, 0, 0}
	b = append(b, unknown...)
	// Recompute length isn't required by Parse (it trusts option length
	// fields), but checksum must cover the new bytes, so recompute it over
	// the extended packet with the same pseudo-header checksum Marshal uses.
	msg, err := Parse(mustFixChecksum(b, src, dst), src, dst)
	if err != nil {
		t.Fatalf("Parse with trailing unknown option: %v", err)
	}
	ns := msg.(*NeighborSolicitation)
	if len(ns.Options) != 0 {
		t.Fatalf("expected unknown option to be skipped, got %d options", len(ns.Options))
	}
}

func TestBadChecksumRejected(t *testing.T) {
	target := netaddr.MustParseIP("2001:db8::1")
	in := &NeighborSolicitation{TargetAddress: target}
	b, err := Marshal(in, src, dst)
	if err != nil {
		t.Fatal(err)
	}
	b[2] ^= 0xff // corrupt checksum
	if _, err := Parse(b, src, dst); err == nil {
		t.Fatal("expected checksum verification to fail")
	}
}

// mustFixChecksum recomputes and patches the checksum field in place so
// tests can append bytes after Marshal without hand-rolling the pseudo
// header math a second time.
func mustFixChecksum(b []byte, src, dst netaddr.IP) []byte {
	b[2], b[3] = 0, 0
	sum := checksum(pseudoHeader(src, dst, b))
	b[2] = byte(sum >> 8)
	b[3] = byte(sum)
	return b
}
