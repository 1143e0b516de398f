package neigh6

import (
	"context"
	"testing"
	"time"

	"inet.af/netaddr"

	"github.com/irai/ndstack"
	"github.com/irai/ndstack/internal/ndcache"
	"github.com/irai/ndstack/ndwire"
)

type recordingTx struct {
	sent []ndwire.OutboundMessage
}

func (r *recordingTx) Send(_ context.Context, msg ndwire.OutboundMessage) error {
	r.sent = append(r.sent, msg)
	return nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(t *testing.T, clock *fakeClock, tx *recordingTx) *Cache {
	t.Helper()
	mac := [6]byte{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}
	reg := ndstack.NewRegistry(mac[:])
	ctx := &ndstack.Context{Registry: reg, Tx: tx, Now: clock.now}
	return New(ctx, ndcache.Config{MaxAge: 60 * time.Second, RefreshWindow: 5 * time.Second})
}

func TestColdLookupEmitsSolicitedNodeNS(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tx := &recordingTx{}
	c := newTestCache(t, clock, tx)

	target := netaddr.MustParseIP("2001:db8::1")
	if _, ok := c.Lookup(target); ok {
		t.Fatal("expected miss")
	}

	if len(tx.sent) != 1 {
		t.Fatalf("expected exactly one NS, got %d", len(tx.sent))
	}
	ns, ok := tx.sent[0].(ndwire.NeighborSolicitationOut)
	if !ok {
		t.Fatalf("expected NeighborSolicitationOut, got %T", tx.sent[0])
	}
	wantDst := ndstack.SolicitedNodeMulticast(target)
	if ns.Dst != wantDst {
		t.Fatalf("dst = %v, want %v", ns.Dst, wantDst)
	}
	if ns.Target != target {
		t.Fatalf("target = %v, want %v", ns.Target, target)
	}
	if ns.HopLimit != 255 {
		t.Fatalf("hop limit = %d, want 255", ns.HopLimit)
	}
	if ns.SLLA == nil {
		t.Fatal("expected SLLA set to stack MAC")
	}
	if ns.Src != netaddr.MustParseIP("::") {
		t.Fatalf("src = %v, want unspecified (no matching host network)", ns.Src)
	}
}

func TestSourceSelectionUsesMatchingHostNetwork(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tx := &recordingTx{}
	c := newTestCache(t, clock, tx)

	hostAddr := netaddr.MustParseIP("2001:db8::129")
	network := netaddr.MustParseIPPrefix("2001:db8::/64")
	c.ctx.Registry.AddHost(ndstack.HostAddress{Address: hostAddr, Network: network})

	target := netaddr.MustParseIP("2001:db8::1")
	c.Lookup(target)

	ns := tx.sent[0].(ndwire.NeighborSolicitationOut)
	if ns.Src != hostAddr {
		t.Fatalf("src = %v, want %v", ns.Src, hostAddr)
	}
}

func TestNAPopulatesCacheAndSubsequentLookupHits(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tx := &recordingTx{}
	c := newTestCache(t, clock, tx)

	target := netaddr.MustParseIP("2001:db8::1")
	mac := [6]byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff}
	c.Add(target, mac)

	got, ok := c.Lookup(target)
	if !ok || got != mac {
		t.Fatalf("lookup = %v, %v, want %v, true", got, ok, mac)
	}
	if len(tx.sent) != 0 {
		t.Fatalf("expected no NS on a hit, got %d", len(tx.sent))
	}
}

func TestRefreshSolicitIsUnicastToTarget(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	tx := &recordingTx{}
	c := newTestCache(t, clock, tx)

	target := netaddr.MustParseIP("2001:db8::1")
	mac := [6]byte{1, 2, 3, 4, 5, 6}
	c.Add(target, mac)
	c.Lookup(target) // hit_count = 1

	clock.advance(56 * time.Second)
	c.engine.Maintain()

	if len(tx.sent) != 1 {
		t.Fatalf("expected one refresh NS, got %d", len(tx.sent))
	}
	ns := tx.sent[0].(ndwire.NeighborSolicitationOut)
	if ns.Dst != target {
		t.Fatalf("refresh dst = %v, want unicast to target %v", ns.Dst, target)
	}
}
