// Package neigh6 is the IPv6 Neighbor Discovery cache of spec.md §4.1,
// wrapping the generic internal/ndcache engine with the v6-specific
// solicitation: an ICMPv6 Neighbor Solicitation addressed to the target's
// solicited-node multicast group (cold miss) or unicast to the target
// itself (opportunistic refresh).
package neigh6

import (
	"context"
	"time"

	"inet.af/netaddr"

	"github.com/irai/ndstack"
	"github.com/irai/ndstack/internal/fastlog"
	"github.com/irai/ndstack/internal/ndcache"
	"github.com/irai/ndstack/ndwire"
)

const module = "neigh6"

var unspecified = netaddr.MustParseIP("::")

// Cache is the IPv6 neighbor cache bound to a stack Context.
type Cache struct {
	engine *ndcache.Cache[netaddr.IP]
	ctx    *ndstack.Context
	cancel func()
}

// New creates the cache and registers its once-a-second maintenance sweep
// with ctx.Timer (spec.md §4.1).
func New(ctx *ndstack.Context, cfg ndcache.Config) *Cache {
	c := &Cache{ctx: ctx}
	c.engine = ndcache.New[netaddr.IP](cfg, ctx.Now, c.solicit)
	if ctx.Timer != nil {
		c.cancel = ctx.Timer.Every(time.Second, c.engine.Maintain)
	}
	return c
}

// Close cancels the maintenance sweep registration.
func (c *Cache) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Add unconditionally (re)binds key to linkAddr (spec.md §4.1).
func (c *Cache) Add(key netaddr.IP, linkAddr [6]byte) { c.engine.Add(key, hwFrom(linkAddr)) }

// AddPermanent installs a statically configured neighbor.
func (c *Cache) AddPermanent(key netaddr.IP, linkAddr [6]byte) {
	c.engine.AddPermanent(key, hwFrom(linkAddr))
}

// Delete removes key if present.
func (c *Cache) Delete(key netaddr.IP) { c.engine.Delete(key) }

// Lookup resolves key. A miss emits a Neighbor Solicitation and returns
// ok=false (spec.md §4.1); it never blocks.
func (c *Cache) Lookup(key netaddr.IP) (mac [6]byte, ok bool) {
	addr, found := c.engine.Lookup(key)
	if !found {
		return [6]byte{}, false
	}
	copy(mac[:], addr)
	return mac, true
}

// Len reports the current entry count.
func (c *Cache) Len() int { return c.engine.Len() }

func hwFrom(b [6]byte) []byte { return append([]byte(nil), b[:]...) }

// solicit emits the Neighbor Solicitation for a miss or refresh. Source
// address selection: the registry's longest-prefix-matching host network,
// else the unspecified address (spec.md §4.1).
func (c *Cache) solicit(target netaddr.IP, unicast bool) {
	src, ok := c.ctx.Registry.SourceFor(target)
	if !ok {
		src = unspecified
	}

	dst := target
	if !unicast {
		dst = ndstack.SolicitedNodeMulticast(target)
	}

	msg := ndwire.NeighborSolicitationOut{
		Common: ndwire.Common{Src: src, Dst: dst, HopLimit: 255},
		Target: target,
		SLLA:   c.ctx.Registry.PrimaryMAC(),
	}

	if c.ctx.Tx == nil {
		return
	}
	if err := c.ctx.Tx.Send(context.Background(), msg); err != nil {
		fastlog.NewLine(module, "failed to send neighbor solicitation").Error(err).Write()
	}
}
