package arp4

import (
	"context"
	"time"

	"inet.af/netaddr"

	"github.com/irai/ndstack"
	"github.com/irai/ndstack/internal/fastlog"
	"github.com/irai/ndstack/internal/ndcache"
)

const module = "arp4"

var unspecifiedV4 = netaddr.MustParseIP("0.0.0.0")

// Cache is the IPv4 ARP cache bound to a stack Registry, Timer and
// Dispatcher, sharing the generic maintenance engine with neigh6.Cache
// (spec.md §3's "ArpEntry ... identical shape" observation).
type Cache struct {
	engine   *ndcache.Cache[netaddr.IP]
	registry *ndstack.Registry
	tx       Dispatcher
	cancel   func()
}

// New creates the cache and, if timer is non-nil, registers its
// once-a-second maintenance sweep.
func New(registry *ndstack.Registry, tx Dispatcher, timer ndstack.Timer, now func() time.Time, cfg ndcache.Config) *Cache {
	c := &Cache{registry: registry, tx: tx}
	c.engine = ndcache.New[netaddr.IP](cfg, now, c.solicit)
	if timer != nil {
		c.cancel = timer.Every(time.Second, c.engine.Maintain)
	}
	return c
}

// Close cancels the maintenance sweep registration.
func (c *Cache) Close() {
	if c.cancel != nil {
		c.cancel()
	}
}

// Add unconditionally (re)binds key to linkAddr.
func (c *Cache) Add(key netaddr.IP, linkAddr [6]byte) { c.engine.Add(key, hwFrom(linkAddr)) }

// AddPermanent installs a statically configured neighbor (e.g. the default
// gateway).
func (c *Cache) AddPermanent(key netaddr.IP, linkAddr [6]byte) {
	c.engine.AddPermanent(key, hwFrom(linkAddr))
}

// Delete removes key if present.
func (c *Cache) Delete(key netaddr.IP) { c.engine.Delete(key) }

// Lookup resolves key. A miss emits an ARP request and returns ok=false; it
// never blocks (spec.md §4.1).
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

// solicit emits the ARP request for a miss (broadcast) or refresh (unicast
// to the already-known link address).
func (c *Cache) solicit(target netaddr.IP, unicast bool) {
	src, ok := c.registry.SourceFor(target)
	if !ok {
		src = unspecifiedV4
	}

	dstMAC := EthernetBroadcast
	if unicast {
		if mac, found := c.engine.Peek(target); found {
			dstMAC = mac
		}
	}

	msg := RequestOut{
		SenderMAC: c.registry.PrimaryMAC(),
		SenderIP:  src,
		DstMAC:    dstMAC,
		TargetIP:  target,
	}

	if c.tx == nil {
		return
	}
	if err := c.tx.Send(context.Background(), msg); err != nil {
		fastlog.NewLine(module, "failed to send arp request").Error(err).Write()
	}
}
