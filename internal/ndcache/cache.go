// Package ndcache implements the generic address -> link-layer-address cache
// shared by the IPv6 neighbor cache and the IPv4 ARP cache (spec.md §4.1).
//
// The source (PyTCP's icmp6/nd_cache.py) models this as a dict of nested
// CacheEntry objects on a class instance reachable through a process-wide
// stack handle. Design Note §9 calls for a plain struct with a hash map keyed
// by the address instead, with no inheritance - Cache is that structure,
// parameterized over the key type so the same maintenance sweep serves both
// the v6 and v4 caches (neigh6.Cache and arp4.Cache) without duplicating it.
package ndcache

import (
	"net"
	"sync"
	"time"
)

// Default timing constants carried from the source (spec.md §4.1).
const (
	DefaultMaxAge       = 60 * time.Second
	DefaultRefreshWindow = 5 * time.Second
)

type entry struct {
	linkAddr  net.HardwareAddr
	permanent bool
	createdAt time.Time
	hitCount  uint32
}

// SolicitFunc emits a solicitation for key (an ICMPv6 Neighbor Solicitation
// or an ARP Request depending on the cache). unicast is true for the
// maintenance sweep's opportunistic refresh, which targets key directly
// instead of the solicited-node/broadcast address.
type SolicitFunc[K comparable] func(key K, unicast bool)

// Config carries the tunables spec.md §6 lists as configuration the core
// reads: entry max age and refresh window. Zero values fall back to the
// spec-recommended defaults.
type Config struct {
	MaxAge        time.Duration
	RefreshWindow time.Duration
}

// Cache is the address -> MAC binding table described in spec.md §3/§4.1.
// It is safe for concurrent use; lookup and add never block (spec.md §5).
type Cache[K comparable] struct {
	mu            sync.RWMutex
	entries       map[K]*entry
	maxAge        time.Duration
	refreshWindow time.Duration
	now           func() time.Time
	solicit       SolicitFunc[K]
}

// New creates a cache. now defaults to time.Now; tests inject a fake clock.
func New[K comparable](cfg Config, now func() time.Time, solicit SolicitFunc[K]) *Cache[K] {
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	if cfg.RefreshWindow <= 0 {
		cfg.RefreshWindow = DefaultRefreshWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Cache[K]{
		entries:       make(map[K]*entry),
		maxAge:        cfg.MaxAge,
		refreshWindow: cfg.RefreshWindow,
		now:           now,
		solicit:       solicit,
	}
}

// Add unconditionally overwrites any existing entry for key (spec.md §4.1).
func (c *Cache[K]) Add(key K, linkAddr net.HardwareAddr) {
	c.mu.Lock()
	c.entries[key] = &entry{linkAddr: linkAddr, createdAt: c.now()}
	c.mu.Unlock()
}

// AddPermanent installs a statically configured neighbor that is never
// aged or refreshed by the maintenance sweep.
func (c *Cache[K]) AddPermanent(key K, linkAddr net.HardwareAddr) {
	c.mu.Lock()
	c.entries[key] = &entry{linkAddr: linkAddr, createdAt: c.now(), permanent: true}
	c.mu.Unlock()
}

// Delete removes key if present; silent on miss.
func (c *Cache[K]) Delete(key K) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Lookup returns the bound link address for key. On a miss it emits a
// solicitation and returns ok=false; callers are expected to retry or drop
// the packet (spec.md §4.1) - Lookup itself never blocks.
func (c *Cache[K]) Lookup(key K) (linkAddr net.HardwareAddr, ok bool) {
	c.mu.Lock()
	e, found := c.entries[key]
	if found {
		e.hitCount++
		linkAddr = e.linkAddr
	}
	c.mu.Unlock()

	if !found {
		if c.solicit != nil {
			c.solicit(key, false)
		}
		return nil, false
	}
	return linkAddr, true
}

// Peek returns the bound link address for key without incrementing its hit
// count or triggering a solicitation on a miss. Used by a cache's own
// solicit callback to address a unicast refresh to the link address already
// on file.
func (c *Cache[K]) Peek(key K) (linkAddr net.HardwareAddr, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, found := c.entries[key]
	if !found {
		return nil, false
	}
	return e.linkAddr, true
}

// Len returns the number of entries currently held, for diagnostics/tests.
func (c *Cache[K]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Maintain runs one maintenance sweep (spec.md §4.1): evict entries older
// than maxAge, and opportunistically refresh entries that have been used
// and are within refreshWindow of expiry. It is invoked once per second by
// the timer scheduler.
func (c *Cache[K]) Maintain() {
	now := c.now()

	// Snapshot keys first so concurrent deletes/adds during the sweep are
	// simply skipped at touch-time, never observed half-updated.
	c.mu.RLock()
	keys := make([]K, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()

	var toRefresh []K

	for _, k := range keys {
		c.mu.Lock()
		e, present := c.entries[k]
		if !present || e.permanent {
			c.mu.Unlock()
			continue
		}

		age := now.Sub(e.createdAt)
		switch {
		case age > c.maxAge:
			delete(c.entries, k)
			c.mu.Unlock()
		case age > c.maxAge-c.refreshWindow && e.hitCount > 0:
			e.hitCount = 0
			c.mu.Unlock()
			toRefresh = append(toRefresh, k)
		default:
			c.mu.Unlock()
		}
	}

	if c.solicit != nil {
		for _, k := range toRefresh {
			c.solicit(k, true)
		}
	}
}
