// Package sockets is the minimal UDP socket pattern-lookup registry the
// ICMPv6 Destination Unreachable handler needs (spec.md §4.2). The actual
// socket layer is out of scope for this repository (spec.md §1); this is
// just enough surface for "notify any matching UDP socket via the socket
// registry's pattern-lookup" to have somewhere to land.
//
// Grounded in the original source's `stack.sockets.get(socket_pattern)`
// lookup (icmp6/phrx.py), re-architected as an explicit registry instead of
// reaching through a process-wide stack handle (Design Note §9).
package sockets

import (
	"fmt"
	"sync"

	"inet.af/netaddr"
)

// Endpoint identifies one side of a UDP association.
type Endpoint struct {
	IP   netaddr.IP
	Port uint16
}

// UDPSocket is notified when an ICMPv6 Destination Unreachable arrives for
// the datagram it sent.
type UDPSocket interface {
	NotifyUnreachable()
}

// Key is a fully-specified 4-tuple a socket is registered under.
type Key struct {
	Local  Endpoint
	Remote Endpoint
}

// Registry maps socket keys to sockets, and resolves an inbound Unreachable
// 4-tuple against progressively less specific patterns: exact match first,
// then wildcard remote port, then wildcard remote endpoint entirely -
// mirroring a BSD-socket "most specific match wins" bind/connect lookup.
type Registry struct {
	mu      sync.RWMutex
	sockets map[Key]UDPSocket
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{sockets: make(map[Key]UDPSocket)}
}

// Register binds sock under key, overwriting any prior registration.
func (r *Registry) Register(key Key, sock UDPSocket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sockets[key] = sock
}

// Unregister removes key if present.
func (r *Registry) Unregister(key Key) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sockets, key)
}

// patterns returns key's lookup candidates from most to least specific:
// the exact 4-tuple, then with the remote port wildcarded, then with the
// whole remote endpoint wildcarded (a listening socket with no fixed peer).
func (k Key) patterns() []Key {
	wildEndpoint := Endpoint{}
	return []Key{
		k,
		{Local: k.Local, Remote: Endpoint{IP: k.Remote.IP}},
		{Local: k.Local, Remote: wildEndpoint},
	}
}

// Notify looks up key via patterns() and calls NotifyUnreachable on the
// first match, returning whether one was found.
func (r *Registry) Notify(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, pattern := range key.patterns() {
		if sock, ok := r.sockets[pattern]; ok {
			sock.NotifyUnreachable()
			return true
		}
	}
	return false
}

func (k Key) String() string {
	return fmt.Sprintf("local=%s:%d remote=%s:%d", k.Local.IP, k.Local.Port, k.Remote.IP, k.Remote.Port)
}
