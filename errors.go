package ndstack

import "errors"

// Error kinds from spec.md §7. Wire-format and policy errors are recovered
// locally by the caller (logged, counted, packet dropped); resolution
// failures and timeouts are surfaced as typed results, never panics.
var (
	// ErrWireFormat marks a truncated header, bad checksum, or invalid
	// option length.
	ErrWireFormat = errors.New("ndstack: wire format error")

	// ErrPolicyDrop marks a packet that parsed fine but that policy says
	// to drop: not addressed to us, a hop-limit violation, a SLLA option
	// paired with an unspecified source, etc.
	ErrPolicyDrop = errors.New("ndstack: policy drop")

	// ErrUnresolved names a cache lookup miss. The caches' Lookup methods
	// report a miss as ok=false rather than returning this error.
	ErrUnresolved = errors.New("ndstack: address unresolved")

	// ErrTimeout marks a DAD/RA wait that ran out its mandatory timeout.
	ErrTimeout = errors.New("ndstack: timeout")

	// ErrCollision marks a DAD attempt signalled by a matching NA.
	ErrCollision = errors.New("ndstack: duplicate address detected")

	// ErrNotFound names a host-registry lookup that finds nothing matching.
	// Registry methods report that case with a false bool rather than
	// returning this error.
	ErrNotFound = errors.New("ndstack: not found")
)
