package ndstack

import (
	"time"

	"github.com/irai/ndstack/ndwire"
)

// Context is the small dependency-injection handle spec.md's Design Note §9
// prescribes in place of the source's process-wide `stack` handle: "the
// cache receives a small Context { host_registry, tx, timer, now_fn } handle
// at construction. The handle is the only outward reference; this breaks
// the cache <-> packet_handler <-> cache cycle."
type Context struct {
	Registry *Registry
	Tx       ndwire.Dispatcher
	Timer    Timer
	// Now defaults to time.Now; tests inject a fake clock so cache aging
	// and DAD/RA timeouts are deterministic.
	Now func() time.Time
}

// now returns c.Now if set, else time.Now, so a nil Context.Now never
// panics when read through it. Packages outside ndstack read c.Now
// directly (neigh6 hands it to ndcache.New, which substitutes time.Now
// for nil).
func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
