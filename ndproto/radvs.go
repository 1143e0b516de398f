package ndproto

import (
	"sync"
	"time"

	"inet.af/netaddr"

	"github.com/irai/ndstack"
	"github.com/irai/ndstack/internal/fastlog"
	"github.com/irai/ndstack/ndwire"
)

// RouterConfig is the static set of parameters a RADVS responder advertises
// - grounded in the teacher's icmp6/radv.go Router type, trimmed to the
// fields a test harness configures rather than learns from the wire.
type RouterConfig struct {
	Src                  netaddr.IP // the router's own link-local address
	ManagedConfiguration bool
	OtherConfiguration   bool
	RouterLifetimeSec    uint16
	ReachableTimeMillis  uint32
	RetransTimerMillis   uint32
	MTU                  uint32
	Prefixes             []*ndwire.PrefixInformation
}

// RADVS is a disabled-by-default, test-only Router Advertisement responder
// (SPEC_FULL.md §4.4 expansion): it lets a SLAAC driver test run end to end
// against a configured router without a real one on the wire. Production
// code never starts one - router election remains out of scope (spec.md §1).
type RADVS struct {
	handler *Handler
	cfg     RouterConfig

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartRADVS begins periodically advertising cfg on the all-nodes
// multicast group, grounded in the teacher's startRADVS/sendAdvertistementLoop.
func StartRADVS(h *Handler, cfg RouterConfig) *RADVS {
	r := &RADVS{handler: h, cfg: cfg, stop: make(chan struct{}), done: make(chan struct{})}
	go r.loop()
	return r
}

// Stop ends the advertisement loop. Idempotent.
func (r *RADVS) Stop() {
	r.once.Do(func() { close(r.stop) })
	<-r.done
}

// SendOnce emits a single Router Advertisement immediately.
func (r *RADVS) SendOnce() error {
	out := ndwire.RouterAdvertisementOut{
		Common:               ndwire.Common{Src: r.cfg.Src, Dst: ndstack.AllNodesMulticast, HopLimit: 255},
		ManagedConfiguration: r.cfg.ManagedConfiguration,
		OtherConfiguration:   r.cfg.OtherConfiguration,
		RouterLifetimeSec:    r.cfg.RouterLifetimeSec,
		ReachableTimeMillis:  r.cfg.ReachableTimeMillis,
		RetransTimerMillis:   r.cfg.RetransTimerMillis,
		MTU:                  r.cfg.MTU,
		Prefixes:             r.cfg.Prefixes,
		SLLA:                 r.handler.ctx.Registry.PrimaryMAC(),
	}
	return r.handler.send(out)
}

func (r *RADVS) loop() {
	defer close(r.done)

	period := time.Duration(r.cfg.RetransTimerMillis) * time.Millisecond
	if period <= 0 {
		period = 10 * time.Second
	}

	if err := r.SendOnce(); err != nil {
		fastlog.NewLine(module, "radvs: failed to send initial advertisement").Error(err).Write()
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			if err := r.SendOnce(); err != nil {
				fastlog.NewLine(module, "radvs: failed to send advertisement").Error(err).Write()
			}
		}
	}
}
