package ndproto

import (
	"context"
	"time"

	"inet.af/netaddr"

	"github.com/irai/ndstack"
	"github.com/irai/ndstack/internal/fastlog"
	"github.com/irai/ndstack/internal/onceevent"
	"github.com/irai/ndstack/ndwire"
)

// DefaultDADTimeout is the "typically 1 s" wait spec.md §4.3 names.
const DefaultDADTimeout = time.Second

// naSignal is what an NA correlated to an in-flight DAD attempt carries:
// the TLLA if the NA came with one (spec.md's DadState.result_tlla), and
// whether it arrived at all before the timeout.
type naSignal struct {
	tlla      []byte // nil if none carried
	collision bool
}

// dadState tracks the single in-flight DAD attempt (spec.md §3's DadState;
// "one-shot; create-per-attempt; no reuse" per §5).
type dadState struct {
	candidate netaddr.IP
	event     *onceevent.Event[naSignal]
}

// DADResult is the outcome of one attempt (spec.md §6's
// `slaac.attempt(host) -> {ok, duplicate, timeout}`, scoped to just DAD).
type DADResult struct {
	Duplicate bool
	TimedOut  bool
}

// RunDAD implements spec.md §4.3: register candidate, emit the DAD probe
// NS, wait for collision or timeout. On success (TimedOut, no collision)
// the candidate is left registered; the caller promotes it with
// Registry.PromoteCandidate once it knows the network/gateway to install
// it under. On collision the candidate slot is cleared here - the address
// is abandoned, never installed.
func (h *Handler) RunDAD(ctx context.Context, candidate netaddr.IP, timeout time.Duration) DADResult {
	if timeout <= 0 {
		timeout = DefaultDADTimeout
	}

	h.ctx.Registry.SetCandidate(candidate)

	ev := onceevent.New[naSignal]()
	h.mu.Lock()
	h.dad = &dadState{candidate: candidate, event: ev}
	h.mu.Unlock()

	out := ndwire.NeighborSolicitationOut{
		Common: ndwire.Common{Src: unspecified, Dst: ndstack.SolicitedNodeMulticast(candidate), HopLimit: 255},
		Target: candidate,
	}
	if err := h.send(out); err != nil {
		fastlog.NewLine(module, "dad: failed to send probe").IPAddr("candidate", candidate).Error(err).Write()
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	sig, released := ev.Wait(waitCtx)

	h.mu.Lock()
	h.dad = nil
	h.mu.Unlock()

	if !released || !sig.collision {
		return DADResult{TimedOut: !released}
	}
	h.ctx.Registry.ClearCandidate()
	return DADResult{Duplicate: true}
}

// dadMatches reports whether target is the address currently under DAD.
func (h *Handler) dadMatches(target netaddr.IP) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dad != nil && h.dad.candidate == target
}

// dadSignal releases the in-flight DAD event, if any (called from NA
// handling in handler.go).
func (h *Handler) dadSignal(tlla []byte, collision bool) {
	h.mu.Lock()
	d := h.dad
	h.mu.Unlock()
	if d == nil {
		return
	}
	d.event.Release(naSignal{tlla: tlla, collision: collision})
}
