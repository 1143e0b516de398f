package ndstack

import (
	"sync"
	"time"
)

// Timer is the opaque periodic-callback registry scheduler spec.md §2/§6
// describes ("timer.every(period_ms, fn)"). The caches' maintenance sweeps
// are its only consumers; DAD and SLAAC waits use context deadlines
// instead. This package does not
// implement the general ~1ms-tick scheduler, only the single-priority
// every-period registration it needs.
type Timer interface {
	// Every registers fn to run every period and returns a function that
	// cancels the registration.
	Every(period time.Duration, fn func()) (cancel func())
}

// TickerTimer is a Timer backed by time.Ticker, one per registration. It is
// adequate for the cache's once-a-second sweep cadence (spec.md §4.1); a
// production stack with tighter tick granularity can supply its own Timer.
type TickerTimer struct {
	wg sync.WaitGroup
}

// NewTickerTimer creates a ready-to-use Timer.
func NewTickerTimer() *TickerTimer { return &TickerTimer{} }

func (t *TickerTimer) Every(period time.Duration, fn func()) (cancel func()) {
	stop := make(chan struct{})
	ticker := time.NewTicker(period)
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-stop:
				return
			}
		}
	}()
	return func() { close(stop) }
}

// Wait blocks until every registered callback goroutine has returned. Useful
// in tests that cancel all registrations before asserting final state.
func (t *TickerTimer) Wait() { t.wg.Wait() }
