package ndcache

import (
	"net"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func mac(b byte) net.HardwareAddr { return net.HardwareAddr{0, 0, 0, 0, 0, b} }

func TestColdLookupSolicits(t *testing.T) {
	var solicited []string
	c := New[string](Config{}, nil, func(key string, unicast bool) {
		solicited = append(solicited, key)
		if unicast {
			t.Errorf("cold miss must not be a unicast refresh solicit")
		}
	})

	if _, ok := c.Lookup("2001:db8::1"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if len(solicited) != 1 || solicited[0] != "2001:db8::1" {
		t.Fatalf("expected exactly one solicitation, got %v", solicited)
	}
	if c.Len() != 0 {
		t.Fatal("a miss must not create an entry")
	}
}

func TestAddThenLookupHits(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := New[string](Config{}, clock.now, nil)

	c.Add("2001:db8::1", mac(1))

	got, ok := c.Lookup("2001:db8::1")
	if !ok || got.String() != mac(1).String() {
		t.Fatalf("lookup after add = %v, %v", got, ok)
	}
}

func TestHitCountIncrementsByOne(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := New[string](Config{}, clock.now, nil)
	c.Add("k", mac(1))

	c.Lookup("k")
	c.Lookup("k")

	c.mu.RLock()
	got := c.entries["k"].hitCount
	c.mu.RUnlock()
	if got != 2 {
		t.Fatalf("hit count = %d, want 2", got)
	}
}

func TestRefreshWindowThenExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	var refreshed, evicted int
	c := New[string](Config{MaxAge: 60 * time.Second, RefreshWindow: 5 * time.Second}, clock.now, func(key string, unicast bool) {
		if unicast {
			refreshed++
		}
	})

	c.Add("k", mac(1))

	clock.advance(30 * time.Second)
	c.Lookup("k") // hit_count = 1

	clock.advance(26 * time.Second) // t = 56
	c.Maintain()
	if refreshed != 1 {
		t.Fatalf("expected one refresh solicit at t=56, got %d", refreshed)
	}
	if c.Len() != 1 {
		t.Fatal("entry must still be present after refresh solicit")
	}

	c.mu.RLock()
	hc := c.entries["k"].hitCount
	c.mu.RUnlock()
	if hc != 0 {
		t.Fatalf("hit count must reset to 0 after refresh, got %d", hc)
	}

	clock.advance(5 * time.Second) // t = 61
	c.Maintain()
	if c.Len() != 0 {
		t.Fatal("entry must be evicted once age exceeds MaxAge")
	}
	_ = evicted
}

func TestPermanentEntryNeverExpires(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	solicits := 0
	c := New[string](Config{MaxAge: 60 * time.Second, RefreshWindow: 5 * time.Second}, clock.now, func(key string, unicast bool) {
		solicits++
	})

	c.AddPermanent("k", mac(9))
	c.Lookup("k") // ensure hit_count > 0, which would otherwise arm a refresh

	for i := 0; i < 10; i++ {
		clock.advance(60 * time.Second)
		c.Maintain()
	}

	if c.Len() != 1 {
		t.Fatal("permanent entry must survive repeated sweeps")
	}
	if solicits != 0 {
		t.Fatalf("permanent entry must never trigger a refresh solicit, got %d", solicits)
	}
}

func TestDeleteIsSilentOnMiss(t *testing.T) {
	c := New[string](Config{}, nil, nil)
	c.Delete("missing") // must not panic
}
