package ndproto

import (
	"context"
	"net"
	"testing"
	"time"

	"inet.af/netaddr"

	"github.com/irai/ndstack/ndwire"
)

func TestSLAACInstallsEUI64AddressAfterRA(t *testing.T) {
	tx := &recordingTx{}
	cache := newFakeCache()
	h, reg := newTestHandler(tx, cache)

	go func() {
		waitForCondition(t, func() bool { return tx.len() == 1 }) // router solicitation sent
		ra := &ndwire.RouterAdvertisement{
			Options: []ndwire.Option{
				&ndwire.PrefixInformation{
					PrefixLength:                   64,
					AutonomousAddressConfiguration: true,
					Prefix:                         net.ParseIP("2001:db8::"),
				},
			},
		}
		routerIP := netaddr.MustParseIP("fe80::face")
		if err := h.handleRA(routerIP, ra); err != nil {
			t.Errorf("handleRA: %v", err)
		}
	}()

	resultCh := make(chan SlaacResult, 1)
	go func() {
		resultCh <- h.RunSLAAC(context.Background(), time.Second, 30*time.Millisecond)
	}()

	result := <-resultCh
	if result.NoRouter {
		t.Fatal("expected a router to answer")
	}
	if len(result.Installed) != 1 {
		t.Fatalf("expected one installed address, got %d: %+v", len(result.Installed), result.Installed)
	}
	if !reg.IsUnicast(result.Installed[0]) {
		t.Fatalf("installed address %v not present in registry", result.Installed[0])
	}
}

func TestSLAACNoRouterTimesOut(t *testing.T) {
	tx := &recordingTx{}
	cache := newFakeCache()
	h, _ := newTestHandler(tx, cache)

	result := h.RunSLAAC(context.Background(), 30*time.Millisecond, 30*time.Millisecond)
	if !result.NoRouter {
		t.Fatalf("got %+v, want NoRouter=true", result)
	}
	if len(result.Installed) != 0 {
		t.Fatalf("expected no installed addresses, got %d", len(result.Installed))
	}
}
