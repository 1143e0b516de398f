package arp4

import "testing"

func TestEchoRoundTrip(t *testing.T) {
	raw := MarshalEcho(true, 7, 1, []byte("ping"))
	request, id, seq, data, err := ParseEcho(raw)
	if err != nil {
		t.Fatal(err)
	}
	if !request || id != 7 || seq != 1 || string(data) != "ping" {
		t.Fatalf("got request=%v id=%v seq=%v data=%q", request, id, seq, data)
	}
}

func TestEchoBadChecksumRejected(t *testing.T) {
	raw := MarshalEcho(true, 7, 1, []byte("ping"))
	raw[2] ^= 0xff
	if _, _, _, _, err := ParseEcho(raw); err == nil {
		t.Fatal("expected checksum verification to fail")
	}
}
