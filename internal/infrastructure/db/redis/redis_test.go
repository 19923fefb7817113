package redis

import (
	"testing"

	"github.com/nearhelp/sos-engine/internal/infrastructure/realtime"
)

func TestConfigOptions_DefaultTimeout(t *testing.T) {
	opts := Config{Addr: "localhost:6379", ClientName: "sos-engine@n1"}.options()
	if opts.DialTimeout != defaultTimeout || opts.ReadTimeout != defaultTimeout {
		t.Fatalf("expected default timeouts, got %v/%v", opts.DialTimeout, opts.ReadTimeout)
	}
	if opts.ClientName != "sos-engine@n1" {
		t.Fatalf("unexpected client name %q", opts.ClientName)
	}
}

func TestGuidanceKey(t *testing.T) {
	if got := guidanceKey("inc-42"); got != "guidance:inc-42" {
		t.Fatalf("unexpected key: %s", got)
	}
}

func TestRelayCodec(t *testing.T) {
	in := realtime.RelayMessage{Origin: "node-a", Room: "incident:1", Frame: []byte(`{"event":"chat-message","data":{}}`)}
	b, err := encodeRelay(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeRelay(string(b))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Origin != in.Origin || out.Room != in.Room || string(out.Frame) != string(in.Frame) {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

func TestRelayCodec_RejectsIncomplete(t *testing.T) {
	if _, err := decodeRelay(`{"room":"incident:1"}`); err == nil {
		t.Fatal("expected error for message without origin")
	}
	if _, err := decodeRelay(`not json`); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}
