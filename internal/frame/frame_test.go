package frame

import (
	"testing"

	"github.com/behrlich/mtlink/internal/crc"
)

func TestChunkRequestRoundTrip(t *testing.T) {
	h := ChunkRequest{MaxSize: 4096, Resend: 0}
	b := h.Marshal()
	got, ok := UnmarshalChunkRequest(b)
	if !ok {
		t.Fatal("expected valid CRC-8")
	}
	if got != h {
		t.Errorf("got %+v, want %+v", got, h)
	}
}

func TestChunkRequestRejectsSentinelOnEncode(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic encoding resend=0xFF")
		}
	}()
	ChunkRequest{MaxSize: 1, Resend: 0xFF}.Marshal()
}

func TestChunkRequestNonzeroResendDecodesAsRetransmit(t *testing.T) {
	// A received 0xFF is ordinary nonzero resend, not wire-illegal —
	// only encoding it via Marshal is forbidden. A peer sending a
	// non-conformant frame is still parsed correctly.
	var b [4]byte
	b[0], b[1] = 32, 0
	b[2] = 0xFF
	b[3] = crc.CRC8(b[:3])

	got, ok := UnmarshalChunkRequest(b)
	if !ok {
		t.Fatal("expected header to validate")
	}
	if got.Resend != 0xFF {
		t.Errorf("resend = %#x, want 0xFF", got.Resend)
	}
}

func TestChunkRequestInvalidCRCRejected(t *testing.T) {
	b := ChunkRequest{MaxSize: 10, Resend: 0}.Marshal()
	b[3] ^= 0xFF // corrupt CRC-8
	_, ok := UnmarshalChunkRequest(b)
	if ok {
		t.Fatal("expected corrupted header to fail CRC-8 validation")
	}
}

func TestChunkResponseRoundTrip(t *testing.T) {
	h := ChunkResponse{Size: 32, Count: 7}
	b := h.Marshal()
	got, ok := UnmarshalChunkResponse(b)
	if !ok || got != h {
		t.Fatalf("got %+v ok=%v, want %+v", got, ok, h)
	}
}

func TestTriggerResponseRoundTrip(t *testing.T) {
	h := TriggerResponse{PayloadLength: 100}
	b := h.Marshal()
	got, ok := UnmarshalTriggerResponse(b)
	if !ok || got != h {
		t.Fatalf("got %+v ok=%v, want %+v", got, ok, h)
	}
}

func TestTriggerResponsePanicsOverflow(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for payload length > 24 bits")
		}
	}()
	TriggerResponse{PayloadLength: 1 << 24}.Marshal()
}

func TestPayloadCRC32RoundTrip(t *testing.T) {
	payload := []byte("the quick brown fox")
	trailer := PayloadCRC32(payload)
	if !VerifyPayloadCRC32(payload, trailer) {
		t.Fatal("expected payload to verify against its own trailer")
	}
	payload[0] ^= 0xFF
	if VerifyPayloadCRC32(payload, trailer) {
		t.Fatal("expected corrupted payload to fail verification")
	}
}

func TestTokenStringTrimsTrailingZeroes(t *testing.T) {
	tok := NewToken("imgt")
	if tok.String() != "imgt" {
		t.Errorf("got %q, want %q", tok.String(), "imgt")
	}
	if len(tok) != TokenLength {
		t.Errorf("token length = %d, want %d", len(tok), TokenLength)
	}
}
