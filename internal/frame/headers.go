// Package frame implements the four 4-byte wire header shapes of the
// chunked-transfer protocol plus their CRC-8 validation and
// the CRC-32 payload trailer.
package frame

import "github.com/behrlich/mtlink/internal/crc"

// TokenLength is the fixed width of a trigger or pattern token.
const TokenLength = 8

// Token is an 8-byte trigger or pattern prefix.
type Token [TokenLength]byte

// NewToken builds a Token from s, zero-padding or truncating to
// TokenLength bytes.
func NewToken(s string) Token {
	var t Token
	copy(t[:], s)
	return t
}

func (t Token) String() string {
	n := len(t)
	for n > 0 && t[n-1] == 0 {
		n--
	}
	return string(t[:n])
}

// resendSentinel is reserved by the master side to mean "do not
// transmit a request this cycle"; it is never placed on the wire by
// this implementation.
const resendSentinel = 0xFF

// ChunkRequest is the master→slave header: requests the next
// chunk, acknowledges the previous one, or asks for a retransmit.
type ChunkRequest struct {
	MaxSize uint16 // maximum payload the sender will accept next
	Resend  uint8  // 0 = advance, nonzero = retransmit last chunk
}

// Marshal encodes h into its 4-byte wire form, computing and storing
// the header CRC-8 in byte 3. It panics if Resend is the
// sender-internal-only sentinel 0xFF, which must never reach the wire.
func (h ChunkRequest) Marshal() [4]byte {
	if h.Resend == resendSentinel {
		panic("frame: ChunkRequest.Resend == 0xFF is sender-internal only, not a wire value")
	}
	var b [4]byte
	b[0] = byte(h.MaxSize)
	b[1] = byte(h.MaxSize >> 8)
	b[2] = h.Resend
	b[3] = crc.CRC8(b[:3])
	return b
}

// UnmarshalChunkRequest decodes b into a ChunkRequest. ok is false if
// the header CRC-8 does not validate; in that case no field of the
// returned value should be trusted.
func UnmarshalChunkRequest(b [4]byte) (h ChunkRequest, ok bool) {
	if crc.CRC8(b[:3]) != b[3] {
		return ChunkRequest{}, false
	}
	h.MaxSize = uint16(b[0]) | uint16(b[1])<<8
	h.Resend = b[2]
	return h, true
}

// ChunkResponse is the slave→master header: precedes Size
// payload bytes and a trailing 4-byte big-endian CRC-32.
type ChunkResponse struct {
	Size  uint16 // payload length following this header
	Count uint8  // chunk sequence number
}

func (h ChunkResponse) Marshal() [4]byte {
	var b [4]byte
	b[0] = byte(h.Size)
	b[1] = byte(h.Size >> 8)
	b[2] = h.Count
	b[3] = crc.CRC8(b[:3])
	return b
}

func UnmarshalChunkResponse(b [4]byte) (h ChunkResponse, ok bool) {
	if crc.CRC8(b[:3]) != b[3] {
		return ChunkResponse{}, false
	}
	h.Size = uint16(b[0]) | uint16(b[1])<<8
	h.Count = b[2]
	return h, true
}

// TriggerResponse is the slave→master answer to the opening handshake:
// it advertises the block's current length.
type TriggerResponse struct {
	PayloadLength uint32 // u24 on the wire; always < 1<<24
}

const maxPayloadLength = 1<<24 - 1

func (h TriggerResponse) Marshal() [4]byte {
	if h.PayloadLength > maxPayloadLength {
		panic("frame: TriggerResponse.PayloadLength exceeds 24 bits")
	}
	var b [4]byte
	b[0] = byte(h.PayloadLength)
	b[1] = byte(h.PayloadLength >> 8)
	b[2] = byte(h.PayloadLength >> 16)
	b[3] = crc.CRC8(b[:3])
	return b
}

func UnmarshalTriggerResponse(b [4]byte) (h TriggerResponse, ok bool) {
	if crc.CRC8(b[:3]) != b[3] {
		return TriggerResponse{}, false
	}
	h.PayloadLength = uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	return h, true
}

// VerifyHeaderCRC8 reports whether the CRC-8 in byte 3 of a raw
// 4-byte header matches the computed CRC-8 of bytes 0..2.
func VerifyHeaderCRC8(b [4]byte) bool {
	return crc.CRC8(b[:3]) == b[3]
}

// PayloadCRC32 computes the big-endian 4-byte CRC-32 trailer for a
// chunk's payload bytes.
func PayloadCRC32(payload []byte) [4]byte {
	sum := crc.CRC32(payload)
	var b [4]byte
	b[0] = byte(sum >> 24)
	b[1] = byte(sum >> 16)
	b[2] = byte(sum >> 8)
	b[3] = byte(sum)
	return b
}

// VerifyPayloadCRC32 reports whether trailer matches the CRC-32 of payload.
func VerifyPayloadCRC32(payload []byte, trailer [4]byte) bool {
	return PayloadCRC32(payload) == trailer
}
