package protocol

import (
	"github.com/behrlich/mtlink/internal/frame"
	"github.com/behrlich/mtlink/internal/interfaces"
)

// writeFrame writes token followed by a 4-byte header as a single
// Write call.
func writeFrame(t interfaces.Transport, token frame.Token, header [4]byte) {
	buf := make([]byte, 0, 12)
	buf = append(buf, token[:]...)
	buf = append(buf, header[:]...)
	t.Write(buf)
}
