// Package transport defines the abstract byte-stream boundary the link
// protocol runs over: a full-duplex channel yielding and
// accepting opaque byte sequences, with exactly one legal reader.
package transport

import "github.com/behrlich/mtlink/internal/interfaces"

// Transport is the abstract full-duplex byte stream a Link runs over.
// Concrete implementations live in transport/serial (a real UART) and
// transport/pipe (an in-process net.Pipe, used for tests and the demo
// CLI).
type Transport = interfaces.Transport
