// Package pipe provides an in-process Transport backed by net.Pipe,
// used by the demo CLI and integration tests to run two Links against
// each other without real hardware.
package pipe

import (
	"net"

	"github.com/behrlich/mtlink/transport"
)

// New returns two connected Transports, each the peer's endpoint.
func New() (transport.Transport, transport.Transport) {
	a, b := net.Pipe()
	return a, b
}
