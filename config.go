package mtlink

import (
	"time"

	"github.com/behrlich/mtlink/internal/constants"
)

// Config carries the tunables a Link needs: transport identification
// for a real serial port (meaningful only to transport/serial; opaque
// to transport/pipe and any other Transport implementation) plus the
// buffer sizes and timing knobs the protocol state machines use.
type Config struct {
	Port     string // serial device path, e.g. "/dev/ttyUSB0"
	BaudRate int

	BufferSize       int // effective receive buffer size in bytes
	LegacyBufferSize int // floor Call clamps max_chunk_size to

	GrabTimeout    time.Duration // Registry.Grab timeout
	SessionTimeout time.Duration // master/slave session timeout
	StepInterval   time.Duration // demultiplexer quiet-period

	EventQueueSize  int
	CallQueueLength int
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		BaudRate:         constants.DefaultBaudRate,
		BufferSize:       constants.DefaultBufferSize,
		LegacyBufferSize: constants.DefaultLegacyBufferSize,
		GrabTimeout:      constants.DefaultGrabTimeout,
		SessionTimeout:   constants.DefaultSessionTimeout,
		StepInterval:     constants.DefaultStepInterval,
		EventQueueSize:   constants.DefaultEventQueueSize,
		CallQueueLength:  constants.DefaultCallQueueLength,
	}
}
