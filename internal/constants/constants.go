package constants

import "time"

// Default configuration constants
const (
	// DefaultBaudRate is the default serial link baud rate.
	DefaultBaudRate = 115200

	// DefaultBufferSize is the default effective receive buffer size in bytes.
	DefaultBufferSize = 4096

	// DefaultLegacyBufferSize is the default legacy (minimum) chunk buffer
	// size in bytes, used as the floor when Call clamps max_chunk_size.
	DefaultLegacyBufferSize = 64

	// DefaultEventQueueSize is the default depth of the event dispatch channel.
	DefaultEventQueueSize = 64

	// DefaultCallQueueLength is the depth of the master call queue. The
	// protocol allows at most one in-flight transfer, so this is always 1,
	// but it is kept as a named constant rather than a literal.
	DefaultCallQueueLength = 1

	// MaxNameLength is the maximum length of a block name.
	MaxNameLength = 16

	// MaxAccumulatorSize bounds a master transfer's declared payload
	// length: a trigger_response reporting more than this is treated
	// as corrupt wire data rather than a real block, and the transfer
	// falls back to idle with an alloc-error instead of attempting the
	// allocation.
	MaxAccumulatorSize = 64 * 1024 * 1024

	// TokenLength is the fixed width of a trigger or pattern token.
	TokenLength = 8
)

// Timing constants for the protocol's suspension points.
const (
	// DefaultGrabTimeout is the default timeout for Registry.Grab.
	DefaultGrabTimeout = 5 * time.Second

	// DefaultSessionTimeout is the default master/slave session timeout.
	DefaultSessionTimeout = 30 * time.Second

	// DefaultStepInterval is the default transport quiet-period used by the
	// demultiplexer to delimit a logical read batch.
	DefaultStepInterval = 10 * time.Millisecond

	// ConsumerReadTimeoutMultiple bounds how long a state-machine task waits on a
	// notification from the demultiplexer before giving up and backing off:
	// a bounded wait of twice the step interval.
	ConsumerReadTimeoutMultiple = 2
)
