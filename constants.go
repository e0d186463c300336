package mtlink

import "github.com/behrlich/mtlink/internal/constants"

// Re-export defaults for public API consumers that want the package
// constants without reaching into internal/constants.
const (
	DefaultBaudRate         = constants.DefaultBaudRate
	DefaultBufferSize       = constants.DefaultBufferSize
	DefaultLegacyBufferSize = constants.DefaultLegacyBufferSize
	DefaultEventQueueSize   = constants.DefaultEventQueueSize
	DefaultCallQueueLength  = constants.DefaultCallQueueLength
	MaxNameLength           = constants.MaxNameLength
	DefaultGrabTimeout      = constants.DefaultGrabTimeout
	DefaultSessionTimeout   = constants.DefaultSessionTimeout
	DefaultStepInterval     = constants.DefaultStepInterval
)
