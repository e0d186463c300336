// Package serial implements the real UART Transport for the link
// protocol. The termios-based implementation is Linux-only
// (serial_linux.go); other platforms get a stub that reports
// ErrUnsupportedPlatform, mirroring the interface/stub split the rest
// of this codebase uses for platform-specific concerns.
package serial

import "errors"

// ErrUnsupportedPlatform is returned by Open on platforms without a
// real termios-based implementation.
var ErrUnsupportedPlatform = errors.New("serial: unsupported platform")

// Config describes how to open and configure a serial port.
type Config struct {
	Port     string // device path, e.g. "/dev/ttyUSB0"
	BaudRate int    // e.g. 115200
}
