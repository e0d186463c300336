//go:build !linux

package serial

// Port is unavailable on this platform.
type Port struct{}

// Open always fails on non-Linux platforms; the termios-based
// implementation is Linux-only.
func Open(cfg Config) (*Port, error) {
	return nil, ErrUnsupportedPlatform
}

func (p *Port) Read(b []byte) (int, error)  { return 0, ErrUnsupportedPlatform }
func (p *Port) Write(b []byte) (int, error) { return 0, ErrUnsupportedPlatform }
func (p *Port) Close() error                { return ErrUnsupportedPlatform }
